package osmstore

import (
	"github.com/paulmach/osm"
)

// Store is the read interface the core needs from the host data store.
type Store interface {
	Node(id osm.NodeID) (*osm.Node, bool)
	Way(id osm.WayID) (*osm.Way, bool)
	Relation(id osm.RelationID) (*osm.Relation, bool)
	// Referrers returns the usable relations having feature as a member, ordered by id.
	Referrers(feature osm.FeatureID) []*osm.Relation
	// WaysOfNode returns the ways containing the node, ordered by id.
	WaysOfNode(id osm.NodeID) []*osm.Way
	IsDeleted(id osm.RelationID) bool
	// HasIncompleteMembers reports whether some member of r is not loaded in the store.
	HasIncompleteMembers(r *osm.Relation) bool
}

func HasKey(tags osm.Tags, key string) bool {
	for _, t := range tags {
		if t.Key == key {
			return true
		}
	}
	return false
}

func FirstNode(w *osm.Way) osm.NodeID {
	return w.Nodes[0].ID
}

func LastNode(w *osm.Way) osm.NodeID {
	return w.Nodes[len(w.Nodes)-1].ID
}

func IsEndNode(w *osm.Way, n osm.NodeID) bool {
	return len(w.Nodes) > 0 && (FirstNode(w) == n || LastNode(w) == n)
}

// OppositeEnd returns the end node of w opposite to n, false if n is not an end of w.
func OppositeEnd(w *osm.Way, n osm.NodeID) (osm.NodeID, bool) {
	if len(w.Nodes) < 2 {
		return 0, false
	}
	switch n {
	case FirstNode(w):
		return LastNode(w), true
	case LastNode(w):
		return FirstNode(w), true
	}
	return 0, false
}

// CommonEnd returns an end node shared by a and b.
func CommonEnd(a, b *osm.Way) (osm.NodeID, bool) {
	if len(a.Nodes) == 0 || len(b.Nodes) == 0 {
		return 0, false
	}
	for _, n := range []osm.NodeID{FirstNode(a), LastNode(a)} {
		if IsEndNode(b, n) {
			return n, true
		}
	}
	return 0, false
}

// MemberWays returns the ways of r having the given role, in member order.
func MemberWays(s Store, r *osm.Relation, role string) []*osm.Way {
	result := make([]*osm.Way, 0)
	for _, m := range r.Members {
		if m.Type != osm.TypeWay || m.Role != role {
			continue
		}
		if w, ok := s.Way(osm.WayID(m.Ref)); ok {
			result = append(result, w)
		}
	}
	return result
}

func MemberNodes(s Store, r *osm.Relation, role string) []*osm.Node {
	result := make([]*osm.Node, 0)
	for _, m := range r.Members {
		if m.Type != osm.TypeNode || m.Role != role {
			continue
		}
		if n, ok := s.Node(osm.NodeID(m.Ref)); ok {
			result = append(result, n)
		}
	}
	return result
}

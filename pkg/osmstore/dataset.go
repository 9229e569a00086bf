package osmstore

import (
	"sort"

	"github.com/lintang-b-s/laneconnectivity/pkg/command"
	"github.com/lintang-b-s/laneconnectivity/pkg/util"
	"github.com/paulmach/osm"
)

// DataSet is an in-memory Store. Deleting a relation is soft: it stays
// addressable by id but is no longer returned by Referrers.
type DataSet struct {
	nodes          map[osm.NodeID]*osm.Node
	ways           map[osm.WayID]*osm.Way
	relations      map[osm.RelationID]*osm.Relation
	deleted        map[osm.RelationID]bool
	nodeWays       map[osm.NodeID][]osm.WayID
	referrers      map[osm.FeatureID][]osm.RelationID
	nextRelationID osm.RelationID
}

var (
	_ Store               = (*DataSet)(nil)
	_ command.Target      = (*DataSet)(nil)
	_ command.IDAllocator = (*DataSet)(nil)
)

func NewDataSet() *DataSet {
	return &DataSet{
		nodes:          make(map[osm.NodeID]*osm.Node),
		ways:           make(map[osm.WayID]*osm.Way),
		relations:      make(map[osm.RelationID]*osm.Relation),
		deleted:        make(map[osm.RelationID]bool),
		nodeWays:       make(map[osm.NodeID][]osm.WayID),
		referrers:      make(map[osm.FeatureID][]osm.RelationID),
		nextRelationID: -1,
	}
}

func (d *DataSet) AddNode(n *osm.Node) {
	d.nodes[n.ID] = n
}

func (d *DataSet) AddWay(w *osm.Way) {
	if old, ok := d.ways[w.ID]; ok {
		d.unindexWay(old)
	}
	d.ways[w.ID] = w
	seen := make(map[osm.NodeID]struct{}, len(w.Nodes))
	for _, wn := range w.Nodes {
		if _, ok := seen[wn.ID]; ok {
			continue
		}
		seen[wn.ID] = struct{}{}
		d.nodeWays[wn.ID] = append(d.nodeWays[wn.ID], w.ID)
	}
}

func (d *DataSet) unindexWay(w *osm.Way) {
	for _, wn := range w.Nodes {
		ids := d.nodeWays[wn.ID]
		for i, id := range ids {
			if id == w.ID {
				d.nodeWays[wn.ID] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
	}
}

func (d *DataSet) AddRelation(r *osm.Relation) {
	if old, ok := d.relations[r.ID]; ok {
		d.unindexRelation(old)
	}
	d.relations[r.ID] = r
	d.indexRelation(r)
	if r.ID <= d.nextRelationID {
		d.nextRelationID = r.ID - 1
	}
}

func (d *DataSet) indexRelation(r *osm.Relation) {
	seen := make(map[osm.FeatureID]struct{}, len(r.Members))
	for _, m := range r.Members {
		fid := m.FeatureID()
		if _, ok := seen[fid]; ok {
			continue
		}
		seen[fid] = struct{}{}
		d.referrers[fid] = append(d.referrers[fid], r.ID)
	}
}

func (d *DataSet) unindexRelation(r *osm.Relation) {
	for _, m := range r.Members {
		fid := m.FeatureID()
		ids := d.referrers[fid]
		for i, id := range ids {
			if id == r.ID {
				d.referrers[fid] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
	}
}

func (d *DataSet) Node(id osm.NodeID) (*osm.Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

func (d *DataSet) Way(id osm.WayID) (*osm.Way, bool) {
	w, ok := d.ways[id]
	return w, ok
}

func (d *DataSet) Relation(id osm.RelationID) (*osm.Relation, bool) {
	r, ok := d.relations[id]
	return r, ok
}

func (d *DataSet) IsDeleted(id osm.RelationID) bool {
	return d.deleted[id]
}

func (d *DataSet) Referrers(feature osm.FeatureID) []*osm.Relation {
	ids := d.referrers[feature]
	result := make([]*osm.Relation, 0, len(ids))
	for _, id := range ids {
		if d.deleted[id] {
			continue
		}
		result = append(result, d.relations[id])
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (d *DataSet) WaysOfNode(id osm.NodeID) []*osm.Way {
	ids := d.nodeWays[id]
	result := make([]*osm.Way, 0, len(ids))
	for _, wid := range ids {
		result = append(result, d.ways[wid])
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (d *DataSet) HasIncompleteMembers(r *osm.Relation) bool {
	for _, m := range r.Members {
		switch m.Type {
		case osm.TypeNode:
			if _, ok := d.nodes[osm.NodeID(m.Ref)]; !ok {
				return true
			}
		case osm.TypeWay:
			if _, ok := d.ways[osm.WayID(m.Ref)]; !ok {
				return true
			}
		case osm.TypeRelation:
			if _, ok := d.relations[osm.RelationID(m.Ref)]; !ok {
				return true
			}
		}
	}
	return false
}

// Relations returns every non-deleted relation ordered by id.
func (d *DataSet) Relations() []*osm.Relation {
	result := make([]*osm.Relation, 0, len(d.relations))
	for id, r := range d.relations {
		if d.deleted[id] {
			continue
		}
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (d *DataSet) NumberOfWays() int {
	return len(d.ways)
}

func (d *DataSet) NumberOfNodes() int {
	return len(d.nodes)
}

// NewRelationID allocates a negative id for a relation that does not exist upstream yet.
func (d *DataSet) NewRelationID() osm.RelationID {
	id := d.nextRelationID
	d.nextRelationID--
	return id
}

// Apply applies one committed change and returns its inverse.
func (d *DataSet) Apply(c command.Change) (command.Change, error) {
	switch c.Op {
	case command.OP_SET_TAG:
		r, ok := d.relations[c.Relation]
		if !ok {
			return command.Change{}, util.NewErrorf(util.ErrNotFound, "relation %d", c.Relation)
		}
		old := r.Tags.Find(c.Key)
		r.Tags = command.SetTag(r.Tags, c.Key, c.Value)
		return command.Change{Op: command.OP_SET_TAG, Relation: c.Relation, Key: c.Key, Value: old}, nil
	case command.OP_CREATE:
		if _, ok := d.relations[c.Relation]; ok {
			return command.Change{}, util.NewErrorf(util.ErrInvalidOperation, "relation %d already exists", c.Relation)
		}
		d.AddRelation(c.Created)
		return command.Change{Op: command.OP_PURGE, Relation: c.Relation, Created: c.Created}, nil
	case command.OP_PURGE:
		r, ok := d.relations[c.Relation]
		if !ok {
			return command.Change{}, util.NewErrorf(util.ErrNotFound, "relation %d", c.Relation)
		}
		d.unindexRelation(r)
		delete(d.relations, c.Relation)
		delete(d.deleted, c.Relation)
		return command.Change{Op: command.OP_CREATE, Relation: c.Relation, Created: r}, nil
	case command.OP_DELETE:
		if _, ok := d.relations[c.Relation]; !ok {
			return command.Change{}, util.NewErrorf(util.ErrNotFound, "relation %d", c.Relation)
		}
		d.deleted[c.Relation] = true
		return command.Change{Op: command.OP_UNDELETE, Relation: c.Relation}, nil
	case command.OP_UNDELETE:
		delete(d.deleted, c.Relation)
		return command.Change{Op: command.OP_DELETE, Relation: c.Relation}, nil
	}
	return command.Change{}, util.NewErrorf(util.ErrInvalidArgument, "unknown change %v", c.Op)
}

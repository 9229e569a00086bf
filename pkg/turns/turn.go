package turns

import (
	"github.com/lintang-b-s/laneconnectivity/pkg"
	"github.com/lintang-b-s/laneconnectivity/pkg/connectivity"
	"github.com/lintang-b-s/laneconnectivity/pkg/osmstore"
	"github.com/lintang-b-s/laneconnectivity/pkg/roadgraph"
	"github.com/lintang-b-s/laneconnectivity/pkg/util"
	"github.com/paulmach/osm"
	"go.uber.org/zap"
)

// Turn binds a source lane, the roads passed on the way and the destination road
// end of one connectivity relation. It is a snapshot of the relation tags at load
// time and of the graph it was loaded from.
type Turn struct {
	relation osm.RelationID
	from     roadgraph.Index
	via      []roadgraph.Index
	to       roadgraph.Index
}

func NewTurn(relation osm.RelationID, from roadgraph.Index, via []roadgraph.Index, to roadgraph.Index) Turn {
	return Turn{
		relation: relation,
		from:     from,
		via:      via,
		to:       to,
	}
}

func (t Turn) GetRelation() osm.RelationID {
	return t.relation
}

// GetFrom returns the source lane.
func (t Turn) GetFrom() roadgraph.Index {
	return t.from
}

// GetVia returns the via roads in travel order, empty for a via node.
func (t Turn) GetVia() []roadgraph.Index {
	return t.via
}

// GetTo returns the destination road end.
func (t Turn) GetTo() roadgraph.Index {
	return t.to
}

type members struct {
	from     []osm.WayID
	to       []osm.WayID
	viaNodes []osm.NodeID
	viaWays  []osm.WayID
}

func splitMembers(ms osm.Members) members {
	var m members
	for _, rm := range ms {
		switch {
		case rm.Type == osm.TypeWay && rm.Role == pkg.ROLE_FROM:
			m.from = append(m.from, osm.WayID(rm.Ref))
		case rm.Type == osm.TypeWay && rm.Role == pkg.ROLE_TO:
			m.to = append(m.to, osm.WayID(rm.Ref))
		case rm.Type == osm.TypeNode && rm.Role == pkg.ROLE_VIA:
			m.viaNodes = append(m.viaNodes, osm.NodeID(rm.Ref))
		case rm.Type == osm.TypeWay && rm.Role == pkg.ROLE_VIA:
			m.viaWays = append(m.viaWays, osm.WayID(rm.Ref))
		}
	}
	return m
}

func (m members) qualifies() bool {
	if len(m.from) != 1 || len(m.to) != 1 {
		return false
	}
	viaNode := len(m.viaNodes) == 1 && len(m.viaWays) == 0
	viaWays := len(m.viaNodes) == 0 && len(m.viaWays) > 0
	return viaNode || viaWays
}

// Load returns the turns of relation r in g. Relations that do not qualify or that
// reference geometry outside g yield no turns and no error.
func Load(g *roadgraph.Graph, r *osm.Relation) ([]Turn, error) {
	m := splitMembers(r.Members)
	if !m.qualifies() {
		return nil, nil
	}

	var (
		fromEnd, toEnd roadgraph.Index
		via            []roadgraph.Index
		ok             bool
		err            error
	)
	if len(m.viaNodes) == 1 {
		fromEnd, toEnd, ok = resolveViaNode(g, m)
		via = make([]roadgraph.Index, 0)
	} else {
		fromEnd, via, toEnd, ok, err = resolveViaWays(g, m)
		if err != nil {
			return nil, util.WrapErrorf(err, util.ErrIllegalGraphState, "relation %d", r.ID)
		}
	}
	if !ok {
		g.GetLogger().Debug("turn relation references geometry outside the graph", zap.Int64("relation", int64(r.ID)))
		return nil, nil
	}

	return bindLanes(g, r, fromEnd, via, toEnd)
}

func resolveViaNode(g *roadgraph.Graph, m members) (roadgraph.Index, roadgraph.Index, bool) {
	if !g.HasRoad(m.from[0]) || !g.HasJunction(m.viaNodes[0]) || !g.HasRoad(m.to[0]) {
		return roadgraph.INVALID_INDEX, roadgraph.INVALID_INDEX, false
	}
	j, _ := g.GetJunction(m.viaNodes[0])
	fromEnd, ok := g.GetRoadEnd(j, m.from[0])
	if !ok {
		return roadgraph.INVALID_INDEX, roadgraph.INVALID_INDEX, false
	}
	toEnd, ok := g.GetRoadEnd(j, m.to[0])
	if !ok {
		return roadgraph.INVALID_INDEX, roadgraph.INVALID_INDEX, false
	}
	return fromEnd, toEnd, true
}

// resolveViaWays walks the via ways from the junction where the from way meets the
// first via way. Every via road must be primary and its whole route must appear in
// the via list, in travel order.
func resolveViaWays(g *roadgraph.Graph, m members) (fromEnd roadgraph.Index, via []roadgraph.Index,
	toEnd roadgraph.Index, ok bool, err error) {
	fromEnd, toEnd = roadgraph.INVALID_INDEX, roadgraph.INVALID_INDEX
	if !g.HasRoad(m.from[0]) || !g.HasRoad(m.to[0]) {
		return fromEnd, nil, toEnd, false, nil
	}

	store := g.GetStore()
	fromWay, okFrom := store.Way(m.from[0])
	firstVia, okVia := store.Way(m.viaWays[0])
	toWay, okTo := store.Way(m.to[0])
	if !okFrom || !okVia || !okTo {
		return fromEnd, nil, toEnd, false, nil
	}

	n, touching := osmstore.CommonEnd(fromWay, firstVia)
	if !touching {
		return fromEnd, nil, toEnd, false, util.NewErrorf(util.ErrIllegalGraphState,
			"from way %d does not touch via way %d", fromWay.ID, firstVia.ID)
	}
	j, found := g.GetJunction(n)
	if !found {
		return fromEnd, nil, toEnd, false, nil
	}
	fromEnd, found = g.GetRoadEnd(j, fromWay.ID)
	if !found {
		return roadgraph.INVALID_INDEX, nil, toEnd, false, nil
	}

	via = make([]roadgraph.Index, 0, len(m.viaWays))
	for i := 0; i < len(m.viaWays); {
		r, modeled := g.GetRoad(m.viaWays[i])
		if !modeled {
			return fromEnd, nil, toEnd, false, nil
		}
		road := g.Road(r)
		if !road.IsPrimary() {
			return fromEnd, nil, toEnd, false, util.NewErrorf(util.ErrIllegalGraphState,
				"via way %d is not part of the junction", m.viaWays[i])
		}

		first, last := g.GetJunctionNode(road.GetFromEnd()), g.GetJunctionNode(road.GetToEnd())
		if n != first && n != last {
			return fromEnd, nil, toEnd, false, util.NewErrorf(util.ErrIllegalGraphState,
				"via ways do not form a road: road of way %d does not start at node %d", m.viaWays[i], n)
		}
		for k, w := range g.WaysFrom(r, n) {
			if i+k >= len(m.viaWays) || m.viaWays[i+k] != w {
				return fromEnd, nil, toEnd, false, util.NewErrorf(util.ErrIllegalGraphState,
					"via ways do not form a road: expected way %d at position %d", w, i+k)
			}
		}
		i += len(road.GetRoute())
		via = append(via, r)

		if n == first {
			n = last
		} else {
			n = first
		}
	}

	if !osmstore.IsEndNode(toWay, n) {
		return fromEnd, nil, toEnd, false, util.NewErrorf(util.ErrIllegalGraphState,
			"to way %d does not start at the end of the via ways", toWay.ID)
	}
	j, found = g.GetJunction(n)
	if !found {
		return fromEnd, nil, toEnd, false, nil
	}
	toEnd, found = g.GetRoadEnd(j, toWay.ID)
	if !found {
		return fromEnd, nil, roadgraph.INVALID_INDEX, false, nil
	}
	return fromEnd, via, toEnd, true, nil
}

// bindLanes emits one turn per source lane of the connectivity tag and per extra lane
// of the lanes:extra tag.
func bindLanes(g *roadgraph.Graph, r *osm.Relation, fromEnd roadgraph.Index, via []roadgraph.Index,
	toEnd roadgraph.Index) ([]Turn, error) {
	cm, err := connectivity.Decode(r.Tags.Find(pkg.KEY_CONNECTIVITY))
	if err != nil {
		return nil, err
	}
	extra, err := connectivity.DecodeLanes(r.Tags.Find(pkg.KEY_EXTRA_LANES))
	if err != nil {
		return nil, err
	}

	result := make([]Turn, 0, cm.Len()+len(extra))
	for _, i := range cm.Keys() {
		l, ok := g.GetLane(fromEnd, pkg.REGULAR, i)
		if !ok {
			return nil, util.NewErrorf(util.ErrIllegalGraphState,
				"relation %d: lane %d does not exist on way %d", r.ID, i, g.End(fromEnd).GetWay())
		}
		result = append(result, NewTurn(r.ID, l, via, toEnd))
	}
	for _, i := range extra {
		kind := pkg.EXTRA_RIGHT
		if i < 0 {
			kind = pkg.EXTRA_LEFT
		}
		l, ok := g.GetLane(fromEnd, kind, i)
		if !ok {
			return nil, util.NewErrorf(util.ErrIllegalGraphState,
				"relation %d: %v lane %d does not exist on way %d", r.ID, kind, i, g.End(fromEnd).GetWay())
		}
		result = append(result, NewTurn(r.ID, l, via, toEnd))
	}
	return result, nil
}

// LoadByRole returns the turns of every connectivity relation having feature as a
// member with the given role.
func LoadByRole(g *roadgraph.Graph, role string, feature osm.FeatureID) ([]Turn, error) {
	result := make([]Turn, 0)
	for _, r := range g.GetStore().Referrers(feature) {
		if r.Tags.Find(pkg.KEY_TYPE) != pkg.TYPE_CONNECTIVITY || !hasMember(r, role, feature) {
			continue
		}
		ts, err := Load(g, r)
		if err != nil {
			return nil, err
		}
		result = append(result, ts...)
	}
	return result, nil
}

func hasMember(r *osm.Relation, role string, feature osm.FeatureID) bool {
	for _, m := range r.Members {
		if m.Role == role && m.FeatureID() == feature {
			return true
		}
	}
	return false
}

// FromLane returns the turns starting at lane l.
func FromLane(g *roadgraph.Graph, l roadgraph.Index) ([]Turn, error) {
	way := g.End(g.Lane(l).GetRoadEnd()).GetWay()
	ts, err := LoadByRole(g, pkg.ROLE_FROM, way.FeatureID())
	if err != nil {
		return nil, err
	}
	result := make([]Turn, 0, len(ts))
	for _, t := range ts {
		if t.from == l {
			result = append(result, t)
		}
	}
	return result, nil
}

// ToEnd returns the turns ending at road end e.
func ToEnd(g *roadgraph.Graph, e roadgraph.Index) ([]Turn, error) {
	ts, err := LoadByRole(g, pkg.ROLE_TO, g.End(e).GetWay().FeatureID())
	if err != nil {
		return nil, err
	}
	result := make([]Turn, 0, len(ts))
	for _, t := range ts {
		if t.to == e {
			result = append(result, t)
		}
	}
	return result, nil
}

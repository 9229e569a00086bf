package turns

import (
	"github.com/lintang-b-s/laneconnectivity/pkg"
	"github.com/lintang-b-s/laneconnectivity/pkg/command"
	"github.com/lintang-b-s/laneconnectivity/pkg/connectivity"
	"github.com/lintang-b-s/laneconnectivity/pkg/roadgraph"
	"github.com/lintang-b-s/laneconnectivity/pkg/util"
	"github.com/paulmach/osm"
)

// stagedLanes returns the connectivity map and extra lane list of r as staged in u.
func stagedLanes(u *command.UnitOfWork, r *osm.Relation) (*connectivity.Map, []int, error) {
	cm, err := connectivity.Decode(u.Value(r, pkg.KEY_CONNECTIVITY))
	if err != nil {
		return nil, nil, err
	}
	extra, err := connectivity.DecodeLanes(u.Value(r, pkg.KEY_EXTRA_LANES))
	if err != nil {
		return nil, nil, err
	}
	return cm, extra, nil
}

func relationOf(u *command.UnitOfWork, g *roadgraph.Graph, id osm.RelationID) (*osm.Relation, error) {
	for _, r := range u.CreatedRelations() {
		if r.ID == id {
			return r, nil
		}
	}
	r, ok := g.GetStore().Relation(id)
	if !ok {
		return nil, util.NewErrorf(util.ErrNotFound, "relation %d", id)
	}
	return r, nil
}

func removeInt(list []int, v int) []int {
	result := make([]int, 0, len(list))
	for _, x := range list {
		if x != v {
			result = append(result, x)
		}
	}
	return result
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// Remove stages the removal of the source lane of t from its relation. The relation
// is deleted when t was its last entry.
func (t Turn) Remove(u *command.UnitOfWork, g *roadgraph.Graph) error {
	r, err := relationOf(u, g, t.relation)
	if err != nil {
		return err
	}
	if u.IsDeleted(r.ID) {
		return nil
	}
	cm, extra, err := stagedLanes(u, r)
	if err != nil {
		return err
	}

	lane := g.Lane(t.from)
	if lane.IsExtra() {
		if !containsInt(extra, lane.GetIndex()) {
			return nil
		}
		extra = removeInt(extra, lane.GetIndex())
	} else {
		if !cm.Has(lane.GetIndex()) {
			return nil
		}
		cm.Delete(lane.GetIndex())
	}

	if cm.Len()+len(extra) == 0 {
		u.Delete(r.ID)
		return nil
	}
	if lane.IsExtra() {
		u.Put(r.ID, pkg.KEY_EXTRA_LANES, connectivity.EncodeLanes(extra))
	} else {
		u.Put(r.ID, pkg.KEY_CONNECTIVITY, connectivity.Encode(cm))
	}
	return nil
}

// FixReferences shifts the extra lane references of the relation of t after the extra
// lane at index was removed: on the left side indices below index move up by one, on
// the right side indices above index move down by one.
func (t Turn) FixReferences(u *command.UnitOfWork, g *roadgraph.Graph, left bool, index int) error {
	r, err := relationOf(u, g, t.relation)
	if err != nil {
		return err
	}
	if u.IsDeleted(r.ID) {
		return nil
	}
	_, extra, err := stagedLanes(u, r)
	if err != nil {
		return err
	}

	fixed := make([]int, 0, len(extra))
	for _, i := range extra {
		switch {
		case left && i < index:
			fixed = append(fixed, i+1)
		case !left && i > index:
			fixed = append(fixed, i-1)
		default:
			fixed = append(fixed, i)
		}
	}
	u.Put(r.ID, pkg.KEY_EXTRA_LANES, connectivity.EncodeLanes(fixed))
	return nil
}

// flattenVia lists the ways of the via roads in travel order, starting at node, and
// returns the node where the last via road ends.
func flattenVia(g *roadgraph.Graph, node osm.NodeID, via []roadgraph.Index) ([]osm.WayID, osm.NodeID, error) {
	result := make([]osm.WayID, 0)
	for _, r := range via {
		road := g.Road(r)
		first, last := g.GetJunctionNode(road.GetFromEnd()), g.GetJunctionNode(road.GetToEnd())
		if node != first && node != last {
			return nil, 0, util.NewErrorf(util.ErrInvalidArgument, "via roads are not connected at node %d", node)
		}
		result = append(result, g.WaysFrom(r, node)...)
		if node == first {
			node = last
		} else {
			node = first
		}
	}
	return result, node, nil
}

func wantedMembers(g *roadgraph.Graph, lane roadgraph.Index, via []roadgraph.Index, to roadgraph.Index) (osm.Members, error) {
	fromEnd := g.Lane(lane).GetRoadEnd()
	node := g.GetJunctionNode(fromEnd)

	result := osm.Members{{Type: osm.TypeWay, Ref: int64(g.End(fromEnd).GetWay()), Role: pkg.ROLE_FROM}}
	if len(via) == 0 {
		if g.End(to).GetJunction() != g.End(fromEnd).GetJunction() {
			return nil, util.NewErrorf(util.ErrInvalidArgument,
				"to end is not at the junction of node %d", node)
		}
		result = append(result, osm.Member{Type: osm.TypeNode, Ref: int64(node), Role: pkg.ROLE_VIA})
	} else {
		ways, last, err := flattenVia(g, node, via)
		if err != nil {
			return nil, err
		}
		if last != g.GetJunctionNode(to) {
			return nil, util.NewErrorf(util.ErrInvalidArgument,
				"via roads end at node %d, not at the to end", last)
		}
		for _, w := range ways {
			result = append(result, osm.Member{Type: osm.TypeWay, Ref: int64(w), Role: pkg.ROLE_VIA})
		}
	}
	result = append(result, osm.Member{Type: osm.TypeWay, Ref: int64(g.End(to).GetWay()), Role: pkg.ROLE_TO})
	return result, nil
}

func sameIDs[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sameMembers compares the from, via and to role groups of r with want. The order
// of the groups within the member list does not matter, the order of via ways does.
func sameMembers(r *osm.Relation, want osm.Members) bool {
	got, w := splitMembers(r.Members), splitMembers(want)
	return sameIDs(got.from, w.from) && sameIDs(got.to, w.to) &&
		sameIDs(got.viaNodes, w.viaNodes) && sameIDs(got.viaWays, w.viaWays)
}

// findExisting looks up the connectivity relation with exactly the given from, via
// and to members, including relations created earlier in u.
func findExisting(u *command.UnitOfWork, g *roadgraph.Graph, want osm.Members) (*osm.Relation, bool) {
	for _, r := range u.CreatedRelations() {
		if r.Tags.Find(pkg.KEY_TYPE) == pkg.TYPE_CONNECTIVITY && sameMembers(r, want) {
			return r, true
		}
	}
	from := osm.WayID(want[0].Ref)
	for _, r := range g.GetStore().Referrers(from.FeatureID()) {
		if u.IsDeleted(r.ID) || r.Tags.Find(pkg.KEY_TYPE) != pkg.TYPE_CONNECTIVITY {
			continue
		}
		if sameMembers(r, want) {
			return r, true
		}
	}
	return nil, false
}

// AddTurn stages a turn from lane over the via roads to road end to. A regular lane
// is connected to toLanes, or to the closest existing lane of the to road when
// toLanes is empty. Adding a lane that is already present is a no-op.
func AddTurn(u *command.UnitOfWork, g *roadgraph.Graph, lane roadgraph.Index, via []roadgraph.Index,
	to roadgraph.Index, toLanes []int) error {
	want, err := wantedMembers(g, lane, via, to)
	if err != nil {
		return err
	}

	r, found := findExisting(u, g, want)
	if !found {
		r = &osm.Relation{
			Tags:    osm.Tags{{Key: pkg.KEY_TYPE, Value: pkg.TYPE_CONNECTIVITY}},
			Members: want,
		}
		u.Create(r)
	}

	cm, extra, err := stagedLanes(u, r)
	if err != nil {
		return err
	}

	l := g.Lane(lane)
	if l.IsExtra() {
		if containsInt(extra, l.GetIndex()) {
			return nil
		}
		u.Put(r.ID, pkg.KEY_EXTRA_LANES, connectivity.EncodeLanes(append(extra, l.GetIndex())))
		return nil
	}

	dests, present := cm.Get(l.GetIndex())
	if present && len(toLanes) == 0 {
		return nil
	}
	merged := make(map[int]bool, len(dests)+1)
	for k, v := range dests {
		merged[k] = v
	}
	if len(toLanes) == 0 {
		toLanes = []int{defaultDestination(g, l.GetIndex(), to)}
	}
	for _, d := range toLanes {
		if d < 1 {
			return util.NewErrorf(util.ErrInvalidArgument, "destination lane must be positive, got %d", d)
		}
		if _, ok := merged[d]; !ok {
			merged[d] = false
		}
	}
	cm.Set(l.GetIndex(), merged)
	u.Put(r.ID, pkg.KEY_CONNECTIVITY, connectivity.Encode(cm))
	return nil
}

// defaultDestination maps a source lane to the same lane number on the to road,
// capped by the lanes leaving the junction along it.
func defaultDestination(g *roadgraph.Graph, index int, to roadgraph.Index) int {
	count := g.GetRegularLaneCount(g.GetOppositeEnd(to))
	if count < 1 {
		count = 1
	}
	if index > count {
		return count
	}
	return index
}

// RemoveLane stages the removal of extra lane l: its turns are removed, references to
// outer extra lanes on the same side are renumbered and its length entry is dropped.
func RemoveLane(u *command.UnitOfWork, g *roadgraph.Graph, l roadgraph.Index) error {
	lane := g.Lane(l)
	if !lane.IsExtra() {
		return util.NewErrorf(util.ErrInvalidOperation, "only extra lanes can be removed")
	}

	own, err := FromLane(g, l)
	if err != nil {
		return err
	}
	for _, t := range own {
		if err := t.Remove(u, g); err != nil {
			return err
		}
	}

	way := g.End(lane.GetRoadEnd()).GetWay()
	all, err := LoadByRole(g, pkg.ROLE_FROM, way.FeatureID())
	if err != nil {
		return err
	}
	left := lane.GetKind() == pkg.EXTRA_LEFT
	fixed := make(map[osm.RelationID]struct{})
	for _, t := range all {
		other := g.Lane(t.from)
		if other.GetRoadEnd() != lane.GetRoadEnd() || other.GetKind() != lane.GetKind() {
			continue
		}
		if util.Abs(other.GetIndex()) <= util.Abs(lane.GetIndex()) {
			continue
		}
		if _, done := fixed[t.relation]; done {
			continue
		}
		fixed[t.relation] = struct{}{}
		if err := t.FixReferences(u, g, left, lane.GetIndex()); err != nil {
			return err
		}
	}

	return g.StageLaneRemoval(u, l)
}

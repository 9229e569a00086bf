package roadgraph

import (
	"math"

	"github.com/lintang-b-s/laneconnectivity/pkg"
	"github.com/lintang-b-s/laneconnectivity/pkg/command"
	"github.com/lintang-b-s/laneconnectivity/pkg/connectivity"
	"github.com/lintang-b-s/laneconnectivity/pkg/osmstore"
	"github.com/lintang-b-s/laneconnectivity/pkg/util"
	"github.com/paulmach/osm"
	"go.uber.org/zap"
)

// findLengthsRelation returns the turnlanes:lengths relation with node as "end"
// and way among its "ways".
func findLengthsRelation(store osmstore.Store, node osm.NodeID, way osm.WayID) (*osm.Relation, bool) {
	for _, r := range store.Referrers(node.FeatureID()) {
		if isLengthsRelationOf(r, node, way) {
			return r, true
		}
	}
	return nil, false
}

func isLengthsRelationOf(r *osm.Relation, node osm.NodeID, way osm.WayID) bool {
	if r.Tags.Find(pkg.KEY_TYPE) != pkg.TYPE_LENGTHS {
		return false
	}
	hasEnd, hasWay := false, false
	for _, m := range r.Members {
		if m.Type == osm.TypeNode && m.Role == pkg.ROLE_LENGTHS_END && osm.NodeID(m.Ref) == node {
			hasEnd = true
		}
		if m.Type == osm.TypeWay && m.Role == pkg.ROLE_LENGTHS_WAYS && osm.WayID(m.Ref) == way {
			hasWay = true
		}
	}
	return hasEnd && hasWay
}

func lengthsKey(kind pkg.LaneKind) string {
	if kind == pkg.EXTRA_LEFT {
		return pkg.KEY_LENGTHS_LEFT
	}
	return pkg.KEY_LENGTHS_RIGHT
}

func (g *Graph) loadLengths(e Index) (left []float64, right []float64, err error) {
	end := &g.ends[e]
	node := g.junctions[end.junction].node
	r, ok := findLengthsRelation(g.store, node, end.way)
	if !ok {
		return nil, nil, nil
	}
	end.lengths = r.ID

	var dropped []float64
	left, dropped, err = connectivity.DecodeLengths(r.Tags.Find(pkg.KEY_LENGTHS_LEFT), g.cfg.MinExtraLaneLength)
	if err != nil {
		return nil, nil, err
	}
	g.logDropped(r.ID, pkg.KEY_LENGTHS_LEFT, dropped)

	right, dropped, err = connectivity.DecodeLengths(r.Tags.Find(pkg.KEY_LENGTHS_RIGHT), g.cfg.MinExtraLaneLength)
	if err != nil {
		return nil, nil, err
	}
	g.logDropped(r.ID, pkg.KEY_LENGTHS_RIGHT, dropped)
	return left, right, nil
}

func (g *Graph) logDropped(r osm.RelationID, key string, dropped []float64) {
	if len(dropped) == 0 {
		return
	}
	g.log.Debug("dropping extra lane lengths below minimum",
		zap.Int64("relation", int64(r)), zap.String("key", key),
		zap.Float64s("lengths", dropped), zap.Float64("min", g.cfg.MinExtraLaneLength))
}

// extraLengths returns the lengths of the extra lanes of kind at e, innermost first.
func (g *Graph) extraLengths(e Index, kind pkg.LaneKind) []float64 {
	result := make([]float64, 0)
	lanes := g.ends[e].lanes
	if kind == pkg.EXTRA_LEFT {
		for i := len(lanes) - 1; i >= 0; i-- {
			if g.lanes[lanes[i]].kind == kind {
				result = append(result, g.lanes[lanes[i]].length)
			}
		}
		return result
	}
	for _, l := range lanes {
		if g.lanes[l].kind == kind {
			result = append(result, g.lanes[l].length)
		}
	}
	return result
}

// stagedLengths returns every length of kind stored for e as staged in u, entries
// below the minimum included, and the positions of the entries that make lanes,
// innermost first.
func (g *Graph) stagedLengths(u *command.UnitOfWork, e Index, kind pkg.LaneKind) ([]float64, []int, *osm.Relation, error) {
	r, ok := g.lengthsRelationFor(u, e)
	if !ok {
		stored := g.extraLengths(e, kind)
		lanes := make([]int, len(stored))
		for i := range stored {
			lanes[i] = i
		}
		return stored, lanes, nil, nil
	}
	stored, _, err := connectivity.DecodeLengths(u.Value(r, lengthsKey(kind)), math.Inf(-1))
	if err != nil {
		return nil, nil, nil, err
	}
	lanes := make([]int, 0, len(stored))
	for i, length := range stored {
		if length >= g.cfg.MinExtraLaneLength {
			lanes = append(lanes, i)
		}
	}
	return stored, lanes, r, nil
}

// lengthsRelationFor finds the lengths relation of e in the store, or one created by u.
func (g *Graph) lengthsRelationFor(u *command.UnitOfWork, e Index) (*osm.Relation, bool) {
	end := &g.ends[e]
	if end.lengths != 0 {
		if r, ok := g.store.Relation(end.lengths); ok && !u.IsDeleted(r.ID) {
			return r, true
		}
	}
	node := g.junctions[end.junction].node
	for _, r := range u.CreatedRelations() {
		if isLengthsRelationOf(r, node, end.way) {
			return r, true
		}
	}
	return nil, false
}

func (g *Graph) checkLength(length float64) error {
	if length <= 0 {
		return util.NewErrorf(util.ErrInvalidArgument, "length must be positive, got %v", length)
	}
	if length < g.cfg.MinExtraLaneLength {
		return util.NewErrorf(util.ErrInvalidArgument, "length %v is below the minimum extra lane length %v",
			length, g.cfg.MinExtraLaneLength)
	}
	return nil
}

// SetLaneLength changes the length of an extra lane and stages the matching
// lengths tag update in u.
func (g *Graph) SetLaneLength(u *command.UnitOfWork, l Index, length float64) error {
	lane := &g.lanes[l]
	if !lane.kind.IsExtra() {
		return util.NewErrorf(util.ErrInvalidOperation, "length can only be set for extra lanes")
	}
	if err := g.checkLength(length); err != nil {
		return err
	}

	lengths, lanes, r, err := g.stagedLengths(u, lane.end, lane.kind)
	if err != nil {
		return err
	}
	pos := util.Abs(lane.index) - 1
	if r == nil || pos >= len(lanes) {
		return util.NewErrorf(util.ErrIllegalGraphState, "extra lane %d has no stored length", lane.index)
	}
	lengths[lanes[pos]] = length
	u.Put(r.ID, lengthsKey(lane.kind), connectivity.EncodeLengths(lengths))
	lane.length = length
	return nil
}

// AddExtraLane stages a new outermost extra lane of kind at e. The lane shows up
// after the graph is recalculated.
func (g *Graph) AddExtraLane(u *command.UnitOfWork, e Index, kind pkg.LaneKind, length float64) error {
	if !kind.IsExtra() {
		return util.NewErrorf(util.ErrInvalidArgument, "kind must be extra_left or extra_right, got %v", kind)
	}
	if err := g.checkLength(length); err != nil {
		return err
	}

	lengths, _, r, err := g.stagedLengths(u, e, kind)
	if err != nil {
		return err
	}
	lengths = append(lengths, length)
	text := connectivity.EncodeLengths(lengths)

	if r != nil {
		u.Put(r.ID, lengthsKey(kind), text)
		return nil
	}

	end := &g.ends[e]
	nr := osmstore.NewRelation(0, "type="+pkg.TYPE_LENGTHS,
		osm.Member{Type: osm.TypeNode, Ref: int64(g.junctions[end.junction].node), Role: pkg.ROLE_LENGTHS_END},
		osm.Member{Type: osm.TypeWay, Ref: int64(end.way), Role: pkg.ROLE_LENGTHS_WAYS},
	)
	nr.Tags = command.SetTag(nr.Tags, lengthsKey(kind), text)
	u.Create(nr)
	return nil
}

// StageLaneRemoval stages the removal of the length entry of extra lane l. The
// lengths relation is deleted once it holds no entries.
func (g *Graph) StageLaneRemoval(u *command.UnitOfWork, l Index) error {
	lane := &g.lanes[l]
	if !lane.kind.IsExtra() {
		return util.NewErrorf(util.ErrInvalidOperation, "only extra lanes can be removed")
	}
	lengths, lanes, r, err := g.stagedLengths(u, lane.end, lane.kind)
	if err != nil {
		return err
	}
	pos := util.Abs(lane.index) - 1
	if r == nil || pos >= len(lanes) {
		return util.NewErrorf(util.ErrIllegalGraphState, "extra lane %d has no stored length", lane.index)
	}
	lengths = append(lengths[:lanes[pos]], lengths[lanes[pos]+1:]...)

	other := pkg.EXTRA_RIGHT
	if lane.kind == pkg.EXTRA_RIGHT {
		other = pkg.EXTRA_LEFT
	}
	if len(lengths) == 0 && u.Value(r, lengthsKey(other)) == "" {
		u.Delete(r.ID)
		return nil
	}
	u.Put(r.ID, lengthsKey(lane.kind), connectivity.EncodeLengths(lengths))
	return nil
}

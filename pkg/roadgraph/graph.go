package roadgraph

import (
	"sort"

	"github.com/lintang-b-s/laneconnectivity/pkg"
	"github.com/lintang-b-s/laneconnectivity/pkg/osmstore"
	"github.com/lintang-b-s/laneconnectivity/pkg/util"
	"github.com/paulmach/osm"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
)

// Graph is one snapshot of the roads, junctions, road ends and lanes around the
// edited junctions. It is rebuilt as a whole by Recalculate; indices of an old
// snapshot are meaningless in a new one.
type Graph struct {
	store        osmstore.Store
	cfg          util.Config
	log          *zap.Logger
	seedNodes    []osm.NodeID
	seedWays     []osm.WayID
	primaryNodes map[osm.NodeID]struct{}
	primaryWays  map[osm.WayID]struct{}

	junctions []Junction
	roads     []Road
	ends      []RoadEnd
	lanes     []Lane

	junctionByNode map[osm.NodeID]Index
	roadByWay      map[osm.WayID]Index

	junctionTree *rtree.RTreeG[Index]
	roadTree     *rtree.RTreeG[Index]
}

// NewGraph builds the graph around the given primary nodes and ways.
func NewGraph(store osmstore.Store, primaryNodes []osm.NodeID, primaryWays []osm.WayID,
	cfg util.Config, log *zap.Logger) (*Graph, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var jt, rt rtree.RTreeG[Index]
	g := &Graph{
		store:          store,
		cfg:            cfg,
		log:            log,
		seedNodes:      append([]osm.NodeID(nil), primaryNodes...),
		seedWays:       append([]osm.WayID(nil), primaryWays...),
		primaryNodes:   make(map[osm.NodeID]struct{}),
		primaryWays:    make(map[osm.WayID]struct{}),
		junctions:      make([]Junction, 0),
		roads:          make([]Road, 0),
		ends:           make([]RoadEnd, 0),
		lanes:          make([]Lane, 0),
		junctionByNode: make(map[osm.NodeID]Index),
		roadByWay:      make(map[osm.WayID]Index),
		junctionTree:   &jt,
		roadTree:       &rt,
	}

	if err := g.build(); err != nil {
		return nil, err
	}

	log.Sugar().Infof("road graph built: %d junctions, %d roads, %d lanes",
		len(g.junctions), len(g.roads), len(g.lanes))
	return g, nil
}

// Recalculate rebuilds the graph from the current content of the store with the same seeds.
func (g *Graph) Recalculate() (*Graph, error) {
	return NewGraph(g.store, g.seedNodes, g.seedWays, g.cfg, g.log)
}

func (g *Graph) GetStore() osmstore.Store {
	return g.store
}

func (g *Graph) GetConfig() util.Config {
	return g.cfg
}

func (g *Graph) GetLogger() *zap.Logger {
	return g.log
}

func (g *Graph) HasRoad(way osm.WayID) bool {
	_, ok := g.roadByWay[way]
	return ok
}

// GetRoad returns the road containing way.
func (g *Graph) GetRoad(way osm.WayID) (Index, bool) {
	r, ok := g.roadByWay[way]
	return r, ok
}

func (g *Graph) HasJunction(node osm.NodeID) bool {
	_, ok := g.junctionByNode[node]
	return ok
}

func (g *Graph) GetJunction(node osm.NodeID) (Index, bool) {
	j, ok := g.junctionByNode[node]
	return j, ok
}

func (g *Graph) Road(r Index) *Road {
	return &g.roads[r]
}

func (g *Graph) Junction(j Index) *Junction {
	return &g.junctions[j]
}

func (g *Graph) End(e Index) *RoadEnd {
	return &g.ends[e]
}

func (g *Graph) Lane(l Index) *Lane {
	return &g.lanes[l]
}

func (g *Graph) NumberOfRoads() int {
	return len(g.roads)
}

func (g *Graph) NumberOfJunctions() int {
	return len(g.junctions)
}

func (g *Graph) NumberOfLanes() int {
	return len(g.lanes)
}

// PrimaryJunctions returns the junctions under active editing, ordered by node id.
func (g *Graph) PrimaryJunctions() []Index {
	result := make([]Index, 0)
	for i := range g.junctions {
		if g.junctions[i].primary {
			result = append(result, Index(i))
		}
	}
	sort.Slice(result, func(a, b int) bool {
		return g.junctions[result[a]].node < g.junctions[result[b]].node
	})
	return result
}

// GetOppositeEnd returns the other end of the road of e.
func (g *Graph) GetOppositeEnd(e Index) Index {
	road := &g.roads[g.ends[e].road]
	if road.fromEnd == e {
		return road.toEnd
	}
	return road.fromEnd
}

// GetRoadEnd returns the end at junction j of the road whose adjacent way is way.
func (g *Graph) GetRoadEnd(j Index, way osm.WayID) (Index, bool) {
	for _, e := range g.junctions[j].ends {
		if g.ends[e].way == way {
			return e, true
		}
	}
	return INVALID_INDEX, false
}

// GetLane looks up a lane of end e by kind and index.
func (g *Graph) GetLane(e Index, kind pkg.LaneKind, index int) (Index, bool) {
	for _, l := range g.ends[e].lanes {
		if g.lanes[l].kind == kind && g.lanes[l].index == index {
			return l, true
		}
	}
	return INVALID_INDEX, false
}

// GetRegularLaneCount returns the number of regular lanes of end e.
func (g *Graph) GetRegularLaneCount(e Index) int {
	count := 0
	for _, l := range g.ends[e].lanes {
		if g.lanes[l].kind == pkg.REGULAR {
			count++
		}
	}
	return count
}

// GetLaneLength returns the explicit length of an extra lane, the road length otherwise.
func (g *Graph) GetLaneLength(l Index) float64 {
	lane := &g.lanes[l]
	if lane.kind.IsExtra() {
		return lane.length
	}
	return g.roads[g.ends[lane.end].road].length
}

// GetOutgoingJunction returns the junction a lane leads into.
func (g *Graph) GetOutgoingJunction(l Index) Index {
	return g.ends[g.lanes[l].end].junction
}

// GetIncomingEnd returns the road end a lane starts from.
func (g *Graph) GetIncomingEnd(l Index) Index {
	return g.GetOppositeEnd(g.lanes[l].end)
}

func (g *Graph) GetJunctionNode(e Index) osm.NodeID {
	return g.junctions[g.ends[e].junction].node
}

// RefOf returns a snapshot independent reference to lane l.
func (g *Graph) RefOf(l Index) LaneRef {
	lane := &g.lanes[l]
	end := &g.ends[lane.end]
	return LaneRef{
		Way:   end.way,
		Node:  g.junctions[end.junction].node,
		Kind:  lane.kind,
		Index: lane.index,
	}
}

// MatchLane finds the lane of this snapshot identified by ref. A structure that
// changed incompatibly yields no match.
func (g *Graph) MatchLane(ref LaneRef) (Index, bool) {
	if _, ok := g.roadByWay[ref.Way]; !ok {
		return INVALID_INDEX, false
	}
	j, ok := g.junctionByNode[ref.Node]
	if !ok {
		return INVALID_INDEX, false
	}
	e, ok := g.GetRoadEnd(j, ref.Way)
	if !ok {
		return INVALID_INDEX, false
	}
	return g.GetLane(e, ref.Kind, ref.Index)
}

// WaysFrom returns the ways of road r in travel order when entering it at node.
func (g *Graph) WaysFrom(r Index, node osm.NodeID) []osm.WayID {
	road := &g.roads[r]
	ways := make([]osm.WayID, len(road.route))
	for i, s := range road.route {
		ways[i] = s.way
	}
	if g.GetJunctionNode(road.fromEnd) != node {
		ways = util.ReverseG(ways)
	}
	return ways
}

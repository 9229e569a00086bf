package roadgraph

import (
	"github.com/lintang-b-s/laneconnectivity/pkg"
	"github.com/lintang-b-s/laneconnectivity/pkg/geo"
	"github.com/paulmach/osm"
)

// Index addresses a road, junction, road end or lane inside one Graph snapshot.
type Index int32

const INVALID_INDEX Index = -1

type Junction struct {
	id      Index
	node    osm.NodeID
	coord   geo.Coordinate
	primary bool
	ends    []Index
}

func (j *Junction) GetID() Index {
	return j.id
}

func (j *Junction) GetNode() osm.NodeID {
	return j.node
}

func (j *Junction) GetCoordinate() geo.Coordinate {
	return j.coord
}

func (j *Junction) IsPrimary() bool {
	return j.primary
}

// GetRoadEnds returns the road ends meeting at this junction.
func (j *Junction) GetRoadEnds() []Index {
	return j.ends
}

// Segment is one way of a road's route. forward is true when the route
// traverses the way in its stored node order.
type Segment struct {
	way     osm.WayID
	forward bool
}

func (s Segment) GetWay() osm.WayID {
	return s.way
}

func (s Segment) IsForward() bool {
	return s.forward
}

type Road struct {
	id      Index
	route   []Segment
	coords  []geo.Coordinate
	length  float64
	primary bool
	fromEnd Index
	toEnd   Index
}

func (r *Road) GetID() Index {
	return r.id
}

// GetRoute returns the ways of the road ordered from its from end to its to end.
func (r *Road) GetRoute() []Segment {
	return r.route
}

func (r *Road) GetFirstSegment() Segment {
	return r.route[0]
}

func (r *Road) GetLastSegment() Segment {
	return r.route[len(r.route)-1]
}

// GetLength returns the road length in meter.
func (r *Road) GetLength() float64 {
	return r.length
}

func (r *Road) GetGeometry() []geo.Coordinate {
	return r.coords
}

func (r *Road) IsPrimary() bool {
	return r.primary
}

func (r *Road) GetFromEnd() Index {
	return r.fromEnd
}

func (r *Road) GetToEnd() Index {
	return r.toEnd
}

// RoadEnd is one end of a road at a junction. Its lanes are the lanes arriving at
// the junction, ordered left to right: extra left, regular, extra right.
type RoadEnd struct {
	id       Index
	road     Index
	junction Index
	way      osm.WayID
	from     bool
	lanes    []Index
	lengths  osm.RelationID
}

func (e *RoadEnd) GetID() Index {
	return e.id
}

func (e *RoadEnd) GetRoad() Index {
	return e.road
}

func (e *RoadEnd) GetJunction() Index {
	return e.junction
}

// GetWay returns the way of the route adjacent to the junction.
func (e *RoadEnd) GetWay() osm.WayID {
	return e.way
}

// IsFromEnd reports whether this is the end at the first node of the road's route.
func (e *RoadEnd) IsFromEnd() bool {
	return e.from
}

func (e *RoadEnd) IsToEnd() bool {
	return !e.from
}

func (e *RoadEnd) GetLanes() []Index {
	return e.lanes
}

// GetLengthsRelation returns the turnlanes:lengths relation of this end, 0 if none.
func (e *RoadEnd) GetLengthsRelation() osm.RelationID {
	return e.lengths
}

type Lane struct {
	id     Index
	end    Index
	index  int
	kind   pkg.LaneKind
	length float64
}

func (l *Lane) GetID() Index {
	return l.id
}

// GetRoadEnd returns the road end this lane leads into.
func (l *Lane) GetRoadEnd() Index {
	return l.end
}

// GetIndex returns 1..N for regular lanes, -1, -2, .. outward for extra left
// lanes and 1, 2, .. outward for extra right lanes.
func (l *Lane) GetIndex() int {
	return l.index
}

func (l *Lane) GetKind() pkg.LaneKind {
	return l.kind
}

func (l *Lane) IsExtra() bool {
	return l.kind.IsExtra()
}

// LaneRef identifies a lane independently of a Graph snapshot.
type LaneRef struct {
	Way   osm.WayID
	Node  osm.NodeID
	Kind  pkg.LaneKind
	Index int
}

package roadgraph

import (
	"sort"

	"github.com/lintang-b-s/laneconnectivity/pkg"
	"github.com/lintang-b-s/laneconnectivity/pkg/geo"
	"github.com/lintang-b-s/laneconnectivity/pkg/laneindex"
	"github.com/lintang-b-s/laneconnectivity/pkg/osmstore"
	"github.com/paulmach/osm"
	"go.uber.org/zap"
)

func (g *Graph) build() error {
	for _, n := range g.seedNodes {
		g.primaryNodes[n] = struct{}{}
	}
	for _, id := range g.seedWays {
		w, ok := g.store.Way(id)
		if !ok || len(w.Nodes) < 2 {
			g.log.Debug("skipping primary way outside the store", zap.Int64("way", int64(id)))
			continue
		}
		g.primaryWays[id] = struct{}{}
	}

	// the junctions bounding a chain of primary ways are primary as well.
	chainEnds := make([]osm.NodeID, 0, 2*len(g.primaryWays))
	for id := range g.primaryWays {
		w, _ := g.store.Way(id)
		chainEnds = append(chainEnds,
			g.walkToJunction(w, osmstore.FirstNode(w)),
			g.walkToJunction(w, osmstore.LastNode(w)))
	}
	for _, n := range chainEnds {
		g.primaryNodes[n] = struct{}{}
	}

	starts := make([]osm.NodeID, 0, len(g.primaryNodes))
	for n := range g.primaryNodes {
		starts = append(starts, n)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	for _, n := range starts {
		g.getOrCreateJunction(n)
		for _, w := range g.acceptedWays(n) {
			if !osmstore.IsEndNode(w, n) {
				g.log.Debug("way passes through junction without ending there",
					zap.Int64("way", int64(w.ID)), zap.Int64("node", int64(n)))
				continue
			}
			if g.HasRoad(w.ID) {
				continue
			}
			g.addRoad(n, w)
		}
	}

	for e := range g.ends {
		if err := g.loadLanes(Index(e)); err != nil {
			return err
		}
	}

	for i := range g.junctions {
		c := g.junctions[i].coord
		g.junctionTree.Insert([2]float64{c.Lon, c.Lat}, [2]float64{c.Lon, c.Lat}, Index(i))
	}
	for i := range g.roads {
		min, max := boundingBox(g.roads[i].coords)
		g.roadTree.Insert(min, max, Index(i))
	}
	return nil
}

func (g *Graph) isAccepted(w *osm.Way) bool {
	if len(w.Nodes) < 2 {
		return false
	}
	if _, ok := g.primaryWays[w.ID]; ok {
		return true
	}
	return pkg.IsRoadHighway(w.Tags.Find(pkg.KEY_HIGHWAY)) || w.Tags.Find(pkg.KEY_JUNCTION) != ""
}

func (g *Graph) acceptedWays(n osm.NodeID) []*osm.Way {
	result := make([]*osm.Way, 0)
	for _, w := range g.store.WaysOfNode(n) {
		if g.isAccepted(w) {
			result = append(result, w)
		}
	}
	return result
}

// degree counts the way ends meeting at n, an interior occurrence counts twice.
func (g *Graph) degree(n osm.NodeID) int {
	d := 0
	for _, w := range g.acceptedWays(n) {
		for i, wn := range w.Nodes {
			if wn.ID != n {
				continue
			}
			if i == 0 || i == len(w.Nodes)-1 {
				d++
			} else {
				d += 2
			}
		}
	}
	return d
}

func (g *Graph) isSignificant(n osm.NodeID) bool {
	if _, ok := g.primaryNodes[n]; ok {
		return true
	}
	return g.degree(n) != 2
}

// walkToJunction follows the chain of ways leaving w at n until it reaches a
// significant node.
func (g *Graph) walkToJunction(w *osm.Way, n osm.NodeID) osm.NodeID {
	visited := map[osm.WayID]struct{}{w.ID: {}}
	cur := n
	for !g.isSignificant(cur) {
		var next *osm.Way
		for _, o := range g.acceptedWays(cur) {
			if _, seen := visited[o.ID]; seen || !osmstore.IsEndNode(o, cur) {
				continue
			}
			next = o
			break
		}
		if next == nil {
			break
		}
		visited[next.ID] = struct{}{}
		cur, _ = osmstore.OppositeEnd(next, cur)
	}
	return cur
}

func (g *Graph) getOrCreateJunction(n osm.NodeID) Index {
	if j, ok := g.junctionByNode[n]; ok {
		return j
	}
	j := Index(len(g.junctions))
	_, primary := g.primaryNodes[n]
	var coord geo.Coordinate
	if node, ok := g.store.Node(n); ok {
		coord = geo.NewCoordinate(node.Lat, node.Lon)
	}
	g.junctions = append(g.junctions, Junction{
		id:      j,
		node:    n,
		coord:   coord,
		primary: primary,
		ends:    make([]Index, 0),
	})
	g.junctionByNode[n] = j
	return j
}

// addRoad walks from start along w through non significant nodes and registers the
// resulting chain of ways as one road.
func (g *Graph) addRoad(start osm.NodeID, w *osm.Way) {
	route := make([]Segment, 0, 1)
	coords := make([]geo.Coordinate, 0, len(w.Nodes))
	visited := make(map[osm.WayID]struct{})

	cur := start
	way := w
	for {
		next, _ := osmstore.OppositeEnd(way, cur)
		forward := osmstore.FirstNode(way) == cur
		route = append(route, Segment{way: way.ID, forward: forward})
		visited[way.ID] = struct{}{}
		coords = g.appendCoords(coords, way, forward)

		if next == start || g.isSignificant(next) {
			cur = next
			break
		}

		var following *osm.Way
		for _, o := range g.acceptedWays(next) {
			if _, seen := visited[o.ID]; seen || !osmstore.IsEndNode(o, next) {
				continue
			}
			following = o
			break
		}
		cur = next
		if following == nil || g.HasRoad(following.ID) {
			break
		}
		way = following
	}

	r := Index(len(g.roads))
	primary := true
	for _, s := range route {
		if _, ok := g.primaryWays[s.way]; !ok {
			primary = false
		}
		g.roadByWay[s.way] = r
	}

	fromJunction := g.getOrCreateJunction(start)
	toJunction := g.getOrCreateJunction(cur)

	fromEnd := g.addEnd(r, fromJunction, route[0].way, true)
	toEnd := g.addEnd(r, toJunction, route[len(route)-1].way, false)

	g.roads = append(g.roads, Road{
		id:      r,
		route:   route,
		coords:  coords,
		length:  geo.PolylineLength(coords),
		primary: primary,
		fromEnd: fromEnd,
		toEnd:   toEnd,
	})
}

func (g *Graph) addEnd(r, j Index, way osm.WayID, from bool) Index {
	e := Index(len(g.ends))
	g.ends = append(g.ends, RoadEnd{
		id:       e,
		road:     r,
		junction: j,
		way:      way,
		from:     from,
		lanes:    make([]Index, 0),
	})
	g.junctions[j].ends = append(g.junctions[j].ends, e)
	return e
}

func (g *Graph) appendCoords(coords []geo.Coordinate, w *osm.Way, forward bool) []geo.Coordinate {
	nodes := w.Nodes
	for k := range nodes {
		i := k
		if !forward {
			i = len(nodes) - 1 - k
		}
		if k == 0 && len(coords) > 0 {
			continue
		}
		lat, lon := nodes[i].Lat, nodes[i].Lon
		if n, ok := g.store.Node(nodes[i].ID); ok {
			lat, lon = n.Lat, n.Lon
		}
		coords = append(coords, geo.NewCoordinate(lat, lon))
	}
	return coords
}

func (g *Graph) loadLanes(e Index) error {
	end := &g.ends[e]
	node := g.junctions[end.junction].node
	w, ok := g.store.Way(end.way)
	if !ok {
		return nil
	}

	regulars, err := laneindex.RegularCount(laneindex.FromWay(w), node, g.cfg.DefaultLaneCount)
	if err != nil {
		return err
	}

	left, right, err := g.loadLengths(e)
	if err != nil {
		return err
	}

	lanes := make([]Index, 0, len(left)+regulars+len(right))
	for i := len(left) - 1; i >= 0; i-- {
		lanes = append(lanes, g.addLane(e, -(i + 1), pkg.EXTRA_LEFT, left[i]))
	}
	for i := 1; i <= regulars; i++ {
		lanes = append(lanes, g.addLane(e, i, pkg.REGULAR, 0))
	}
	for i := range right {
		lanes = append(lanes, g.addLane(e, i+1, pkg.EXTRA_RIGHT, right[i]))
	}
	g.ends[e].lanes = lanes
	return nil
}

func (g *Graph) addLane(e Index, index int, kind pkg.LaneKind, length float64) Index {
	l := Index(len(g.lanes))
	g.lanes = append(g.lanes, Lane{
		id:     l,
		end:    e,
		index:  index,
		kind:   kind,
		length: length,
	})
	return l
}

func boundingBox(coords []geo.Coordinate) ([2]float64, [2]float64) {
	min := [2]float64{coords[0].Lon, coords[0].Lat}
	max := min
	for _, c := range coords[1:] {
		if c.Lon < min[0] {
			min[0] = c.Lon
		}
		if c.Lat < min[1] {
			min[1] = c.Lat
		}
		if c.Lon > max[0] {
			max[0] = c.Lon
		}
		if c.Lat > max[1] {
			max[1] = c.Lat
		}
	}
	return min, max
}

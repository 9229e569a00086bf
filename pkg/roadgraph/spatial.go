package roadgraph

import (
	"sort"

	"github.com/lintang-b-s/laneconnectivity/pkg/geo"
	"github.com/twpayne/go-polyline"
)

func searchBox(qLat, qLon, radius float64) ([2]float64, [2]float64) {
	lowerLat, lowerLon := geo.GetDestinationPoint(qLat, qLon, 225, radius)
	upperLat, upperLon := geo.GetDestinationPoint(qLat, qLon, 45, radius)
	return [2]float64{lowerLon, lowerLat}, [2]float64{upperLon, upperLat}
}

// JunctionsWithinRadius returns the junctions within radius (in km) from (qLat, qLon),
// nearest first.
func (g *Graph) JunctionsWithinRadius(qLat, qLon, radius float64) []Index {
	min, max := searchBox(qLat, qLon, radius)

	results := make([]Index, 0, 10)
	dists := make(map[Index]float64)
	g.junctionTree.Search(min, max, func(_, _ [2]float64, j Index) bool {
		c := g.junctions[j].coord
		d := geo.CalculateHaversineDistance(qLat, qLon, c.Lat, c.Lon)
		if d <= radius {
			results = append(results, j)
			dists[j] = d
		}
		return true
	})
	sort.SliceStable(results, func(a, b int) bool {
		return dists[results[a]] < dists[results[b]]
	})
	return results
}

// NearestJunction returns the junction closest to (qLat, qLon) within radius (in km).
func (g *Graph) NearestJunction(qLat, qLon, radius float64) (Index, bool) {
	js := g.JunctionsWithinRadius(qLat, qLon, radius)
	if len(js) == 0 {
		return INVALID_INDEX, false
	}
	return js[0], true
}

// NearestRoad returns the road whose geometry passes closest to (qLat, qLon), looking
// at roads with a bounding box within radius (in km). The distance is in meter.
func (g *Graph) NearestRoad(qLat, qLon, radius float64) (Index, float64, bool) {
	min, max := searchBox(qLat, qLon, radius)
	q := geo.NewCoordinate(qLat, qLon)

	best, bestDist := INVALID_INDEX, -1.0
	g.roadTree.Search(min, max, func(_, _ [2]float64, r Index) bool {
		d := geo.PointPolylineDistance(g.roads[r].coords, q)
		if bestDist < 0 || d < bestDist || (d == bestDist && r < best) {
			best, bestDist = r, d
		}
		return true
	})
	if best == INVALID_INDEX || bestDist > radius*1000 {
		return INVALID_INDEX, 0, false
	}
	return best, bestDist, true
}

// GetEncodedGeometry returns the road geometry as an encoded polyline.
func (g *Graph) GetEncodedGeometry(r Index) string {
	coords := g.roads[r].coords
	pts := make([][]float64, len(coords))
	for i, c := range coords {
		pts[i] = []float64{c.Lat, c.Lon}
	}
	return string(polyline.EncodeCoords(pts))
}

package geo

import (
	"github.com/golang/geo/s2"
)

func ProjectPointToLineCoord(pointA Coordinate, pointB Coordinate,
	snap Coordinate) Coordinate {
	pointAS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(pointA.Lat, pointA.Lon))
	pointBS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(pointB.Lat, pointB.Lon))
	snapS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(snap.Lat, snap.Lon))
	projection := s2.Project(snapS2, pointAS2, pointBS2)
	projectLatLng := s2.LatLngFromPoint(projection)
	return NewCoordinate(projectLatLng.Lat.Degrees(), projectLatLng.Lng.Degrees())
}

// return in meter
func PointLinePerpendicularDistance(pointA Coordinate, pointB Coordinate,
	snap Coordinate) float64 {
	projectionPoint := ProjectPointToLineCoord(pointA, pointB, snap)

	dist := CalculateHaversineDistance(snap.GetLat(), snap.GetLon(), projectionPoint.GetLat(), projectionPoint.GetLon())

	return dist * 1000
}

// PointPolylineDistance returns the distance in meter from snap to the closest segment of coords.
func PointPolylineDistance(coords []Coordinate, snap Coordinate) float64 {
	if len(coords) == 1 {
		return CalculateHaversineDistance(coords[0].Lat, coords[0].Lon, snap.Lat, snap.Lon) * 1000
	}
	best := -1.0
	for i := 1; i < len(coords); i++ {
		d := PointLinePerpendicularDistance(coords[i-1], coords[i], snap)
		if best < 0 || d < best {
			best = d
		}
	}
	return best
}

package spatial

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// Contains reports whether the point (lon, lat) lies strictly inside g.
// Points on an exterior ring or on a hole boundary are not contained.
// Geometries other than polygons and multipolygons contain nothing.
func Contains(g geom.T, lon, lat float64) bool {
	p := geom.Coord{lon, lat}
	switch t := g.(type) {
	case *geom.Polygon:
		return polygonContains(t, p)
	case *geom.MultiPolygon:
		if t.NumPolygons() == 0 || !t.Bounds().OverlapsPoint(geom.XY, p) {
			return false
		}
		for i := 0; i < t.NumPolygons(); i++ {
			if polygonContains(t.Polygon(i), p) {
				return true
			}
		}
	}
	return false
}

func polygonContains(poly *geom.Polygon, p geom.Coord) bool {
	if poly.NumLinearRings() == 0 {
		return false
	}
	if !poly.Bounds().OverlapsPoint(geom.XY, p) {
		return false
	}
	layout := poly.Layout()
	shell := poly.LinearRing(0)
	if xy.LocatePointInRing(layout, p, shell.FlatCoords()) != location.Interior {
		return false
	}
	for i := 1; i < poly.NumLinearRings(); i++ {
		hole := poly.LinearRing(i)
		if xy.LocatePointInRing(layout, p, hole.FlatCoords()) != location.Exterior {
			return false
		}
	}
	return true
}

package geodata

import (
	"bytes"
	"encoding/json"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Bounds accumulates the rectangle enclosing every coordinate seen so far.
// The zero value is empty and must not drive a viewport change.
type Bounds struct {
	bound orb.Bound
	count int
}

// Extend widens the rectangle so that it encloses p.
func (b *Bounds) Extend(p orb.Point) {
	if b.count == 0 {
		b.bound = p.Bound()
	} else {
		b.bound = b.bound.Extend(p)
	}
	b.count++
}

// IsEmpty reports whether no coordinate has been seen.
func (b Bounds) IsEmpty() bool { return b.count == 0 }

// Count returns the number of coordinates folded into the rectangle.
func (b Bounds) Count() int { return b.count }

// Bound returns the rectangle. It is meaningless when IsEmpty is true.
func (b Bounds) Bound() orb.Bound { return b.bound }

// Min returns the south-west corner as [lon, lat].
func (b Bounds) Min() orb.Point { return b.bound.Min }

// Max returns the north-east corner as [lon, lat].
func (b Bounds) Max() orb.Point { return b.bound.Max }

// Contains reports whether p lies inside the rectangle, edges included.
func (b Bounds) Contains(p orb.Point) bool {
	return !b.IsEmpty() && b.bound.Contains(p)
}

// MarshalJSON encodes the bounds as [[minLon,minLat],[maxLon,maxLat]],
// which map clients accept directly, or null when empty.
func (b Bounds) MarshalJSON() ([]byte, error) {
	if b.IsEmpty() {
		return []byte("null"), nil
	}
	return json.Marshal([2][2]float64{
		{b.bound.Min[0], b.bound.Min[1]},
		{b.bound.Max[0], b.bound.Max[1]},
	})
}

// BoundsOf walks every feature geometry in c and returns the enclosing
// rectangle. Point, LineString, MultiLineString, Polygon and MultiPolygon
// contribute their vertices (polygon holes included). Other geometry kinds,
// null geometries and geometries that fail to decode are skipped.
//
// TODO: GeometryCollection and MultiPoint never contribute; widen once the
// upload layer renders more than circles.
func BoundsOf(c *Collection) Bounds {
	var b Bounds
	if c == nil {
		return b
	}
	for _, f := range c.Features {
		g := decodeGeometry(f.Geometry)
		if g == nil {
			continue
		}
		extendGeometry(&b, g)
	}
	return b
}

func decodeGeometry(raw json.RawMessage) orb.Geometry {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil || g == nil {
		return nil
	}
	return g.Coordinates
}

func extendGeometry(b *Bounds, g orb.Geometry) {
	switch g := g.(type) {
	case orb.Point:
		b.Extend(g)
	case orb.LineString:
		for _, p := range g {
			b.Extend(p)
		}
	case orb.MultiLineString:
		for _, ls := range g {
			extendGeometry(b, ls)
		}
	case orb.Polygon:
		for _, ring := range g {
			for _, p := range ring {
				b.Extend(p)
			}
		}
	case orb.MultiPolygon:
		for _, poly := range g {
			extendGeometry(b, poly)
		}
	default:
		// unrecognized kinds do not contribute
	}
}

package domain

import (
	"encoding/json"
	"fmt"
)

// GeoJSON geometry types seen in slice files.
const (
	GeometryPoint        = "Point"
	GeometryMultiPoint   = "MultiPoint"
	GeometryLineString   = "LineString"
	GeometryPolygon      = "Polygon"
	GeometryMultiPolygon = "MultiPolygon"
)

// maxCoordinateDepth is the deepest legal coordinate nesting
// (MultiPolygon: polygons → rings → positions).
const maxCoordinateDepth = 4

// Geometry is a GeoJSON geometry whose coordinates keep their exact nesting
// shape, including dimensions past lon/lat on each position.
type Geometry struct {
	Type        string      `json:"type"`
	Coordinates Coordinates `json:"coordinates"`
}

// Coordinates is one node of a geometry's coordinate array: either a leaf
// position ([x, y, extra...]) or a list of child nodes. Exactly one of
// Position and Children is set after a successful parse.
type Coordinates struct {
	Position []float64
	Children []Coordinates
}

// UnmarshalJSON decodes an arbitrarily nested coordinate array. An array
// whose elements are all numbers becomes a leaf position; anything else
// must be an array of nodes.
func (c *Coordinates) UnmarshalJSON(data []byte) error {
	var leaf []float64
	if err := json.Unmarshal(data, &leaf); err == nil {
		c.Position = leaf
		c.Children = nil
		return nil
	}

	var children []Coordinates
	if err := json.Unmarshal(data, &children); err != nil {
		return fmt.Errorf("coordinates: %w", err)
	}
	c.Position = nil
	c.Children = children

	if c.depth() > maxCoordinateDepth {
		return fmt.Errorf("coordinates: nested deeper than %d levels", maxCoordinateDepth)
	}
	return nil
}

// MarshalJSON re-emits the node with its original shape.
func (c Coordinates) MarshalJSON() ([]byte, error) {
	if c.Position != nil {
		return json.Marshal(c.Position)
	}
	if c.Children == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.Children)
}

func (c *Coordinates) depth() int {
	if c.Children == nil {
		return 1
	}
	deepest := 1
	for i := range c.Children {
		if d := c.Children[i].depth() + 1; d > deepest {
			deepest = d
		}
	}
	return deepest
}

// TransformLeaves returns a copy of the node with fn applied to the first two
// values of every position. Extra dimensions carry over unchanged; positions
// shorter than a pair are copied as-is.
func (c Coordinates) TransformLeaves(fn func(x, y float64) (float64, float64, error)) (Coordinates, error) {
	if c.Position != nil {
		out := make([]float64, len(c.Position))
		copy(out, c.Position)
		if len(out) >= 2 {
			x, y, err := fn(out[0], out[1])
			if err != nil {
				return Coordinates{}, err
			}
			out[0], out[1] = x, y
		}
		return Coordinates{Position: out}, nil
	}

	children := make([]Coordinates, len(c.Children))
	for i := range c.Children {
		child, err := c.Children[i].TransformLeaves(fn)
		if err != nil {
			return Coordinates{}, err
		}
		children[i] = child
	}
	return Coordinates{Children: children}, nil
}

// Transform returns a copy of the geometry with fn applied to every position.
func (g *Geometry) Transform(fn func(x, y float64) (float64, float64, error)) (*Geometry, error) {
	if g == nil {
		return nil, nil
	}
	coords, err := g.Coordinates.TransformLeaves(fn)
	if err != nil {
		return nil, fmt.Errorf("transform %s geometry: %w", g.Type, err)
	}
	return &Geometry{Type: g.Type, Coordinates: coords}, nil
}

// RepresentativePoint is the single lon/lat used for spatial binning: the
// position itself for a Point, the arithmetic mean of all leaf positions for
// every other type. ok is false when the geometry holds no usable position.
func (g *Geometry) RepresentativePoint() (lon, lat float64, ok bool) {
	if g == nil {
		return 0, 0, false
	}
	if g.Type == GeometryPoint {
		pos := g.Coordinates.Position
		if len(pos) < 2 {
			return 0, 0, false
		}
		return pos[0], pos[1], true
	}

	var sumX, sumY float64
	n := 0
	g.Coordinates.EachPosition(func(pos []float64) {
		sumX += pos[0]
		sumY += pos[1]
		n++
	})
	if n == 0 {
		return 0, 0, false
	}
	return sumX / float64(n), sumY / float64(n), true
}

// EachPosition visits every leaf with at least a lon/lat pair.
func (c *Coordinates) EachPosition(visit func(pos []float64)) {
	if c.Position != nil {
		if len(c.Position) >= 2 {
			visit(c.Position)
		}
		return
	}
	for i := range c.Children {
		c.Children[i].EachPosition(visit)
	}
}

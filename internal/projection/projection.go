// Package projection normalizes slice-file geometries to geographic WGS84.
//
// Slice files declare their CRS the way geopandas writes it, either as a bare
// "EPSG:<code>" string or as the urn form "urn:ogc:def:crs:EPSG::<code>".
// Only the EPSG code matters; everything else in the declaration is noise.
package projection

import (
	"fmt"
	"regexp"
	"strconv"

	proj "github.com/twpayne/go-proj/v10"
)

// epsgPattern matches both declaration forms, case-insensitively.
var epsgPattern = regexp.MustCompile(`(?i)EPSG::?(\d+)`)

// geographicCode is WGS84 lon/lat, the pipeline's output system.
const geographicCode = 4326

// EPSGCode extracts the numeric EPSG code from a declared CRS name.
func EPSGCode(name string) (int, bool) {
	m := epsgPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return code, true
}

// Transformer converts positions from one projected CRS to WGS84 lon/lat.
// Build one per file and release it with Close.
type Transformer struct {
	pj *proj.PJ
}

// ForCRS returns a transformer for the declared CRS name. A nil transformer
// with nil error means the coordinates are already geographic: the
// declaration is absent, carries no EPSG code, or names EPSG:4326. A non-nil
// error means the file declares a system no conversion can be built for,
// which leaves the file unprocessable.
func ForCRS(name string) (*Transformer, error) {
	code, ok := EPSGCode(name)
	if !ok || code == geographicCode {
		return nil, nil
	}
	return NewTransformer(code)
}

// NewTransformer builds an EPSG:<code> → WGS84 conversion with axis order
// normalized to lon/lat on both ends, matching how the coordinate arrays are
// laid out regardless of the authority's axis convention.
func NewTransformer(code int) (*Transformer, error) {
	pj, err := proj.NewCRSToCRS(fmt.Sprintf("EPSG:%d", code), "EPSG:4326", nil)
	if err != nil {
		return nil, fmt.Errorf("build transform from EPSG:%d: %w", code, err)
	}
	normalized, err := pj.NormalizeForVisualization()
	if err != nil {
		pj.Destroy()
		return nil, fmt.Errorf("normalize transform from EPSG:%d: %w", code, err)
	}
	pj.Destroy()
	return &Transformer{pj: normalized}, nil
}

// Apply converts a single position. The signature matches what
// domain.Geometry.Transform expects, so a method value wires straight in.
func (t *Transformer) Apply(x, y float64) (float64, float64, error) {
	coord, err := t.pj.Forward(proj.NewCoord(x, y, 0, 0))
	if err != nil {
		return 0, 0, err
	}
	return coord.X(), coord.Y(), nil
}

// Close releases the underlying PROJ object.
func (t *Transformer) Close() {
	if t == nil {
		return
	}
	t.pj.Destroy()
}

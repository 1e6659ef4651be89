package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// frosMissing is the exporter's sentinel for an inestimable rate of spread.
const frosMissing = -900.0

// ValidFROS reports whether v is a real rate-of-spread observation rather
// than the missing-value sentinel.
func ValidFROS(v float64) bool {
	return v > frosMissing
}

// Feature is one parsed observation. Pointer fields are nil when the source
// property was absent, null, or not decodable as a number; such fields drop
// out of any computation that needs them.
type Feature struct {
	// EntityID is the owning fire event, already string-normalized. Empty
	// means the source carried none and no file-derived fallback applied.
	EntityID string

	FRP      *float64
	FROS     *float64
	Duration *float64

	// Candidate observation instants, raw as found. Resolution order is
	// TimeFloor, Time, Timestamp; see ResolveTimestamp.
	TimeFloor string
	Time      string
	Timestamp string

	// Range is the entity's observation window, either carried by the
	// feature itself or attached from the file scan / stats overlay.
	Range TimeRange

	Geometry *Geometry
}

// TimeRange bounds an entity's observations. The label fields carry ISO
// strings verbatim (they may be unparseable upstream values); the epoch
// fields are seconds and are nil when the label did not resolve.
type TimeRange struct {
	Min   string
	Max   string
	MinTS *float64
	MaxTS *float64
}

// Bounded reports whether the range was actually derived. The epoch start is
// the marker field: file scans and overlays always populate it first.
func (r TimeRange) Bounded() bool {
	return r.MinTS != nil
}

// TimeCandidate is the raw timestamp string the feature's instant resolves
// from: the first non-empty of floored, raw, legacy.
func (f *Feature) TimeCandidate() string {
	for _, raw := range []string{f.TimeFloor, f.Time, f.Timestamp} {
		if raw != "" {
			return raw
		}
	}
	return ""
}

// ResolveTimestamp parses the feature's effective instant per ParseTimestamp.
// There is no fallback past the first non-empty candidate: an unparseable
// preferred field leaves the feature without an instant.
func (f *Feature) ResolveTimestamp() (time.Time, bool) {
	return ParseTimestamp(f.TimeCandidate())
}

// FeatureCollection is one parsed slice file.
type FeatureCollection struct {
	// CRSName is the declared coordinate reference system, empty when the
	// file declares none.
	CRSName  string
	Features []*Feature
}

type wireCollection struct {
	Type     string          `json:"type"`
	CRS      json.RawMessage `json:"crs"`
	Features []wireFeature   `json:"features"`
}

type wireFeature struct {
	Type       string         `json:"type"`
	Properties wireProperties `json:"properties"`
	Geometry   *Geometry      `json:"geometry"`
}

// wireProperties captures the property keys this pipeline consumes. Numeric
// fields are kept raw because the exporter is inconsistent about number vs
// string encodings across pandas dtypes.
type wireProperties struct {
	FireEventID json.RawMessage `json:"id_fire_event"`
	FRP         json.RawMessage `json:"frp"`
	FROS        json.RawMessage `json:"fros"`
	Duration    json.RawMessage `json:"duration"`
	TimeFloor   string          `json:"time_floor"`
	Time        string          `json:"time"`
	Timestamp   string          `json:"timestamp"`
	TimeMin     string          `json:"time_min"`
	TimeMax     string          `json:"time_max"`
	TimeMinTS   *float64        `json:"time_min_ts"`
	TimeMaxTS   *float64        `json:"time_max_ts"`
}

// ParseFeatureCollection decodes one slice file. Feature order is preserved.
func ParseFeatureCollection(data []byte) (*FeatureCollection, error) {
	var wire wireCollection
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("parse feature collection: %w", err)
	}

	fc := &FeatureCollection{
		CRSName:  crsName(wire.CRS),
		Features: make([]*Feature, 0, len(wire.Features)),
	}
	for _, wf := range wire.Features {
		p := wf.Properties
		fc.Features = append(fc.Features, &Feature{
			EntityID:  flexString(p.FireEventID),
			FRP:       flexFloat(p.FRP),
			FROS:      flexFloat(p.FROS),
			Duration:  flexFloat(p.Duration),
			TimeFloor: p.TimeFloor,
			Time:      p.Time,
			Timestamp: p.Timestamp,
			Range: TimeRange{
				Min:   p.TimeMin,
				Max:   p.TimeMax,
				MinTS: p.TimeMinTS,
				MaxTS: p.TimeMaxTS,
			},
			Geometry: wf.Geometry,
		})
	}
	return fc, nil
}

// crsName extracts the declared CRS from either GeoJSON form:
// {"type":"name","properties":{"name":"urn:ogc:def:crs:EPSG::3857"}} or a
// bare string.
func crsName(raw json.RawMessage) string {
	if isAbsent(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Name       string `json:"name"`
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Properties.Name != "" {
			return obj.Properties.Name
		}
		return obj.Name
	}
	return ""
}

// flexString accepts a JSON string or bare number and yields its string form.
func flexString(raw json.RawMessage) string {
	if isAbsent(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// flexFloat accepts a JSON number or a numeric string. Anything else counts
// as absent.
func flexFloat(raw json.RawMessage) *float64 {
	if isAbsent(raw) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return &v
		}
	}
	return nil
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// Package emit builds and serializes the pipeline's output records: raw
// pass-through features for high zooms and hexagon aggregate features for low
// zooms, one compact JSON object per record.
package emit

import (
	"math"

	"github.com/3dfirelab/webFET/internal/domain"
	"github.com/3dfirelab/webFET/internal/hexbin"
)

// Record kinds, used as sink routing labels.
const (
	KindRaw       = "raw"
	KindAggregate = "aggregate"
)

// Record is one output feature.
type Record struct {
	Type       string `json:"type"`
	Properties any    `json:"properties"`
	Geometry   any    `json:"geometry"`
}

// ZoomHint is the tippecanoe layer visibility range. Raw records carry only
// a minzoom; aggregate records carry both bounds.
type ZoomHint struct {
	MinZoom int  `json:"minzoom"`
	MaxZoom *int `json:"maxzoom,omitempty"`
}

// rawProperties is the allow-listed property set of a pass-through feature.
type rawProperties struct {
	IDFireEvent string   `json:"id_fire_event"`
	FRP         *float64 `json:"frp,omitempty"`
	FROS        *float64 `json:"fros,omitempty"`
	Duration    *float64 `json:"duration,omitempty"`
	Time        string   `json:"time,omitempty"`
	Timestamp   string   `json:"timestamp,omitempty"`
	TimeTS      *float64 `json:"time_ts,omitempty"`
	TimeMin     string   `json:"time_min,omitempty"`
	TimeMax     string   `json:"time_max,omitempty"`
	TimeMinTS   *float64 `json:"time_min_ts,omitempty"`
	TimeMaxTS   *float64 `json:"time_max_ts,omitempty"`
	DayStartTS  *int64   `json:"day_start_ts,omitempty"`
	DayEndTS    *int64   `json:"day_end_ts,omitempty"`
	Tippecanoe  ZoomHint `json:"tippecanoe"`
}

// hexProperties carries an aggregate bucket's accumulated statistics. Every
// field is emitted, nulls included, so downstream styling sees a stable
// schema.
type hexProperties struct {
	Cell       string   `json:"cell"`
	Res        int      `json:"res"`
	Count      int      `json:"count"`
	FRPSum     float64  `json:"frp_sum"`
	FRPMax     float64  `json:"frp_max"`
	FRPAvg     float64  `json:"frp_avg"`
	FRESumMJ   float64  `json:"fre_sum_mj"`
	FREMeanMJ  float64  `json:"fre_mean_mj"`
	LastTime   string   `json:"last_time"`
	TimeMin    string   `json:"time_min"`
	TimeMax    string   `json:"time_max"`
	TimeMinTS  int64    `json:"time_min_ts"`
	TimeMaxTS  int64    `json:"time_max_ts"`
	DayStartTS int64    `json:"day_start_ts"`
	DayEndTS   int64    `json:"day_end_ts"`
	DayLabel   string   `json:"day_label"`
	FROSSum    float64  `json:"fros_sum"`
	FROSMax    float64  `json:"fros_max"`
	FROSAvg    *float64 `json:"fros_avg"`
	Tippecanoe ZoomHint `json:"tippecanoe"`
}

// polygonGeometry is a single-ring polygon in [lng, lat] vertex order.
type polygonGeometry struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// Raw builds the pass-through record for a surviving feature. The floored
// time field is promoted into time, the resolved instant (when there is one)
// contributes time_ts and the day bounds, and overlay fills the entity time
// range only when the feature brought none of its own.
func Raw(f *domain.Feature, overlay *domain.TimeRange, minZoom int) Record {
	props := rawProperties{
		IDFireEvent: f.EntityID,
		FRP:         f.FRP,
		FROS:        f.FROS,
		Duration:    f.Duration,
		Time:        f.Time,
		Timestamp:   f.Timestamp,
		TimeMin:     f.Range.Min,
		TimeMax:     f.Range.Max,
		TimeMinTS:   f.Range.MinTS,
		TimeMaxTS:   f.Range.MaxTS,
		Tippecanoe:  ZoomHint{MinZoom: minZoom},
	}
	if f.TimeFloor != "" {
		props.Time = f.TimeFloor
	}

	if ts, ok := f.ResolveTimestamp(); ok {
		epoch := domain.EpochSeconds(ts)
		props.TimeTS = &epoch
		day := domain.DayOf(ts)
		start, end := day.StartUnix(), day.End().Unix()
		props.DayStartTS = &start
		props.DayEndTS = &end
	}

	if overlay != nil && f.Range.MinTS == nil {
		props.TimeMinTS = overlay.MinTS
		props.TimeMaxTS = overlay.MaxTS
		if overlay.Min != "" {
			props.TimeMin = overlay.Min
		}
		if overlay.Max != "" {
			props.TimeMax = overlay.Max
		}
	}

	var geometry any
	if f.Geometry != nil {
		geometry = f.Geometry
	}
	return Record{Type: "Feature", Properties: props, Geometry: geometry}
}

// Hex builds the polygon record for one aggregate bucket. The bucket spans a
// single UTC day, so its time slice collapses to the day bounds.
func Hex(agg *hexbin.Aggregate, maxZoom int) (Record, error) {
	ring, err := hexbin.Ring(agg.Cell)
	if err != nil {
		return Record{}, err
	}

	props := hexProperties{
		Cell:       agg.Cell.String(),
		Res:        agg.Res,
		Count:      agg.Count,
		FRPSum:     round3(agg.FRPSum),
		FRPMax:     round3(agg.FRPMax),
		FRPAvg:     round3(agg.FRPAvg()),
		FRESumMJ:   round3(agg.FRESum),
		FREMeanMJ:  round3(agg.FREMean()),
		LastTime:   agg.SampleTime,
		TimeMin:    agg.Day.Label(),
		TimeMax:    agg.Day.Label(),
		TimeMinTS:  agg.Day.StartUnix(),
		TimeMaxTS:  agg.Day.End().Unix(),
		DayStartTS: agg.Day.StartUnix(),
		DayEndTS:   agg.Day.End().Unix(),
		DayLabel:   agg.Day.Label(),
		FROSSum:    round3(agg.FROSSum),
		FROSMax:    round3(agg.FROSMax),
		Tippecanoe: ZoomHint{MinZoom: 0, MaxZoom: &maxZoom},
	}
	if avg, ok := agg.FROSAvg(); ok {
		rounded := round3(avg)
		props.FROSAvg = &rounded
	}

	geometry := polygonGeometry{Type: "Polygon", Coordinates: [][][]float64{ring}}
	return Record{Type: "Feature", Properties: props, Geometry: geometry}, nil
}

// round3 rounds to 3 decimal digits, applied at emission only so sums never
// accumulate rounding error.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

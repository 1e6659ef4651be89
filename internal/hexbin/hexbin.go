// Package hexbin folds fire observations into H3 hexagon buckets keyed by
// (resolution, cell, UTC day). Buckets accumulate over the whole stream and
// are read out once the source is exhausted.
package hexbin

import (
	"time"

	"github.com/uber/h3-go/v4"

	"github.com/3dfirelab/webFET/internal/domain"
)

// freIntegrationSeconds turns FRP (MW) into FRE (MJ): each observation stands
// for one export interval.
const freIntegrationSeconds = 600

// CellAt resolves the cell containing a coordinate. ok is false when the
// indexer rejects the coordinate or resolution.
func CellAt(lat, lon float64, res int) (h3.Cell, bool) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(lat, lon), res)
	if err != nil {
		return 0, false
	}
	return cell, true
}

// Ring returns the cell boundary as a closed ring of [lng, lat] positions.
func Ring(cell h3.Cell) ([][]float64, error) {
	boundary, err := h3.CellToBoundary(cell)
	if err != nil {
		return nil, err
	}
	ring := make([][]float64, 0, len(boundary)+1)
	for _, vertex := range boundary {
		ring = append(ring, []float64{vertex.Lng, vertex.Lat})
	}
	if n := len(ring); n > 0 && (ring[0][0] != ring[n-1][0] || ring[0][1] != ring[n-1][1]) {
		ring = append(ring, []float64{ring[0][0], ring[0][1]})
	}
	return ring, nil
}

// Key identifies one aggregation bucket.
type Key struct {
	Res      int
	Cell     h3.Cell
	DayStart int64
}

// Aggregate accumulates every observation mapped into one bucket.
//
// Count and the sum fields move at most once per entity: repeated sightings
// of a fire within a bucket re-measure the same burn, so summing them again
// would double-count energy. The max fields and SampleTime instead track
// every observation.
type Aggregate struct {
	Res  int
	Cell h3.Cell
	Day  domain.Day

	Count     int
	FRPSum    float64
	FRPMax    float64
	FRESum    float64
	FROSSum   float64
	FROSMax   float64
	FROSCount int

	// SampleTime is the raw timestamp string of the last observation seen.
	SampleTime string

	entities map[string]struct{}
}

// FRPAvg is the mean FRP over distinct entities.
func (a *Aggregate) FRPAvg() float64 {
	if a.Count == 0 {
		return 0
	}
	return a.FRPSum / float64(a.Count)
}

// FREMean is the mean FRE over distinct entities, in MJ.
func (a *Aggregate) FREMean() float64 {
	if a.Count == 0 {
		return 0
	}
	return a.FRESum / float64(a.Count)
}

// FROSAvg is the mean of valid FROS observations. ok is false when the
// bucket saw none.
func (a *Aggregate) FROSAvg() (float64, bool) {
	if a.FROSCount == 0 {
		return 0, false
	}
	return a.FROSSum / float64(a.FROSCount), true
}

func (a *Aggregate) observe(f *domain.Feature) {
	frp := 0.0
	if f.FRP != nil {
		frp = *f.FRP
	}
	fros, hasFROS := 0.0, false
	if f.FROS != nil && domain.ValidFROS(*f.FROS) {
		fros, hasFROS = *f.FROS, true
	}

	if _, seen := a.entities[f.EntityID]; !seen {
		a.entities[f.EntityID] = struct{}{}
		a.Count++
		a.FRPSum += frp
		a.FRESum += frp * freIntegrationSeconds
		if hasFROS {
			a.FROSSum += fros
			a.FROSCount++
		}
	}

	if frp > a.FRPMax {
		a.FRPMax = frp
	}
	if hasFROS && fros > a.FROSMax {
		a.FROSMax = fros
	}
	if c := f.TimeCandidate(); c != "" {
		a.SampleTime = c
	}
}

// Aggregator folds features at a single run resolution.
type Aggregator struct {
	res     int
	buckets map[Key]*Aggregate
}

// New creates an empty aggregator for the given resolution.
func New(res int) *Aggregator {
	return &Aggregator{res: res, buckets: make(map[Key]*Aggregate)}
}

// Observe folds one feature observed at ts. Features without a usable
// representative coordinate are skipped.
func (a *Aggregator) Observe(f *domain.Feature, ts time.Time) {
	lon, lat, ok := f.Geometry.RepresentativePoint()
	if !ok {
		return
	}
	cell, ok := CellAt(lat, lon, a.res)
	if !ok {
		return
	}

	day := domain.DayOf(ts)
	key := Key{Res: a.res, Cell: cell, DayStart: day.StartUnix()}
	agg := a.buckets[key]
	if agg == nil {
		agg = &Aggregate{
			Res:      a.res,
			Cell:     cell,
			Day:      day,
			entities: make(map[string]struct{}),
		}
		a.buckets[key] = agg
	}
	agg.observe(f)
}

// Aggregates returns the folded buckets. Order is unspecified.
func (a *Aggregator) Aggregates() []*Aggregate {
	out := make([]*Aggregate, 0, len(a.buckets))
	for _, agg := range a.buckets {
		out = append(out, agg)
	}
	return out
}

// Len is the number of open buckets.
func (a *Aggregator) Len() int {
	return len(a.buckets)
}

// Package coverage cross-checks the two output layers: every hexagon bucket
// the aggregator would build must be reachable through at least one raw
// feature rendered in that same cell and day. A bucket with no raw backing
// means a hexagon the map shows at low zoom with nothing underneath it once
// the user zooms in.
package coverage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/uber/h3-go/v4"

	"github.com/3dfirelab/webFET/internal/domain"
	"github.com/3dfirelab/webFET/internal/hexbin"
	"github.com/3dfirelab/webFET/internal/pipeline"
)

// DefaultResolutions are the coarse levels the aggregate layer is served at.
var DefaultResolutions = []int{1, 2, 3, 4}

// sampleLimit bounds how many offending triples a failure report names.
const sampleLimit = 5

// Triple identifies one aggregation bucket across the checked resolutions.
type Triple struct {
	Res  int
	Day  string
	Cell h3.Cell
}

func (t Triple) String() string {
	return fmt.Sprintf("(res=%d day=%s cell=%s)", t.Res, t.Day, t.Cell)
}

// TripleSet is an unordered collection of buckets.
type TripleSet map[Triple]struct{}

func (s TripleSet) Add(triples []Triple) {
	for _, t := range triples {
		s[t] = struct{}{}
	}
}

// Missing returns the triples present here but absent from other, sorted for
// stable reporting.
func (s TripleSet) Missing(other TripleSet) []Triple {
	var missing []Triple
	for t := range s {
		if _, ok := other[t]; !ok {
			missing = append(missing, t)
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		a, b := missing[i], missing[j]
		if a.Res != b.Res {
			return a.Res < b.Res
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.Cell < b.Cell
	})
	return missing
}

// AggregateTriples derives the buckets a feature is eligible to aggregate
// into, using the same rules as the pipeline: entity id present, timestamp
// resolved, representative coordinate computable.
func AggregateTriples(f *domain.Feature, resolutions []int) []Triple {
	if f.EntityID == "" {
		return nil
	}
	ts, ok := f.ResolveTimestamp()
	if !ok {
		return nil
	}
	lon, lat, ok := f.Geometry.RepresentativePoint()
	if !ok {
		return nil
	}

	day := domain.DayOf(ts).Label()
	triples := make([]Triple, 0, len(resolutions))
	for _, res := range resolutions {
		if cell, ok := hexbin.CellAt(lat, lon, res); ok {
			triples = append(triples, Triple{Res: res, Day: day, Cell: cell})
		}
	}
	return triples
}

// RawTriples derives the buckets a feature's rendered geometry occupies: one
// per vertex cell. For a Point this collapses to the same cell as the
// aggregate derivation; for lines and polygons it is the footprint the user
// actually sees, which the mean coordinate can fall outside of.
func RawTriples(f *domain.Feature, resolutions []int) []Triple {
	if f.EntityID == "" || f.Geometry == nil {
		return nil
	}
	ts, ok := f.ResolveTimestamp()
	if !ok {
		return nil
	}

	day := domain.DayOf(ts).Label()
	set := make(TripleSet)
	f.Geometry.Coordinates.EachPosition(func(pos []float64) {
		for _, res := range resolutions {
			if cell, ok := hexbin.CellAt(pos[1], pos[0], res); ok {
				set[Triple{Res: res, Day: day, Cell: cell}] = struct{}{}
			}
		}
	})

	triples := make([]Triple, 0, len(set))
	for t := range set {
		triples = append(triples, t)
	}
	return triples
}

// Report is the outcome of one validation pass.
type Report struct {
	Eligible int
	Backed   int
	Missing  int
	Sample   []Triple
}

// OK reports whether every eligible bucket has raw backing.
func (r Report) OK() bool {
	return r.Missing == 0
}

// Validator walks a feature source and diffs the two bucket derivations.
type Validator struct {
	source      pipeline.FeatureSource
	resolutions []int
	logger      *slog.Logger
}

// New creates a Validator. A nil or empty resolution list falls back to
// DefaultResolutions.
func New(source pipeline.FeatureSource, resolutions []int, logger *slog.Logger) *Validator {
	if len(resolutions) == 0 {
		resolutions = DefaultResolutions
	}
	return &Validator{source: source, resolutions: resolutions, logger: logger}
}

// Run performs the pass. The returned error covers only the walk itself;
// coverage gaps are reported through the Report.
func (v *Validator) Run(ctx context.Context) (Report, error) {
	eligible := make(TripleSet)
	backed := make(TripleSet)

	err := v.source.Walk(ctx, func(f *domain.Feature) error {
		eligible.Add(AggregateTriples(f, v.resolutions))
		backed.Add(RawTriples(f, v.resolutions))
		return nil
	})
	if err != nil {
		return Report{}, err
	}

	missing := eligible.Missing(backed)
	report := Report{
		Eligible: len(eligible),
		Backed:   len(backed),
		Missing:  len(missing),
	}
	if len(missing) > sampleLimit {
		missing = missing[:sampleLimit]
	}
	report.Sample = missing

	v.logger.Debug("coverage pass complete",
		"eligible", report.Eligible,
		"backed", report.Backed,
		"missing", report.Missing,
	)
	return report, nil
}

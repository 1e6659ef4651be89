package coverage_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3dfirelab/webFET/internal/coverage"
	"github.com/3dfirelab/webFET/internal/domain"
)

type memorySource struct {
	features []*domain.Feature
}

func (m *memorySource) Walk(_ context.Context, visit func(*domain.Feature) error) error {
	for _, f := range m.features {
		if err := visit(f); err != nil {
			return err
		}
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pointFeature(id, timeFloor string, lon, lat float64) *domain.Feature {
	return &domain.Feature{
		EntityID:  id,
		TimeFloor: timeFloor,
		Geometry: &domain.Geometry{
			Type:        domain.GeometryPoint,
			Coordinates: domain.Coordinates{Position: []float64{lon, lat}},
		},
	}
}

// lineFeature spans (0E, 40N) to (10E, 40N). Its mean coordinate sits a good
// 200km from either endpoint, so at resolution 4 the three cells involved are
// all distinct.
func lineFeature(id, timeFloor string) *domain.Feature {
	return &domain.Feature{
		EntityID:  id,
		TimeFloor: timeFloor,
		Geometry: &domain.Geometry{
			Type: domain.GeometryLineString,
			Coordinates: domain.Coordinates{Children: []domain.Coordinates{
				{Position: []float64{0.0, 40.0}},
				{Position: []float64{10.0, 40.0}},
			}},
		},
	}
}

func TestAggregateTriples_PointFeature(t *testing.T) {
	f := pointFeature("1", "2024-07-01 10:00:00", 2.0, 41.0)

	triples := coverage.AggregateTriples(f, []int{1, 2, 3, 4})

	require.Len(t, triples, 4)
	for i, res := range []int{1, 2, 3, 4} {
		assert.Equal(t, res, triples[i].Res)
		assert.Equal(t, "2024-07-01", triples[i].Day)
	}
}

func TestAggregateTriples_RequiresEntityAndInstant(t *testing.T) {
	noID := pointFeature("", "2024-07-01 10:00:00", 2.0, 41.0)
	assert.Empty(t, coverage.AggregateTriples(noID, []int{4}))

	noTime := pointFeature("1", "", 2.0, 41.0)
	assert.Empty(t, coverage.AggregateTriples(noTime, []int{4}))

	noGeometry := pointFeature("1", "2024-07-01 10:00:00", 2.0, 41.0)
	noGeometry.Geometry = nil
	assert.Empty(t, coverage.AggregateTriples(noGeometry, []int{4}))
}

func TestRawTriples_PointMatchesAggregateDerivation(t *testing.T) {
	f := pointFeature("1", "2024-07-01 10:00:00", 2.0, 41.0)

	agg := coverage.AggregateTriples(f, []int{4})
	raw := coverage.RawTriples(f, []int{4})

	require.Len(t, agg, 1)
	require.Len(t, raw, 1)
	assert.Equal(t, agg[0], raw[0])
}

func TestRawTriples_LineCoversEveryVertexCell(t *testing.T) {
	f := lineFeature("1", "2024-07-01 10:00:00")

	raw := coverage.RawTriples(f, []int{4})
	agg := coverage.AggregateTriples(f, []int{4})

	require.Len(t, raw, 2)
	require.Len(t, agg, 1)
	// The mean point's cell belongs to neither endpoint.
	backed := make(coverage.TripleSet)
	backed.Add(raw)
	assert.Len(t, backed.Missing(coverage.TripleSet{}), 2)
	_, covered := backed[agg[0]]
	assert.False(t, covered)
}

func TestValidator_PointCoverageIsComplete(t *testing.T) {
	src := &memorySource{features: []*domain.Feature{
		pointFeature("1", "2024-07-01 10:00:00", 2.0, 41.0),
		pointFeature("2", "2024-07-02 10:00:00", 8.0, 45.0),
	}}

	v := coverage.New(src, []int{1, 2, 3, 4}, discardLogger())
	report, err := v.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 0, report.Missing)
	assert.Equal(t, 8, report.Eligible)
}

func TestValidator_MissingBucketWhenRawBackingRemoved(t *testing.T) {
	// An aggregate-eligible bucket with its raw backing removed must surface
	// as exactly one missing triple.
	f := pointFeature("1", "2024-07-01 10:00:00", 2.0, 41.0)
	eligible := make(coverage.TripleSet)
	eligible.Add(coverage.AggregateTriples(f, []int{4}))

	missing := eligible.Missing(make(coverage.TripleSet))

	require.Len(t, missing, 1)
	assert.Equal(t, 4, missing[0].Res)
	assert.Equal(t, "2024-07-01", missing[0].Day)
}

func TestValidator_MeanOutsideFootprintIsReported(t *testing.T) {
	src := &memorySource{features: []*domain.Feature{
		lineFeature("1", "2024-07-01 10:00:00"),
	}}

	v := coverage.New(src, []int{4}, discardLogger())
	report, err := v.Run(context.Background())

	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.Equal(t, 1, report.Missing)
	require.Len(t, report.Sample, 1)
	assert.Equal(t, "2024-07-01", report.Sample[0].Day)
}

func TestValidator_OtherFeatureCanBackTheBucket(t *testing.T) {
	line := lineFeature("1", "2024-07-01 10:00:00")
	// A second fire observed at the line's mean coordinate plugs the gap.
	src := &memorySource{features: []*domain.Feature{
		line,
		pointFeature("2", "2024-07-01 12:00:00", 5.0, 40.0),
	}}

	v := coverage.New(src, []int{4}, discardLogger())
	report, err := v.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, report.OK())
}

func TestValidator_SampleIsBounded(t *testing.T) {
	var features []*domain.Feature
	for day := 1; day <= 7; day++ {
		features = append(features, lineFeature("1", fmt.Sprintf("2024-07-%02d 10:00:00", day)))
	}

	v := coverage.New(&memorySource{features: features}, []int{4}, discardLogger())
	report, err := v.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 7, report.Missing)
	assert.Len(t, report.Sample, 5)
	// Sorted reporting keeps failure output stable across runs.
	assert.Equal(t, "2024-07-01", report.Sample[0].Day)
	assert.Equal(t, "2024-07-05", report.Sample[4].Day)
}

func TestValidator_DefaultResolutions(t *testing.T) {
	v := coverage.New(&memorySource{}, nil, discardLogger())
	report, err := v.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 0, report.Eligible)
}

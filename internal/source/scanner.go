// Package source streams features out of a directory of GeoJSON slice files.
//
// Files are visited in lexical filename order and features within a file in
// document order, so the raw output stream is reproducible run to run. A file
// that cannot be read, parsed, or reprojected is logged and skipped; the scan
// itself only fails when the directory is unusable or the visitor aborts.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/3dfirelab/webFET/internal/domain"
	"github.com/3dfirelab/webFET/internal/observability"
	"github.com/3dfirelab/webFET/internal/projection"
)

// fileIDPattern matches per-event slice files whose name carries the fire
// event id, e.g. gdf_1021.geojson.
var fileIDPattern = regexp.MustCompile(`^gdf_(\d+)\.geojson$`)

// Scanner walks a slice-file directory and hands normalized features to a
// visitor.
type Scanner struct {
	dir     string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewScanner creates a scanner over dir.
func NewScanner(dir string, logger *slog.Logger, metrics *observability.Metrics) *Scanner {
	return &Scanner{dir: dir, logger: logger, metrics: metrics}
}

// Walk streams every feature to visit. Geometries arrive already reprojected
// to WGS84 and features missing their own entity id carry the file-derived
// id and time range. A visitor error aborts the walk and is returned as-is.
func (s *Scanner) Walk(ctx context.Context, visit func(*domain.Feature) error) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read data dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".geojson") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.walkFile(entry.Name(), visit); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scanner) walkFile(name string, visit func(*domain.Feature) error) error {
	start := time.Now()

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		s.logger.Warn("skipping unreadable slice file", "file", name, "error", err)
		s.metrics.FilesSkipped.Inc()
		return nil
	}

	fc, err := domain.ParseFeatureCollection(data)
	if err != nil {
		s.logger.Warn("skipping malformed slice file", "file", name, "error", err)
		s.metrics.FilesSkipped.Inc()
		return nil
	}

	transformer, err := projection.ForCRS(fc.CRSName)
	if err != nil {
		s.logger.Warn("skipping slice file with unusable CRS", "file", name, "crs", fc.CRSName, "error", err)
		s.metrics.FilesSkipped.Inc()
		return nil
	}
	defer transformer.Close()

	fileID := fileEntityID(name)
	fileRange := resolvedRange(fc.Features)

	for _, f := range fc.Features {
		if transformer != nil {
			geom, err := f.Geometry.Transform(transformer.Apply)
			if err != nil {
				s.logger.Warn("dropping untransformable feature", "file", name, "entity", f.EntityID, "error", err)
				s.metrics.FeaturesDropped.WithLabelValues("transform").Inc()
				continue
			}
			f.Geometry = geom
		}

		if f.EntityID == "" {
			if fileID == "" {
				s.metrics.FeaturesDropped.WithLabelValues("no_entity").Inc()
				continue
			}
			f.EntityID = fileID
			if fileRange.Bounded() {
				f.Range = fileRange
			}
		}

		s.metrics.FeaturesRead.Inc()
		if err := visit(f); err != nil {
			return err
		}
	}

	s.metrics.FilesProcessed.Inc()
	s.metrics.FileFeatures.Observe(float64(len(fc.Features)))
	s.metrics.FileProcessingDuration.Observe(time.Since(start).Seconds())
	s.logger.Debug("slice file streamed", "file", name, "features", len(fc.Features))
	return nil
}

// fileEntityID is the fallback id for features of a per-event slice file.
func fileEntityID(name string) string {
	m := fileIDPattern.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return m[1]
}

// resolvedRange spans the earliest to latest resolvable instant across the
// file's features. Unbounded when no feature resolves.
func resolvedRange(features []*domain.Feature) domain.TimeRange {
	var min, max time.Time
	found := false
	for _, f := range features {
		ts, ok := f.ResolveTimestamp()
		if !ok {
			continue
		}
		if !found || ts.Before(min) {
			min = ts
		}
		if !found || ts.After(max) {
			max = ts
		}
		found = true
	}
	if !found {
		return domain.TimeRange{}
	}

	minTS, maxTS := domain.EpochSeconds(min), domain.EpochSeconds(max)
	return domain.TimeRange{
		Min:   domain.FormatTimestamp(min),
		Max:   domain.FormatTimestamp(max),
		MinTS: &minTS,
		MaxTS: &maxTS,
	}
}

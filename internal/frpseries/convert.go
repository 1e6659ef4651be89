// Package frpseries converts archived FRP time series from NPY arrays into
// the JSON layout the fire-event viewer charts from.
//
// Each input file is expected to hold a 2xN float64 array: row 0 carries
// epoch seconds, row 1 the FRP values in MW. Files that do not match
// (wrong shape, pickled object arrays, truncated payloads) are skipped and
// the run continues.
package frpseries

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sbinet/npyio"
)

// Point is one sample of the output series.
type Point struct {
	T   string   `json:"t"`
	FRP *float64 `json:"frp"`
}

// Converter turns every *.npy under one directory into a JSON series file
// of the same stem under another.
type Converter struct {
	inDir  string
	outDir string
	logger *slog.Logger
}

func NewConverter(inDir, outDir string, logger *slog.Logger) *Converter {
	return &Converter{inDir: inDir, outDir: outDir, logger: logger}
}

// Run converts every readable series file and reports how many were written.
// A missing input directory is fatal; per-file conversion problems are not.
func (c *Converter) Run() (int, error) {
	entries, err := os.ReadDir(c.inDir)
	if err != nil {
		return 0, fmt.Errorf("read input dir: %w", err)
	}
	if err := os.MkdirAll(c.outDir, 0o755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}

	written := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".npy") {
			continue
		}
		points, err := c.convertFile(filepath.Join(c.inDir, e.Name()))
		if err != nil {
			c.logger.Warn("skipping series file", "file", e.Name(), "error", err)
			continue
		}

		stem := strings.TrimSuffix(e.Name(), ".npy")
		outPath := filepath.Join(c.outDir, stem+".json")
		if err := writeSeries(outPath, points); err != nil {
			return written, err
		}
		c.logger.Info("wrote frp series", "file", stem+".json", "points", len(points))
		written++
	}
	return written, nil
}

func (c *Converter) convertFile(path string) ([]Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, err
	}
	shape := r.Header.Descr.Shape
	if len(shape) != 2 || shape[0] != 2 {
		return nil, fmt.Errorf("unexpected shape %v, want 2xN", shape)
	}
	n := shape[1]

	var raw []float64
	if err := r.Read(&raw); err != nil {
		return nil, err
	}

	type sample struct {
		epoch float64
		frp   float64
	}
	samples := make([]sample, 0, n)
	for i := 0; i < n; i++ {
		var s sample
		if r.Header.Descr.Fortran {
			// Column-major: each column is one (time, frp) pair.
			s = sample{epoch: raw[2*i], frp: raw[2*i+1]}
		} else {
			s = sample{epoch: raw[i], frp: raw[n+i]}
		}
		if math.IsNaN(s.epoch) || math.IsInf(s.epoch, 0) {
			continue
		}
		samples = append(samples, s)
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].epoch < samples[j].epoch })

	points := make([]Point, 0, len(samples))
	for _, s := range samples {
		sec := math.Floor(s.epoch)
		ts := time.Unix(int64(sec), int64((s.epoch-sec)*1e9)).UTC()
		p := Point{T: ts.Format(time.RFC3339)}
		if !math.IsNaN(s.frp) {
			v := s.frp
			p.FRP = &v
		}
		points = append(points, p)
	}
	return points, nil
}

func writeSeries(path string, points []Point) error {
	data, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("marshal series: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write series: %w", err)
	}
	return nil
}

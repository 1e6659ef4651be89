// Command validate cross-checks the two output layers of the stream: for
// every slice feature it derives the aggregation buckets the feature is
// eligible for and the buckets its rendered geometry occupies, then reports
// any bucket the low-zoom layer would show with no raw feature underneath.
//
// Usage:
//
//	go run ./cmd/validate -data-dir GeoJson [-resolutions 1,2,3,4]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/3dfirelab/webFET/internal/coverage"
	"github.com/3dfirelab/webFET/internal/observability"
	"github.com/3dfirelab/webFET/internal/source"
)

func main() {
	dataDir := flag.String("data-dir", "GeoJson", "directory of GeoJSON slice files")
	resolutionsCSV := flag.String("resolutions", "", "comma-separated H3 resolutions (default 1,2,3,4)")
	flag.Parse()

	os.Exit(run(*dataDir, *resolutionsCSV))
}

func run(dataDir, resolutionsCSV string) int {
	resolutions, err := parseResolutions(resolutionsCSV)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	logger := observability.NewLogger("info", "text")
	metrics := observability.NewMetrics()

	scanner := source.NewScanner(dataDir, logger, metrics)
	validator := coverage.New(scanner, resolutions, logger)

	report, err := validator.Run(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	fmt.Println("=== H3 Coverage Validation ===")
	fmt.Printf("Eligible buckets: %d\n", report.Eligible)
	fmt.Printf("Backed buckets:   %d\n", report.Backed)

	if report.OK() {
		fmt.Println("\nAll eligible buckets are backed by raw features.")
		return 0
	}

	fmt.Printf("\nMissing buckets: %d\n", report.Missing)
	for _, t := range report.Sample {
		fmt.Printf("  %s\n", t)
	}
	if report.Missing > len(report.Sample) {
		fmt.Printf("  ... and %d more\n", report.Missing-len(report.Sample))
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func parseResolutions(csv string) ([]int, error) {
	if csv == "" {
		return nil, nil
	}
	var resolutions []int
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		res, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("parse resolution %q: %w", part, err)
		}
		if res < 0 || res > 15 {
			return nil, fmt.Errorf("resolution %d out of range 0..15", res)
		}
		resolutions = append(resolutions, res)
	}
	return resolutions, nil
}

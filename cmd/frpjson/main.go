// Command frpjson converts archived FRP time series from NPY arrays into
// JSON files the fire-event viewer charts from. Each input is a 2xN float64
// array: row 0 epoch seconds, row 1 FRP in MW.
//
// Usage:
//
//	go run ./cmd/frpjson -in-dir FRP -out-dir FRP_JSON
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/3dfirelab/webFET/internal/frpseries"
	"github.com/3dfirelab/webFET/internal/observability"
)

func main() {
	inDir := flag.String("in-dir", "FRP", "directory of .npy FRP series files")
	outDir := flag.String("out-dir", "FRP_JSON", "directory for converted JSON series")
	flag.Parse()

	logger := observability.NewLogger("info", "text")
	written, err := frpseries.NewConverter(*inDir, *outDir, logger).Run()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Wrote %d series files to %s\n", written, *outDir)
}

// Command manifest writes a manifest.json index of the timestamped GeoJSON
// slice files in a data directory, so the map viewer can load slices on
// demand without listing the directory from the browser.
//
// Usage:
//
//	go run ./cmd/manifest -data-dir GeoJson
package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/3dfirelab/webFET/internal/manifest"
)

func main() {
	dataDir := flag.String("data-dir", "GeoJson", "directory of GeoJSON slice files")
	flag.Parse()

	if err := run(*dataDir); err != nil {
		log.Fatal(err)
	}
}

func run(dataDir string) error {
	payload, err := manifest.Build(dataDir)
	if err != nil {
		return err
	}
	path := filepath.Join(dataDir, "manifest.json")
	if err := manifest.Write(path, payload); err != nil {
		return err
	}
	fmt.Printf("Wrote %d entries to %s\n", payload.Count, path)
	return nil
}

// Package manifest builds the slice-file index that lets a map viewer load
// time slices on demand instead of listing the data directory itself.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/3dfirelab/webFET/internal/domain"
)

var sliceNamePattern = regexp.MustCompile(`^firEvents-(\d{4}-\d{2}-\d{2})_(\d{4})\.geojson$`)

// Entry describes one time slice file.
type Entry struct {
	File      string `json:"file"`
	Timestamp string `json:"timestamp"`
	Label     string `json:"label"`
}

// Payload is the manifest document written next to the slice files.
type Payload struct {
	GeneratedAt string  `json:"generatedAt"`
	Count       int     `json:"count"`
	Items       []Entry `json:"items"`
}

// Build scans dir for timestamped slice files and assembles the manifest.
// Entries follow os.ReadDir's lexical filename order, which for the
// firEvents-YYYY-MM-DD_HHMM naming is also chronological order. An empty
// match set is an error so a misconfigured dir cannot publish an empty index.
func Build(dir string) (*Payload, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var items []Entry
	for _, e := range dirEntries {
		if e.IsDir() {
			continue
		}
		m := sliceNamePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		date, clock := m[1], m[2]
		items = append(items, Entry{
			File:      e.Name(),
			Timestamp: fmt.Sprintf("%sT%s:%s:00Z", date, clock[:2], clock[2:]),
			Label:     fmt.Sprintf("%s %s:%s", date, clock[:2], clock[2:]),
		})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no slice files matching firEvents-*.geojson in %s", dir)
	}

	return &Payload{
		GeneratedAt: domain.Now().UTC().Format(time.RFC3339),
		Count:       len(items),
		Items:       items,
	}, nil
}

// Write renders the payload with a two-space indent and writes it to path.
func Write(path string, p *Payload) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

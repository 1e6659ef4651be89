package source

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/3dfirelab/webFET/internal/domain"
)

// statsCollection mirrors the per-event stats table, a feature collection
// whose rows map an entity id to its overall start and end instants.
type statsCollection struct {
	Features []struct {
		Properties struct {
			FireEventID json.RawMessage `json:"fire_event_id"`
			IDFireEvent json.RawMessage `json:"id_fire_event"`
			TimeStart   string          `json:"time_start"`
			TimeEnd     string          `json:"time_end"`
		} `json:"properties"`
	} `json:"features"`
}

// LoadStats reads the optional stats table at path into a per-entity time
// range map. The table is an overlay, so a missing or unreadable file is a
// warning and yields an empty map rather than an error. Raw instant strings
// are kept verbatim; epochs are attached only where the string parses.
func LoadStats(path string, logger *slog.Logger) map[string]domain.TimeRange {
	ranges := map[string]domain.TimeRange{}
	if path == "" {
		return ranges
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("stats table unavailable", "path", path, "error", err)
		return ranges
	}

	var sc statsCollection
	if err := json.Unmarshal(data, &sc); err != nil {
		logger.Warn("stats table malformed", "path", path, "error", err)
		return ranges
	}

	for _, f := range sc.Features {
		id := statsEntityID(f.Properties.FireEventID)
		if id == "" {
			id = statsEntityID(f.Properties.IDFireEvent)
		}
		if id == "" {
			continue
		}
		r := domain.TimeRange{Min: f.Properties.TimeStart, Max: f.Properties.TimeEnd}
		if ts, ok := domain.ParseTimestamp(r.Min); ok {
			epoch := domain.EpochSeconds(ts)
			r.MinTS = &epoch
		}
		if ts, ok := domain.ParseTimestamp(r.Max); ok {
			epoch := domain.EpochSeconds(ts)
			r.MaxTS = &epoch
		}
		ranges[id] = r
	}
	return ranges
}

// statsEntityID decodes a string-or-number id cell the same way the slice
// files' id_fire_event is decoded, so lookups line up across the two inputs.
func statsEntityID(raw json.RawMessage) string {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

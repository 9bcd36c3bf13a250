package storage

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dattu/truncated_collider/pkg/search"
)

// Report is the persisted form of a verified collision.
type Report struct {
	Fingerprint string       `json:"fingerprint"`
	Bits        uint         `json:"bits"`
	Count       uint64       `json:"count"`
	Seed        string       `json:"seed"`
	Found       time.Time    `json:"found"`
	Samples     [2]SampleDoc `json:"samples"`
}

// SampleDoc is one side of a collision.
type SampleDoc struct {
	Position uint64 `json:"position"`
	Sample   string `json:"sample"`
	Digest   string `json:"digest"`
}

// NewReport builds a Report from a verified event.
func NewReport(e search.Event, bits uint, seed string) Report {
	doc := func(o search.Observation) SampleDoc {
		return SampleDoc{Position: o.Position, Sample: string(o.Sample), Digest: hex.EncodeToString(o.Digest[:])}
	}
	return Report{
		Fingerprint: e.Hex,
		Bits:        bits,
		Count:       e.Count,
		Seed:        seed,
		Found:       time.Now().UTC(),
		Samples:     [2]SampleDoc{doc(e.Prev), doc(e.Curr)},
	}
}

// WriteReport stores r as indented JSON at path.
func WriteReport(path string, r Report) error {
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return AtomicWrite(path, append(raw, '\n'), 0o644)
}

package scenario

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"hermes/internal/broker"
	"hermes/pkg/errors"
)

// Record is one trace entry: everything a single coordination cycle produced.
// Seq is the global position across the whole run.
type Record struct {
	Seq      int       `json:"seq"`
	Cycle    int       `json:"cycle"`
	Recorded time.Time `json:"recorded"`

	broker.CycleResult
}

// Trace is the authoritative output of a scenario run. Replaying the same
// scenario against the same configuration reproduces it record for record.
type Trace struct {
	Scenario   string    `json:"scenario"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Records    []Record  `json:"records"`
}

// Append adds the next record in sequence.
func (t *Trace) Append(cycle int, res broker.CycleResult) Record {
	rec := Record{
		Seq:         len(t.Records) + 1,
		Cycle:       cycle,
		Recorded:    time.Now().UTC(),
		CycleResult: res,
	}
	t.Records = append(t.Records, rec)
	return rec
}

// WriteJSON renders the trace as indented JSON.
func (t *Trace) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return errors.Wrap(err, "encode trace")
	}
	return nil
}

// WriteFile writes the trace to a JSON file.
func (t *Trace) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create trace file %s", path)
	}
	defer f.Close()

	if err := t.WriteJSON(f); err != nil {
		return err
	}
	return f.Close()
}

// Store persists trace records as they are produced, so a run that dies
// mid-scenario still leaves its prefix behind.
type Store interface {
	Append(ctx context.Context, run string, rec Record) error
	Load(ctx context.Context, run string) ([]Record, error)
}

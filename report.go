package gudaflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// EngineResult captures one engine's run
type EngineResult struct {
	Name     string        `json:"name"`
	Status   string        `json:"status"` // "pass" or "fail"
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// RunReport is the persisted record of a benchmark run
type RunReport struct {
	N            int            `json:"n"`
	Iterations   int            `json:"iterations"`
	Device       string         `json:"device"`
	Features     string         `json:"features"`
	Engines      []EngineResult `json:"engines"`
	Verification *VerifyResult  `json:"verification,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// NewRunReport starts a report for the current device.
func NewRunReport(n, iterations int) *RunReport {
	return &RunReport{
		N:          n,
		Iterations: iterations,
		Device:     defaultDevice.Name,
		Features:   defaultDevice.Features,
		Timestamp:  time.Now(),
	}
}

// AddEngine records an engine's outcome.
func (r *RunReport) AddEngine(name string, d time.Duration, err error) {
	res := EngineResult{Name: name, Status: "pass", Duration: d}
	if err != nil {
		res.Status = "fail"
		res.Error = err.Error()
	}
	r.Engines = append(r.Engines, res)
}

// Speedup returns the duration of the first engine divided by the second's,
// or 0 if fewer than two engines completed.
func (r *RunReport) Speedup() float64 {
	if len(r.Engines) < 2 || r.Engines[1].Duration == 0 {
		return 0
	}
	return float64(r.Engines[0].Duration) / float64(r.Engines[1].Duration)
}

// WriteReport writes the report as indented JSON, creating parent
// directories as needed.
func WriteReport(path string, r *RunReport) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// ReadReport loads a report written by WriteReport
func ReadReport(path string) (*RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r RunReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &r, nil
}

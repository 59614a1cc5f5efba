package models

import (
	"time"
)

// GenerationState tracks what was last generated for one output artifact.
type GenerationState struct {
	Output       string            `json:"output"`
	Format       string            `json:"format"`
	Settings     string            `json:"settings,omitempty"`
	Inputs       map[string]string `json:"inputs"`        // Input path -> fingerprint
	VectorCounts map[string]int    `json:"vector_counts"` // Input path -> vectors emitted
	OutputHash   string            `json:"output_hash,omitempty"`
	LastRunTime  time.Time         `json:"last_run_time"`
	LastError    string            `json:"last_error,omitempty"`
}

// NewGenerationState creates an empty state for an output.
func NewGenerationState(output string) *GenerationState {
	return &GenerationState{
		Output:       output,
		Inputs:       make(map[string]string),
		VectorCounts: make(map[string]int),
	}
}

// RecordInput stores the fingerprint and vector count for an input file.
func (s *GenerationState) RecordInput(path, fingerprint string, vectors int) {
	if s.Inputs == nil {
		s.Inputs = make(map[string]string)
	}
	if s.VectorCounts == nil {
		s.VectorCounts = make(map[string]int)
	}
	s.Inputs[path] = fingerprint
	s.VectorCounts[path] = vectors
}

// GetFingerprint returns the stored fingerprint, or empty string if not found.
func (s *GenerationState) GetFingerprint(path string) string {
	if s.Inputs == nil {
		return ""
	}
	return s.Inputs[path]
}

// TotalVectors sums the vector counts of all inputs.
func (s *GenerationState) TotalVectors() int {
	total := 0
	for _, n := range s.VectorCounts {
		total += n
	}
	return total
}

// Matches reports whether the state was produced from exactly these fingerprints
// in the given format with the given settings, and completed without error.
func (s *GenerationState) Matches(format, settings string, fingerprints map[string]string) bool {
	if s.LastError != "" || s.Format != format || s.OutputHash == "" {
		return false
	}
	if s.Settings != settings {
		return false
	}
	if len(s.Inputs) != len(fingerprints) {
		return false
	}
	for path, fp := range fingerprints {
		if s.Inputs[path] != fp {
			return false
		}
	}
	return true
}

// MarkCompleted records a successful run.
func (s *GenerationState) MarkCompleted(format, settings, outputHash string) {
	s.Format = format
	s.Settings = settings
	s.OutputHash = outputHash
	s.LastError = ""
	s.LastRunTime = time.Now()
}

// SetError sets the last error message.
func (s *GenerationState) SetError(err error) {
	if err != nil {
		s.LastError = err.Error()
	} else {
		s.LastError = ""
	}
	s.LastRunTime = time.Now()
}

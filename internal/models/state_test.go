package models_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheMichaelB/cavsgen/internal/models"
)

func TestNewGenerationState(t *testing.T) {
	s := models.NewGenerationState("CAVS.elm")

	assert.Equal(t, "CAVS.elm", s.Output)
	assert.NotNil(t, s.Inputs)
	assert.Empty(t, s.Inputs)
	assert.Zero(t, s.TotalVectors())
}

func TestGenerationStateMatches(t *testing.T) {
	fps := map[string]string{"a.rsp": "fp-a", "b.rsp": "fp-b"}

	newState := func() *models.GenerationState {
		s := models.NewGenerationState("out.elm")
		s.RecordInput("a.rsp", "fp-a", 10)
		s.RecordInput("b.rsp", "fp-b", 5)
		s.MarkCompleted("elm", "settings", "hash")
		return s
	}

	tests := []struct {
		name   string
		modify   func(*models.GenerationState)
		format   string
		settings string
		want     bool
	}{
		{name: "identical", modify: func(*models.GenerationState) {}, format: "elm", want: true},
		{name: "format changed", modify: func(*models.GenerationState) {}, format: "json", want: false},
		{name: "settings changed", modify: func(*models.GenerationState) {}, format: "elm", settings: "other", want: false},
		{
			name:   "recorded before settings were tracked",
			modify: func(s *models.GenerationState) { s.Settings = "" },
			format: "elm",
			want:   false,
		},
		{
			name:   "fingerprint changed",
			modify: func(s *models.GenerationState) { s.RecordInput("a.rsp", "other", 10) },
			format: "elm",
			want:   false,
		},
		{
			name:   "extra input",
			modify: func(s *models.GenerationState) { s.RecordInput("c.rsp", "fp-c", 1) },
			format: "elm",
			want:   false,
		},
		{
			name:   "failed last run",
			modify: func(s *models.GenerationState) { s.SetError(errors.New("boom")) },
			format: "elm",
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newState()
			tt.modify(s)
			settings := tt.settings
			if settings == "" {
				settings = "settings"
			}
			assert.Equal(t, tt.want, s.Matches(tt.format, settings, fps))
		})
	}
}

func TestGenerationStateTotals(t *testing.T) {
	s := models.NewGenerationState("out.elm")
	s.RecordInput("a.rsp", "fp-a", 65)
	s.RecordInput("b.rsp", "fp-b", 64)

	assert.Equal(t, 129, s.TotalVectors())
	assert.Equal(t, "fp-a", s.GetFingerprint("a.rsp"))
	assert.Empty(t, s.GetFingerprint("missing.rsp"))

	s.SetError(nil)
	assert.Empty(t, s.LastError)
	assert.False(t, s.LastRunTime.IsZero())
}

package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/TheMichaelB/cavsgen/internal/models"
)

// Store manages generation state persistence, keyed by output path.
type Store interface {
	// Load retrieves the state for an output.
	Load(output string) (*models.GenerationState, error)

	// Save persists the state for an output.
	Save(output string, state *models.GenerationState) error

	// Reset removes all state for an output.
	Reset(output string) error

	// List returns all known outputs.
	List() ([]string, error)

	// Migrate copies every state into target.
	Migrate(target Store) error

	// Close releases resources.
	Close() error
}

// Errors
var (
	ErrStateNotFound = errors.New("state not found")
	ErrStateCorrupt  = errors.New("state file is corrupt")
)

// GenerationState extends the model with store metadata.
type GenerationState struct {
	*models.GenerationState

	// Store metadata
	SchemaVersion int       `json:"schema_version"`
	CreatedAt     time.Time `json:"created_at"`
	Checksum      string    `json:"checksum,omitempty"`
}

// CurrentSchemaVersion for migrations.
const CurrentSchemaVersion = 2

// copyState deep-copies a state so stores never alias caller maps.
func copyState(s *models.GenerationState) *models.GenerationState {
	c := *s
	c.Inputs = make(map[string]string, len(s.Inputs))
	for k, v := range s.Inputs {
		c.Inputs[k] = v
	}
	c.VectorCounts = make(map[string]int, len(s.VectorCounts))
	for k, v := range s.VectorCounts {
		c.VectorCounts[k] = v
	}
	return &c
}

func migrate(src, target Store) (int, error) {
	outputs, err := src.List()
	if err != nil {
		return 0, fmt.Errorf("list outputs: %w", err)
	}

	for i, output := range outputs {
		st, err := src.Load(output)
		if err != nil {
			return i, fmt.Errorf("load %s: %w", output, err)
		}
		if err := target.Save(output, st); err != nil {
			return i, fmt.Errorf("save %s: %w", output, err)
		}
	}
	return len(outputs), nil
}

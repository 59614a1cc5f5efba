// Package client wires configuration, storage, state and services into the
// high-level API the CLI drives.
package client

import (
	"fmt"
	"os"

	"github.com/TheMichaelB/cavsgen/internal/config"
	"github.com/TheMichaelB/cavsgen/internal/events"
	"github.com/TheMichaelB/cavsgen/internal/models"
	"github.com/TheMichaelB/cavsgen/internal/services/generate"
	"github.com/TheMichaelB/cavsgen/internal/state"
	"github.com/TheMichaelB/cavsgen/internal/storage"
	"github.com/TheMichaelB/cavsgen/internal/transport"
)

// Client provides the high-level API for cavsgen operations.
type Client struct {
	Generate *generate.Service
	State    StateManager

	config *config.Config
	logger *events.Logger
	store  state.Store
}

// StateManager provides state management operations.
type StateManager interface {
	ListStates() ([]*models.GenerationState, error)
	LoadState(output string) (*models.GenerationState, error)
	Reset(output string) error
	MigrateTo(backend string) error
}

// New creates a client for cfg. Close releases the state store.
func New(cfg *config.Config, logger *events.Logger) (*Client, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	stateStore, err := OpenStateStore(cfg, cfg.Storage.StateBackend, logger)
	if err != nil {
		return nil, err
	}

	inputs, err := newStore(cfg, cfg.Storage.InputDir, logger)
	if err != nil {
		stateStore.Close()
		return nil, fmt.Errorf("open input directory: %w", err)
	}

	outputs, err := newStore(cfg, cfg.Storage.OutputDir, logger)
	if err != nil {
		stateStore.Close()
		return nil, fmt.Errorf("open output directory: %w", err)
	}

	return &Client{
		Generate: generate.NewService(cfg, inputs, outputs, stateStore, logger),
		State: &stateManager{
			store:  stateStore,
			config: cfg,
			logger: logger,
		},
		config: cfg,
		logger: logger,
		store:  stateStore,
	}, nil
}

// Fetcher returns a fetcher downloading into dir, or into the input
// directory when dir is empty.
func (c *Client) Fetcher(dir string) (*transport.Fetcher, error) {
	if dir == "" {
		dir = c.config.Storage.InputDir
	}

	dest, err := newStore(c.config, dir, c.logger)
	if err != nil {
		return nil, fmt.Errorf("open destination: %w", err)
	}

	httpClient := transport.NewHTTPClient(&c.config.Fetch, c.logger)
	httpClient.SetMaxBodySize(c.config.Storage.MaxFileSize)

	return transport.NewFetcher(httpClient, dest, c.config.Fetch.BaseURL, c.logger), nil
}

// Close releases the state store.
func (c *Client) Close() error {
	return c.store.Close()
}

// OpenStateStore opens the state store of backend under the configured
// state directory.
func OpenStateStore(cfg *config.Config, backend string, logger *events.Logger) (state.Store, error) {
	switch backend {
	case config.BackendSQLite:
		if err := os.MkdirAll(cfg.Storage.StateDir, 0700); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
		store, err := state.NewSQLiteStore(cfg.StatePathFor(backend), logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite state: %w", err)
		}
		return store, nil
	case config.BackendJSON:
		store, err := state.NewJSONStore(cfg.StatePathFor(backend), logger)
		if err != nil {
			return nil, fmt.Errorf("open json state: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("invalid state backend: %s", backend)
	}
}

func newStore(cfg *config.Config, dir string, logger *events.Logger) (*storage.LocalStore, error) {
	store, err := storage.NewLocalStore(dir, logger)
	if err != nil {
		return nil, err
	}
	store.SetMaxFileSize(cfg.Storage.MaxFileSize)
	return store, nil
}

// stateManager implements StateManager interface.
type stateManager struct {
	store  state.Store
	config *config.Config
	logger *events.Logger
}

func (sm *stateManager) ListStates() ([]*models.GenerationState, error) {
	outputs, err := sm.store.List()
	if err != nil {
		return nil, err
	}

	states := make([]*models.GenerationState, 0, len(outputs))
	for _, output := range outputs {
		st, err := sm.store.Load(output)
		if err != nil {
			sm.logger.WithError(err).WithField("output", output).Warn("Skipping unreadable state")
			continue
		}
		states = append(states, st)
	}

	return states, nil
}

func (sm *stateManager) LoadState(output string) (*models.GenerationState, error) {
	return sm.store.Load(output)
}

func (sm *stateManager) Reset(output string) error {
	return sm.store.Reset(output)
}

func (sm *stateManager) MigrateTo(backend string) error {
	if backend == sm.config.Storage.StateBackend {
		return fmt.Errorf("state already uses the %s backend", backend)
	}

	target, err := OpenStateStore(sm.config, backend, sm.logger)
	if err != nil {
		return err
	}
	defer target.Close()

	if err := sm.store.Migrate(target); err != nil {
		return fmt.Errorf("migrate state: %w", err)
	}
	return nil
}

// Package generate drives a generation run: read the configured response
// files, build their vector sequences, render one output and record what was
// generated.
package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/TheMichaelB/cavsgen/internal/cavs"
	"github.com/TheMichaelB/cavsgen/internal/config"
	"github.com/TheMichaelB/cavsgen/internal/events"
	"github.com/TheMichaelB/cavsgen/internal/models"
	"github.com/TheMichaelB/cavsgen/internal/render"
	"github.com/TheMichaelB/cavsgen/internal/state"
	"github.com/TheMichaelB/cavsgen/internal/storage"
)

// Options configures a generation run.
type Options struct {
	Force  bool // Regenerate even when inputs are unchanged
	DryRun bool // Render without writing the output or the state
}

// InputResult describes what one input contributed.
type InputResult struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Variant     string `json:"variant"`
	Fingerprint string `json:"fingerprint"`
	Blocks      int    `json:"blocks"`
	Vectors     int    `json:"vectors"`
	Skipped     []int  `json:"skipped,omitempty"`
	Truncated   bool   `json:"truncated"`
}

// Result is the outcome of a generation run.
type Result struct {
	RunID      string        `json:"run_id"`
	Output     string        `json:"output"`
	Format     string        `json:"format"`
	UpToDate   bool          `json:"up_to_date"`
	DryRun     bool          `json:"dry_run"`
	Inputs     []InputResult `json:"inputs"`
	Vectors    int           `json:"vectors"`
	OutputHash string        `json:"output_hash,omitempty"`
	Size       int           `json:"size"`
	Duration   time.Duration `json:"duration"`

	// Rendered holds the output of a dry run.
	Rendered []byte `json:"-"`
}

// Service runs generations for one configuration.
type Service struct {
	cfg     *config.Config
	inputs  *storage.LocalStore
	outputs *storage.LocalStore
	state   state.Store
	logger  *events.Logger
}

// NewService creates a generate service. inputs is rooted at the input
// directory and outputs at the output directory.
func NewService(
	cfg *config.Config,
	inputs *storage.LocalStore,
	outputs *storage.LocalStore,
	st state.Store,
	logger *events.Logger,
) *Service {
	return &Service{
		cfg:     cfg,
		inputs:  inputs,
		outputs: outputs,
		state:   st,
		logger:  logger.WithField("service", "generate"),
	}
}

type loadedInput struct {
	cfg         config.InputConfig
	data        []byte
	fingerprint string
}

// Generate performs one run.
func (s *Service) Generate(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	output := s.cfg.Output.Path
	format := s.cfg.Output.Format

	runID := uuid.New().String()
	ctx = events.WithRunID(events.WithLogger(ctx, s.logger), runID)
	logger := events.FromContext(ctx)

	result := &Result{
		RunID:  runID,
		Output: output,
		Format: format,
		DryRun: opts.DryRun,
	}

	logger.WithFields(map[string]interface{}{
		"output":  output,
		"format":  format,
		"inputs":  len(s.cfg.Inputs),
		"force":   opts.Force,
		"dry_run": opts.DryRun,
	}).Info("Starting generation")

	renderer, err := render.New(format)
	if err != nil {
		return nil, &models.GenerateError{Code: models.ErrCodeConfig, Phase: "render", Err: err}
	}

	// Read and fingerprint every input first.
	loaded := make([]loadedInput, 0, len(s.cfg.Inputs))
	fingerprints := make(map[string]string, len(s.cfg.Inputs))
	for _, in := range s.cfg.Inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := s.inputs.Read(in.Path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				err = fmt.Errorf("%w: %s", models.ErrInputNotFound, in.Path)
			}
			return nil, s.fail(ctx, opts, &models.GenerateError{
				Code: models.ErrCodeInput, Phase: "read", Input: in.Name, Err: err,
			})
		}

		fp := storage.Fingerprint(data)
		fingerprints[in.Path] = fp
		loaded = append(loaded, loadedInput{cfg: in, data: data, fingerprint: fp})
	}

	settings, err := s.settingsFingerprint()
	if err != nil {
		return nil, s.fail(ctx, opts, &models.GenerateError{
			Code: models.ErrCodeConfig, Phase: "config", Err: err,
		})
	}

	prev, err := s.loadState(output)
	if err != nil {
		return nil, &models.GenerateError{Code: models.ErrCodeState, Phase: "state", Err: err}
	}

	if !opts.Force && prev != nil && s.upToDate(prev, format, settings, fingerprints) {
		logger.Info("Output is up to date")
		result.UpToDate = true
		result.OutputHash = prev.OutputHash
		result.Vectors = prev.TotalVectors()
		result.Duration = time.Since(start)
		return result, nil
	}

	// Build every sequence before rendering so a bad file leaves no output.
	doc := render.Document{
		Module:     s.cfg.Output.Module,
		HashModule: s.cfg.Output.HashModule,
		Package:    s.cfg.Output.Package,
	}
	for _, in := range loaded {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		suite, ir, err := s.buildInput(events.WithInput(ctx, in.cfg.Name), in)
		if err != nil {
			return nil, s.fail(ctx, opts, err)
		}
		doc.Suites = append(doc.Suites, suite)
		result.Inputs = append(result.Inputs, ir)
		result.Vectors += ir.Vectors
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, doc); err != nil {
		return nil, s.fail(ctx, opts, &models.GenerateError{
			Code: models.ErrCodeRender, Phase: "render", Err: err,
		})
	}

	rendered := buf.Bytes()
	result.OutputHash = storage.Fingerprint(rendered)
	result.Size = len(rendered)

	if opts.DryRun {
		result.Rendered = rendered
		result.Duration = time.Since(start)
		logger.WithFields(map[string]interface{}{
			"vectors": result.Vectors,
			"size":    result.Size,
		}).Info("Dry run complete")
		return result, nil
	}

	if err := s.outputs.Write(output, rendered, 0644); err != nil {
		return nil, s.fail(ctx, opts, &models.GenerateError{
			Code: models.ErrCodeStorage, Phase: "write", Err: err,
		})
	}

	next := models.NewGenerationState(output)
	for _, ir := range result.Inputs {
		next.RecordInput(ir.Path, ir.Fingerprint, ir.Vectors)
	}
	next.MarkCompleted(format, settings, result.OutputHash)

	if err := s.state.Save(output, next); err != nil {
		return nil, &models.GenerateError{Code: models.ErrCodeState, Phase: "state", Err: err}
	}

	result.Duration = time.Since(start)
	logger.WithFields(map[string]interface{}{
		"vectors":  result.Vectors,
		"size":     result.Size,
		"duration": result.Duration.String(),
	}).Info("Generation complete")

	return result, nil
}

func (s *Service) buildInput(ctx context.Context, in loadedInput) (render.Suite, InputResult, error) {
	logger := events.FromContext(ctx)

	variant, opts, err := in.cfg.Options()
	if err != nil {
		return render.Suite{}, InputResult{}, &models.GenerateError{
			Code: models.ErrCodeConfig, Phase: "parse", Input: in.cfg.Name, Err: err,
		}
	}

	res, err := cavs.Build(string(in.data), opts)
	if err != nil {
		return render.Suite{}, InputResult{}, &models.GenerateError{
			Code: models.ErrCodeParse, Phase: "parse", Input: in.cfg.Name, Err: err,
		}
	}

	if variant == cavs.VariantLong && opts.Truncate {
		logger.Warn("Truncating long-message vectors to their declared length")
	}

	if len(res.Skipped) > 0 {
		logger.WithField("blocks", res.Skipped).Debug("Skipped short blocks")
	}

	logger.WithFields(map[string]interface{}{
		"path":    in.cfg.Path,
		"blocks":  res.Blocks,
		"vectors": len(res.Vectors),
	}).Info("Built vector sequence")

	return render.Suite{Name: in.cfg.Name, Vectors: res.Vectors},
		InputResult{
			Name:        in.cfg.Name,
			Path:        in.cfg.Path,
			Variant:     variant.String(),
			Fingerprint: in.fingerprint,
			Blocks:      res.Blocks,
			Vectors:     len(res.Vectors),
			Skipped:     res.Skipped,
			Truncated:   opts.Truncate,
		}, nil
}

func (s *Service) loadState(output string) (*models.GenerationState, error) {
	st, err := s.state.Load(output)
	if errors.Is(err, state.ErrStateNotFound) {
		return nil, nil
	}
	if errors.Is(err, state.ErrStateCorrupt) {
		s.logger.WithError(err).Warn("Ignoring corrupt generation state")
		return nil, nil
	}
	return st, err
}

// settingsInput is one configured input as it shapes the rendered output.
type settingsInput struct {
	Name    string       `json:"name"`
	Path    string       `json:"path"`
	Variant string       `json:"variant"`
	Options cavs.Options `json:"options"`
}

// settingsFingerprint hashes everything besides input content that changes the
// output: the inputs in configured order with their resolved options, and the
// module and package names.
func (s *Service) settingsFingerprint() (string, error) {
	settings := struct {
		Inputs     []settingsInput `json:"inputs"`
		Module     string          `json:"module"`
		HashModule string          `json:"hash_module"`
		Package    string          `json:"package"`
	}{
		Inputs:     make([]settingsInput, 0, len(s.cfg.Inputs)),
		Module:     s.cfg.Output.Module,
		HashModule: s.cfg.Output.HashModule,
		Package:    s.cfg.Output.Package,
	}

	for _, in := range s.cfg.Inputs {
		variant, opts, err := in.Options()
		if err != nil {
			return "", fmt.Errorf("input %s: %w", in.Name, err)
		}
		settings.Inputs = append(settings.Inputs, settingsInput{
			Name:    in.Name,
			Path:    in.Path,
			Variant: variant.String(),
			Options: opts,
		})
	}

	data, err := json.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("encode settings: %w", err)
	}
	return storage.Fingerprint(data), nil
}

// upToDate reports whether the recorded run matches the current inputs and
// settings, and the output on disk is still the one that run wrote.
func (s *Service) upToDate(prev *models.GenerationState, format, settings string, fingerprints map[string]string) bool {
	if !prev.Matches(format, settings, fingerprints) {
		return false
	}

	hash, err := s.outputs.Hash(prev.Output)
	if err != nil {
		return false
	}
	return hash == prev.OutputHash
}

// fail records err as the last error of the output's state.
func (s *Service) fail(ctx context.Context, opts Options, err error) error {
	logger := events.FromContext(ctx)
	logger.WithError(err).Error("Generation failed")

	if opts.DryRun {
		return err
	}

	output := s.cfg.Output.Path
	st, loadErr := s.loadState(output)
	if loadErr != nil || st == nil {
		st = models.NewGenerationState(output)
	}
	st.SetError(err)

	if saveErr := s.state.Save(output, st); saveErr != nil {
		logger.WithError(saveErr).Warn("Failed to record generation error")
	}
	return err
}

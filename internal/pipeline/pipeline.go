// Package pipeline sequences one scan run: it recreates the store,
// prepares the schema, ingests the document, aggregates the ingested
// ports and hands the rows to a renderer.
//
// A Driver runs exactly once and walks the states
//
//	Empty -> SchemaPrepared -> Ingested -> Aggregated -> Closed
//
// Any failure ends in Failed. Failures before Aggregated remove the
// store, so an aborted run leaves no artifact behind.
package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anstrom/scanparser/internal/errors"
	"github.com/anstrom/scanparser/internal/ingest"
	"github.com/anstrom/scanparser/internal/logging"
	"github.com/anstrom/scanparser/internal/metrics"
	"github.com/anstrom/scanparser/internal/render"
	"github.com/anstrom/scanparser/internal/scandoc"
	"github.com/anstrom/scanparser/internal/services"
	"github.com/anstrom/scanparser/internal/stats"
	"github.com/anstrom/scanparser/internal/store"
)

// Stage names used for metrics and logs.
const (
	stageCreate    = "create"
	stagePrepare   = "prepare"
	stageIngest    = "ingest"
	stageAggregate = "aggregate"
	stageRender    = "render"
)

// Result is what a successful run produced.
type Result struct {
	RunID     string         `json:"run_id"`
	Scanner   string         `json:"scanner,omitempty"`
	Summary   ingest.Summary `json:"summary"`
	ByAddress []stats.Row    `json:"by_address"`
	ByPort    []stats.Row    `json:"by_port"`
	ByService []stats.Row    `json:"by_service"`
	StorePath string         `json:"store_path,omitempty"`
	Duration  time.Duration  `json:"duration"`
}

// Rows returns the aggregate for dim.
func (r *Result) Rows(dim stats.Dimension) []stats.Row {
	switch dim {
	case stats.ByAddress:
		return r.ByAddress
	case stats.ByPort:
		return r.ByPort
	case stats.ByService:
		return r.ByService
	}
	return nil
}

// Driver runs the pipeline for one document. The zero value uses a
// sqlite store, resolves every undeclared service to services.Unknown
// and renders nothing.
type Driver struct {
	Store    store.Config
	Services *services.Table
	Renderer render.Renderer
	Logger   *logging.Logger
	Metrics  *metrics.PrometheusMetrics

	state State
}

// State reports how far the run got.
func (d *Driver) State() State {
	return d.state
}

// Run executes every stage against a store named after base. The store
// is always rebuilt from scratch.
func (d *Driver) Run(ctx context.Context, base string, doc *scandoc.Document) (*Result, error) {
	if d.state != StateEmpty {
		return nil, transition(d.state, StateSchemaPrepared)
	}

	runID := uuid.NewString()
	logger := d.logger().WithRunID(runID)
	start := time.Now()

	result, err := d.run(ctx, logger, base, doc)
	if err != nil {
		d.fail(logger, err)
		d.Metrics.IncrementRuns(metrics.StatusError)
		return nil, err
	}

	result.RunID = runID
	result.Duration = time.Since(start)
	d.Metrics.IncrementRuns(metrics.StatusSuccess)
	logger.Info("run complete",
		"hosts", result.Summary.Hosts,
		"ports", result.Summary.Ports,
		"store", result.StorePath,
		"duration", result.Duration)
	return result, nil
}

func (d *Driver) run(ctx context.Context, logger *logging.Logger, base string, doc *scandoc.Document) (*Result, error) {
	if doc == nil {
		return nil, errors.NewDocumentError("no scan document")
	}

	var s *store.Store
	err := d.stage(stageCreate, func() (err error) {
		s, err = store.Create(ctx, d.Store, base, d.Logger)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &Result{Scanner: doc.Scanner, StorePath: s.Path()}

	err = d.stage(stagePrepare, func() error { return s.Prepare(ctx) })
	if err == nil {
		err = d.advance(logger, StateSchemaPrepared)
	}
	if err == nil {
		err = d.stage(stageIngest, func() (err error) {
			result.Summary, err = ingest.New(d.Services, logger).Ingest(ctx, s, doc)
			return err
		})
	}
	if err == nil {
		d.Metrics.RecordIngest(result.Summary.Hosts, result.Summary.Ports,
			result.Summary.SkippedHosts, result.Summary.SkippedPorts,
			result.Summary.Resolved, result.Summary.Unknown)
		err = d.advance(logger, StateIngested)
	}
	if err == nil {
		err = d.stage(stageAggregate, func() error {
			agg, err := stats.FromStore(ctx, s)
			if err != nil {
				return err
			}
			result.ByAddress = agg.ByAddress()
			result.ByPort = agg.ByPort()
			result.ByService = agg.ByService()
			return nil
		})
	}
	if err == nil {
		err = d.advance(logger, StateAggregated)
	}
	if err != nil {
		if rmErr := s.Remove(ctx); rmErr != nil {
			logger.Warn("failed to remove partial store", "error", rmErr)
		}
		return nil, err
	}

	// From here on the store is complete and stays on disk.
	if err := d.stage(stageRender, func() error { return d.render(result) }); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := s.Close(); err != nil {
		return nil, errors.WrapStoreError(errors.CodeStoreQuery, "close store", err)
	}
	if err := d.advance(logger, StateClosed); err != nil {
		return nil, err
	}
	return result, nil
}

func (d *Driver) render(result *Result) error {
	if d.Renderer == nil {
		return nil
	}
	for _, dim := range stats.Dimensions {
		if err := d.Renderer.Render(dim, result.Rows(dim)); err != nil {
			return err
		}
	}
	return nil
}

// stage times fn under name.
func (d *Driver) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	d.Metrics.RecordStageDuration(name, time.Since(start))
	return err
}

func (d *Driver) advance(logger *logging.Logger, to State) error {
	if err := transition(d.state, to); err != nil {
		return err
	}
	logger.Debug("pipeline state changed", "from", d.state.String(), "to", to.String())
	d.state = to
	return nil
}

func (d *Driver) fail(logger *logging.Logger, err error) {
	logger.WithError(err).Error("run failed", "state", d.state.String(), "code", string(errors.GetCode(err)))
	if !d.state.Terminal() {
		d.state = StateFailed
	}
}

func (d *Driver) logger() *logging.Logger {
	if d.Logger != nil {
		return d.Logger.WithComponent("pipeline")
	}
	return logging.Default().WithComponent("pipeline")
}

// ArtifactBase derives the artifact base from an input path: the file
// name without its last extension, placed in outDir or, when outDir is
// empty, next to the input.
func ArtifactBase(input, outDir string) string {
	name := filepath.Base(input)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if outDir == "" {
		outDir = filepath.Dir(input)
	}
	return filepath.Join(outDir, name)
}

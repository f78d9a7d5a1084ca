package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/anstrom/scanparser/internal/config"
	"github.com/anstrom/scanparser/internal/logging"
	"github.com/anstrom/scanparser/internal/metrics"
	"github.com/anstrom/scanparser/internal/pipeline"
	"github.com/anstrom/scanparser/internal/render"
	"github.com/anstrom/scanparser/internal/scandoc"
	"github.com/anstrom/scanparser/internal/services"
)

const outputDirPerm = 0o755

// loadServices returns the configured reference table.
func loadServices(cfg *config.Config) (*services.Table, error) {
	if cfg.Services.File == "" {
		return services.Default(), nil
	}
	return services.LoadFile(cfg.Services.File)
}

// runPipeline drives one run for doc and reports what it produced on out.
func (a *app) runPipeline(ctx context.Context, out io.Writer, base string, doc *scandoc.Document) error {
	table, err := loadServices(a.cfg)
	if err != nil {
		return err
	}

	var (
		renderers render.Multi
		charts    *render.HTMLRenderer
	)
	if a.cfg.HasFormat(config.FormatHTML) {
		charts = render.NewHTMLRenderer(base, a.cfg.Render.Extension)
		renderers = append(renderers, charts)
	}
	if a.cfg.HasFormat(config.FormatTable) {
		renderers = append(renderers, render.TableRenderer{W: out})
	}

	m := metrics.NewPrometheusMetrics()
	driver := &pipeline.Driver{
		Store:    a.cfg.Store,
		Services: table,
		Renderer: renderers,
		Logger:   logging.Default(),
		Metrics:  m,
	}

	result, runErr := driver.Run(ctx, base, doc)
	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := m.WriteTextfile(path); err != nil {
			logging.Warn("Failed to write metrics textfile", "path", path, "error", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	printSummary(out, result, charts)
	return nil
}

func printSummary(out io.Writer, result *pipeline.Result, charts *render.HTMLRenderer) {
	s := result.Summary
	fmt.Fprintf(out, "Hosts: %d  Ports: %d", s.Hosts, s.Ports)
	if s.SkippedHosts > 0 || s.SkippedPorts > 0 {
		fmt.Fprintf(out, "  (skipped %d hosts, %d ports)", s.SkippedHosts, s.SkippedPorts)
	}
	fmt.Fprintln(out)

	if result.StorePath != "" {
		fmt.Fprintf(out, "Store: %s\n", result.StorePath)
	}
	if charts != nil {
		for _, path := range charts.Written() {
			fmt.Fprintf(out, "Chart: %s\n", path)
		}
	}
}

// ensureDir creates the artifact directory when one is configured.
func ensureDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.MkdirAll(dir, outputDirPerm)
}

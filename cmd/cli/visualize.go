package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/anstrom/scanparser/internal/pipeline"
	"github.com/anstrom/scanparser/internal/scandoc"
)

func newVisualizeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visualize FILE",
		Short: "Load a scan document and chart it",
		Long: `Parse an nmap or masscan XML document, rebuild the relational store
next to it (<name>.sqlite3) and render the by-address, by-port and
by-service aggregates.`,
		Example: `  scanparser visualize office.xml
  scanparser visualize masscan.xml --output-dir charts
  scanparser visualize office.xml --format table`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runVisualize(cmd, args[0])
		},
	}

	cmd.Flags().StringP("output-dir", "o", "", "directory for the store and charts (default: next to FILE)")
	cmd.Flags().StringSlice("format", nil, "outputs to render: html, table")
	a.bindFlag(cmd, "render.output_dir", "output-dir")
	a.bindFlag(cmd, "render.formats", "format")
	return cmd
}

func (a *app) runVisualize(cmd *cobra.Command, path string) error {
	f, err := os.Open(path) //nolint:gosec // operator supplied path
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := scandoc.Parse(f)
	if err != nil {
		return err
	}

	if err := ensureDir(a.cfg.Render.OutputDir); err != nil {
		return err
	}
	base := pipeline.ArtifactBase(path, a.cfg.Render.OutputDir)
	return a.runPipeline(cmd.Context(), cmd.OutOrStdout(), base, doc)
}

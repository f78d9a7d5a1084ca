package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/anstrom/scanparser/internal/scanning"
)

func newScanCmd(a *app) *cobra.Command {
	var (
		cfg  scanning.Config
		name string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run nmap and chart the result",
		Long: `Scan targets with nmap, then load the result into a store named after
--name and render its aggregates, exactly as visualize does for a saved
document. nmap must be installed and on PATH.`,
		Example: `  scanparser scan --targets 192.168.1.0/24
  scanparser scan --targets "10.0.0.1,10.0.0.2" --ports "22,80,443" --type version
  scanparser scan --targets localhost --name lab --output-dir charts`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			doc, err := scanning.Run(cmd.Context(), &cfg)
			if err != nil {
				return err
			}

			dir := a.cfg.Render.OutputDir
			if err := ensureDir(dir); err != nil {
				return err
			}
			return a.runPipeline(cmd.Context(), cmd.OutOrStdout(), filepath.Join(dir, name), doc)
		},
	}

	cmd.Flags().StringSliceVar(&cfg.Targets, "targets", nil, "targets to scan (IPs, hostnames, CIDR ranges)")
	cmd.Flags().StringVar(&cfg.Ports, "ports", "22,80,443,8080,8443", "ports to scan: '80,443' or '1-1000'")
	cmd.Flags().StringVar(&cfg.ScanType, "type", scanning.TypeConnect,
		"scan type: connect, syn (requires root), version, aggressive, stealth")
	cmd.Flags().IntVar(&cfg.TimeoutSec, "timeout", 300, "maximum scan duration in seconds (0 = no limit)")
	cmd.Flags().StringVar(&name, "name", "scan", "artifact base name")
	cmd.Flags().StringP("output-dir", "o", "", "directory for the store and charts (default: current directory)")
	cmd.Flags().StringSlice("format", nil, "outputs to render: html, table")
	a.bindFlag(cmd, "render.output_dir", "output-dir")
	a.bindFlag(cmd, "render.formats", "format")
	_ = cmd.MarkFlagRequired("targets")
	return cmd
}

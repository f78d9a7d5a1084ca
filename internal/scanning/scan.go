package scanning

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/Ullaakut/nmap/v3"

	"github.com/anstrom/scanparser/internal/errors"
	"github.com/anstrom/scanparser/internal/logging"
	"github.com/anstrom/scanparser/internal/scandoc"
)

// Run executes nmap with cfg and converts the result into a document.
func Run(ctx context.Context, cfg *Config) (*scandoc.Document, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.TimeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.TimeoutSec)*time.Second)
		defer cancel()
	}

	logging.Info("Starting scan operation",
		"scan_type", cfg.ScanType,
		"target_count", len(cfg.Targets),
		"ports", cfg.Ports)

	start := time.Now()
	result, err := createAndRunScanner(ctx, cfg)
	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) || strings.Contains(err.Error(), "timed out") {
			return nil, errors.WrapScanError(errors.CodeTimeout, "scan operation timed out", err)
		}
		scanErr := errors.WrapScanError(errors.CodeScanFailed, "scanner execution failed", err)
		scanErr.Target = strings.Join(cfg.Targets, ",")
		return nil, scanErr
	}

	doc := scandoc.FromRun(result)
	logging.Info("Scan operation completed",
		"scan_type", cfg.ScanType,
		"duration", time.Since(start),
		"hosts_scanned", doc.Len())
	return doc, nil
}

// createAndRunScanner creates an nmap scanner with the given config and runs it.
func createAndRunScanner(ctx context.Context, cfg *Config) (*nmap.Run, error) {
	scanner, err := nmap.NewScanner(ctx, buildScanOptions(cfg)...)
	if err != nil {
		return nil, err
	}

	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, err
	}

	if warnings != nil && len(*warnings) > 0 {
		logging.Warn("Scan completed with warnings", "warnings", *warnings)
	}
	return result, nil
}

// buildScanOptions creates nmap options based on scan configuration.
func buildScanOptions(cfg *Config) []nmap.Option {
	options := []nmap.Option{
		nmap.WithTargets(cfg.Targets...),
		nmap.WithPorts(cfg.Ports),
	}

	switch cfg.ScanType {
	case TypeConnect:
		options = append(options, nmap.WithConnectScan())
	case TypeSYN:
		options = append(options, nmap.WithSYNScan())
	case TypeVersion:
		options = append(options,
			nmap.WithConnectScan(),
			nmap.WithServiceInfo(),
		)
	case TypeAggressive:
		options = append(options,
			nmap.WithConnectScan(),
			nmap.WithServiceInfo(),
			nmap.WithAggressiveScan(),
		)
	case TypeStealth:
		options = append(options,
			nmap.WithConnectScan(),
			nmap.WithTimingTemplate(nmap.TimingPolite),
		)
	}

	return append(options,
		nmap.WithSkipHostDiscovery(), // Skip ping and go straight to port scan
	)
}

// Package scanning runs nmap through github.com/Ullaakut/nmap/v3 and
// hands the result to the pipeline as a scan document.
//
// # Usage
//
//	cfg := &scanning.Config{
//		Targets:  []string{"192.168.1.0/24"},
//		Ports:    "22,80,443",
//		ScanType: "version",
//	}
//
//	doc, err := scanning.Run(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := driver.Run(ctx, "office", doc)
//
// # Scan Types
//
//   - "connect": TCP connect scan (default, no privileges required)
//   - "syn": TCP SYN scan (requires privileges)
//   - "version": connect scan with service and version detection
//   - "aggressive": version detection plus OS detection and traceroute
//   - "stealth": connect scan at polite timing
//
// Declared service names from version detection take precedence over
// the reference table during ingestion, so "version" and "aggressive"
// scans produce the most specific service aggregates.
package scanning

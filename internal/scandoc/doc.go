// Package scandoc reads port-scan result documents produced by nmap and
// masscan and exposes them as host and port records.
//
// # Overview
//
// Both scanners emit XML rooted at <nmaprun>. Parse decodes the document
// once; Document.Hosts then yields one Host per <host> block in document
// order, and Host.Ports yields the block's <port> records.
//
// # Partial Documents
//
// Scanners occasionally write incomplete host blocks. Records that cannot
// be used are yielded together with a *errors.RecordError instead of
// aborting the walk, so callers decide whether to log and continue:
//
//	for host, err := range doc.Hosts() {
//		if err != nil {
//			logger.WarnSkipped("host skipped", err)
//			continue
//		}
//		for port, err := range host.Ports() {
//			...
//		}
//	}
//
// Only a missing or undecodable root is fatal; it is reported as a
// *errors.DocumentError.
//
// # Other Entry Points
//
//   - FromRun converts a result produced by the nmap library.
//   - Prettify re-indents any well-formed XML document and shares no
//     state with the record walk.
package scandoc

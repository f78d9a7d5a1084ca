// Package ingest loads scan document records into the relational store.
package ingest

import (
	"context"
	"strconv"

	"github.com/anstrom/scanparser/internal/errors"
	"github.com/anstrom/scanparser/internal/logging"
	"github.com/anstrom/scanparser/internal/scandoc"
	"github.com/anstrom/scanparser/internal/services"
	"github.com/anstrom/scanparser/internal/store"
)

// Summary counts what an ingestion wrote and what it skipped.
type Summary struct {
	// Hosts is the number of distinct host rows written
	Hosts int
	// Ports is the number of port rows written
	Ports int
	// SkippedHosts counts host blocks dropped as malformed
	SkippedHosts int
	// SkippedPorts counts port records dropped as malformed
	SkippedPorts int
	// MergedHosts counts repeated blocks folded into an earlier host
	MergedHosts int
	// Resolved counts ports named from the service table
	Resolved int
	// Unknown counts ports that resolved to services.Unknown
	Unknown int
}

// Ingester writes documents into a prepared store.
type Ingester struct {
	services *services.Table
	logger   *logging.Logger
}

// New creates an ingester resolving names through table.
func New(table *services.Table, logger *logging.Logger) *Ingester {
	if logger == nil {
		logger = logging.Default()
	}
	return &Ingester{
		services: table,
		logger:   logger.WithComponent("ingest"),
	}
}

// Ingest writes every usable host and port of doc into s in document
// order, then the service reference table, and commits once. Malformed
// records are logged and skipped. Repeated blocks for an address merge
// into the first host row: its attributes are kept and the later
// blocks only add ports.
func (i *Ingester) Ingest(ctx context.Context, s *store.Store, doc *scandoc.Document) (Summary, error) {
	var summary Summary

	w, err := s.Begin(ctx)
	if err != nil {
		return summary, err
	}
	defer func() { _ = w.Rollback() }()

	hostIDs := make(map[string]int64)
	for host, err := range doc.Hosts() {
		if errors.IsFatal(err) {
			return summary, err
		}
		if err != nil {
			summary.SkippedHosts++
			i.logger.WarnSkipped("host skipped", err)
			continue
		}

		hostID, seen := hostIDs[host.Address]
		if seen {
			summary.MergedHosts++
			i.logger.Debug("merging repeated host block", "host", host.Address)
		} else {
			hostID, err = w.InsertHost(ctx, store.HostRow{
				Address:  host.Address,
				AddrType: store.Optional(host.AddrType),
				Status:   host.Status,
				Hostname: store.Optional(host.Hostname),
				OS:       store.Optional(host.OS),
			})
			if err != nil {
				return summary, err
			}
			hostIDs[host.Address] = hostID
			summary.Hosts++
		}

		if err := i.ingestPorts(ctx, w, hostID, host, &summary); err != nil {
			return summary, err
		}
	}

	if err := w.InsertServices(ctx, i.serviceRows()); err != nil {
		return summary, err
	}
	if err := w.Commit(); err != nil {
		return summary, err
	}

	i.logger.Info("ingest complete",
		"hosts", summary.Hosts,
		"ports", summary.Ports,
		"skipped_hosts", summary.SkippedHosts,
		"skipped_ports", summary.SkippedPorts)
	return summary, nil
}

func (i *Ingester) ingestPorts(ctx context.Context, w *store.Writer, hostID int64, host scandoc.Host, summary *Summary) error {
	for port, err := range host.Ports() {
		if errors.IsFatal(err) {
			return err
		}
		if err != nil {
			summary.SkippedPorts++
			i.logger.WarnSkipped("port skipped", err, "host", host.Address)
			continue
		}

		name := i.resolve(port, summary)
		row := store.PortRow{
			HostID:   hostID,
			Port:     int(port.Number),
			Protocol: port.Protocol,
			State:    port.State,
			Service:  name,
			Version:  store.Optional(port.Version),
		}
		if err := w.InsertPort(ctx, row); err != nil {
			return err
		}
		summary.Ports++
	}
	return nil
}

// resolve prefers the name the scanner declared and falls back to the
// reference table, which answers services.Unknown on a miss.
func (i *Ingester) resolve(port scandoc.Port, summary *Summary) string {
	if port.Service != "" {
		return port.Service
	}

	name := i.services.Lookup(port.Number, port.Protocol)
	if name == services.Unknown {
		summary.Unknown++
		i.logger.Debug("service unresolved", "port", strconv.Itoa(int(port.Number)), "protocol", port.Protocol)
	} else {
		summary.Resolved++
	}
	return name
}

func (i *Ingester) serviceRows() []store.ServiceRow {
	entries := i.services.Entries()
	rows := make([]store.ServiceRow, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, store.ServiceRow{
			Port:     int(entry.Port),
			Protocol: entry.Protocol,
			Name:     entry.Name,
		})
	}
	return rows
}

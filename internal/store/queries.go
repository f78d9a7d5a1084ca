package store

import (
	"context"

	"github.com/anstrom/scanparser/internal/errors"
)

const (
	selectObservationsQuery = `
		SELECT h.address, p.port, p.protocol, p.service
		FROM ports p
		JOIN hosts h ON h.id = p.host_id
		ORDER BY p.id`

	selectHostsQuery = `
		SELECT id, address, addrtype, status, hostname, os
		FROM hosts
		ORDER BY id`

	selectPortsQuery = `
		SELECT id, host_id, port, protocol, state, service, version
		FROM ports
		ORDER BY id`

	countServicesQuery = `SELECT COUNT(*) FROM services`
)

// Observations returns every port joined with its host, in insertion order.
func (s *Store) Observations(ctx context.Context) ([]PortObservation, error) {
	var rows []PortObservation
	if err := s.db.SelectContext(ctx, &rows, selectObservationsQuery); err != nil {
		return nil, errors.WrapStoreError(errors.CodeStoreQuery, "select observations", err).
			WithQuery(selectObservationsQuery)
	}
	return rows, nil
}

// Hosts returns all host rows in insertion order.
func (s *Store) Hosts(ctx context.Context) ([]HostRow, error) {
	var rows []HostRow
	if err := s.db.SelectContext(ctx, &rows, selectHostsQuery); err != nil {
		return nil, errors.WrapStoreError(errors.CodeStoreQuery, "select hosts", err)
	}
	return rows, nil
}

// Ports returns all port rows in insertion order.
func (s *Store) Ports(ctx context.Context) ([]PortRow, error) {
	var rows []PortRow
	if err := s.db.SelectContext(ctx, &rows, selectPortsQuery); err != nil {
		return nil, errors.WrapStoreError(errors.CodeStoreQuery, "select ports", err)
	}
	return rows, nil
}

// ServiceCount returns the number of service reference rows.
func (s *Store) ServiceCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, countServicesQuery); err != nil {
		return 0, errors.WrapStoreError(errors.CodeStoreQuery, "count services", err)
	}
	return n, nil
}

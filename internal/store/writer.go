package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/anstrom/scanparser/internal/errors"
)

const (
	insertHostQuery = `
		INSERT INTO hosts (id, address, addrtype, status, hostname, os)
		VALUES (:id, :address, :addrtype, :status, :hostname, :os)`

	insertPortQuery = `
		INSERT INTO ports (id, host_id, port, protocol, state, service, version)
		VALUES (:id, :host_id, :port, :protocol, :state, :service, :version)`

	insertServiceQuery = `
		INSERT INTO services (port, protocol, name)
		VALUES (:port, :protocol, :name)`
)

// Writer inserts rows inside one transaction. Nothing it writes is
// visible to other readers until Commit.
type Writer struct {
	tx     *sqlx.Tx
	hostID int64
	portID int64
}

// Begin starts the ingestion transaction.
func (s *Store) Begin(ctx context.Context) (*Writer, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.WrapStoreError(errors.CodeStoreQuery, "begin ingest transaction", err)
	}
	return &Writer{tx: tx}, nil
}

// InsertHost inserts a host and returns its assigned id. IDs follow
// insertion order starting at 1.
func (w *Writer) InsertHost(ctx context.Context, row HostRow) (int64, error) {
	row.ID = w.hostID + 1
	if _, err := w.tx.NamedExecContext(ctx, insertHostQuery, row); err != nil {
		return 0, errors.WrapStoreError(errors.CodeStoreQuery, "insert host", err)
	}
	w.hostID = row.ID
	return row.ID, nil
}

// InsertPort inserts a port owned by row.HostID.
func (w *Writer) InsertPort(ctx context.Context, row PortRow) error {
	row.ID = w.portID + 1
	if _, err := w.tx.NamedExecContext(ctx, insertPortQuery, row); err != nil {
		return errors.WrapStoreError(errors.CodeStoreQuery, "insert port", err)
	}
	w.portID = row.ID
	return nil
}

// InsertServices bulk-loads the service reference relation.
func (w *Writer) InsertServices(ctx context.Context, rows []ServiceRow) error {
	for _, row := range rows {
		if _, err := w.tx.NamedExecContext(ctx, insertServiceQuery, row); err != nil {
			return errors.WrapStoreError(errors.CodeStoreQuery, "insert service", err)
		}
	}
	return nil
}

// Commit makes the ingested rows durable.
func (w *Writer) Commit() error {
	if err := w.tx.Commit(); err != nil {
		return errors.WrapStoreError(errors.CodeStoreQuery, "commit ingest transaction", err)
	}
	return nil
}

// Rollback discards uncommitted rows. After Commit it returns sql.ErrTxDone.
func (w *Writer) Rollback() error {
	return w.tx.Rollback()
}

package store

import (
	"context"
	_ "embed"
	"strings"

	"github.com/anstrom/scanparser/internal/errors"
)

//go:embed schema.sql
var schemaSQL string

// schemaStatements splits the embedded schema into single statements,
// since not every driver accepts several in one Exec.
func schemaStatements() []string {
	var statements []string
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}

// Prepare creates the hosts, ports and services relations. It adds no
// rows and must run against an empty store; running it twice on the
// same empty store is harmless.
func (s *Store) Prepare(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.WrapStoreError(errors.CodeStoreSchema, "begin schema transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range schemaStatements() {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.WrapStoreError(errors.CodeStoreSchema, "create schema", err).WithQuery(stmt)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.WrapStoreError(errors.CodeStoreSchema, "commit schema", err)
	}

	s.logger.InfoStore("schema prepared", "statements", len(schemaStatements()))
	return nil
}

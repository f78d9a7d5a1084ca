package store

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/scanparser/internal/errors"
	"github.com/anstrom/scanparser/internal/logging"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	base := filepath.Join(t.TempDir(), "scan")
	s, err := Create(context.Background(), DefaultConfig(), base, logging.NewDiscard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Prepare(context.Background()))
	return s
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Store{db: sqlx.NewDb(db, "sqlmock"), driver: DriverSQLite, logger: logging.NewDiscard()}, mock
}

func TestConfigPath(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "scans/office.sqlite3", cfg.Path("scans/office"))

	cfg.Extension = ".db"
	assert.Equal(t, "office.db", cfg.Path("office"))

	assert.Equal(t, "office.sqlite3", Config{}.Path("office"))
	assert.Empty(t, Config{Driver: DriverPostgres}.Path("office"))
}

func TestCreateAndPrepare(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	assert.Equal(t, DriverSQLite, s.Driver())
	assert.FileExists(t, s.Path())

	// A second prepare on the same empty store succeeds.
	require.NoError(t, s.Prepare(ctx))

	hosts, err := s.Hosts(ctx)
	require.NoError(t, err)
	assert.Empty(t, hosts)

	n, err := s.ServiceCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateDiscardsPreviousStore(t *testing.T) {
	ctx := context.Background()
	base := filepath.Join(t.TempDir(), "scan")

	first, err := Create(ctx, DefaultConfig(), base, nil)
	require.NoError(t, err)
	require.NoError(t, first.Prepare(ctx))
	w, err := first.Begin(ctx)
	require.NoError(t, err)
	_, err = w.InsertHost(ctx, HostRow{Address: "10.0.0.1", Status: "up"})
	require.NoError(t, err)
	require.NoError(t, w.Commit())
	require.NoError(t, first.Close())

	second, err := Create(ctx, DefaultConfig(), base, nil)
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.Prepare(ctx))

	hosts, err := second.Hosts(ctx)
	require.NoError(t, err)
	assert.Empty(t, hosts, "no state survives from the previous run")
}

func TestCreatePathConflict(t *testing.T) {
	base := filepath.Join(t.TempDir(), "scan")
	require.NoError(t, os.MkdirAll(base+DefaultExtension, 0750))

	s, err := Create(context.Background(), DefaultConfig(), base, nil)
	require.Error(t, err)
	assert.Nil(t, s)
	assert.True(t, errors.IsCode(err, errors.CodeStoreCreate))
	assert.DirExists(t, base+DefaultExtension, "conflicting directory is left alone")
}

func TestCreateUnsupportedDriver(t *testing.T) {
	_, err := Create(context.Background(), Config{Driver: "mysql"}, "scan", nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeStoreCreate))
}

func TestWriterRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	w, err := s.Begin(ctx)
	require.NoError(t, err)

	h1, err := w.InsertHost(ctx, HostRow{Address: "10.0.0.1", AddrType: Optional("ipv4"), Status: "up", Hostname: Optional("gw")})
	require.NoError(t, err)
	h2, err := w.InsertHost(ctx, HostRow{Address: "10.0.0.2", Status: "up"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), h1)
	assert.Equal(t, int64(2), h2)

	require.NoError(t, w.InsertPort(ctx, PortRow{HostID: h1, Port: 22, Protocol: "tcp", State: "open", Service: "ssh", Version: Optional("OpenSSH 9.6")}))
	require.NoError(t, w.InsertPort(ctx, PortRow{HostID: h1, Port: 80, Protocol: "tcp", State: "open", Service: "http"}))
	require.NoError(t, w.InsertPort(ctx, PortRow{HostID: h2, Port: 22, Protocol: "tcp", State: "open", Service: "ssh"}))
	require.NoError(t, w.InsertServices(ctx, []ServiceRow{
		{Port: 22, Protocol: "tcp", Name: "ssh"},
		{Port: 80, Protocol: "tcp", Name: "http"},
	}))
	require.NoError(t, w.Commit())

	obs, err := s.Observations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []PortObservation{
		{Address: "10.0.0.1", Port: 22, Protocol: "tcp", Service: "ssh"},
		{Address: "10.0.0.1", Port: 80, Protocol: "tcp", Service: "http"},
		{Address: "10.0.0.2", Port: 22, Protocol: "tcp", Service: "ssh"},
	}, obs)

	hosts, err := s.Hosts(ctx)
	require.NoError(t, err)
	require.Len(t, hosts, 2)
	require.NotNil(t, hosts[0].Hostname)
	assert.Equal(t, "gw", *hosts[0].Hostname)
	assert.Nil(t, hosts[1].Hostname)
	assert.Nil(t, hosts[1].OS)

	ports, err := s.Ports(ctx)
	require.NoError(t, err)
	require.Len(t, ports, 3)
	require.NotNil(t, ports[0].Version)
	assert.Equal(t, "OpenSSH 9.6", *ports[0].Version)
	assert.Nil(t, ports[1].Version)

	n, err := s.ServiceCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWriterConstraints(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate address", func(t *testing.T) {
		s := newTestStore(t)
		w, err := s.Begin(ctx)
		require.NoError(t, err)
		defer func() { _ = w.Rollback() }()

		_, err = w.InsertHost(ctx, HostRow{Address: "10.0.0.1", Status: "up"})
		require.NoError(t, err)
		_, err = w.InsertHost(ctx, HostRow{Address: "10.0.0.1", Status: "up"})
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeStoreQuery))
	})

	t.Run("port out of range", func(t *testing.T) {
		s := newTestStore(t)
		w, err := s.Begin(ctx)
		require.NoError(t, err)
		defer func() { _ = w.Rollback() }()

		id, err := w.InsertHost(ctx, HostRow{Address: "10.0.0.1", Status: "up"})
		require.NoError(t, err)
		err = w.InsertPort(ctx, PortRow{HostID: id, Port: 0, Protocol: "tcp", State: "open", Service: "x"})
		assert.Error(t, err)
	})

	t.Run("port without host", func(t *testing.T) {
		s := newTestStore(t)
		w, err := s.Begin(ctx)
		require.NoError(t, err)
		defer func() { _ = w.Rollback() }()

		err = w.InsertPort(ctx, PortRow{HostID: 42, Port: 22, Protocol: "tcp", State: "open", Service: "ssh"})
		assert.Error(t, err)
	})
}

func TestWriterRollback(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	w, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = w.InsertHost(ctx, HostRow{Address: "10.0.0.1", Status: "up"})
	require.NoError(t, err)
	require.NoError(t, w.Rollback())

	hosts, err := s.Hosts(ctx)
	require.NoError(t, err)
	assert.Empty(t, hosts)
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	path := s.Path()

	require.NoError(t, s.Remove(context.Background()))
	assert.NoFileExists(t, path)
}

func TestPrepareFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS hosts").WillReturnError(stderrors.New("disk I/O error"))
	mock.ExpectRollback()

	err := s.Prepare(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeStoreSchema))

	var storeErr *errors.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Contains(t, storeErr.Query, "CREATE TABLE IF NOT EXISTS hosts")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrepareBeginFailure(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin().WillReturnError(stderrors.New("database is locked"))

	err := s.Prepare(context.Background())
	assert.True(t, errors.IsCode(err, errors.CodeStoreSchema))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestObservationsFailure(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT h.address").WillReturnError(stderrors.New("no such table: ports"))

	_, err := s.Observations(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeStoreQuery))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaStatements(t *testing.T) {
	statements := schemaStatements()
	require.Len(t, statements, 4)
	assert.Contains(t, statements[0], "CREATE TABLE IF NOT EXISTS hosts")
	assert.Contains(t, statements[1], "CREATE TABLE IF NOT EXISTS ports")
	assert.Contains(t, statements[3], "CREATE TABLE IF NOT EXISTS services")
}

// TestPostgresRoundTrip runs against a real server when
// SCANPARSER_TEST_POSTGRES_DSN is set.
func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("SCANPARSER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SCANPARSER_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	cfg := Config{Driver: DriverPostgres, DSN: dsn}
	s, err := Create(ctx, cfg, "ignored", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Remove(ctx) })

	assert.Empty(t, s.Path())
	require.NoError(t, s.Prepare(ctx))

	w, err := s.Begin(ctx)
	require.NoError(t, err)
	hostID, err := w.InsertHost(ctx, HostRow{Address: "10.0.0.1", Status: "up"})
	require.NoError(t, err)
	require.NoError(t, w.InsertPort(ctx, PortRow{HostID: hostID, Port: 22, Protocol: "tcp", State: "open", Service: "ssh"}))
	require.NoError(t, w.Commit())

	obs, err := s.Observations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []PortObservation{{Address: "10.0.0.1", Port: 22, Protocol: "tcp", Service: "ssh"}}, obs)
}

func TestCreateLogsThroughGivenLogger(t *testing.T) {
	var global, own bytes.Buffer
	original := logging.Default()
	logging.SetDefault(logging.NewWithWriter(logging.Config{Level: logging.LevelInfo, Format: logging.FormatText}, &global))
	defer logging.SetDefault(original)

	logger := logging.NewWithWriter(logging.Config{Level: logging.LevelInfo, Format: logging.FormatText}, &own)
	s, err := Create(context.Background(), DefaultConfig(), filepath.Join(t.TempDir(), "scan"), logger)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Prepare(context.Background()))

	assert.Contains(t, own.String(), "store created")
	assert.Contains(t, own.String(), "schema prepared")
	assert.Empty(t, global.String())
}

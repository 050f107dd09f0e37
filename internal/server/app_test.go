package server

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/tasktracker/internal/server/config"
	"github.com/dmitrijs2005/tasktracker/internal/server/keys"
	"github.com/dmitrijs2005/tasktracker/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	priv, pub, err := keys.GeneratePEM(2048)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "private.pem"), priv, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "public.pem"), pub, 0o644))

	c := &config.Config{}
	c.LoadDefaults()
	c.HTTPAddr = "127.0.0.1:0"
	c.PrivateKeyPath = filepath.Join(dir, "private.pem")
	c.PublicKeyPath = filepath.Join(dir, "public.pem")
	c.MigrateOnStart = false
	c.HashWorkers = 1
	return c
}

func stubOpenDB(t *testing.T, db *sql.DB, err error) {
	t.Helper()
	orig := openDB
	openDB = func(context.Context, string, repomanager.PoolOptions) (*sql.DB, error) { return db, err }
	t.Cleanup(func() { openDB = orig })
}

func TestNewApp_MissingKeysIsFatal(t *testing.T) {
	c := testConfig(t)
	c.PrivateKeyPath = filepath.Join(t.TempDir(), "absent.pem")
	stubOpenDB(t, nil, errors.New("must not be reached"))

	_, err := NewApp(context.Background(), c, io.Discard)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "key material")
}

func TestNewApp_DBError(t *testing.T) {
	c := testConfig(t)
	stubOpenDB(t, nil, errors.New("connection refused"))

	_, err := NewApp(context.Background(), c, io.Discard)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "db init error")
}

func TestNewApp_BadLogLevel(t *testing.T) {
	c := testConfig(t)
	c.LogLevel = "loud"

	_, err := NewApp(context.Background(), c, io.Discard)

	assert.Error(t, err)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	c := testConfig(t)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()
	stubOpenDB(t, db, nil)

	app, err := NewApp(context.Background(), c, io.Discard)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

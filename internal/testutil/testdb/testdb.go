//go:build integration

// Package testdb starts a throwaway Postgres container with the schema applied.
package testdb

import (
	"context"
	"database/sql"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/churchevent-ux/registerform--event-final/internal/store"
)

// DBHandle owns the container and its connection pool.
type DBHandle struct {
	DB     *sql.DB
	cancel func()
	stop   func(context.Context) error
}

// Close releases the pool and terminates the container.
func (h *DBHandle) Close() {
	if h.DB != nil {
		_ = h.DB.Close()
	}
	if h.stop != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.stop(ctx)
	}
	if h.cancel != nil {
		h.cancel()
	}
}

// Start runs postgres:17-alpine and applies the embedded migrations.
func Start(ctx context.Context) (*DBHandle, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)

	pg, err := postgres.RunContainer(ctx,
		tc.WithImage("postgres:17-alpine"),
		postgres.WithDatabase("retreat"),
		postgres.WithUsername("retreat"),
		postgres.WithPassword("retreat"),
	)
	if err != nil {
		cancel()
		return nil, err
	}

	uri, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pg.Terminate(ctx)
		cancel()
		return nil, err
	}

	db, err := waitReady(ctx, uri)
	if err != nil {
		_ = pg.Terminate(ctx)
		cancel()
		return nil, err
	}
	if err := store.Migrate(ctx, db.Client); err != nil {
		_ = db.Close()
		_ = pg.Terminate(ctx)
		cancel()
		return nil, err
	}

	return &DBHandle{DB: db.Client, cancel: cancel, stop: pg.Terminate}, nil
}

// waitReady retries the connection until the server accepts it.
func waitReady(ctx context.Context, uri string) (*store.DB, error) {
	dead := time.Now().Add(20 * time.Second)
	for {
		db, err := store.NewDB(ctx, uri)
		if err == nil {
			return db, nil
		}
		_ = db.Close()
		if time.Now().After(dead) {
			return nil, err
		}
		time.Sleep(200 * time.Millisecond)
	}
}

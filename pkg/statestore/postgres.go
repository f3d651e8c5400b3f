package statestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/datazip-inc/olake-mongo/types"
	"github.com/datazip-inc/olake-mongo/utils/logger"
	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	createTableQuery = `CREATE TABLE IF NOT EXISTS olake_state (
	state_key TEXT PRIMARY KEY,
	state JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	loadQuery   = `SELECT state FROM olake_state WHERE state_key = $1`
	upsertQuery = `INSERT INTO olake_state (state_key, state, updated_at) VALUES ($1, $2, now())
ON CONFLICT (state_key) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`
)

type conn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close(ctx context.Context) error
}

// Postgres keeps the state of a connector under a single key of the olake_state table
type Postgres struct {
	conn conn
	key  string
}

// NewPostgres connects to url and makes sure the state table exists; key names the row
func NewPostgres(ctx context.Context, url, key string) (*Postgres, error) {
	connection, err := pgx.Connect(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to state store: %s", err)
	}
	store, err := newPostgres(ctx, connection, key)
	if err != nil {
		_ = connection.Close(ctx)
		return nil, err
	}
	return store, nil
}

func newPostgres(ctx context.Context, connection conn, key string) (*Postgres, error) {
	if key == "" {
		return nil, fmt.Errorf("state key is required for the postgres state store")
	}
	if _, err := connection.Exec(ctx, createTableQuery); err != nil {
		return nil, fmt.Errorf("failed to create state table: %s", err)
	}
	return &Postgres{conn: connection, key: key}, nil
}

func (p *Postgres) Load(ctx context.Context) (*types.State, error) {
	var raw []byte
	err := p.conn.QueryRow(ctx, loadQuery, p.key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		logger.Infof("no state found for key %s, starting fresh", p.key)
		return types.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %s", err)
	}

	state := types.NewState()
	if err := json.Unmarshal(raw, state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state of key %s: %s", p.key, err)
	}
	return validated(state, "state store key "+p.key)
}

func (p *Postgres) Save(ctx context.Context, state *types.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %s", err)
	}
	if _, err := p.conn.Exec(ctx, upsertQuery, p.key, raw); err != nil {
		return fmt.Errorf("failed to save state: %s", err)
	}
	return nil
}

func (p *Postgres) Close(ctx context.Context) error {
	return p.conn.Close(ctx)
}

package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type PostgresConfig struct {
	DSN          string        `envconfig:"DSN" split_words:"true"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" split_words:"true" default:"5s"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"10"`
}

// sessionRow stores the whole session as one JSONB document, so a save is a
// single-row upsert that replaces the record.
type sessionRow struct {
	bun.BaseModel `bun:"table:loan_sessions,alias:ls"`

	SessionID string    `bun:"session_id,pk"`
	Record    *Session  `bun:"record,type:jsonb,notnull"`
	Role      Role      `bun:"current_agent,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	opts := []pgdriver.Option{pgdriver.WithDSN(dsn)}
	if cfg.DialTimeout > 0 {
		opts = append(opts, pgdriver.WithDialTimeout(cfg.DialTimeout))
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(opts...))
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	store := NewPostgresStoreFromDB(bun.NewDB(sqldb, pgdialect.New()))
	if err := store.db.PingContext(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func NewPostgresStoreFromDB(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := p.createTableQuery().Exec(ctx); err != nil {
		return fmt.Errorf("create loan_sessions table: %w", err)
	}
	return nil
}

func (p *PostgresStore) createTableQuery() *bun.CreateTableQuery {
	return p.db.NewCreateTable().
		Model((*sessionRow)(nil)).
		IfNotExists()
}

func (p *PostgresStore) Load(ctx context.Context, sessionID string) (*Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}

	row := new(sessionRow)
	err := p.db.NewSelect().
		Model(row).
		Where("session_id = ?", sessionID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}
	if row.Record == nil {
		return nil, fmt.Errorf("%w: empty record for %s", ErrStateNotFound, sessionID)
	}
	if err := row.Record.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session state loaded from store: %w", err)
	}
	return row.Record, nil
}

func (p *PostgresStore) Save(ctx context.Context, st *Session) error {
	if err := prepareForSave(st); err != nil {
		return err
	}

	if _, err := p.upsertQuery(newSessionRow(st)).Exec(ctx); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func newSessionRow(st *Session) *sessionRow {
	return &sessionRow{
		SessionID: st.SessionID,
		Record:    st,
		Role:      st.CurrentRole,
		UpdatedAt: st.UpdatedAt,
	}
}

func (p *PostgresStore) upsertQuery(row *sessionRow) *bun.InsertQuery {
	return p.db.NewInsert().
		Model(row).
		On("CONFLICT (session_id) DO UPDATE").
		Set("record = EXCLUDED.record").
		Set("current_agent = EXCLUDED.current_agent").
		Set("updated_at = EXCLUDED.updated_at")
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}

// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package journal

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgErrUniqueViolation = "23505"

// PostgresRecorder writes days to the bid_days and bid_rows tables
type PostgresRecorder struct {
	pool *pgxpool.Pool
}

// NewPostgresRecorder connects to dsn and verifies the connection
func NewPostgresRecorder(ctx context.Context, dsn string) (*PostgresRecorder, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresRecorder{pool: pool}, nil
}

// Record inserts a day and its bid rows in one transaction
func (p *PostgresRecorder) Record(ctx context.Context, day *Day) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	spikes := day.Spikes
	if spikes == nil {
		spikes = []string{}
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO bid_days (
			session_id, day, recorded_at, capacity_modifier, recent_conversions, spikes
		) VALUES ($1, $2, $3, $4, $5, $6)
	`,
		day.SessionID,
		day.Day,
		day.RecordedAt,
		day.CapacityModifier,
		day.RecentConversions,
		spikes,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateDay
		}
		return fmt.Errorf("insert bid day: %w", err)
	}

	batch := &pgx.Batch{}
	for _, row := range day.Bids {
		batch.Queue(`
			INSERT INTO bid_rows (session_id, day, query, bid, regime, ad)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, day.SessionID, day.Day, row.Query, row.Bid, row.Regime, row.Ad)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert bid rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Days loads every recorded day of a session in day order
func (p *PostgresRecorder) Days(ctx context.Context, sessionID uuid.UUID) ([]*Day, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT day, recorded_at, capacity_modifier, recent_conversions, spikes
		FROM bid_days
		WHERE session_id = $1
		ORDER BY day
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query bid days: %w", err)
	}

	var days []*Day
	byDay := make(map[int]*Day)
	for rows.Next() {
		d := &Day{SessionID: sessionID}
		if err := rows.Scan(&d.Day, &d.RecordedAt, &d.CapacityModifier, &d.RecentConversions, &d.Spikes); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan bid day: %w", err)
		}
		days = append(days, d)
		byDay[d.Day] = d
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bid days: %w", err)
	}
	if len(days) == 0 {
		return nil, ErrUnknownSession
	}

	bidRows, err := p.pool.Query(ctx, `
		SELECT day, query, bid, regime, ad
		FROM bid_rows
		WHERE session_id = $1
		ORDER BY day, id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query bid rows: %w", err)
	}
	defer bidRows.Close()

	for bidRows.Next() {
		var (
			n   int
			row BidRow
		)
		if err := bidRows.Scan(&n, &row.Query, &row.Bid, &row.Regime, &row.Ad); err != nil {
			return nil, fmt.Errorf("scan bid row: %w", err)
		}
		if d, ok := byDay[n]; ok {
			d.Bids = append(d.Bids, row)
		}
	}
	if err := bidRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bid rows: %w", err)
	}
	return days, nil
}

// Close closes the connection pool
func (p *PostgresRecorder) Close() error {
	p.pool.Close()
	return nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}
	return false
}

var _ Recorder = (*PostgresRecorder)(nil)

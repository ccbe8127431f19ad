// Package store persists sector cost fields in PostgreSQL. It is a
// boundary input: worlds can bulk-load their cost layer from the
// cost_fields table instead of a directory of YAML files.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/flowtiles/internal/field"
)

// Store wraps a pgx connection pool for cost-field operations.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and returns a Store handle.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// LoadCostFields reads every persisted sector cost field.
func (s *Store) LoadCostFields(ctx context.Context) (map[field.SectorID]*field.CostField, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT sector_column, sector_row, costs FROM cost_fields`)
	if err != nil {
		return nil, fmt.Errorf("querying cost fields: %w", err)
	}
	defer rows.Close()

	out := make(map[field.SectorID]*field.CostField)
	for rows.Next() {
		var col, row int32
		var raw []byte
		if err := rows.Scan(&col, &row, &raw); err != nil {
			return nil, fmt.Errorf("scanning cost field row: %w", err)
		}
		f, err := unpackCosts(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding cost field (%d,%d): %w", col, row, err)
		}
		out[field.SectorID{Column: uint32(col), Row: uint32(row)}] = f
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading cost fields: %w", err)
	}
	return out, nil
}

// SaveCostField upserts one sector's cost field.
func (s *Store) SaveCostField(ctx context.Context, id field.SectorID, f *field.CostField) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cost_fields (sector_column, sector_row, costs)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (sector_column, sector_row) DO UPDATE SET costs = EXCLUDED.costs`,
		int32(id.Column), int32(id.Row), packCosts(f),
	)
	if err != nil {
		return fmt.Errorf("saving cost field (%d,%d): %w", id.Column, id.Row, err)
	}
	return nil
}

// packCosts flattens a cost field column by column into the persisted
// byte layout.
func packCosts(f *field.CostField) []byte {
	out := make([]byte, 0, field.Resolution*field.Resolution)
	for col := 0; col < field.Resolution; col++ {
		out = append(out, f[col][:]...)
	}
	return out
}

// unpackCosts restores a cost field from the persisted byte layout.
func unpackCosts(raw []byte) (*field.CostField, error) {
	want := field.Resolution * field.Resolution
	if len(raw) != want {
		return nil, fmt.Errorf("cost blob has %d bytes, want %d", len(raw), want)
	}
	f := &field.CostField{}
	for col := 0; col < field.Resolution; col++ {
		copy(f[col][:], raw[col*field.Resolution:(col+1)*field.Resolution])
	}
	return f, nil
}

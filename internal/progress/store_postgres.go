package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store. Each record lives as one JSONB row.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed progress store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Create(ctx context.Context, rec Record) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if rec.UserID == "" || rec.CourseID == "" {
		return Record{}, fmt.Errorf("user_id and course_id are required")
	}
	if rec.EnrolledAt.IsZero() {
		rec.EnrolledAt = time.Now()
	}
	rec.ensureMaps()

	data, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("marshal record: %w", err)
	}

	cmd, err := s.pool.Exec(ctx,
		`INSERT INTO progress (user_id, course_id, record, enrolled_at, updated_at)
		 VALUES ($1, $2, $3::jsonb, $4, NOW())
		 ON CONFLICT (user_id, course_id) DO NOTHING`,
		rec.UserID,
		rec.CourseID,
		string(data),
		rec.EnrolledAt,
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert progress: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return Record{}, ErrAlreadyEnrolled
	}
	return rec, nil
}

func (s *PostgresStore) Get(ctx context.Context, userID, courseID string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return scanRecord(s.pool.QueryRow(ctx,
		`SELECT record FROM progress WHERE user_id = $1 AND course_id = $2`,
		userID, courseID,
	))
}

func (s *PostgresStore) Update(ctx context.Context, userID, courseID string, fn func(*Record) error) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var out Record
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		rec, err := scanRecord(tx.QueryRow(ctx,
			`SELECT record FROM progress WHERE user_id = $1 AND course_id = $2 FOR UPDATE`,
			userID, courseID,
		))
		if err != nil {
			return err
		}

		if err := fn(&rec); err != nil {
			return err
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE progress SET record = $3::jsonb, updated_at = NOW()
			 WHERE user_id = $1 AND course_id = $2`,
			userID, courseID, string(data),
		); err != nil {
			return fmt.Errorf("update progress: %w", err)
		}
		out = rec
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return out, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	return s.list(ctx,
		`SELECT record FROM progress WHERE user_id = $1 ORDER BY enrolled_at, course_id`,
		userID,
	)
}

func (s *PostgresStore) ListByCourse(ctx context.Context, courseID string) ([]Record, error) {
	return s.list(ctx,
		`SELECT record FROM progress WHERE course_id = $1 ORDER BY enrolled_at, user_id`,
		courseID,
	)
}

func (s *PostgresStore) list(ctx context.Context, query string, arg string) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return out, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotEnrolled
		}
		return Record{}, fmt.Errorf("scan progress: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("unmarshal progress: %w", err)
	}
	rec.ensureMaps()
	return rec, nil
}

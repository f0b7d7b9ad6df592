package certificate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	dbTimeout         = 5 * time.Second
	pgUniqueViolation = "23505"
	certColumns       = `id::text, serial, verification_code, user_id, course_id, learner_name,
		course_title, issuer, average_percent, issued_at`
)

// PostgresStore is a PostgreSQL-backed Store implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed certificate store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Insert(ctx context.Context, c Certificate) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO certificates (id, serial, verification_code, user_id, course_id, learner_name,
		                           course_title, issuer, average_percent, issued_at)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.Serial, c.VerificationCode, c.UserID, c.CourseID, c.LearnerName,
		c.CourseTitle, c.Issuer, c.AveragePercent, c.IssuedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Certificate, error) {
	return s.one(ctx, `SELECT `+certColumns+` FROM certificates WHERE id::text = $1`, id)
}

func (s *PostgresStore) GetByCode(ctx context.Context, code string) (Certificate, error) {
	return s.one(ctx, `SELECT `+certColumns+` FROM certificates WHERE verification_code = $1`, code)
}

func (s *PostgresStore) GetByUserCourse(ctx context.Context, userID, courseID string) (Certificate, error) {
	return s.one(ctx,
		`SELECT `+certColumns+` FROM certificates WHERE user_id = $1 AND course_id = $2`,
		userID, courseID,
	)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Certificate, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+certColumns+` FROM certificates WHERE user_id = $1 ORDER BY issued_at, course_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query certificates: %w", err)
	}
	defer rows.Close()

	out := []Certificate{}
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certificates: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) one(ctx context.Context, query string, args ...any) (Certificate, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return scanCertificate(s.pool.QueryRow(ctx, query, args...))
}

func scanCertificate(row pgx.Row) (Certificate, error) {
	var c Certificate
	err := row.Scan(&c.ID, &c.Serial, &c.VerificationCode, &c.UserID, &c.CourseID, &c.LearnerName,
		&c.CourseTitle, &c.Issuer, &c.AveragePercent, &c.IssuedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Certificate{}, ErrNotFound
		}
		return Certificate{}, fmt.Errorf("scan certificate: %w", err)
	}
	return c, nil
}

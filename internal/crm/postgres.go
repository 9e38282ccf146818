package crm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq" // Postgres driver
)

// PoolOptions tunes the connection pool of a PostgresStore.
type PoolOptions struct {
	MaxOpenConns int
	MaxIdleConns int
	Timeout      time.Duration
}

// PostgresStore implements Store against the CRM schema
// (clients_contact, accounts_alignment, portfolio, fund_detail, meeting_data, email_data).
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
	psql    sq.StatementBuilderType
}

var _ Store = (*PostgresStore)(nil)

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string, opts PoolOptions) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewPostgresStore(db, opts.Timeout), nil
}

// NewPostgresStore wraps an existing connection. A zero timeout leaves queries bounded
// only by the caller's context.
func NewPostgresStore(db *sql.DB, timeout time.Duration) *PostgresStore {
	return &PostgresStore{
		db:      db,
		timeout: timeout,
		psql:    sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CompanyByEmail(ctx context.Context, email string) (string, error) {
	q := s.psql.Select("company").
		From("clients_contact").
		Where(sq.Eq{"email": email}).
		Limit(1)
	return s.queryString(ctx, "company by email", q)
}

func (s *PostgresStore) Industry(ctx context.Context, company string) (string, error) {
	q := s.psql.Select("industry").
		Distinct().
		From("accounts_alignment").
		Where(sq.Eq{"company": company}).
		Limit(1)
	return s.queryString(ctx, "industry", q)
}

func (s *PostgresStore) TopHoldings(ctx context.Context, company string, limit int) ([]string, error) {
	q := s.psql.Select("fd.position_name").
		From("portfolio po").
		Join("fund_detail fd ON po.symbol = fd.fund").
		Where(sq.Eq{"po.company": company}).
		Where(sq.Eq{"po.fund_type": "Equity Fund"}).
		OrderBy("(po.fund_balance * fd.weight) DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return s.queryStrings(ctx, "top holdings", q)
}

func (s *PostgresStore) ContactEmails(ctx context.Context, company string) ([]string, error) {
	q := s.psql.Select("email").
		From("clients_contact").
		Where(sq.Eq{"company": company}).
		OrderBy("email")
	return s.queryStrings(ctx, "contact emails", q)
}

func (s *PostgresStore) LastMeeting(ctx context.Context, emails []string, before time.Time) (*time.Time, error) {
	pattern := addressPattern(emails)
	if pattern == "" {
		return nil, nil
	}
	query, args, err := s.psql.Select("meeting_timestamp").
		From("meeting_data").
		Where(sq.Expr("invitee_emails ~* ?", pattern)).
		Where(sq.Lt{"meeting_timestamp": before}).
		OrderBy("meeting_timestamp DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build last meeting query: %w", err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var ts time.Time
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last meeting: %w", err)
	}
	return &ts, nil
}

func (s *PostgresStore) Correspondence(ctx context.Context, emails []string, limit int) ([]string, error) {
	pattern := addressPattern(emails)
	if pattern == "" {
		return nil, nil
	}
	q := s.psql.Select("email_body").
		From("email_data").
		Where(sq.Or{
			sq.Expr("to_emails ~* ?", pattern),
			sq.Expr("from_email ~* ?", pattern),
		}).
		OrderBy("email_timestamp DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return s.queryStrings(ctx, "correspondence", q)
}

func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *PostgresStore) queryString(ctx context.Context, op string, q sq.SelectBuilder) (string, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return "", fmt.Errorf("build %s query: %w", op, err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var value string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("query %s: %w", op, err)
	}
	return value, nil
}

func (s *PostgresStore) queryStrings(ctx context.Context, op string, q sq.SelectBuilder) ([]string, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", op, err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", op, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", op, err)
		}
		if v.Valid {
			values = append(values, v.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration %s: %w", op, err)
	}
	return values, nil
}

package pgstore

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"

	"github.com/pershin-daniil/icscal/pkg/metrics"
	"github.com/pershin-daniil/icscal/pkg/models"
)

//go:embed migrations
var migrations embed.FS

const retries = 3

type Store struct {
	log *logrus.Entry
	db  *sqlx.DB
}

var ErrTokenNotFound = fmt.Errorf("token not found")

func New(ctx context.Context, log *logrus.Logger, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &Store{
		log: log.WithField("component", "pgstore"),
		db:  db,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Migrate(direction migrate.MigrationDirection) error {
	asset := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrations,
		Root:       "migrations",
	}
	n, err := migrate.Exec(s.db.DB, "postgres", asset, direction)
	if err != nil {
		return fmt.Errorf("err applying migrations: %w", err)
	}
	s.log.Infof("applied %d migrations", n)
	return nil
}

func observe(method string, started time.Time, err error) {
	metrics.PgDuration.WithLabelValues(method).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.PgErrCount.WithLabelValues(method).Inc()
	}
}

func (s *Store) CreateToken(ctx context.Context, userID, fingerprint string) (token models.Token, err error) {
	defer func(started time.Time) { observe("CreateToken", started, err) }(time.Now())
	query := `
INSERT INTO icstokens (user_id, token)
VALUES ($1, $2)
RETURNING *;`
	for i := 0; i < retries; i++ {
		if err = s.db.GetContext(ctx, &token, query, userID, fingerprint); err != nil {
			continue
		}
		return token, nil
	}
	return models.Token{}, fmt.Errorf("err creating token: %w", err)
}

func (s *Store) ListTokens(ctx context.Context, userID string) (tokens []models.Token, err error) {
	defer func(started time.Time) { observe("ListTokens", started, err) }(time.Now())
	query := `
SELECT * FROM icstokens
WHERE user_id = $1
ORDER BY id;`
	for i := 0; i < retries; i++ {
		tokens = nil
		if err = s.db.SelectContext(ctx, &tokens, query, userID); err != nil {
			continue
		}
		return tokens, nil
	}
	return nil, fmt.Errorf("err listing tokens: %w", err)
}

// DeleteToken only removes tokens owned by userID.
func (s *Store) DeleteToken(ctx context.Context, userID string, id int64) (err error) {
	defer func(started time.Time) { observe("DeleteToken", started, err) }(time.Now())
	query := `
DELETE FROM icstokens
WHERE user_id = $1 AND id = $2;`
	for i := 0; i < retries; i++ {
		res, execErr := s.db.ExecContext(ctx, query, userID, id)
		if execErr != nil {
			err = execErr
			continue
		}
		n, rowsErr := res.RowsAffected()
		if rowsErr != nil {
			return fmt.Errorf("err deleting token %d: %w", id, rowsErr)
		}
		if n == 0 {
			return ErrTokenNotFound
		}
		return nil
	}
	return fmt.Errorf("err deleting token %d: %w", id, err)
}

// TouchToken records a feed download for every token with this fingerprint.
func (s *Store) TouchToken(ctx context.Context, fingerprint string, at time.Time) (err error) {
	defer func(started time.Time) { observe("TouchToken", started, err) }(time.Now())
	query := `
UPDATE icstokens
SET last_used_at = $2
WHERE token = $1;`
	for i := 0; i < retries; i++ {
		if _, err = s.db.ExecContext(ctx, query, fingerprint, at); err != nil {
			continue
		}
		return nil
	}
	return fmt.Errorf("err touching token: %w", err)
}

// DeleteIdleTokens removes tokens not downloaded (or, if never used, not
// created) since before.
func (s *Store) DeleteIdleTokens(ctx context.Context, before time.Time) (n int64, err error) {
	defer func(started time.Time) { observe("DeleteIdleTokens", started, err) }(time.Now())
	query := `
DELETE FROM icstokens
WHERE COALESCE(last_used_at, created_at) < $1;`
	for i := 0; i < retries; i++ {
		res, execErr := s.db.ExecContext(ctx, query, before)
		if execErr != nil {
			err = execErr
			continue
		}
		return res.RowsAffected()
	}
	return 0, fmt.Errorf("err deleting idle tokens: %w", err)
}

func (s *Store) ResetTables(ctx context.Context, tables []string) error {
	_, err := s.db.ExecContext(ctx, `TRUNCATE TABLE `+strings.Join(tables, `, `))
	if err != nil {
		return err
	}
	for _, table := range tables {
		_, err = s.db.ExecContext(ctx, fmt.Sprintf(`ALTER SEQUENCE %s_id_seq RESTART`, table))
		if err != nil {
			return err
		}
	}
	return nil
}

package journal

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/fieldservice-dashboard/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// historyLimit ограничивает число записей, отдаваемых по одному заказу.
const historyLimit = 200

// PostgresJournal хранит журнал в PostgreSQL.
type PostgresJournal struct {
	pool   *pgxpool.Pool
	delays []time.Duration
}

// NewPostgresJournal подключается к БД и применяет миграции схемы журнала.
func NewPostgresJournal(dsn string) (*PostgresJournal, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	j := &PostgresJournal{
		pool:   pool,
		delays: []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, time.Second},
	}

	if err := j.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return j, nil
}

func (j *PostgresJournal) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(j.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет операцию при временных ошибках БД.
func (j *PostgresJournal) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for i := 0; i <= len(j.delays); i++ {
		err = fn()
		if err == nil || i == len(j.delays) || !isRetryable(err) {
			return err
		}

		timer := time.NewTimer(j.delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure ||
			pgErr.Code == pgerrcode.DeadlockDetected ||
			pgerrcode.IsConnectionException(pgErr.Code)
	}

	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Record сохраняет запись журнала.
func (j *PostgresJournal) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	err := j.withRetry(ctx, func() error {
		_, err := j.pool.Exec(ctx,
			`INSERT INTO transition_journal (order_id, actor_id, from_status, to_status, outcome, message, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			e.OrderID, e.ActorID, string(e.From), string(e.To), string(e.Outcome), e.Message, e.CreatedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("record transition: %w", err)
	}
	return nil
}

// History возвращает записи по заказу в хронологическом порядке.
func (j *PostgresJournal) History(ctx context.Context, orderID int64) ([]Entry, error) {
	var entries []Entry

	err := j.withRetry(ctx, func() error {
		entries = entries[:0]

		rows, err := j.pool.Query(ctx,
			`SELECT order_id, actor_id, from_status, to_status, outcome, message, created_at
			 FROM transition_journal
			 WHERE order_id = $1
			 ORDER BY created_at, id
			 LIMIT $2`,
			orderID, historyLimit,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				e                 Entry
				from, to, outcome string
			)
			if err := rows.Scan(&e.OrderID, &e.ActorID, &from, &to, &outcome, &e.Message, &e.CreatedAt); err != nil {
				return err
			}
			e.From = model.OrderStatus(from)
			e.To = model.OrderStatus(to)
			e.Outcome = Outcome(outcome)
			entries = append(entries, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return entries, nil
}

// Close закрывает пул соединений с БД.
func (j *PostgresJournal) Close() error {
	j.pool.Close()
	return nil
}

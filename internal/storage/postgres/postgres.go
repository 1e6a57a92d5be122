package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/EvgenyTerebenin/AI-challenge-4/internal/storage/interfaces"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStore реализация PreferenceStore поверх одной таблицы preferences.
// Уведомления об изменениях рассылаются процессно-локально: писатель
// в этом дизайне один (оркестратор), межпроцессный LISTEN/NOTIFY не нужен.
type PostgresStore struct {
	db       *sql.DB
	logger   *zap.Logger
	watchers map[string][]chan string
	closed   bool
	mu       sync.Mutex
}

func New(databaseURL string, logger *zap.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresStore{
		db:       db,
		logger:   logger.With(zap.String("component", "postgres_store")),
		watchers: make(map[string][]chan string),
	}, nil
}

// GetDB returns the underlying database connection (for migrations)
func (s *PostgresStore) GetDB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get preference: %w", err)
	}
	return value, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to set preference: %w", err)
	}

	s.mu.Lock()
	watchers := append([]chan string(nil), s.watchers[key]...)
	s.mu.Unlock()

	for _, ch := range watchers {
		select {
		case ch <- value:
		default:
		}
	}

	s.logger.Debug("Preference saved", zap.String("key", key), zap.Int("value_length", len(value)))
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM preferences WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete preference: %w", err)
	}
	return nil
}

func (s *PostgresStore) Watch(key string) <-chan string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan string, 16)
	if s.closed {
		close(ch)
		return ch
	}
	s.watchers[key] = append(s.watchers[key], ch)
	return ch
}

func (s *PostgresStore) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		for _, chans := range s.watchers {
			for _, ch := range chans {
				close(ch)
			}
		}
		s.watchers = make(map[string][]chan string)
	}
	s.mu.Unlock()

	return s.db.Close()
}

// Verify interface implementation
var _ interfaces.PreferenceStore = (*PostgresStore)(nil)

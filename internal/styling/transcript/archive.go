package transcript

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"styling-assistant/internal/common/logger"
)

// Archive persists turns for audit. Archived turns are never read back into a
// live conversation.
type Archive interface {
	Save(ctx context.Context, sessionID string, turn Turn) error
}

// PostgresArchive stores turns in styling_transcript_turn.
type PostgresArchive struct {
	db *sql.DB
}

func NewPostgresArchive(db *sql.DB) *PostgresArchive {
	return &PostgresArchive{db: db}
}

func (a *PostgresArchive) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS styling_transcript_turn (
			id         BIGINT PRIMARY KEY,
			session_id TEXT   NOT NULL,
			role       TEXT   NOT NULL,
			kind       TEXT   NOT NULL,
			content    TEXT   NOT NULL,
			created_ts BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_styling_transcript_turn_session ON styling_transcript_turn(session_id, id)`,
	}
	for _, s := range stmts {
		if _, err := a.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (a *PostgresArchive) Save(ctx context.Context, sessionID string, turn Turn) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO styling_transcript_turn (id, session_id, role, kind, content, created_ts)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		turn.ID, sessionID, string(turn.Role), string(turn.Kind), turn.Content, turn.Timestamp.UnixMilli(),
	)
	return err
}

// List returns a session's archived turns in append order.
func (a *PostgresArchive) List(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, role, kind, content, created_ts
		 FROM styling_transcript_turn WHERE session_id = $1 ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Turn
	for rows.Next() {
		var (
			turn       Turn
			role, kind string
			createdTs  int64
		)
		if err := rows.Scan(&turn.ID, &role, &kind, &turn.Content, &createdTs); err != nil {
			return nil, err
		}
		turn.Role, turn.Kind = Role(role), Kind(kind)
		turn.Timestamp = time.UnixMilli(createdTs).UTC()
		list = append(list, turn)
	}
	return list, rows.Err()
}

type record struct {
	sessionID string
	turn      Turn
}

// Sink forwards turns to an Archive from a single background goroutine so
// that dialogue processing never waits on the database. When the buffer is
// full new turns are dropped and logged.
type Sink struct {
	archive Archive
	logger  logger.Logger
	timeout time.Duration
	queue   chan record
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewSink(archive Archive, log logger.Logger, buffer int) *Sink {
	if buffer <= 0 {
		buffer = 256
	}
	s := &Sink{
		archive: archive,
		logger:  log,
		timeout: 5 * time.Second,
		queue:   make(chan record, buffer),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *Sink) run() {
	defer s.wg.Done()
	for r := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		if err := s.archive.Save(ctx, r.sessionID, r.turn); err != nil {
			s.logger.Warn("failed to archive turn", map[string]interface{}{
				"sessionId": r.sessionID,
				"turnId":    r.turn.ID,
				"error":     err,
			})
		}
		cancel()
	}
}

// Record enqueues a turn. Safe to call after Close (the turn is dropped).
func (s *Sink) Record(sessionID string, turn Turn) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- record{sessionID: sessionID, turn: turn}:
	default:
		s.logger.Warn("transcript archive queue full, dropping turn", map[string]interface{}{
			"sessionId": sessionID,
			"turnId":    turn.ID,
		})
	}
}

// Close flushes queued turns and stops the worker.
func (s *Sink) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

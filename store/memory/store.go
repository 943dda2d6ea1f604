// Package memory persists conversation turns so the assistant can recall
// recent context across messages. Unlike the catalog store it is ready as
// soon as New returns; there is no separate connect step.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	contractx "github.com/trungdn/milk-sell-agent/agent/contract"
	logx "github.com/trungdn/milk-sell-agent/pkg/logger"
)

// defaultRecall bounds how many turns come back when the caller does not
// ask for a specific number.
const defaultRecall = 5

type Config struct {
	Path string `envconfig:"PATH" default:"data/sql/conversation_memory.db"`
}

// Turn is one question/answer exchange.
type Turn struct {
	bun.BaseModel `bun:"table:conversations,alias:t"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID    string    `bun:"user_id,notnull" json:"user_id"`
	SessionID string    `bun:"session_id,notnull" json:"session_id"`
	Question  string    `bun:"question,notnull" json:"question"`
	Answer    string    `bun:"answer,notnull" json:"answer"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// Store keeps conversation history in its own SQLite file, separate from
// the product catalog.
type Store struct {
	db  *bun.DB
	log zerolog.Logger

	// mu serializes writes; the single SQLite connection does not tolerate
	// concurrent writers.
	mu sync.Mutex
}

// New opens the database, creating the file and its schema when missing.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("memory store: empty database path")
	}
	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create memory database directory: %w", err)
		}
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+cfg.Path+"?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open memory database: %w", err)
	}
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping memory database: %w", err)
	}

	if _, err := db.NewCreateTable().Model((*Turn)(nil)).IfNotExists().Exec(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create conversations table: %w", err)
	}
	if _, err := db.NewCreateIndex().
		Model((*Turn)(nil)).
		Index("idx_user_session").
		ColumnExpr("user_id, session_id, created_at DESC").
		IfNotExists().
		Exec(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create conversations index: %w", err)
	}

	s := &Store{db: db, log: logx.Component("memory")}
	s.log.Info().Str("path", cfg.Path).Msg("memory store ready")
	return s, nil
}

// MustNew panics when the store cannot be opened.
func MustNew(ctx context.Context, cfg Config) *Store {
	s, err := New(ctx, cfg)
	if err != nil {
		panic(fmt.Errorf("memory store: %w", err))
	}
	return s
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveTurn appends one exchange and returns its id. The timestamp is taken
// from the clock here rather than the column default so that ordering stays
// stable below one-second granularity.
func (s *Store) SaveTurn(ctx context.Context, userID, sessionID, question, answer string) (int64, error) {
	turn := &Turn{
		UserID:    userID,
		SessionID: sessionID,
		Question:  question,
		Answer:    answer,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.NewInsert().Model(turn).Exec(ctx); err != nil {
		return 0, fmt.Errorf("save turn: %w", err)
	}
	s.log.Debug().
		Str("user_id", userID).
		Str("session_id", sessionID).
		Int64("turn_id", turn.ID).
		Msg("saved conversation turn")
	return turn.ID, nil
}

// RecentTurns returns the newest turns of one user/session partition in
// chronological order, oldest first. The inner select picks the newest
// rows, the outer flip restores reading order. Ids break created_at ties.
func (s *Store) RecentTurns(ctx context.Context, userID, sessionID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = defaultRecall
	}

	newest := s.db.NewSelect().
		Model((*Turn)(nil)).
		Where("t.user_id = ?", userID).
		Where("t.session_id = ?", sessionID).
		OrderExpr("t.created_at DESC, t.id DESC").
		Limit(limit)

	turns := make([]Turn, 0, limit)
	err := s.db.NewSelect().
		TableExpr("(?) AS recent", newest).
		ColumnExpr("recent.*").
		OrderExpr("recent.created_at ASC, recent.id ASC").
		Scan(ctx, &turns)
	if err != nil {
		return nil, fmt.Errorf("load recent turns: %w", err)
	}
	return turns, nil
}

// RecentExchange expands the recent turns into user/assistant message pairs
// ready to prepend to a model conversation.
func (s *Store) RecentExchange(ctx context.Context, userID, sessionID string, limit int) ([]contractx.Message, error) {
	turns, err := s.RecentTurns(ctx, userID, sessionID, limit)
	if err != nil {
		return nil, err
	}

	messages := make([]contractx.Message, 0, len(turns)*2)
	for _, turn := range turns {
		messages = append(messages,
			contractx.Message{Role: contractx.RoleUser, Content: turn.Question},
			contractx.Message{Role: contractx.RoleAssistant, Content: turn.Answer},
		)
	}
	return messages, nil
}

// Package chat runs one user turn end to end: recall history, ask the
// orchestrator, persist the exchange. Every front end goes through it.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	contractx "github.com/trungdn/milk-sell-agent/agent/contract"
	logx "github.com/trungdn/milk-sell-agent/pkg/logger"
)

const defaultHistoryTurns = 6

type Config struct {
	HistoryTurns int `envconfig:"HISTORY_TURNS" split_words:"true" default:"6"`
}

type Service struct {
	orchestrator contractx.Orchestrator
	history      contractx.HistoryStore
	historyTurns int
	log          zerolog.Logger
}

func NewService(orchestrator contractx.Orchestrator, history contractx.HistoryStore, cfg Config) (*Service, error) {
	if orchestrator == nil {
		return nil, errors.New("orchestrator is required")
	}
	if history == nil {
		return nil, errors.New("history store is required")
	}
	turns := cfg.HistoryTurns
	if turns <= 0 {
		turns = defaultHistoryTurns
	}
	return &Service{
		orchestrator: orchestrator,
		history:      history,
		historyTurns: turns,
		log:          logx.Component("chat"),
	}, nil
}

// HandleTurn answers question within the session and saves the completed
// exchange. The turn is only recorded once an answer exists, so a failed
// model call leaves history untouched.
func (s *Service) HandleTurn(ctx context.Context, userID, sessionID, question string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("%w: user id is required", contractx.ErrValidation)
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", fmt.Errorf("%w: session id is required", contractx.ErrValidation)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: question is required", contractx.ErrValidation)
	}

	started := time.Now()

	history, err := s.history.RecentExchange(ctx, userID, sessionID, s.historyTurns)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}

	answer, err := s.orchestrator.Answer(ctx, history, question)
	if err != nil {
		return "", err
	}

	if _, err := s.history.SaveTurn(ctx, userID, sessionID, question, answer); err != nil {
		return "", fmt.Errorf("save turn: %w", err)
	}

	s.log.Info().
		Str("user_id", userID).
		Str("session_id", sessionID).
		Dur("took", time.Since(started)).
		Msg("turn completed")

	return answer, nil
}

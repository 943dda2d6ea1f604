package contract

import "context"

// Orchestrator produces the assistant reply for one user turn given the
// recalled conversation history.
type Orchestrator interface {
	Answer(ctx context.Context, history []Message, query string) (string, error)
}

// Mailer delivers one message to one recipient. Implementations must honor
// the context deadline so a slow upstream cannot stall a turn.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string, html bool) error
}

// HistoryStore is the slice of the memory store the turn loop depends on.
type HistoryStore interface {
	RecentExchange(ctx context.Context, userID, sessionID string, limit int) ([]Message, error)
	SaveTurn(ctx context.Context, userID, sessionID, question, answer string) (int64, error)
}

package chat_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/trungdn/milk-sell-agent/agent/contract"
	chatx "github.com/trungdn/milk-sell-agent/chat"
)

type fakeOrchestrator struct {
	answer      string
	err         error
	gotHistory  []contractx.Message
	gotQuestion string
	calls       int
}

func (f *fakeOrchestrator) Answer(ctx context.Context, history []contractx.Message, query string) (string, error) {
	f.calls++
	f.gotHistory = history
	f.gotQuestion = query
	return f.answer, f.err
}

type savedTurn struct {
	userID, sessionID, question, answer string
}

type fakeHistory struct {
	recall      []contractx.Message
	recallLimit int
	recallErr   error
	saved       []savedTurn
	saveErr     error
}

func (f *fakeHistory) RecentExchange(ctx context.Context, userID, sessionID string, limit int) ([]contractx.Message, error) {
	f.recallLimit = limit
	if f.recallErr != nil {
		return nil, f.recallErr
	}
	return f.recall, nil
}

func (f *fakeHistory) SaveTurn(ctx context.Context, userID, sessionID, question, answer string) (int64, error) {
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	f.saved = append(f.saved, savedTurn{userID, sessionID, question, answer})
	return int64(len(f.saved)), nil
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	t.Parallel()

	if _, err := chatx.NewService(nil, &fakeHistory{}, chatx.Config{}); err == nil {
		t.Error("NewService(nil orchestrator) error = nil, want error")
	}
	if _, err := chatx.NewService(&fakeOrchestrator{}, nil, chatx.Config{}); err == nil {
		t.Error("NewService(nil history) error = nil, want error")
	}
}

func TestHandleTurnRecallsAnswersAndSaves(t *testing.T) {
	t.Parallel()

	recalled := []contractx.Message{
		{Role: contractx.RoleUser, Content: "có sữa cho bé 6 tháng không?"},
		{Role: contractx.RoleAssistant, Content: "Shop có Milk A ạ."},
	}
	orch := &fakeOrchestrator{answer: "Milk A giá 150,000 VND."}
	history := &fakeHistory{recall: recalled}

	svc, err := chatx.NewService(orch, history, chatx.Config{})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	answer, err := svc.HandleTurn(context.Background(), "u1", "cli-1", " giá bao nhiêu? ")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if answer != "Milk A giá 150,000 VND." {
		t.Errorf("HandleTurn() = %q", answer)
	}
	if history.recallLimit != 6 {
		t.Errorf("recall limit = %d, want default 6", history.recallLimit)
	}
	if len(orch.gotHistory) != 2 || orch.gotHistory[1].Content != "Shop có Milk A ạ." {
		t.Errorf("orchestrator history = %+v", orch.gotHistory)
	}
	if orch.gotQuestion != "giá bao nhiêu?" {
		t.Errorf("orchestrator question = %q, want trimmed input", orch.gotQuestion)
	}
	if len(history.saved) != 1 {
		t.Fatalf("saved turns = %d, want 1", len(history.saved))
	}
	got := history.saved[0]
	want := savedTurn{"u1", "cli-1", "giá bao nhiêu?", "Milk A giá 150,000 VND."}
	if got != want {
		t.Errorf("saved turn = %+v, want %+v", got, want)
	}
}

func TestHandleTurnHonorsConfiguredHistoryTurns(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{}
	svc, err := chatx.NewService(&fakeOrchestrator{answer: "ok"}, history, chatx.Config{HistoryTurns: 3})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	if _, err := svc.HandleTurn(context.Background(), "u1", "s1", "q"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if history.recallLimit != 3 {
		t.Errorf("recall limit = %d, want 3", history.recallLimit)
	}
}

func TestHandleTurnValidatesInput(t *testing.T) {
	t.Parallel()

	orch := &fakeOrchestrator{answer: "ok"}
	svc, err := chatx.NewService(orch, &fakeHistory{}, chatx.Config{})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	cases := []struct {
		name                        string
		userID, sessionID, question string
	}{
		{"empty user", "", "s1", "q"},
		{"blank session", "u1", "  ", "q"},
		{"empty question", "u1", "s1", "   "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.HandleTurn(context.Background(), tc.userID, tc.sessionID, tc.question); !errors.Is(err, contractx.ErrValidation) {
				t.Errorf("HandleTurn() error = %v, want ErrValidation", err)
			}
		})
	}
	if orch.calls != 0 {
		t.Errorf("orchestrator called %d times on invalid input", orch.calls)
	}
}

func TestHandleTurnModelFailureLeavesHistoryUntouched(t *testing.T) {
	t.Parallel()

	modelErr := errors.New("model invoke failed")
	history := &fakeHistory{}
	svc, err := chatx.NewService(&fakeOrchestrator{err: modelErr}, history, chatx.Config{})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	if _, err := svc.HandleTurn(context.Background(), "u1", "s1", "q"); !errors.Is(err, modelErr) {
		t.Errorf("HandleTurn() error = %v, want %v", err, modelErr)
	}
	if len(history.saved) != 0 {
		t.Errorf("saved turns = %d, want 0 after model failure", len(history.saved))
	}
}

func TestHandleTurnRecallFailure(t *testing.T) {
	t.Parallel()

	recallErr := errors.New("database is locked")
	orch := &fakeOrchestrator{answer: "ok"}
	svc, err := chatx.NewService(orch, &fakeHistory{recallErr: recallErr}, chatx.Config{})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	_, err = svc.HandleTurn(context.Background(), "u1", "s1", "q")
	if !errors.Is(err, recallErr) {
		t.Fatalf("HandleTurn() error = %v, want %v", err, recallErr)
	}
	if !strings.Contains(err.Error(), "load history") {
		t.Errorf("HandleTurn() error = %v, want load history wrap", err)
	}
	if orch.calls != 0 {
		t.Errorf("orchestrator called %d times after recall failure", orch.calls)
	}
}

func TestHandleTurnSaveFailure(t *testing.T) {
	t.Parallel()

	saveErr := errors.New("disk full")
	svc, err := chatx.NewService(&fakeOrchestrator{answer: "ok"}, &fakeHistory{saveErr: saveErr}, chatx.Config{})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	_, err = svc.HandleTurn(context.Background(), "u1", "s1", "q")
	if !errors.Is(err, saveErr) {
		t.Fatalf("HandleTurn() error = %v, want %v", err, saveErr)
	}
	if !strings.Contains(err.Error(), "save turn") {
		t.Errorf("HandleTurn() error = %v, want save turn wrap", err)
	}
}

package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ecomconsole/backend/internal/audit/domain"
)

type memRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
	failing bool
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*domain.AuditLog, error) {
	return nil, nil
}

func (r *memRepo) ListByUser(ctx context.Context, userID int64, limit, offset int32) ([]*domain.AuditLog, error) {
	return nil, nil
}

func (r *memRepo) Create(ctx context.Context, a *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return errors.New("db down")
	}
	r.entries = append(r.entries, a)
	return nil
}

func TestLogEventPersistsEntry(t *testing.T) {
	repo := &memRepo{}
	l := NewLogger(repo)

	ctx := ContextWithClientIP(context.Background(), "10.1.2.3")
	l.LogEvent(ctx, 7, ActionLogin, "session", `{"deviceId":"d-1"}`)

	if len(repo.entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(repo.entries))
	}
	e := repo.entries[0]
	if e.ID == "" {
		t.Error("entry must get an ID")
	}
	if e.UserID != 7 || e.Action != ActionLogin || e.Resource != "session" {
		t.Errorf("entry = %+v", e)
	}
	if e.IP != "10.1.2.3" {
		t.Errorf("IP = %q", e.IP)
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt must be set")
	}
}

func TestLogEventDefaultsIPToUnknown(t *testing.T) {
	repo := &memRepo{}
	NewLogger(repo).LogEvent(context.Background(), 7, ActionLogout, "session", "")
	if repo.entries[0].IP != "unknown" {
		t.Errorf("IP = %q", repo.entries[0].IP)
	}
}

func TestLogEventSwallowsRepositoryErrors(t *testing.T) {
	NewLogger(&memRepo{failing: true}).LogEvent(context.Background(), 7, ActionLogin, "session", "")
}

func TestLogEventNilReceiverAndRepo(t *testing.T) {
	var l *Logger
	l.LogEvent(context.Background(), 1, ActionLogin, "session", "")
	NewLogger(nil).LogEvent(context.Background(), 1, ActionLogin, "session", "")
}

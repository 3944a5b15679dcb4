package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-cartoon-bot/internal/domain"
)

func TestGetProcessedEvent_BlankKey_ReturnsNotFound(t *testing.T) {
	db := newProfileDB(t)
	rec, err := GetProcessedEvent(context.Background(), db, "u1", "   ", time.Now())
	if rec != nil || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected (nil, ErrNotFound) for blank key, got (%v, %v)", rec, err)
	}
}

func TestGetProcessedEvent_ExpiredOrMissing_ReturnsNotFound(t *testing.T) {
	db := newProfileDB(t)
	now := time.Now().UTC()

	exp := &domain.ProcessedEvent{
		ID:        "expired",
		UserID:    "u1",
		Key:       "k1",
		Status:    200,
		Body:      []byte(`{"text":"old"}`),
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}
	if err := db.Create(exp).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := GetProcessedEvent(context.Background(), db, "u1", "k1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired record, got %v", err)
	}
	if _, err := GetProcessedEvent(context.Background(), db, "u1", "missing", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing record, got %v", err)
	}
}

func TestCreateProcessedEvent_RoundTripAndDuplicate(t *testing.T) {
	db := newProfileDB(t)
	ctx := context.Background()

	rec, err := CreateProcessedEvent(ctx, db, "u1", "upd-1", 200, []byte(`{"text":"hi"}`), time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID == "" || !rec.ExpiresAt.After(rec.CreatedAt) {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := GetProcessedEvent(ctx, db, "u1", "upd-1", time.Now())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != 200 || string(got.Body) != `{"text":"hi"}` {
		t.Fatalf("unexpected stored event: %+v", got)
	}

	if _, err := CreateProcessedEvent(ctx, db, "u1", "upd-1", 200, []byte(`{}`), time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	// same key for another user is a different event
	if _, err := CreateProcessedEvent(ctx, db, "u2", "upd-1", 200, []byte(`{}`), time.Hour); err != nil {
		t.Fatalf("other user: %v", err)
	}
}

func TestCreateProcessedEvent_NoTable(t *testing.T) {
	db := newTestDB(t)
	_, err := CreateProcessedEvent(context.Background(), db, "u1", "k", 200, []byte(`{}`), time.Hour)
	if err == nil || errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected raw db error, got %v", err)
	}
}

func TestPurgeExpiredEvents(t *testing.T) {
	db := newProfileDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = db.Create(&domain.ProcessedEvent{ID: "a", UserID: "u", Key: "old", Body: []byte(`{}`), CreatedAt: now, ExpiresAt: now.Add(-time.Minute)}).Error
	_ = db.Create(&domain.ProcessedEvent{ID: "b", UserID: "u", Key: "new", Body: []byte(`{}`), CreatedAt: now, ExpiresAt: now.Add(time.Hour)}).Error

	n, err := PurgeExpiredEvents(ctx, db, now)
	if err != nil || n != 1 {
		t.Fatalf("purge = %d, %v", n, err)
	}
	if _, err := GetProcessedEvent(ctx, db, "u", "new", now); err != nil {
		t.Fatalf("live record must survive purge: %v", err)
	}
}

// Package repo implements the data persistence layer for user profiles,
// backed by GORM. This file provides helpers for ProcessedEvent, the record
// that lets a redelivered bot event be answered without re-running it.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-cartoon-bot/internal/domain"
)

// ErrDuplicate indicates that a processed-event record already exists for the
// given (user_id, key) pair.
var ErrDuplicate = errors.New("duplicate")

// GetProcessedEvent returns a non-expired record or ErrNotFound.
func GetProcessedEvent(ctx context.Context, db *gorm.DB, userID, key string, now time.Time) (*domain.ProcessedEvent, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.ProcessedEvent
	err := db.WithContext(ctx).
		Where("user_id = ? AND key = ? AND expires_at > ?", userID, key, now.UTC()).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateProcessedEvent stores the response body for (userID, key) and returns
// ErrDuplicate when another delivery already stored one.
func CreateProcessedEvent(ctx context.Context, db *gorm.DB, userID, key string, status int, body []byte, ttl time.Duration) (*domain.ProcessedEvent, error) {
	now := time.Now().UTC()
	rec := &domain.ProcessedEvent{
		ID:        uuid.NewString(),
		UserID:    userID,
		Key:       key,
		Status:    status,
		Body:      datatypes.JSON(body),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// PurgeExpiredEvents deletes records whose window closed before now and
// returns how many were removed.
func PurgeExpiredEvents(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&domain.ProcessedEvent{})
	return res.RowsAffected, res.Error
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// glebarez/sqlite and pgx both surface plain-text errors unless
	// TranslateError is enabled.
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key value violates unique constraint")
}

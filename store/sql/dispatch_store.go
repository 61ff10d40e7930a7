package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-forms/core"
)

const (
	DispatchStatusPending = "pending"
	DispatchStatusSent    = "sent"
	DispatchStatusFailed  = "failed"
)

// NotificationDispatchStore is an at-most-once delivery ledger. Each
// scheduled notification gets one row; status ends as sent or failed, and a
// failed row flips to sent when the redelivery queue replays it.
type NotificationDispatchStore struct {
	db   *bun.DB
	repo repository.Repository[*notificationDispatchRecord]
}

func NewNotificationDispatchStore(db *bun.DB) (*NotificationDispatchStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*notificationDispatchRecord](db, notificationDispatchHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid notification dispatch repository wiring: %w", err)
		}
	}
	return &NotificationDispatchStore{db: db, repo: repo}, nil
}

// Record creates a pending ledger entry and returns its id.
func (s *NotificationDispatchStore) Record(
	ctx context.Context,
	kind core.NotificationKind,
	formID string,
	responseID string,
) (string, error) {
	if s == nil || s.repo == nil {
		return "", fmt.Errorf("sqlstore: notification dispatch store is not configured")
	}
	if strings.TrimSpace(formID) == "" {
		return "", fmt.Errorf("sqlstore: form id is required")
	}
	if strings.TrimSpace(responseID) == "" {
		return "", fmt.Errorf("sqlstore: response id is required")
	}
	if strings.TrimSpace(string(kind)) == "" {
		return "", fmt.Errorf("sqlstore: notification kind is required")
	}

	now := time.Now().UTC()
	record := &notificationDispatchRecord{
		ID:         uuid.NewString(),
		FormID:     strings.TrimSpace(formID),
		ResponseID: strings.TrimSpace(responseID),
		Kind:       strings.TrimSpace(string(kind)),
		Status:     DispatchStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.repo.Create(ctx, record); err != nil {
		return "", err
	}
	return record.ID, nil
}

func (s *NotificationDispatchStore) MarkSent(ctx context.Context, id string) error {
	return s.markStatus(ctx, id, DispatchStatusSent, "")
}

func (s *NotificationDispatchStore) MarkFailed(ctx context.Context, id string, deliveryErr string) error {
	return s.markStatus(ctx, id, DispatchStatusFailed, deliveryErr)
}

func (s *NotificationDispatchStore) markStatus(ctx context.Context, id string, status string, deliveryErr string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: notification dispatch store is not configured")
	}
	dispatchID := strings.TrimSpace(id)
	if dispatchID == "" {
		return fmt.Errorf("sqlstore: dispatch id is required")
	}

	result, err := s.db.NewUpdate().
		Model((*notificationDispatchRecord)(nil)).
		Set("status = ?", status).
		Set("error = ?", strings.TrimSpace(deliveryErr)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", dispatchID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("sqlstore: dispatch %s not found", dispatchID)
	}
	return nil
}

// ListByResponse returns the ledger entries for one response, oldest first.
func (s *NotificationDispatchStore) ListByResponse(ctx context.Context, responseID string) ([]core.NotificationDispatch, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: notification dispatch store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("response_id", "=", strings.TrimSpace(responseID)),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.NotificationDispatch, 0, len(records))
	for _, record := range records {
		out = append(out, core.NotificationDispatch{
			ID:         record.ID,
			FormID:     record.FormID,
			ResponseID: record.ResponseID,
			Kind:       core.NotificationKind(record.Kind),
			Status:     record.Status,
			Error:      record.Error,
			CreatedAt:  record.CreatedAt,
			UpdatedAt:  record.UpdatedAt,
		})
	}
	return out, nil
}

var _ core.NotificationDispatchLedger = (*NotificationDispatchStore)(nil)

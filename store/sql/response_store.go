package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-forms/core"
)

type ResponseStore struct {
	db   *bun.DB
	repo repository.Repository[*formResponseRecord]
}

func NewResponseStore(db *bun.DB) (*ResponseStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*formResponseRecord](db, responseHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid response repository wiring: %w", err)
		}
	}
	return &ResponseStore{db: db, repo: repo}, nil
}

func (s *ResponseStore) Insert(ctx context.Context, response core.FormResponse) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: response store is not configured")
	}
	if strings.TrimSpace(response.ID) == "" {
		return fmt.Errorf("sqlstore: response id is required")
	}
	if strings.TrimSpace(response.FormID) == "" {
		return fmt.Errorf("sqlstore: form id is required")
	}
	if response.Timestamp.IsZero() {
		return fmt.Errorf("sqlstore: response timestamp is required")
	}

	record := newResponseRecord(response, time.Now().UTC())
	_, err := s.repo.Create(ctx, record)
	return err
}

// GetByID loads a persisted response. Used by the dispatch ledger and tests.
func (s *ResponseStore) GetByID(ctx context.Context, id string) (core.FormResponse, error) {
	if s == nil || s.repo == nil {
		return core.FormResponse{}, fmt.Errorf("sqlstore: response store is not configured")
	}
	record, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return core.FormResponse{}, err
	}
	return record.toDomain(), nil
}

var _ core.ResponseStore = (*ResponseStore)(nil)

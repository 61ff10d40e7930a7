package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-forms/core"
)

type FormStore struct {
	db   *bun.DB
	repo repository.Repository[*formRecord]
}

func NewFormStore(db *bun.DB) (*FormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*formRecord](db, formHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid form repository wiring: %w", err)
		}
	}
	return &FormStore{db: db, repo: repo}, nil
}

// FindOpen resolves a form by id. A missing row and a form without the OPEN
// feature are indistinguishable to callers: both are core.ErrFormNotFound.
func (s *FormStore) FindOpen(ctx context.Context, id string) (core.Form, error) {
	if s == nil || s.db == nil {
		return core.Form{}, fmt.Errorf("sqlstore: form store is not configured")
	}
	formID := strings.TrimSpace(id)
	if formID == "" {
		return core.Form{}, core.ErrFormNotFound
	}

	record := &formRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", formID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Form{}, core.ErrFormNotFound
		}
		return core.Form{}, err
	}

	form := record.toDomain()
	if !form.Open() {
		return core.Form{}, core.ErrFormNotFound
	}
	return form, nil
}

// Upsert stores a form definition. Administrative surface; the submission
// pipeline only reads.
func (s *FormStore) Upsert(ctx context.Context, form core.Form) (core.Form, error) {
	if s == nil || s.repo == nil {
		return core.Form{}, fmt.Errorf("sqlstore: form store is not configured")
	}
	if strings.TrimSpace(form.ID) == "" {
		return core.Form{}, fmt.Errorf("sqlstore: form id is required")
	}
	if strings.TrimSpace(form.Name) == "" {
		return core.Form{}, fmt.Errorf("sqlstore: form name is required")
	}

	record := newFormRecord(form, time.Now().UTC())
	existing := &formRecord{}
	err := s.db.NewSelect().
		Model(existing).
		Where("?TableAlias.id = ?", record.ID).
		Limit(1).
		Scan(ctx)
	if err != nil && err != sql.ErrNoRows {
		return core.Form{}, err
	}

	var stored *formRecord
	if err == sql.ErrNoRows {
		stored, err = s.repo.Create(ctx, record)
	} else {
		record.CreatedAt = existing.CreatedAt
		stored, err = s.repo.Update(ctx, record)
	}
	if err != nil {
		return core.Form{}, err
	}
	return stored.toDomain(), nil
}

var _ core.FormStore = (*FormStore)(nil)

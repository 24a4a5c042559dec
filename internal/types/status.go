package types

import (
	ierr "github.com/numera/numera/internal/errors"
)

// Status is the archival status shared by all persisted rows.
type Status string

const (
	StatusPublished Status = "published"
	StatusDeleted   Status = "deleted"
	StatusArchived  Status = "archived"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) Validate() error {
	allowed := []Status{StatusPublished, StatusDeleted, StatusArchived}
	for _, status := range allowed {
		if s == status {
			return nil
		}
	}
	return ierr.NewError("invalid status").
		WithHint("invalid status").
		WithReportableDetails(map[string]any{"status": s, "allowed": allowed}).
		Mark(ierr.ErrValidation)
}

// DocumentStatus is the lifecycle state of a business document. Transitions
// are owned by document-specific business logic; the engine only guarantees
// that voiding never reclaims or reuses the allocated number.
type DocumentStatus string

const (
	DocumentStatusDraft  DocumentStatus = "draft"
	DocumentStatusActive DocumentStatus = "active"
	DocumentStatusVoided DocumentStatus = "voided"
)

func (s DocumentStatus) String() string {
	return string(s)
}

func (s DocumentStatus) Validate() error {
	allowed := []DocumentStatus{DocumentStatusDraft, DocumentStatusActive, DocumentStatusVoided}
	for _, status := range allowed {
		if s == status {
			return nil
		}
	}
	return ierr.NewError("invalid document status").
		WithHint("invalid document status").
		WithReportableDetails(map[string]any{"status": s, "allowed": allowed}).
		Mark(ierr.ErrValidation)
}

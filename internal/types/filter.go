package types

import (
	ierr "github.com/numera/numera/internal/errors"
)

const (
	FilterDefaultLimit = 50
	FilterMaxLimit     = 200
)

// DocumentFilter narrows document listings. Zero values mean "no filter".
type DocumentFilter struct {
	Scope     *ScopeKey      `json:"scope,omitempty"`
	DocStatus DocumentStatus `json:"doc_status,omitempty"`
	Limit     int            `json:"limit,omitempty"`
	Offset    int            `json:"offset,omitempty"`
}

func NewDocumentFilter() *DocumentFilter {
	return &DocumentFilter{Limit: FilterDefaultLimit}
}

func (f *DocumentFilter) Validate() error {
	if f.Limit < 0 || f.Limit > FilterMaxLimit {
		return ierr.NewError("limit out of range").
			WithHintf("limit must be between 0 and %d", FilterMaxLimit).
			WithReportableDetails(map[string]any{"limit": f.Limit}).
			Mark(ierr.ErrValidation)
	}
	if f.Offset < 0 {
		return ierr.NewError("offset must be non-negative").
			WithHint("offset must be non-negative").
			Mark(ierr.ErrValidation)
	}
	if f.Scope != nil {
		if err := f.Scope.Validate(); err != nil {
			return err
		}
	}
	if f.DocStatus != "" {
		if err := f.DocStatus.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (f *DocumentFilter) GetLimit() int {
	if f == nil || f.Limit == 0 {
		return FilterDefaultLimit
	}
	return f.Limit
}

func (f *DocumentFilter) GetOffset() int {
	if f == nil {
		return 0
	}
	return f.Offset
}

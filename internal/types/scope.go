package types

import (
	"fmt"
	"strings"
	"time"

	ierr "github.com/numera/numera/internal/errors"
)

// ScopeKey identifies one numbering stream: a (branch, document type,
// optional series code) triple. Immutable once documents exist against it.
type ScopeKey struct {
	BranchID     int          `json:"branch_id"`
	DocumentType DocumentType `json:"document_type"`
	SeriesCode   string       `json:"series_code,omitempty"`
}

func (s ScopeKey) Validate() error {
	if s.BranchID <= 0 {
		return ierr.NewError("branch_id must be positive").
			WithHint("branch_id must be positive").
			WithReportableDetails(map[string]any{"branch_id": s.BranchID}).
			Mark(ierr.ErrValidation)
	}
	if err := s.DocumentType.Validate(); err != nil {
		return err
	}
	if strings.ContainsRune(s.SeriesCode, ':') {
		return ierr.NewError("series_code must not contain ':'").
			WithHint("series_code must not contain ':'").
			WithReportableDetails(map[string]any{"series_code": s.SeriesCode}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Key returns the canonical storage key of the scope, used as the counters
// primary key and as part of the document header's unique index.
func (s ScopeKey) Key() string {
	if s.SeriesCode == "" {
		return fmt.Sprintf("%d:%s", s.BranchID, s.DocumentType)
	}
	return fmt.Sprintf("%d:%s:%s", s.BranchID, s.DocumentType, s.SeriesCode)
}

func (s ScopeKey) String() string {
	return s.Key()
}

// FormatNumber renders the allocated counter value per the scope's series
// conventions: an optional prefix (series code beats the type's default
// prefix), an optional YYMMDD component for dated series, and the
// zero-padded counter.
func (s ScopeKey) FormatNumber(number int64, issuedAt time.Time) string {
	spec := s.DocumentType.Spec()

	prefix := spec.Prefix
	if s.SeriesCode != "" {
		prefix = s.SeriesCode
	}

	parts := make([]string, 0, 3)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	if spec.Dated {
		parts = append(parts, issuedAt.Format("060102"))
	}
	parts = append(parts, fmt.Sprintf("%0*d", spec.PadWidth, number))

	return strings.Join(parts, "-")
}

package types

import (
	ierr "github.com/numera/numera/internal/errors"
)

// LineSide flags a document line as the debit or credit leg of a ledger
// entry. Non-ledger documents leave it empty.
type LineSide string

const (
	LineSideNone   LineSide = ""
	LineSideDebit  LineSide = "debit"
	LineSideCredit LineSide = "credit"
)

func (s LineSide) String() string {
	return string(s)
}

func (s LineSide) Validate() error {
	switch s {
	case LineSideNone, LineSideDebit, LineSideCredit:
		return nil
	}
	return ierr.NewError("invalid line side").
		WithHint("line side must be debit or credit").
		WithReportableDetails(map[string]any{"side": s}).
		Mark(ierr.ErrValidation)
}

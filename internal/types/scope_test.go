package types

import (
	"testing"
	"time"
)

func TestScopeKey_Key(t *testing.T) {
	tests := []struct {
		name  string
		scope ScopeKey
		want  string
	}{
		{
			name:  "without series code",
			scope: ScopeKey{BranchID: 1, DocumentType: DocumentTypeReceipt},
			want:  "1:RECEIPT",
		},
		{
			name:  "with series code",
			scope: ScopeKey{BranchID: 3, DocumentType: DocumentTypeReceipt, SeriesCode: "F001"},
			want:  "3:RECEIPT:F001",
		},
		{
			name:  "ledger scope",
			scope: ScopeKey{BranchID: 2, DocumentType: DocumentTypeLedger},
			want:  "2:LEDGER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.scope.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScopeKey_Validate(t *testing.T) {
	tests := []struct {
		name    string
		scope   ScopeKey
		wantErr bool
	}{
		{
			name:  "valid scope",
			scope: ScopeKey{BranchID: 1, DocumentType: DocumentTypeQuote},
		},
		{
			name:    "zero branch",
			scope:   ScopeKey{BranchID: 0, DocumentType: DocumentTypeQuote},
			wantErr: true,
		},
		{
			name:    "negative branch",
			scope:   ScopeKey{BranchID: -1, DocumentType: DocumentTypeQuote},
			wantErr: true,
		},
		{
			name:    "unknown document type",
			scope:   ScopeKey{BranchID: 1, DocumentType: "MEMO"},
			wantErr: true,
		},
		{
			name:    "series code with separator",
			scope:   ScopeKey{BranchID: 1, DocumentType: DocumentTypeQuote, SeriesCode: "A:B"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scope.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestScopeKey_FormatNumber(t *testing.T) {
	issuedAt := time.Date(2026, time.March, 14, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		name   string
		scope  ScopeKey
		number int64
		want   string
	}{
		{
			name:   "receipt plain correlative",
			scope:  ScopeKey{BranchID: 1, DocumentType: DocumentTypeReceipt},
			number: 7,
			want:   "00000007",
		},
		{
			name:   "quote dated with default prefix",
			scope:  ScopeKey{BranchID: 1, DocumentType: DocumentTypeQuote},
			number: 12,
			want:   "COT-260314-0012",
		},
		{
			name:   "quote with series code overriding prefix",
			scope:  ScopeKey{BranchID: 1, DocumentType: DocumentTypeQuote, SeriesCode: "CT2"},
			number: 12,
			want:   "CT2-260314-0012",
		},
		{
			name:   "ledger prefixed correlative",
			scope:  ScopeKey{BranchID: 1, DocumentType: DocumentTypeLedger},
			number: 33,
			want:   "ASI-000033",
		},
		{
			name:   "receipt with series code",
			scope:  ScopeKey{BranchID: 1, DocumentType: DocumentTypeReceipt, SeriesCode: "F001"},
			number: 42,
			want:   "F001-00000042",
		},
		{
			name:   "number wider than pad",
			scope:  ScopeKey{BranchID: 1, DocumentType: DocumentTypeQuote},
			number: 123456,
			want:   "COT-260314-123456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.scope.FormatNumber(tt.number, issuedAt); got != tt.want {
				t.Errorf("FormatNumber() = %q, want %q", got, tt.want)
			}
		})
	}
}

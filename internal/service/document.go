package service

import (
	"context"
	"time"

	"github.com/numera/numera/internal/api/dto"
	"github.com/numera/numera/internal/cache"
	"github.com/numera/numera/internal/domain/document"
	"github.com/numera/numera/internal/domain/sequence"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/logger"
	"github.com/numera/numera/internal/postgres"
	"github.com/numera/numera/internal/sentry"
	"github.com/numera/numera/internal/types"
	"github.com/samber/lo"
)

// DocumentService is the transactional coordinator of the engine: it ties
// number allocation, header creation and line creation into one
// all-or-nothing unit and layers the retry policy on top.
type DocumentService interface {
	CreateDocument(ctx context.Context, req dto.CreateDocumentRequest) (*dto.DocumentResponse, error)
	GetDocument(ctx context.Context, id string) (*dto.DocumentResponse, error)
	GetDocumentByNumber(ctx context.Context, scope types.ScopeKey, number int64) (*dto.DocumentResponse, error)
	ListDocuments(ctx context.Context, filter *types.DocumentFilter) (*dto.ListDocumentsResponse, error)
	GetCounter(ctx context.Context, scope types.ScopeKey) (*dto.CounterResponse, error)
}

type documentService struct {
	db        postgres.IClient
	docRepo   document.Repository
	seqRepo   sequence.Repository
	assembler Assembler
	retry     *RetryPolicy
	cache     cache.Cache
	sentry    *sentry.Service
	logger    *logger.Logger
}

type DocumentServiceParams struct {
	DB        postgres.IClient
	DocRepo   document.Repository
	SeqRepo   sequence.Repository
	Assembler Assembler
	Retry     *RetryPolicy
	Cache     cache.Cache
	Sentry    *sentry.Service
	Logger    *logger.Logger
}

func NewDocumentService(params DocumentServiceParams) DocumentService {
	return &documentService{
		db:        params.DB,
		docRepo:   params.DocRepo,
		seqRepo:   params.SeqRepo,
		assembler: params.Assembler,
		retry:     params.Retry,
		cache:     params.Cache,
		sentry:    params.Sentry,
		logger:    params.Logger,
	}
}

// CreateDocument validates, then attempts the creation transaction under the
// retry policy. Validation failures return before any transaction is opened
// or lock taken, so a rejected payload never consumes a number.
func (s *documentService) CreateDocument(ctx context.Context, req dto.CreateDocumentRequest) (*dto.DocumentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	headerDraft, lineDrafts := req.ToDrafts()
	validated, err := s.assembler.Assemble(headerDraft, lineDrafts)
	if err != nil {
		return nil, err
	}

	var header *document.DocumentHeader
	err = s.retry.Execute(ctx, "create_document", func(ctx context.Context) error {
		var attemptErr error
		header, attemptErr = s.createDocumentAttempt(ctx, validated)
		return attemptErr
	})
	if err != nil {
		if ierr.IsConstraintViolation(err) {
			// The locking discipline should make this unreachable: if it
			// fires, allocation handed out a duplicate. Escalate, never
			// silently retry.
			s.logger.Errorw("duplicate document number despite counter lock",
				"scope", validated.Header.Scope.Key(),
				"error", err,
			)
			if s.sentry != nil {
				s.sentry.CaptureAnomaly(err, map[string]string{
					"component": "document_numbering",
					"scope":     validated.Header.Scope.Key(),
				})
			}
		}
		return nil, err
	}

	s.logger.Infow("created document",
		"document_id", header.ID,
		"scope", header.ScopeKey,
		"number", header.Number,
		"formatted_number", header.FormattedNumber,
		"lines", len(header.Lines),
	)

	s.cacheDocument(ctx, header)
	return dto.NewDocumentResponse(header), nil
}

// createDocumentAttempt is one attempt, one outcome: open a transaction,
// allocate, stamp, insert header, insert lines, commit. Any error rolls the
// whole unit back, counter increment included.
func (s *documentService) createDocumentAttempt(ctx context.Context, validated *document.ValidatedDocument) (*document.DocumentHeader, error) {
	var header *document.DocumentHeader

	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		scope := validated.Header.Scope

		number, err := s.seqRepo.Next(ctx, scope)
		if err != nil {
			return err
		}

		header = s.buildHeader(ctx, validated, number)
		lines := s.buildLines(ctx, header, validated.Lines)

		if err := s.docRepo.CreateWithLines(ctx, header, lines); err != nil {
			return err
		}

		header.Lines = lines
		return nil
	})
	if err != nil {
		return nil, err
	}

	return header, nil
}

func (s *documentService) buildHeader(ctx context.Context, validated *document.ValidatedDocument, number int64) *document.DocumentHeader {
	scope := validated.Header.Scope
	issuedAt := validated.Header.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now().UTC()
	}

	return &document.DocumentHeader{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DOCUMENT),
		ScopeKey:        scope.Key(),
		BranchID:        scope.BranchID,
		DocumentType:    scope.DocumentType,
		SeriesCode:      scope.SeriesCode,
		Number:          number,
		FormattedNumber: scope.FormatNumber(number, issuedAt),
		IssuedAt:        issuedAt,
		DocStatus:       types.DocumentStatusActive,
		Currency:        validated.Header.Currency,
		TotalAmount:     validated.Header.TotalAmount,
		Description:     validated.Header.Description,
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}
}

func (s *documentService) buildLines(ctx context.Context, header *document.DocumentHeader, drafts []document.LineDraft) []*document.DocumentLine {
	return lo.Map(drafts, func(draft document.LineDraft, i int) *document.DocumentLine {
		return &document.DocumentLine{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DOCUMENT_LINE),
			HeaderID:    header.ID,
			LineOrder:   i + 1,
			Description: draft.Description,
			Quantity:    draft.Quantity,
			UnitPrice:   draft.UnitPrice,
			Amount:      draft.Amount,
			Side:        draft.Side,
			BaseModel:   types.GetDefaultBaseModel(ctx),
		}
	})
}

func (s *documentService) GetDocument(ctx context.Context, id string) (*dto.DocumentResponse, error) {
	if id == "" {
		return nil, ierr.NewError("document id is required").
			WithHint("document id is required").
			Mark(ierr.ErrValidation)
	}

	key := cache.GenerateKey(cache.PrefixDocument, id)
	if cached, ok := s.cache.Get(ctx, key); ok {
		if header, ok := cached.(*document.DocumentHeader); ok {
			return dto.NewDocumentResponse(header), nil
		}
	}

	header, err := s.docRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheDocument(ctx, header)
	return dto.NewDocumentResponse(header), nil
}

func (s *documentService) GetDocumentByNumber(ctx context.Context, scope types.ScopeKey, number int64) (*dto.DocumentResponse, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if number <= 0 {
		return nil, ierr.NewError("number must be positive").
			WithHint("number must be positive").
			Mark(ierr.ErrValidation)
	}

	header, err := s.docRepo.GetByNumber(ctx, scope, number)
	if err != nil {
		return nil, err
	}
	return dto.NewDocumentResponse(header), nil
}

func (s *documentService) ListDocuments(ctx context.Context, filter *types.DocumentFilter) (*dto.ListDocumentsResponse, error) {
	if filter == nil {
		filter = types.NewDocumentFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	headers, err := s.docRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	total, err := s.docRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &dto.ListDocumentsResponse{
		Items:  lo.Map(headers, func(h *document.DocumentHeader, _ int) *dto.DocumentResponse { return dto.NewDocumentResponse(h) }),
		Total:  total,
		Limit:  filter.GetLimit(),
		Offset: filter.GetOffset(),
	}, nil
}

func (s *documentService) GetCounter(ctx context.Context, scope types.ScopeKey) (*dto.CounterResponse, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	counter, err := s.seqRepo.Get(ctx, scope)
	if err != nil {
		return nil, err
	}

	return &dto.CounterResponse{
		ScopeKey:   counter.ScopeKey,
		LastIssued: counter.LastIssued,
		UpdatedAt:  counter.UpdatedAt,
	}, nil
}

// cacheDocument stores a committed header. Safe because committed documents
// and their numbers are immutable.
func (s *documentService) cacheDocument(ctx context.Context, header *document.DocumentHeader) {
	if s.cache == nil {
		return
	}
	key := cache.GenerateKey(cache.PrefixDocument, header.ID)
	s.cache.Set(ctx, key, header, 0)
}

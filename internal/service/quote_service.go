package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"quote-service/internal/events"
	"quote-service/internal/model"
	"quote-service/internal/repository"
)

var validate = validator.New()

type CreateQuoteInput struct {
	ClientName         string
	ClientEmail        *string
	ProjectDescription *string
	EstimatedHours     *int
	Price              *int64
	IncludeVAT         *bool
	TemplateStyle      string
	GeneratedContent   *string
	Status             model.QuoteStatus
}

type PDFUpload struct {
	UploadURL string       `json:"upload_url"`
	PDFURL    string       `json:"pdf_url"`
	Quote     *model.Quote `json:"quote"`
}

// PDFStorage hands out upload locations for rendered quote documents.
type PDFStorage interface {
	PresignPDFUpload(ctx context.Context, objectKey string) (uploadURL string, objectURL string, err error)
}

type QuoteService interface {
	CreateQuote(ctx context.Context, userID uuid.UUID, in CreateQuoteInput) (*model.Quote, error)
	ListQuotes(ctx context.Context, userID uuid.UUID, limit int) ([]model.Quote, error)
	GetQuote(ctx context.Context, userID, quoteID uuid.UUID) (*model.Quote, error)
	UpdateQuote(ctx context.Context, userID, quoteID uuid.UUID, patch model.QuotePatch) (*model.Quote, error)
	DeleteQuote(ctx context.Context, userID, quoteID uuid.UUID) error
	SendQuote(ctx context.Context, userID, quoteID uuid.UUID) (*model.Quote, error)
	GenerateContent(ctx context.Context, userID, quoteID uuid.UUID) (*model.Quote, error)
	CreatePDFUpload(ctx context.Context, userID, quoteID uuid.UUID) (*PDFUpload, error)
}

type quoteService struct {
	quotes    repository.QuoteRepository
	guard     *QuotaGuard
	publisher events.EventPublisher
	textGen   TextGenerator
	pdfs      PDFStorage
	now       func() time.Time
}

type QuoteServiceOption func(*quoteService)

func WithPDFStorage(pdfs PDFStorage) QuoteServiceOption {
	return func(s *quoteService) { s.pdfs = pdfs }
}

func WithTextGenerator(gen TextGenerator) QuoteServiceOption {
	return func(s *quoteService) { s.textGen = gen }
}

func WithClock(now func() time.Time) QuoteServiceOption {
	return func(s *quoteService) { s.now = now }
}

func NewQuoteService(quotes repository.QuoteRepository, guard *QuotaGuard, pub events.EventPublisher, opts ...QuoteServiceOption) QuoteService {
	s := &quoteService{
		quotes:    quotes,
		guard:     guard,
		publisher: pub,
		textGen:   NewTemplateTextGenerator(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher == nil {
		s.publisher = events.NoopPublisher{}
	}
	return s
}

func (s *quoteService) CreateQuote(ctx context.Context, userID uuid.UUID, in CreateQuoteInput) (*model.Quote, error) {
	quote, err := s.newQuote(userID, in)
	if err != nil {
		return nil, err
	}

	created, err := s.quotes.CreateWithinQuota(ctx, quote, s.guard.CurrentWindow(), s.guard.Limit())
	if err != nil {
		if errors.Is(err, repository.ErrQuotaExceeded) {
			slog.WarnContext(ctx, "Monthly quote quota reached", slog.String("user_id", userID.String()))
			return nil, ErrQuotaExceeded
		}
		return nil, err
	}

	go s.publisher.PublishQuoteCreated(created)
	if created.Status == model.QuoteStatusPending {
		go s.publisher.PublishQuoteSent(created)
	}

	return created, nil
}

func (s *quoteService) newQuote(userID uuid.UUID, in CreateQuoteInput) (*model.Quote, error) {
	name := strings.TrimSpace(in.ClientName)
	if name == "" {
		return nil, validationError("client_name is required")
	}
	if err := validateEmail(in.ClientEmail); err != nil {
		return nil, err
	}
	if err := validateAmounts(in.EstimatedHours, in.Price); err != nil {
		return nil, err
	}

	style := in.TemplateStyle
	if style == "" {
		style = model.TemplateProfessional
	}
	if !ValidTemplateStyle(style) {
		return nil, validationError("unknown template_style %q", style)
	}

	status := in.Status
	if status == "" {
		status = model.QuoteStatusDraft
	}
	if status != model.QuoteStatusDraft && status != model.QuoteStatusPending {
		return nil, validationError("a new quote must start as draft or pending, got %q", status)
	}

	includeVAT := true
	if in.IncludeVAT != nil {
		includeVAT = *in.IncludeVAT
	}

	quote := &model.Quote{
		UserID:             userID,
		ClientName:         name,
		ClientEmail:        in.ClientEmail,
		ProjectDescription: in.ProjectDescription,
		EstimatedHours:     in.EstimatedHours,
		Price:              in.Price,
		IncludeVAT:         includeVAT,
		TemplateStyle:      style,
		GeneratedContent:   in.GeneratedContent,
		Status:             status,
	}
	if status == model.QuoteStatusPending {
		sentAt := s.now()
		quote.SentAt = &sentAt
	}

	return quote, nil
}

func (s *quoteService) ListQuotes(ctx context.Context, userID uuid.UUID, limit int) ([]model.Quote, error) {
	return s.quotes.ListByUserID(ctx, userID, limit)
}

func (s *quoteService) GetQuote(ctx context.Context, userID, quoteID uuid.UUID) (*model.Quote, error) {
	return s.owned(ctx, userID, quoteID)
}

// owned loads the quote and checks that userID owns it.
func (s *quoteService) owned(ctx context.Context, userID, quoteID uuid.UUID) (*model.Quote, error) {
	quote, err := s.quotes.FindByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, ErrQuoteNotFound
	}
	if quote.UserID != userID {
		return nil, ErrForbidden
	}
	return quote, nil
}

func (s *quoteService) UpdateQuote(ctx context.Context, userID, quoteID uuid.UUID, patch model.QuotePatch) (*model.Quote, error) {
	current, err := s.owned(ctx, userID, quoteID)
	if err != nil {
		return nil, err
	}

	if err := s.validatePatch(current, &patch); err != nil {
		return nil, err
	}

	updated, err := s.quotes.Update(ctx, quoteID, patch)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrQuoteNotFound
	}

	if updated.Status != current.Status {
		s.publishStatusChange(updated, current.Status)
	}

	return updated, nil
}

// validatePatch rejects malformed fields and illegal status changes, and stamps sent_at
// when the patch moves the quote to pending.
func (s *quoteService) validatePatch(current *model.Quote, patch *model.QuotePatch) error {
	if patch.ClientName.Set {
		if patch.ClientName.Null || strings.TrimSpace(patch.ClientName.Value) == "" {
			return validationError("client_name is required")
		}
		patch.ClientName.Value = strings.TrimSpace(patch.ClientName.Value)
	}
	if patch.ClientEmail.Set {
		if err := validateEmail(patch.ClientEmail.Ptr()); err != nil {
			return err
		}
	}
	if err := validateAmounts(patch.EstimatedHours.Ptr(), patch.Price.Ptr()); err != nil {
		return err
	}
	if patch.IncludeVAT.Set && patch.IncludeVAT.Null {
		return validationError("include_vat cannot be null")
	}
	if patch.TemplateStyle.Set {
		if patch.TemplateStyle.Null || !ValidTemplateStyle(patch.TemplateStyle.Value) {
			return validationError("unknown template_style")
		}
	}

	// sent_at and pdf_url are owned by the service.
	patch.SentAt = model.Field[time.Time]{}
	patch.PDFURL = model.Field[string]{}

	if !patch.Status.Set {
		return nil
	}
	if patch.Status.Null || !patch.Status.Value.Valid() {
		return validationError("unknown status")
	}
	next := patch.Status.Value
	if !current.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, next)
	}
	if next == model.QuoteStatusPending {
		patch.SentAt = model.Some(s.now())
	}

	return nil
}

func (s *quoteService) publishStatusChange(quote *model.Quote, previous model.QuoteStatus) {
	if quote.Status == model.QuoteStatusPending {
		go s.publisher.PublishQuoteSent(quote)
		return
	}
	go s.publisher.PublishQuoteStatusChanged(quote, previous)
}

func (s *quoteService) DeleteQuote(ctx context.Context, userID, quoteID uuid.UUID) error {
	if _, err := s.owned(ctx, userID, quoteID); err != nil {
		return err
	}

	removed, err := s.quotes.Delete(ctx, quoteID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrQuoteNotFound
	}

	return nil
}

func (s *quoteService) SendQuote(ctx context.Context, userID, quoteID uuid.UUID) (*model.Quote, error) {
	return s.UpdateQuote(ctx, userID, quoteID, model.QuotePatch{Status: model.Some(model.QuoteStatusPending)})
}

func (s *quoteService) GenerateContent(ctx context.Context, userID, quoteID uuid.UUID) (*model.Quote, error) {
	current, err := s.owned(ctx, userID, quoteID)
	if err != nil {
		return nil, err
	}

	text, err := s.textGen.Generate(TextInputFromQuote(current))
	if err != nil {
		return nil, fmt.Errorf("generate quote text: %w", err)
	}

	updated, err := s.quotes.Update(ctx, quoteID, model.QuotePatch{GeneratedContent: model.Some(text)})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrQuoteNotFound
	}

	return updated, nil
}

func (s *quoteService) CreatePDFUpload(ctx context.Context, userID, quoteID uuid.UUID) (*PDFUpload, error) {
	if s.pdfs == nil {
		return nil, ErrStorageDisabled
	}

	if _, err := s.owned(ctx, userID, quoteID); err != nil {
		return nil, err
	}

	objectKey := fmt.Sprintf("quotes/%s/%s.pdf", userID, quoteID)
	uploadURL, objectURL, err := s.pdfs.PresignPDFUpload(ctx, objectKey)
	if err != nil {
		return nil, fmt.Errorf("presign pdf upload: %w", err)
	}

	updated, err := s.quotes.Update(ctx, quoteID, model.QuotePatch{PDFURL: model.Some(objectURL)})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrQuoteNotFound
	}

	return &PDFUpload{UploadURL: uploadURL, PDFURL: objectURL, Quote: updated}, nil
}

func TextInputFromQuote(q *model.Quote) TextInput {
	in := TextInput{ClientName: q.ClientName, TemplateStyle: q.TemplateStyle}
	if q.EstimatedHours != nil {
		in.Hours = *q.EstimatedHours
	}
	if q.Price != nil {
		in.Price = *q.Price
	}
	if q.ProjectDescription != nil {
		in.Description = *q.ProjectDescription
	}
	return in
}

func validateEmail(email *string) error {
	if email == nil || *email == "" {
		return nil
	}
	if err := validate.Var(*email, "email"); err != nil {
		return validationError("client_email is not a valid email address")
	}
	return nil
}

func validateAmounts(hours *int, price *int64) error {
	if hours != nil && *hours < 0 {
		return validationError("estimated_hours must not be negative")
	}
	if price != nil && *price < 0 {
		return validationError("price must not be negative")
	}
	return nil
}

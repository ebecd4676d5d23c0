package model

import (
	"time"

	"github.com/google/uuid"
)

type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusPending  QuoteStatus = "pending"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusViewed   QuoteStatus = "viewed"
	QuoteStatusApproved QuoteStatus = "approved"
	QuoteStatusRejected QuoteStatus = "rejected"
)

const (
	TemplateProfessional = "professional"
	TemplateModern       = "modern"
	TemplateCasual       = "casual"
)

var quoteTransitions = map[QuoteStatus][]QuoteStatus{
	QuoteStatusDraft:    {QuoteStatusPending},
	QuoteStatusPending:  {QuoteStatusApproved, QuoteStatusRejected, QuoteStatusDraft, QuoteStatusSent},
	QuoteStatusSent:     {QuoteStatusViewed, QuoteStatusApproved, QuoteStatusRejected},
	QuoteStatusViewed:   {QuoteStatusApproved, QuoteStatusRejected},
	QuoteStatusApproved: nil,
	QuoteStatusRejected: nil,
}

func (s QuoteStatus) Valid() bool {
	_, ok := quoteTransitions[s]
	return ok
}

// CanTransitionTo reports whether a quote in status s may be moved to next.
// Rewriting the current status is always allowed.
func (s QuoteStatus) CanTransitionTo(next QuoteStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range quoteTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s QuoteStatus) Terminal() bool {
	return s.Valid() && len(quoteTransitions[s]) == 0
}

type Quote struct {
	ID                 uuid.UUID   `db:"id" json:"id"`
	UserID             uuid.UUID   `db:"user_id" json:"user_id"`
	ClientName         string      `db:"client_name" json:"client_name"`
	ClientEmail        *string     `db:"client_email" json:"client_email"`
	ProjectDescription *string     `db:"project_description" json:"project_description"`
	EstimatedHours     *int        `db:"estimated_hours" json:"estimated_hours"`
	Price              *int64      `db:"price" json:"price"`
	IncludeVAT         bool        `db:"include_vat" json:"include_vat"`
	TemplateStyle      string      `db:"template_style" json:"template_style"`
	GeneratedContent   *string     `db:"generated_content" json:"generated_content"`
	Status             QuoteStatus `db:"status" json:"status"`
	CreatedAt          time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at" json:"updated_at"`
	SentAt             *time.Time  `db:"sent_at" json:"sent_at"`
	PDFURL             *string     `db:"pdf_url" json:"pdf_url"`
}

// QuotePatch carries a partial update. Unset fields are preserved by the store.
type QuotePatch struct {
	ClientName         Field[string]      `json:"client_name"`
	ClientEmail        Field[string]      `json:"client_email"`
	ProjectDescription Field[string]      `json:"project_description"`
	EstimatedHours     Field[int]         `json:"estimated_hours"`
	Price              Field[int64]       `json:"price"`
	IncludeVAT         Field[bool]        `json:"include_vat"`
	TemplateStyle      Field[string]      `json:"template_style"`
	GeneratedContent   Field[string]      `json:"generated_content"`
	Status             Field[QuoteStatus] `json:"status"`
	SentAt             Field[time.Time]   `json:"-"`
	PDFURL             Field[string]      `json:"-"`
}

// Apply merges the patch onto q. Non-nullable columns ignore an explicit null; the
// service rejects those before they reach the store.
func (p QuotePatch) Apply(q *Quote) {
	if p.ClientName.Set && !p.ClientName.Null {
		q.ClientName = p.ClientName.Value
	}
	p.ClientEmail.apply(&q.ClientEmail)
	p.ProjectDescription.apply(&q.ProjectDescription)
	p.EstimatedHours.apply(&q.EstimatedHours)
	p.Price.apply(&q.Price)
	if p.IncludeVAT.Set && !p.IncludeVAT.Null {
		q.IncludeVAT = p.IncludeVAT.Value
	}
	if p.TemplateStyle.Set && !p.TemplateStyle.Null {
		q.TemplateStyle = p.TemplateStyle.Value
	}
	p.GeneratedContent.apply(&q.GeneratedContent)
	if p.Status.Set && !p.Status.Null {
		q.Status = p.Status.Value
	}
	p.SentAt.apply(&q.SentAt)
	p.PDFURL.apply(&q.PDFURL)
}

func (p QuotePatch) Empty() bool {
	return !p.ClientName.Set && !p.ClientEmail.Set && !p.ProjectDescription.Set &&
		!p.EstimatedHours.Set && !p.Price.Set && !p.IncludeVAT.Set && !p.TemplateStyle.Set &&
		!p.GeneratedContent.Set && !p.Status.Set && !p.SentAt.Set && !p.PDFURL.Set
}

// TimeRange is an inclusive [Start, End] window.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

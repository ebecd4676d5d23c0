package service

import (
	"strings"
	"text/template"

	"quote-service/internal/model"
)

type TextInput struct {
	ClientName    string
	Hours         int
	Price         int64
	Description   string
	TemplateStyle string
}

// TextGenerator turns quote details into the body text shown to the client. Implementations
// must be pure: the same input always yields the same text.
type TextGenerator interface {
	Generate(in TextInput) (string, error)
}

var quoteTemplates = map[string]string{
	model.TemplateProfessional: `Dear {{.ClientName}},

Thank you for the opportunity to submit a proposal for {{.Description}}.
We estimate the engagement at {{.Hours}} hours, for a total of {{.Price}}.

This quote remains valid for 30 days. Please let us know if you have any questions.

Kind regards`,
	model.TemplateModern: `Hi {{.ClientName}},

Here is the plan for {{.Description}}:
- Estimated effort: {{.Hours}} hours
- Total: {{.Price}}

Reply to this message and we can get started.`,
	model.TemplateCasual: `Hey {{.ClientName}}!

For {{.Description}} I'm looking at roughly {{.Hours}} hours, which comes to {{.Price}} all in.

Let me know what you think!`,
}

type templateTextGenerator struct {
	templates map[string]*template.Template
}

func NewTemplateTextGenerator() TextGenerator {
	g := &templateTextGenerator{templates: make(map[string]*template.Template, len(quoteTemplates))}
	for style, body := range quoteTemplates {
		g.templates[style] = template.Must(template.New(style).Parse(body))
	}
	return g
}

func (g *templateTextGenerator) Generate(in TextInput) (string, error) {
	tmpl, ok := g.templates[in.TemplateStyle]
	if !ok {
		tmpl = g.templates[model.TemplateProfessional]
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, in); err != nil {
		return "", err
	}
	return b.String(), nil
}

func ValidTemplateStyle(style string) bool {
	_, ok := quoteTemplates[style]
	return ok
}

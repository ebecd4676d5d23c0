package service_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"quote-service/internal/model"
	"quote-service/internal/service"
)

func TestTemplateTextGenerator(t *testing.T) {
	gen := service.NewTemplateTextGenerator()
	in := service.TextInput{ClientName: "Acme", Hours: 8, Price: 1600, Description: "a logo refresh"}

	for _, style := range []string{model.TemplateProfessional, model.TemplateModern, model.TemplateCasual} {
		in.TemplateStyle = style
		text, err := gen.Generate(in)
		require.NoError(t, err, style)
		require.Contains(t, text, "Acme", style)
		require.Contains(t, text, "8 hours", style)
		require.Contains(t, text, "1600", style)
		require.Contains(t, text, "a logo refresh", style)

		again, err := gen.Generate(in)
		require.NoError(t, err)
		require.Equal(t, text, again)
	}
}

func TestTemplateTextGenerator_UnknownStyleFallsBack(t *testing.T) {
	gen := service.NewTemplateTextGenerator()

	professional, err := gen.Generate(service.TextInput{ClientName: "Acme", TemplateStyle: model.TemplateProfessional})
	require.NoError(t, err)
	unknown, err := gen.Generate(service.TextInput{ClientName: "Acme", TemplateStyle: "gothic"})
	require.NoError(t, err)

	require.Equal(t, professional, unknown)
}

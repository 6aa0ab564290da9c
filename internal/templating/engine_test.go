package templating_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"photo-studio-backend/internal/apperr"
	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/templating"
)

func ptr[T any](v T) *T { return &v }

func portrait() models.PromptTemplate {
	return models.PromptTemplate{
		ID:         "tpl-1",
		Name:       "Portrait",
		BasePrompt: "A portrait of {{subject}}{{#if mood}}, {{mood}} mood{{/if}}, lit by {{lighting}}. Palette: {{palette}}. Strength {{strength}}",
		Model:      "fal-ai/flux/dev",
		Parameters: []models.PromptParameter{
			{Name: "subject", Type: models.ParamText, Required: true, Validation: &models.ParameterValidation{Pattern: `^[a-z ]+$`, Message: "subject must be lowercase words"}},
			{Name: "mood", Type: models.ParamText},
			{Name: "lighting", Type: models.ParamSelect, Options: []string{"studio", "natural"}, DefaultValue: ptr(models.String("natural"))},
			{Name: "palette", Type: models.ParamMultiselect, Options: []string{"warm", "cool", "mono"}, DefaultValue: ptr(models.List("warm"))},
			{Name: "strength", Type: models.ParamNumber, Min: ptr(0.0), Max: ptr(1.0), DefaultValue: ptr(models.Number(0.75))},
		},
	}
}

func TestApply_ResolvesDefaultsAndRenders(t *testing.T) {
	engine := templating.NewEngine(8)

	out, err := engine.Apply(portrait(), models.Values{
		"subject": models.String("an old fisherman"),
		"palette": models.List("cool", "mono"),
	})
	require.NoError(t, err)

	assert.Equal(t, "A portrait of an old fisherman, lit by natural. Palette: cool, mono. Strength 0.75", out.FinalPrompt)
	assert.Equal(t, "fal-ai/flux/dev", out.Model)
	assert.Equal(t, "tpl-1", out.TemplateID)

	require.Len(t, out.Parameters, 4)
	sources := map[string]string{}
	for _, p := range out.Parameters {
		sources[p.Name] = p.Source
	}
	assert.Equal(t, models.SourceSupplied, sources["subject"])
	assert.Equal(t, models.SourceDefault, sources["lighting"])
	assert.Equal(t, models.SourceSupplied, sources["palette"])
	assert.Equal(t, models.SourceDefault, sources["strength"])

	assert.True(t, out.AppliedValues["lighting"].Equal(models.String("natural")))
	_, hasMood := out.AppliedValues["mood"]
	assert.False(t, hasMood)
}

func TestApply_IsDeterministic(t *testing.T) {
	engine := templating.NewEngine(8)
	values := models.Values{"subject": models.String("a cat"), "mood": models.String("calm")}

	first, err := engine.Apply(portrait(), values)
	require.NoError(t, err)
	second, err := engine.Apply(portrait(), values)
	require.NoError(t, err)

	assert.Equal(t, first.FinalPrompt, second.FinalPrompt)
	assert.Contains(t, first.FinalPrompt, "a cat, calm mood")
}

func TestApply_DoesNotEscape(t *testing.T) {
	engine := templating.NewEngine(8)
	tpl := models.PromptTemplate{
		BasePrompt: "{{text}}",
		Parameters: []models.PromptParameter{{Name: "text", Type: models.ParamText}},
	}
	out, err := engine.Apply(tpl, models.Values{"text": models.String(`"rock & roll" <neon>`)})
	require.NoError(t, err)
	assert.Equal(t, `"rock & roll" <neon>`, out.FinalPrompt)
}

func TestApply_MissingRequiredParameter(t *testing.T) {
	engine := templating.NewEngine(8)

	_, err := engine.Apply(portrait(), models.Values{})
	require.Error(t, err)

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.InvalidParameters, appErr.Code)
	assert.Equal(t, "subject", appErr.Field)
	require.Len(t, appErr.ValidationErrors, 1)
	assert.Equal(t, "subject", appErr.ValidationErrors[0].Parameter)
}

func TestApply_CollectsEveryViolation(t *testing.T) {
	engine := templating.NewEngine(8)

	_, err := engine.Apply(portrait(), models.Values{
		"subject":  models.String("UPPER"),
		"lighting": models.String("neon"),
		"palette":  models.List("warm", "sepia"),
		"strength": models.Number(2),
		"extra":    models.Bool(true),
	})
	require.Error(t, err)

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	messages := map[string]string{}
	for _, ve := range appErr.ValidationErrors {
		messages[ve.Parameter] = ve.Message
	}
	assert.Len(t, messages, 5)
	assert.Equal(t, "subject must be lowercase words", messages["subject"])
	assert.Contains(t, messages["lighting"], "neon")
	assert.Contains(t, messages["palette"], "sepia")
	assert.Equal(t, "must be at most 1", messages["strength"])
	assert.Contains(t, messages["extra"], "not a parameter")
}

func TestApply_DefaultPatternMessage(t *testing.T) {
	engine := templating.NewEngine(8)
	tpl := models.PromptTemplate{
		BasePrompt: "{{code}}",
		Parameters: []models.PromptParameter{{Name: "code", Type: models.ParamText, Validation: &models.ParameterValidation{Pattern: `^\d+$`}}},
	}
	_, err := engine.Apply(tpl, models.Values{"code": models.String("abc")})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "code has an invalid format", appErr.ValidationErrors[0].Message)
}

func TestCheckPrompt(t *testing.T) {
	engine := templating.NewEngine(8)
	assert.NoError(t, engine.CheckPrompt("A {{thing}}"))
	assert.Equal(t, apperr.InvalidPrompt, apperr.CodeOf(engine.CheckPrompt("  ")))
	assert.Equal(t, apperr.InvalidPrompt, apperr.CodeOf(engine.CheckPrompt("{{#if x}}unclosed")))
}

func TestValidateDefinition(t *testing.T) {
	errs := templating.NewEngine(8).ValidateDefinition([]models.PromptParameter{
		{Name: "a", Type: models.ParamText},
		{Name: "a", Type: models.ParamText},
		{Name: "", Type: models.ParamText},
		{Name: "b", Type: "date"},
		{Name: "c", Type: models.ParamSelect},
		{Name: "d", Type: models.ParamNumber, Min: ptr(5.0), Max: ptr(1.0)},
		{Name: "e", Type: models.ParamText, Validation: &models.ParameterValidation{Pattern: "("}},
		{Name: "f", Type: models.ParamNumber, Max: ptr(3.0), DefaultValue: ptr(models.Number(9))},
	})

	got := map[string]bool{}
	for _, e := range errs {
		got[e.Parameter] = true
	}
	assert.Equal(t, map[string]bool{"a": true, "parameters[2]": true, "b": true, "c": true, "d": true, "e": true, "f": true}, got)
}

// Package templating validates prompt template definitions and applies
// templates to parameter values.
//
// Base prompts use Handlebars syntax: {{subject}} is replaced by the
// resolved value of the parameter "subject", and block helpers such as
// {{#if style}}, in {{style}} style{{/if}} are available for optional
// parameters. Values are inserted verbatim, never HTML-escaped.
package templating

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/aymerick/raymond"
	lru "github.com/hashicorp/golang-lru/v2"
	"photo-studio-backend/internal/apperr"
	"photo-studio-backend/internal/models"
)

var repeatedBlanks = regexp.MustCompile(`[ \t]{2,}`)

type Engine struct {
	compiled *lru.Cache[string, *raymond.Template]
	patterns *lru.Cache[string, *regexp.Regexp]
}

// NewEngine returns an engine that keeps up to cacheSize parsed base
// prompts and as many compiled validation patterns.
func NewEngine(cacheSize int) *Engine {
	if cacheSize < 1 {
		cacheSize = 128
	}
	compiled, _ := lru.New[string, *raymond.Template](cacheSize)
	patterns, _ := lru.New[string, *regexp.Regexp](cacheSize)
	return &Engine{compiled: compiled, patterns: patterns}
}

func (e *Engine) pattern(expr string) (*regexp.Regexp, error) {
	if re, ok := e.patterns.Get(expr); ok {
		return re, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	e.patterns.Add(expr, re)
	return re, nil
}

func (e *Engine) compile(source string) (*raymond.Template, error) {
	if tpl, ok := e.compiled.Get(source); ok {
		return tpl, nil
	}
	tpl, err := raymond.Parse(source)
	if err != nil {
		return nil, err
	}
	e.compiled.Add(source, tpl)
	return tpl, nil
}

// CheckPrompt reports whether source is a usable base prompt.
func (e *Engine) CheckPrompt(source string) error {
	if strings.TrimSpace(source) == "" {
		return apperr.Validation(apperr.InvalidPrompt, "base_prompt", "base prompt is required")
	}
	if _, err := e.compile(source); err != nil {
		return apperr.Validation(apperr.InvalidPrompt, "base_prompt", "base prompt does not parse: %v", err)
	}
	return nil
}

// Apply resolves every declared parameter of t against supplied and renders
// the base prompt. Rendering is deterministic: equal inputs always produce
// byte-identical prompts.
func (e *Engine) Apply(t models.PromptTemplate, supplied models.Values) (models.AppliedTemplate, error) {
	declared := make(map[string]bool, len(t.Parameters))
	for _, p := range t.Parameters {
		declared[p.Name] = true
	}

	var errs []apperr.ParamError
	for _, name := range supplied.Keys() {
		if !declared[name] {
			errs = append(errs, apperr.ParamError{Parameter: name, Message: "is not a parameter of this template"})
		}
	}

	resolved := make([]models.ResolvedParameter, 0, len(t.Parameters))
	applied := make(models.Values, len(t.Parameters))
	for _, p := range t.Parameters {
		v, source, ok := pick(p, supplied)
		if !ok {
			if p.Required {
				errs = append(errs, apperr.ParamError{Parameter: p.Name, Message: "is required"})
			}
			continue
		}
		if msg := e.CheckValue(p, v); msg != "" {
			errs = append(errs, apperr.ParamError{Parameter: p.Name, Message: msg})
			continue
		}
		resolved = append(resolved, models.ResolvedParameter{Name: p.Name, Type: p.Type, Value: v, Source: source})
		applied[p.Name] = v
	}
	if perr := apperr.Parameters(errs); perr != nil {
		return models.AppliedTemplate{}, perr
	}

	prompt, err := e.render(t.BasePrompt, applied)
	if err != nil {
		return models.AppliedTemplate{}, err
	}

	return models.AppliedTemplate{
		TemplateID:    t.ID,
		FinalPrompt:   prompt,
		Model:         t.Model,
		Parameters:    resolved,
		AppliedValues: applied,
	}, nil
}

// pick returns the supplied value, falling back to the declared default.
// A blank string counts as not supplied.
func pick(p models.PromptParameter, supplied models.Values) (models.Value, string, bool) {
	if v, ok := supplied[p.Name]; ok {
		if s, isStr := v.AsString(); !isStr || strings.TrimSpace(s) != "" {
			return v, models.SourceSupplied, true
		}
	}
	if p.DefaultValue != nil {
		return *p.DefaultValue, models.SourceDefault, true
	}
	return models.Value{}, "", false
}

func (e *Engine) render(source string, values models.Values) (string, error) {
	tpl, err := e.compile(source)
	if err != nil {
		return "", apperr.Validation(apperr.InvalidPrompt, "base_prompt", "base prompt does not parse: %v", err)
	}

	ctx := make(map[string]any, len(values))
	for name, v := range values {
		ctx[name] = raymond.SafeString(v.Text())
	}

	out, err := tpl.Exec(ctx)
	if err != nil {
		return "", apperr.Validation(apperr.InvalidPrompt, "base_prompt", "failed to render base prompt: %v", err)
	}
	return strings.TrimSpace(repeatedBlanks.ReplaceAllString(out, " ")), nil
}

// CheckValue validates one value against its parameter declaration and
// returns a message, or "" when the value is acceptable.
func (e *Engine) CheckValue(p models.PromptParameter, v models.Value) string {
	switch p.Type {
	case models.ParamText:
		s, ok := v.AsString()
		if !ok {
			return "must be text"
		}
		if p.Validation != nil && p.Validation.Pattern != "" {
			re, err := e.pattern(p.Validation.Pattern)
			if err != nil {
				return fmt.Sprintf("has an unusable pattern: %v", err)
			}
			if !re.MatchString(s) {
				if p.Validation.Message != "" {
					return p.Validation.Message
				}
				return fmt.Sprintf("%s has an invalid format", p.Name)
			}
		}
	case models.ParamNumber:
		n, ok := v.AsNumber()
		if !ok {
			return "must be a number"
		}
		if p.Min != nil && n < *p.Min {
			return fmt.Sprintf("must be at least %s", models.Number(*p.Min).Text())
		}
		if p.Max != nil && n > *p.Max {
			return fmt.Sprintf("must be at most %s", models.Number(*p.Max).Text())
		}
	case models.ParamSelect:
		s, ok := v.AsString()
		if !ok {
			return "must be a single option"
		}
		if !slices.Contains(p.Options, s) {
			return fmt.Sprintf("%q is not one of %s", s, strings.Join(p.Options, ", "))
		}
	case models.ParamMultiselect:
		items, ok := v.AsList()
		if !ok {
			return "must be a list of options"
		}
		for _, item := range items {
			if !slices.Contains(p.Options, item) {
				return fmt.Sprintf("%q is not one of %s", item, strings.Join(p.Options, ", "))
			}
		}
	default:
		return fmt.Sprintf("has unknown type %q", p.Type)
	}
	return ""
}

// ValidateDefinition checks a template's parameter declarations.
func (e *Engine) ValidateDefinition(params []models.PromptParameter) []apperr.ParamError {
	var errs []apperr.ParamError
	add := func(name, format string, args ...any) {
		errs = append(errs, apperr.ParamError{Parameter: name, Message: fmt.Sprintf(format, args...)})
	}

	seen := make(map[string]bool, len(params))
	for i, p := range params {
		name := p.Name
		if strings.TrimSpace(name) == "" {
			add(fmt.Sprintf("parameters[%d]", i), "name is required")
			continue
		}
		if seen[name] {
			add(name, "is declared more than once")
			continue
		}
		seen[name] = true

		if !p.Type.Valid() {
			add(name, "has unknown type %q", p.Type)
			continue
		}
		if (p.Type == models.ParamSelect || p.Type == models.ParamMultiselect) && len(p.Options) == 0 {
			add(name, "%s parameters need options", p.Type)
			continue
		}
		if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
			add(name, "min is greater than max")
			continue
		}
		if p.Validation != nil && p.Validation.Pattern != "" {
			if _, err := e.pattern(p.Validation.Pattern); err != nil {
				add(name, "pattern does not compile: %v", err)
				continue
			}
		}
		if p.DefaultValue != nil {
			if msg := e.CheckValue(p, *p.DefaultValue); msg != "" {
				add(name, "default value %s", msg)
			}
		}
	}
	return errs
}

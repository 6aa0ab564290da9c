package generation

import (
	"fmt"
	"math"
	"slices"

	"photo-studio-backend/internal/apperr"
	"photo-studio-backend/internal/models"
)

// ResolveParameters checks supplied values against the model's declared
// parameters and fills declared defaults. Every failure is collected.
func ResolveParameters(model models.ModelDetail, supplied models.Values) (models.Values, error) {
	declared := make(map[string]models.ModelParameter, len(model.Parameters))
	for _, p := range model.Parameters {
		declared[p.Name] = p
	}

	var errs []apperr.ParamError
	for _, name := range supplied.Keys() {
		if _, ok := declared[name]; !ok {
			errs = append(errs, apperr.ParamError{Parameter: name, Message: fmt.Sprintf("model %s does not accept this parameter", model.ID)})
		}
	}

	resolved := make(models.Values, len(model.Parameters))
	for _, p := range model.Parameters {
		v, ok := supplied[p.Name]
		if !ok {
			if p.Default != nil {
				resolved[p.Name] = *p.Default
			} else if p.Required {
				errs = append(errs, apperr.ParamError{Parameter: p.Name, Message: "is required"})
			}
			continue
		}
		if msg := checkModelParameter(p, v, model.Limits); msg != "" {
			errs = append(errs, apperr.ParamError{Parameter: p.Name, Message: msg})
			continue
		}
		resolved[p.Name] = v
	}

	if e := apperr.Parameters(errs); e != nil {
		return nil, e
	}
	return resolved, nil
}

func checkModelParameter(p models.ModelParameter, v models.Value, limits models.ModelLimits) string {
	switch p.Type {
	case models.ModelParamString:
		if _, ok := v.AsString(); !ok {
			return "must be a string"
		}
	case models.ModelParamBoolean:
		if _, ok := v.AsBool(); !ok {
			return "must be a boolean"
		}
	case models.ModelParamEnum:
		s, ok := v.AsString()
		if !ok {
			return "must be a string"
		}
		if !slices.Contains(p.Options, s) {
			return fmt.Sprintf("must be one of %v", p.Options)
		}
	case models.ModelParamInteger, models.ModelParamFloat:
		n, ok := v.AsNumber()
		if !ok {
			return "must be a number"
		}
		if p.Type == models.ModelParamInteger && n != math.Trunc(n) {
			return "must be an integer"
		}
		if p.Min != nil && n < *p.Min {
			return fmt.Sprintf("must be at least %s", models.Number(*p.Min).Text())
		}
		if p.Max != nil && n > *p.Max {
			return fmt.Sprintf("must be at most %s", models.Number(*p.Max).Text())
		}
		if msg := checkLimit(p.Name, n, limits); msg != "" {
			return msg
		}
	}
	return ""
}

// checkLimit applies the model-wide limits to the parameters they govern.
func checkLimit(name string, n float64, limits models.ModelLimits) string {
	var limit int
	switch name {
	case "width":
		limit = limits.MaxWidth
	case "height":
		limit = limits.MaxHeight
	case "num_images":
		limit = limits.MaxImages
	}
	if limit > 0 && n > float64(limit) {
		return fmt.Sprintf("must be at most %d", limit)
	}
	return ""
}

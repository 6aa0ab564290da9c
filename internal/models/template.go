package models

import "time"

type ParameterType string

const (
	ParamText        ParameterType = "text"
	ParamNumber      ParameterType = "number"
	ParamSelect      ParameterType = "select"
	ParamMultiselect ParameterType = "multiselect"
)

func (t ParameterType) Valid() bool {
	switch t {
	case ParamText, ParamNumber, ParamSelect, ParamMultiselect:
		return true
	}
	return false
}

type ParameterValidation struct {
	Pattern string `json:"pattern,omitempty"`
	Message string `json:"message,omitempty"`
}

type PromptParameter struct {
	Name         string               `json:"name"`
	Type         ParameterType        `json:"type"`
	DefaultValue *Value               `json:"default_value,omitempty"`
	Required     bool                 `json:"required"`
	Options      []string             `json:"options,omitempty"`
	Min          *float64             `json:"min,omitempty"`
	Max          *float64             `json:"max,omitempty"`
	Placeholder  string               `json:"placeholder,omitempty"`
	Description  string               `json:"description,omitempty"`
	Validation   *ParameterValidation `json:"validation,omitempty"`
}

type PromptTemplate struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description *string           `json:"description,omitempty"`
	BasePrompt  string            `json:"base_prompt"`
	Parameters  []PromptParameter `json:"parameters"`
	Model       string            `json:"model"`
	Tags        []string          `json:"tags"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (t PromptTemplate) Clone() PromptTemplate {
	t.Parameters = append([]PromptParameter{}, t.Parameters...)
	t.Tags = append([]string{}, t.Tags...)
	return t
}

// TemplateUsage is written when an applied template ends up as a saved photo.
type TemplateUsage struct {
	ID            string    `json:"id"`
	TemplateID    string    `json:"template_id"`
	PhotoID       *string   `json:"photo_id,omitempty"`
	PhotoURL      string    `json:"photo_url"`
	AppliedValues Values    `json:"applied_values"`
	CreatedAt     time.Time `json:"created_at"`
}

type TemplateStats struct {
	UsageCount int
	LastUsed   *time.Time
}

type ResolvedParameter struct {
	Name   string        `json:"name"`
	Type   ParameterType `json:"type"`
	Value  Value         `json:"value"`
	Source string        `json:"source"`
}

const (
	SourceSupplied = "supplied"
	SourceDefault  = "default"
)

type AppliedTemplate struct {
	TemplateID    string              `json:"template_id"`
	FinalPrompt   string              `json:"final_prompt"`
	Model         string              `json:"model"`
	Parameters    []ResolvedParameter `json:"parameters"`
	AppliedValues Values              `json:"applied_values"`
}

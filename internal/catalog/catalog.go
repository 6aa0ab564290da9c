// Package catalog loads the generation model catalog from TOML.
//
// The service ships with an embedded catalog. Deployments may point
// MODEL_CATALOG_PATH at their own file, which replaces it entirely.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"photo-studio-backend/internal/models"
)

//go:embed models.toml
var defaultCatalog []byte

// HumanBytes decodes human-readable sizes such as "25 MB".
type HumanBytes uint64

// UnmarshalText implements toml.TextUnmarshaler.
func (h *HumanBytes) UnmarshalText(text []byte) error {
	nbytes, err := humanize.ParseBytes(string(text))
	*h = HumanBytes(nbytes)
	return err
}

func (h HumanBytes) String() string {
	return humanize.Bytes(uint64(h))
}

// Duration decodes Go duration strings such as "12s".
type Duration time.Duration

// UnmarshalText implements toml.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	*d = Duration(v)
	return err
}

type fileFormat struct {
	MaxDownloadSize HumanBytes   `toml:"max_download_size"`
	Models          []modelEntry `toml:"model"`
}

type modelEntry struct {
	ID            string   `toml:"id"`
	Name          string   `toml:"name"`
	Description   string   `toml:"description"`
	Category      string   `toml:"category"`
	Status        string   `toml:"status"`
	Capabilities  []string `toml:"capabilities"`
	EstimatedTime Duration `toml:"estimated_time"`
	Pricing       struct {
		PerImage float64 `toml:"per_image"`
		Currency string  `toml:"currency"`
	} `toml:"pricing"`
	Limits struct {
		MaxWidth        int `toml:"max_width"`
		MaxHeight       int `toml:"max_height"`
		MaxPromptLength int `toml:"max_prompt_length"`
		MaxImages       int `toml:"max_images"`
	} `toml:"limits"`
	Parameters []parameterEntry `toml:"parameter"`
	Examples   []exampleEntry   `toml:"example"`
}

type parameterEntry struct {
	Name        string   `toml:"name"`
	Type        string   `toml:"type"`
	Required    bool     `toml:"required"`
	Default     any      `toml:"default"`
	Min         *float64 `toml:"min"`
	Max         *float64 `toml:"max"`
	Options     []string `toml:"options"`
	Description string   `toml:"description"`
}

type exampleEntry struct {
	Prompt     string         `toml:"prompt"`
	ImageURL   string         `toml:"image_url"`
	Parameters map[string]any `toml:"parameters"`
}

type Catalog struct {
	models          []models.ModelDetail
	byID            map[string]int
	maxDownloadSize HumanBytes
}

// Default returns the embedded catalog. It panics if the embedded file is
// malformed, which a test guards against.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded models.toml: %v", err))
	}
	return c
}

// Load reads the catalog at path from fs, or returns the embedded catalog
// when path is empty.
func Load(fs afero.Fs, path string) (*Catalog, error) {
	if path == "" {
		return Parse(defaultCatalog)
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func Parse(data []byte) (*Catalog, error) {
	var f fileFormat
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, fmt.Errorf("failed to decode model catalog: %w", err)
	}

	c := &Catalog{
		byID:            make(map[string]int, len(f.Models)),
		maxDownloadSize: f.MaxDownloadSize,
	}
	for i, entry := range f.Models {
		detail, err := entry.detail()
		if err != nil {
			return nil, fmt.Errorf("model %d (%q): %w", i, entry.ID, err)
		}
		if _, dup := c.byID[detail.ID]; dup {
			return nil, fmt.Errorf("model %q declared twice", detail.ID)
		}
		c.byID[detail.ID] = len(c.models)
		c.models = append(c.models, detail)
	}
	return c, nil
}

func (e modelEntry) detail() (models.ModelDetail, error) {
	if e.ID == "" {
		return models.ModelDetail{}, fmt.Errorf("id is required")
	}
	status := models.ModelStatus(e.Status)
	switch status {
	case "":
		status = models.ModelActive
	case models.ModelActive, models.ModelDeprecated, models.ModelMaintenance:
	default:
		return models.ModelDetail{}, fmt.Errorf("unknown status %q", e.Status)
	}

	d := models.ModelDetail{
		GenerationModel: models.GenerationModel{
			ID:               e.ID,
			Name:             e.Name,
			Description:      e.Description,
			Category:         e.Category,
			Pricing:          models.Pricing{PerImage: e.Pricing.PerImage, Currency: e.Pricing.Currency},
			Capabilities:     append([]string{}, e.Capabilities...),
			Status:           status,
			EstimatedSeconds: int(time.Duration(e.EstimatedTime).Round(time.Second) / time.Second),
		},
		Parameters: make([]models.ModelParameter, 0, len(e.Parameters)),
		Examples:   make([]models.ModelExample, 0, len(e.Examples)),
		Limits: models.ModelLimits{
			MaxWidth:        e.Limits.MaxWidth,
			MaxHeight:       e.Limits.MaxHeight,
			MaxPromptLength: e.Limits.MaxPromptLength,
			MaxImages:       e.Limits.MaxImages,
		},
	}

	seen := make(map[string]bool, len(e.Parameters))
	for _, p := range e.Parameters {
		param, err := p.parameter()
		if err != nil {
			return models.ModelDetail{}, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		if seen[param.Name] {
			return models.ModelDetail{}, fmt.Errorf("parameter %q declared twice", param.Name)
		}
		seen[param.Name] = true
		d.Parameters = append(d.Parameters, param)
	}

	for _, ex := range e.Examples {
		params, err := models.ValuesOf(ex.Parameters)
		if err != nil {
			return models.ModelDetail{}, fmt.Errorf("example %q: %w", ex.Prompt, err)
		}
		d.Examples = append(d.Examples, models.ModelExample{Prompt: ex.Prompt, Parameters: params, ImageURL: ex.ImageURL})
	}
	return d, nil
}

func (p parameterEntry) parameter() (models.ModelParameter, error) {
	if p.Name == "" {
		return models.ModelParameter{}, fmt.Errorf("name is required")
	}
	typ := models.ModelParameterType(p.Type)
	switch typ {
	case models.ModelParamString, models.ModelParamInteger, models.ModelParamFloat, models.ModelParamBoolean:
	case models.ModelParamEnum:
		if len(p.Options) == 0 {
			return models.ModelParameter{}, fmt.Errorf("enum requires options")
		}
	default:
		return models.ModelParameter{}, fmt.Errorf("unknown type %q", p.Type)
	}
	if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
		return models.ModelParameter{}, fmt.Errorf("min is greater than max")
	}

	param := models.ModelParameter{
		Name:        p.Name,
		Type:        typ,
		Required:    p.Required,
		Min:         p.Min,
		Max:         p.Max,
		Options:     append([]string(nil), p.Options...),
		Description: p.Description,
	}
	if p.Default != nil {
		v, err := models.ValueOf(p.Default)
		if err != nil {
			return models.ModelParameter{}, fmt.Errorf("default: %w", err)
		}
		param.Default = &v
	}
	return param, nil
}

// Models returns the catalog summaries sorted by id.
func (c *Catalog) Models() []models.GenerationModel {
	out := make([]models.GenerationModel, 0, len(c.models))
	for _, m := range c.models {
		out = append(out, m.GenerationModel)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Catalog) Model(id string) (models.ModelDetail, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.ModelDetail{}, false
	}
	return c.models[i], true
}

// MaxDownloadSize bounds how many bytes the image mirror reads from a
// provider URL. Zero means unbounded.
func (c *Catalog) MaxDownloadSize() int64 {
	return int64(c.maxDownloadSize)
}

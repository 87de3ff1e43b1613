package planning

import (
	"errors"
	"fmt"
	"strings"

	"kol-studio/internal/asset"
	"kol-studio/internal/catalog"
	"kol-studio/internal/prompt"
	"kol-studio/internal/variation"
)

var (
	ErrIdentityRequired = errors.New("a locked face is required to render row images")
	ErrRowOutOfRange    = errors.New("row index out of range")
)

type Post struct {
	Title   string `json:"title"`
	Caption string `json:"caption"`
}

// Overrides are the per-row image settings shown next to each calendar row.
type Overrides struct {
	Style                  prompt.Selection `json:"style"`
	Pose                   prompt.Selection `json:"pose"`
	CameraAngle            prompt.Selection `json:"cameraAngle"`
	AspectRatio            prompt.Selection `json:"aspectRatio"`
	AdditionalRequirements string           `json:"additionalRequirements,omitempty"`
}

// DefaultOverrides leaves every field to the model and uses the first
// aspect ratio of the catalog.
func DefaultOverrides() Overrides {
	ratios := catalog.Default().Options(catalog.Female, catalog.AspectRatio)
	ratio := ""
	if len(ratios) > 0 {
		ratio = ratios[0]
	}
	return Overrides{
		Style:       prompt.Selection{Choice: catalog.Auto},
		Pose:        prompt.Selection{Choice: catalog.Auto},
		CameraAngle: prompt.Selection{Choice: catalog.Auto},
		AspectRatio: prompt.Selection{Choice: ratio},
	}
}

func (o Overrides) Resolved() prompt.Resolved {
	return prompt.Selections{
		prompt.Style:                  o.Style,
		prompt.Pose:                   o.Pose,
		prompt.CameraAngle:            o.CameraAngle,
		prompt.AdditionalRequirements: {Choice: o.AdditionalRequirements},
	}.Resolve()
}

func (o Overrides) AspectRatioLabel() string {
	v, _ := prompt.Resolve(o.AspectRatio)
	return v
}

// RowState is the generation state shared by calendar rows and strategy
// items.
type RowState struct {
	GeneratedPost         *Post                `json:"generatedPost,omitempty"`
	GeneratedAssets       []asset.LibraryAsset `json:"generatedAssets,omitempty"`
	VariationResult       *variation.Result    `json:"variationResult,omitempty"`
	IsGeneratingPost      bool                 `json:"isGeneratingPost,omitempty"`
	IsGeneratingImages    bool                 `json:"isGeneratingImages,omitempty"`
	IsGeneratingVariation bool                 `json:"isGeneratingVariation,omitempty"`
}

// Row exposes the state of a board row.
type Row interface {
	State() *RowState
}

func (s *RowState) State() *RowState { return s }

type CalendarRow struct {
	Day                   string `json:"day"`
	ContentType           string `json:"contentType"`
	Description           string `json:"description"`
	CaptionTheme          string `json:"captionTheme"`
	ImagePromptSuggestion string `json:"imagePromptSuggestion"`

	Overrides Overrides `json:"overrides"`

	RowState
}

type StrategyItem struct {
	Stage                 string `json:"stage,omitempty"`
	Task                  string `json:"task"`
	Description           string `json:"description"`
	ImagePromptSuggestion string `json:"imagePromptSuggestion"`

	RowState
}

// Topic is what a post for this item is about.
func (s StrategyItem) Topic() string {
	if strings.TrimSpace(s.Description) != "" {
		return s.Description
	}
	return s.Task
}

// UpdateAt applies fn to a copy of rows[index] and returns a new slice,
// leaving the input untouched.
func UpdateAt[T any](rows []T, index int, fn func(*T)) ([]T, error) {
	if index < 0 || index >= len(rows) {
		return rows, fmt.Errorf("%w: %d", ErrRowOutOfRange, index)
	}
	out := append([]T(nil), rows...)
	fn(&out[index])
	return out, nil
}

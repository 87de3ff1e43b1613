package catalog

import (
	"fmt"
	"strings"
)

type Audience string

const (
	Female Audience = "female"
	Male   Audience = "male"
	Girl   Audience = "girl"
	Boy    Audience = "boy"
)

type Category string

const (
	BodyType      Category = "bodyType"
	Context       Category = "context"
	Clothing      Category = "clothing"
	Style         Category = "style"
	Pose          Category = "pose"
	CameraAngle   Category = "cameraAngle"
	AspectRatio   Category = "aspectRatio"
	SkinTone      Category = "skinTone"
	CalendarTopic Category = "calendarTopic"
)

const (
	Unchanged = "Không thay đổi"
	Auto      = "Tự động (AI Quyết định)"
	AutoShort = "Tự động"
	Custom    = "Tùy chỉnh..."
)

var audienceOrder = []Audience{Female, Male, Girl, Boy}

var audienceNames = map[Audience]string{
	Female: "KOL Nữ",
	Male:   "KOL Nam",
	Girl:   "KOL Bé gái",
	Boy:    "KOL Bé trai",
}

var categoryOrder = []Category{BodyType, Context, Clothing, Style, Pose, CameraAngle, AspectRatio, SkinTone, CalendarTopic}

type NamedOption struct {
	Key  string
	Name string
}

type Catalog struct {
	options map[Audience]map[Category][]string
}

func ParseAudience(value string) (Audience, error) {
	a := Audience(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := audienceNames[a]; !ok {
		return "", fmt.Errorf("unknown audience %q", value)
	}
	return a, nil
}

func ParseCategory(value string) (Category, error) {
	c := Category(strings.TrimSpace(value))
	for _, known := range categoryOrder {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", value)
}

// IsKid reports whether the audience is one of the child personas.
func (a Audience) IsKid() bool {
	return a == Girl || a == Boy
}

// Label is the Vietnamese subject phrase used in prompts.
func (a Audience) Label() string {
	switch a {
	case Male:
		return "một KOL nam"
	case Girl:
		return "một KOL bé gái"
	case Boy:
		return "một KOL bé trai"
	default:
		return "một KOL nữ"
	}
}

func Audiences() []NamedOption {
	out := make([]NamedOption, 0, len(audienceOrder))
	for _, a := range audienceOrder {
		out = append(out, NamedOption{Key: string(a), Name: audienceNames[a]})
	}
	return out
}

// Load builds a catalog from a raw audience → category → options table.
// Unknown keys and audiences missing a category are rejected here rather than at lookup time.
func Load(raw map[string]map[string][]string) (*Catalog, error) {
	c := &Catalog{options: make(map[Audience]map[Category][]string, len(raw))}
	for audKey, categories := range raw {
		aud, err := ParseAudience(audKey)
		if err != nil {
			return nil, err
		}
		byCat := make(map[Category][]string, len(categories))
		for catKey, opts := range categories {
			cat, err := ParseCategory(catKey)
			if err != nil {
				return nil, fmt.Errorf("audience %s: %w", aud, err)
			}
			if len(opts) == 0 {
				return nil, fmt.Errorf("audience %s: category %s is empty", aud, cat)
			}
			byCat[cat] = append([]string(nil), opts...)
		}
		c.options[aud] = byCat
	}

	for _, aud := range audienceOrder {
		byCat, ok := c.options[aud]
		if !ok {
			return nil, fmt.Errorf("audience %s missing", aud)
		}
		for _, cat := range categoryOrder {
			if _, ok := byCat[cat]; !ok {
				return nil, fmt.Errorf("audience %s: category %s missing", aud, cat)
			}
		}
	}
	return c, nil
}

func (c *Catalog) Options(a Audience, cat Category) []string {
	return append([]string(nil), c.options[a][cat]...)
}

// Contains reports whether value is a literal option of the category.
func (c *Catalog) Contains(a Audience, cat Category, value string) bool {
	for _, opt := range c.options[a][cat] {
		if opt == value {
			return true
		}
	}
	return false
}

// Schema returns every category with its options for one audience, in display order.
func (c *Catalog) Schema(a Audience, sentinels bool) map[Category][]string {
	out := make(map[Category][]string, len(categoryOrder))
	for _, cat := range categoryOrder {
		opts := c.Options(a, cat)
		if sentinels && cat != AspectRatio && cat != CalendarTopic {
			opts = WithSentinels(opts)
		}
		out[cat] = opts
	}
	return out
}

func WithSentinels(options []string) []string {
	out := make([]string, 0, len(options)+3)
	out = append(out, Unchanged, Auto, Custom)
	return append(out, options...)
}

func IsSentinel(value string) bool {
	switch value {
	case Unchanged, Auto, AutoShort, Custom:
		return true
	}
	return false
}

var defaultCatalog = mustLoad(builtin())

func Default() *Catalog {
	return defaultCatalog
}

func mustLoad(raw map[string]map[string][]string) *Catalog {
	c, err := Load(raw)
	if err != nil {
		panic(fmt.Sprintf("catalog: %v", err))
	}
	return c
}

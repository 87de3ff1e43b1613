package prompt

import (
	"strings"

	"kol-studio/internal/catalog"
)

// Selection is one selector value plus the text typed next to it when the
// custom sentinel is picked.
type Selection struct {
	Choice string `json:"choice"`
	Custom string `json:"custom,omitempty"`
}

// Resolve maps a selection to the value that goes into a prompt.
// ok is false when the field must be left out entirely.
func Resolve(sel Selection) (string, bool) {
	switch strings.TrimSpace(sel.Choice) {
	case catalog.Custom:
		return strings.TrimSpace(sel.Custom), true
	case "", catalog.Unchanged, catalog.Auto, catalog.AutoShort:
		return "", false
	default:
		return sel.Choice, true
	}
}

type Field string

const (
	BodyType               Field = "bodyType"
	Context                Field = "context"
	Style                  Field = "style"
	Clothing               Field = "clothing"
	Pose                   Field = "pose"
	CameraAngle            Field = "cameraAngle"
	AdditionalRequirements Field = "additionalRequirements"
)

var fieldOrder = []Field{BodyType, Context, Style, Clothing, Pose, CameraAngle, AdditionalRequirements}

var fieldLabels = map[Field]string{
	BodyType:               "Vóc dáng",
	Context:                "Bối cảnh",
	Style:                  "Phong cách",
	Clothing:               "Trang phục",
	Pose:                   "Tư thế",
	CameraAngle:            "Góc chụp & Khung hình",
	AdditionalRequirements: "Yêu cầu thêm",
}

func Fields() []Field {
	return append([]Field(nil), fieldOrder...)
}

func (f Field) Label() string {
	return fieldLabels[f]
}

func (f Field) Valid() bool {
	_, ok := fieldLabels[f]
	return ok
}

type Selections map[Field]Selection

// Resolved holds only the fields that survived resolution.
type Resolved map[Field]string

// Resolve drops unchanged/auto fields. Additional requirements are free text
// and are kept when non-blank.
func (s Selections) Resolve() Resolved {
	out := make(Resolved, len(s))
	for field, sel := range s {
		if !field.Valid() {
			continue
		}
		if field == AdditionalRequirements && !isSentinelChoice(sel.Choice) {
			if v := strings.TrimSpace(sel.Choice); v != "" {
				out[field] = v
			}
			continue
		}
		if v, ok := Resolve(sel); ok {
			out[field] = v
		}
	}
	return out
}

func isSentinelChoice(choice string) bool {
	return catalog.IsSentinel(strings.TrimSpace(choice))
}

// Map flattens the resolved set for storage next to a recorded prompt.
func (r Resolved) Map() map[string]string {
	if len(r) == 0 {
		return nil
	}
	out := make(map[string]string, len(r))
	for f, v := range r {
		if strings.TrimSpace(v) != "" {
			out[string(f)] = v
		}
	}
	return out
}

// Compose renders the resolved fields as "- <Label>: <value>." lines in the
// fixed field order. An all-empty set composes to "".
func Compose(r Resolved) string {
	return ComposeExcept(r)
}

func ComposeExcept(r Resolved, skip ...Field) string {
	lines := make([]string, 0, len(fieldOrder))
	for _, f := range fieldOrder {
		if containsField(skip, f) {
			continue
		}
		v := strings.TrimSpace(r[f])
		if v == "" {
			continue
		}
		lines = append(lines, "- "+fieldLabels[f]+": "+v+".")
	}
	return strings.Join(lines, "\n")
}

func containsField(fields []Field, f Field) bool {
	for _, x := range fields {
		if x == f {
			return true
		}
	}
	return false
}

package asset

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

type Type string

const (
	TypeKOL        Type = "kol"
	TypeOutfit     Type = "outfit"
	TypeBackground Type = "background"
	TypeVideo      Type = "video"
)

// LockedFace is a reference image copied by value wherever it is passed.
// It serves both as the identity anchor and as a generic outfit/background/pose reference.
type LockedFace struct {
	Base64   string `json:"base64" validate:"required"`
	MimeType string `json:"mimeType" validate:"required"`
}

type Caption struct {
	VI string `json:"vi"`
	EN string `json:"en"`
}

type LibraryAsset struct {
	ID          string            `json:"id"`
	Src         string            `json:"src"`
	VideoSrc    string            `json:"videoSrc,omitempty"`
	Caption     *Caption          `json:"caption,omitempty"`
	Prompt      string            `json:"prompt"`
	InputImages []LockedFace      `json:"inputImages,omitempty"`
	Type        Type              `json:"type,omitempty"`
	Options     map[string]string `json:"options,omitempty"`
	BlogTitle   string            `json:"blogTitle,omitempty"`
	BlogContent string            `json:"blogContent,omitempty"`
	// RawPrompt marks a prompt sent to the model without a creative brief.
	RawPrompt   bool              `json:"rawPrompt,omitempty"`

	IsRegenerating        bool `json:"isRegenerating,omitempty"`
	IsGeneratingVariation bool `json:"isGeneratingVariation,omitempty"`
}

var ErrVideoWithoutSource = errors.New("asset with videoSrc must have a source image")

// Kind is the declared type, or video when videoSrc is set, or kol.
func (a LibraryAsset) Kind() Type {
	if a.Type != "" {
		return a.Type
	}
	if a.VideoSrc != "" {
		return TypeVideo
	}
	return TypeKOL
}

func (a LibraryAsset) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return errors.New("asset id is empty")
	}
	if a.VideoSrc != "" && strings.TrimSpace(a.Src) == "" {
		return ErrVideoWithoutSource
	}
	return nil
}

// WithoutTransient drops UI progress markers.
func (a LibraryAsset) WithoutTransient() LibraryAsset {
	a.IsRegenerating = false
	a.IsGeneratingVariation = false
	return a
}

func NewID(prefix string, ts time.Time, index int) string {
	return fmt.Sprintf("%s_%d_%d", prefix, ts.UnixMilli(), index)
}

func NewStampID(prefix string, ts time.Time) string {
	return fmt.Sprintf("%s_%d", prefix, ts.UnixMilli())
}

var imageMimeRegex = regexp.MustCompile(`^data:(image/[^;]+);`)

const defaultMime = "image/png"

// FromDataURL splits an image data URL into a reference image.
// Values without a data: prefix are taken as raw base64 PNG.
func FromDataURL(src string) (LockedFace, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return LockedFace{}, errors.New("empty image source")
	}

	mime := defaultMime
	if m := imageMimeRegex.FindStringSubmatch(src); len(m) == 2 {
		mime = m[1]
	}

	data := src
	if strings.HasPrefix(src, "data:") {
		idx := strings.IndexByte(src, ',')
		if idx < 0 {
			return LockedFace{}, errors.New("invalid data url")
		}
		data = src[idx+1:]
	}
	if data == "" {
		return LockedFace{}, errors.New("empty image payload")
	}

	return LockedFace{Base64: data, MimeType: mime}, nil
}

func (f LockedFace) DataURL() string {
	mime := f.MimeType
	if mime == "" {
		mime = defaultMime
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, f.Base64)
}

func (f LockedFace) Bytes() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(f.Base64)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return b, nil
}

func (f LockedFace) IsZero() bool {
	return f.Base64 == ""
}

func (f LockedFace) SamePayload(other LockedFace) bool {
	return f.Base64 == other.Base64
}

func FromBytes(data []byte, mime string) LockedFace {
	if mime == "" {
		mime = defaultMime
	}
	return LockedFace{Base64: base64.StdEncoding.EncodeToString(data), MimeType: mime}
}

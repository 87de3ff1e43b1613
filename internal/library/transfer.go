package library

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/webp"

	"kol-studio/internal/asset"
)

const (
	ExportFileName  = "kol-builder-library.json"
	ArchiveFileName = "kol-builder-library.zip"
)

var validate = validator.New()

// ImportError describes why an import payload was rejected. Index is -1
// when the payload as a whole is malformed.
type ImportError struct {
	Index  int
	Reason string
}

func (e *ImportError) Error() string {
	if e.Index < 0 {
		return "invalid library file: " + e.Reason
	}
	return fmt.Sprintf("invalid library item %d: %s", e.Index, e.Reason)
}

// importShape only checks key presence; values may be empty strings.
type importShape struct {
	ID     *string `json:"id" validate:"required"`
	Src    *string `json:"src" validate:"required"`
	Prompt *string `json:"prompt" validate:"required"`
}

// ParseImport accepts a JSON array whose every element carries id, src and
// prompt. Any invalid element rejects the whole payload.
func ParseImport(payload []byte) (Library, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &ImportError{Index: -1, Reason: "expected a JSON array"}
	}

	out := make(Library, 0, len(raw))
	for i, item := range raw {
		var shape importShape
		if err := json.Unmarshal(item, &shape); err != nil {
			return nil, &ImportError{Index: i, Reason: "expected an object"}
		}
		if err := validate.Struct(shape); err != nil {
			return nil, &ImportError{Index: i, Reason: "missing id, src or prompt"}
		}
		var a asset.LibraryAsset
		if err := json.Unmarshal(item, &a); err != nil {
			return nil, &ImportError{Index: i, Reason: err.Error()}
		}
		out = append(out, a.WithoutTransient())
	}
	return out, nil
}

func ExportJSON(lib Library) ([]byte, error) {
	if lib == nil {
		lib = Library{}
	}
	return json.MarshalIndent(lib, "", "  ")
}

// ExportZIP writes one image_<n>_<id>.png entry per asset. WebP and JPEG
// payloads are re-encoded as PNG.
func ExportZIP(w io.Writer, lib Library) error {
	zw := zip.NewWriter(w)
	for i, a := range lib {
		img, err := asset.FromDataURL(a.Src)
		if err != nil {
			zw.Close()
			return fmt.Errorf("asset %s: %w", a.ID, err)
		}
		data, err := img.Bytes()
		if err != nil {
			zw.Close()
			return fmt.Errorf("asset %s: %w", a.ID, err)
		}
		data, err = toPNG(data, img.MimeType)
		if err != nil {
			zw.Close()
			return fmt.Errorf("asset %s: %w", a.ID, err)
		}

		f, err := zw.Create(fmt.Sprintf("image_%d_%s.png", i+1, a.ID))
		if err != nil {
			zw.Close()
			return fmt.Errorf("zip entry: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			zw.Close()
			return fmt.Errorf("zip write: %w", err)
		}
	}
	return zw.Close()
}

func toPNG(data []byte, mime string) ([]byte, error) {
	var (
		img image.Image
		err error
	)
	switch mime {
	case "image/webp":
		img, err = webp.Decode(bytes.NewReader(data), &decoder.Options{})
	case "image/jpeg", "image/jpg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	default:
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", mime, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

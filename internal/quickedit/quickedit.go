package quickedit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"kol-studio/internal/asset"
	"kol-studio/internal/prompt"
)

var (
	ErrMultipleEdits = errors.New("only one kind of edit is allowed per request")
	ErrNoEdit        = errors.New("no edit requested")
)

type Kind string

const (
	KindColor    Kind = "color"
	KindOutfit   Kind = "outfit"
	KindPose     Kind = "pose"
	KindFreeform Kind = "freeform"
)

type Request struct {
	Color    string           `json:"color,omitempty"`
	Outfit   prompt.Selection `json:"outfit"`
	Pose     prompt.Selection `json:"pose"`
	Freeform string           `json:"freeform,omitempty"`
}

// Instruction returns the single exclusive edit imperative for r.
func (r Request) Instruction() (Kind, string, error) {
	type edit struct {
		kind  Kind
		value string
	}
	var active []edit
	if v := strings.TrimSpace(r.Color); v != "" {
		active = append(active, edit{KindColor, v})
	}
	if v, ok := prompt.Resolve(r.Outfit); ok && v != "" {
		active = append(active, edit{KindOutfit, v})
	}
	if v, ok := prompt.Resolve(r.Pose); ok && v != "" {
		active = append(active, edit{KindPose, v})
	}
	if v := strings.TrimSpace(r.Freeform); v != "" {
		active = append(active, edit{KindFreeform, v})
	}

	switch {
	case len(active) > 1:
		return "", "", ErrMultipleEdits
	case len(active) == 0:
		return "", "", ErrNoEdit
	}

	e := active[0]
	switch e.kind {
	case KindColor:
		return e.kind, fmt.Sprintf("YÊU CẦU: Chỉ thay đổi MÀU SẮC của trang phục thành '%s'. Giữ nguyên mọi thứ khác.\n**CHÚ Ý QUAN TRỌNG:** Nếu trong ảnh có gương hoặc bề mặt phản chiếu, hãy đảm bảo màu sắc của trang phục trong hình ảnh phản chiếu cũng được thay đổi một cách nhất quán.", e.value), nil
	case KindOutfit:
		return e.kind, fmt.Sprintf("YÊU CẦU: Chỉ thay đổi TRANG PHỤC thành '%s'. Giữ nguyên mọi thứ khác.", e.value), nil
	case KindPose:
		return e.kind, fmt.Sprintf("YÊU CẦU: Chỉ thay đổi TƯ THẾ của nhân vật thành '%s'. Giữ nguyên mọi thứ khác.", e.value), nil
	default:
		return e.kind, fmt.Sprintf("YÊU CẦU: %s. Giữ nguyên mọi thứ khác càng nhiều càng tốt.", e.value), nil
	}
}

type Editor interface {
	EditImage(ctx context.Context, instruction string, image asset.LockedFace) (string, error)
}

type Options struct {
	Editor Editor
	Logger *slog.Logger
	Now    func() time.Time
}

type Orchestrator struct {
	editor Editor
	logger *slog.Logger
	now    func() time.Time
}

func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{editor: opts.Editor, logger: logger, now: now}
}

// Edit validates req before any network call and returns the derived asset.
func (o *Orchestrator) Edit(ctx context.Context, source asset.LibraryAsset, req Request) (asset.LibraryAsset, error) {
	kind, instruction, err := req.Instruction()
	if err != nil {
		return asset.LibraryAsset{}, err
	}
	image, err := asset.FromDataURL(source.Src)
	if err != nil {
		return asset.LibraryAsset{}, fmt.Errorf("source image: %w", err)
	}

	src, err := o.editor.EditImage(ctx, instruction, image)
	if err != nil {
		return asset.LibraryAsset{}, err
	}
	o.logger.Info("quick edit applied", "source_id", source.ID, "kind", kind)

	derived := source.WithoutTransient()
	derived.ID = asset.NewStampID("edit_"+source.ID, o.now())
	derived.Src = src
	derived.Prompt = fmt.Sprintf("Chỉnh sửa: \"%s\"\n---\nPrompt gốc:\n%s", instruction, source.Prompt)
	derived.InputImages = []asset.LockedFace{image}
	return derived, nil
}

// ReplaceInLibrary puts derived in front and drops the original.
func ReplaceInLibrary(lib []asset.LibraryAsset, originalID string, derived asset.LibraryAsset) []asset.LibraryAsset {
	out := make([]asset.LibraryAsset, 0, len(lib)+1)
	out = append(out, derived)
	for _, a := range lib {
		if a.ID != originalID && a.ID != derived.ID {
			out = append(out, a)
		}
	}
	return out
}

// ReplaceInList swaps the original in place and keeps its id, so per-row
// state keyed by id stays attached.
func ReplaceInList(list []asset.LibraryAsset, originalID string, derived asset.LibraryAsset) ([]asset.LibraryAsset, bool) {
	out := make([]asset.LibraryAsset, len(list))
	copy(out, list)
	for i, a := range out {
		if a.ID == originalID {
			derived.ID = originalID
			out[i] = derived
			return out, true
		}
	}
	return out, false
}

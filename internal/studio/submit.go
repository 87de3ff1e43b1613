package studio

import (
	"context"
	"fmt"
	"strings"

	"kol-studio/internal/asset"
	"kol-studio/internal/catalog"
	"kol-studio/internal/gemini"
	"kol-studio/internal/prompt"
	"kol-studio/internal/session"
)

type Mode string

const (
	ModeCreative  Mode = "creative"
	ModePro       Mode = "pro"
	ModeOutfit    Mode = "outfit"
	ModeTransform Mode = "transform"
	ModePose      Mode = "pose"
	ModeTravel    Mode = "travel"
)

func ParseMode(value string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(value))); m {
	case "":
		return ModeCreative, nil
	case ModeCreative, ModePro, ModeOutfit, ModeTransform, ModePose, ModeTravel:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q", value)
}

type Landmark struct {
	Name   string           `json:"name"`
	Outfit prompt.Selection `json:"outfit"`
	Pose   prompt.Selection `json:"pose"`
	Count  int              `json:"count"`
}

type SubmitRequest struct {
	Mode        Mode              `json:"mode"`
	Selections  prompt.Selections `json:"selections,omitempty"`
	AspectRatio prompt.Selection  `json:"aspectRatio"`
	Count       int               `json:"count"`
	Model       string            `json:"model,omitempty"`

	// CustomPrompt overrides the workspace prompt when set.
	CustomPrompt string `json:"customPrompt,omitempty"`

	MagazineCover      bool              `json:"magazineCover,omitempty"`
	OutfitInstructions string            `json:"outfitInstructions,omitempty"`
	Instruction        string            `json:"instruction,omitempty"`
	Source             *asset.LockedFace `json:"source,omitempty"`
	PoseReference      *asset.LockedFace `json:"poseReference,omitempty"`
	PoseDescription    string            `json:"poseDescription,omitempty"`
	Location           string            `json:"location,omitempty"`
	Landmarks          []Landmark        `json:"landmarks,omitempty"`
}

// job is one image call of a batch.
type job struct {
	prompt   string
	identity *asset.LockedFace
	refs     []asset.LockedFace
	count    int
}

func (j job) inputs() []asset.LockedFace {
	return gemini.ImageRequest{Identity: j.identity, References: j.refs}.Images()
}

// Submit runs the owner's one cancellable generation batch. A cancelled
// batch returns an error matching gemini.ErrCancelled and leaves the
// workspace error empty. Loading is cleared on every path by the batch
// that is current when it finishes; a batch replaced by a newer Submit for
// the same owner leaves Loading, Error and Generated untouched.
func (s *Studio) Submit(ctx context.Context, owner string, req SubmitRequest) (session.Workspace, error) {
	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return session.Workspace{}, err
	}

	ctx, b, done := s.begin(ctx, owner)
	defer done()

	ws := s.sessions.Update(owner, func(w *session.Workspace) {
		w.Loading = true
		w.Error = ""
		w.Generated = nil
		w.PendingVariation = nil
	})

	generated, err := s.runSubmit(ctx, ws, mode, req)

	superseded := false
	ws = s.sessions.Update(owner, func(w *session.Workspace) {
		// A superseded batch leaves the workspace to the one that replaced it.
		if !s.current(owner, b) {
			superseded = true
			return
		}
		w.Loading = false
		if err != nil {
			w.Error = errorText(err)
			return
		}
		w.Generated = generated
		if mode == ModePro && w.LockedFace == nil && len(generated) > 0 {
			if face, ferr := asset.FromDataURL(generated[0].Src); ferr == nil {
				w.LockedFace = &face
			}
		}
	})
	if superseded && err == nil {
		err = gemini.ErrCancelled
	}
	if err != nil {
		if IsCancelled(err) {
			if !gemini.IsCancelled(err) {
				err = fmt.Errorf("%w: %w", gemini.ErrCancelled, err)
			}
			return ws, err
		}
		s.logger.Error("generation failed", "owner", owner, "mode", mode, "err", err)
		return ws, err
	}

	s.logger.Info("generation finished", "owner", owner, "mode", mode, "images", len(generated))
	return ws, nil
}

func (s *Studio) runSubmit(ctx context.Context, ws session.Workspace, mode Mode, req SubmitRequest) ([]asset.LibraryAsset, error) {
	resolved := req.Selections.Resolve()
	creatingKOL := mode == ModePro && ws.LockedFace == nil

	jobs, err := buildJobs(ws, mode, req, resolved)
	if err != nil {
		return nil, err
	}
	briefFields := resolved
	if mode == ModeTravel {
		briefFields = make(prompt.Resolved, len(resolved))
		for f, v := range resolved {
			if f != prompt.Context && f != prompt.Clothing && f != prompt.Pose {
				briefFields[f] = v
			}
		}
	}

	model := gemini.ImageModel(req.Model)
	ratio, _ := prompt.Resolve(req.AspectRatio)
	ts := s.now()

	var out []asset.LibraryAsset
	for _, j := range jobs {
		if strings.TrimSpace(j.prompt) == "" {
			return nil, gemini.ErrEmptyPrompt
		}
		count := j.count
		if count < 1 {
			count = req.Count
		}

		images, err := s.images.GenerateImages(ctx, gemini.ImageRequest{
			Instruction: prompt.Brief(prompt.BriefOptions{
				Prompt:         j.prompt,
				Audience:       ws.Audience,
				SkinTone:       ws.SkinTone,
				Resolved:       briefFields,
				IdentityLocked: j.identity != nil,
				CreatingKOL:    creatingKOL,
			}),
			Identity:    j.identity,
			References:  j.refs,
			Count:       gemini.EffectiveCount(model, count),
			AspectRatio: ratio,
			Model:       model,
		})
		if err != nil {
			return nil, err
		}

		inputs := j.inputs()
		for _, src := range images {
			out = append(out, asset.LibraryAsset{
				ID:          asset.NewID(string(mode), ts, len(out)),
				Src:         src,
				Prompt:      j.prompt,
				InputImages: inputs,
				Type:        asset.TypeKOL,
				Options:     resolved.Map(),
				RawPrompt:   creatingKOL,
			})
		}
	}
	return out, nil
}

func buildJobs(ws session.Workspace, mode Mode, req SubmitRequest, resolved prompt.Resolved) ([]job, error) {
	face := ws.LockedFace
	custom := strings.TrimSpace(req.CustomPrompt)
	if custom == "" {
		custom = strings.TrimSpace(ws.CustomPrompt)
	}
	composed := custom
	if composed == "" {
		composed = prompt.Compose(resolved)
	}

	switch mode {
	case ModeCreative:
		j := job{prompt: composed, identity: face}
		if ws.BackgroundRef != nil {
			j.refs = append(j.refs, *ws.BackgroundRef)
		}
		return []job{j}, nil

	case ModePro:
		if face == nil {
			p := "Tạo một KOL ảo là " + ws.Audience.Label() + "."
			if rest := prompt.ComposeExcept(resolved, prompt.BodyType, prompt.Clothing, prompt.Pose); rest != "" {
				p += "\n**Bối cảnh & Phong cách:** " + rest
			}
			return []job{{prompt: p}}, nil
		}
		j := job{prompt: composed, identity: face}
		if ws.BackgroundRef != nil {
			j.refs = append(j.refs, *ws.BackgroundRef)
		}
		if len(ws.OutfitRefs) > 0 {
			j.refs = append(j.refs, ws.OutfitRefs[0])
		}
		if req.MagazineCover && j.prompt != "" {
			j.prompt += "\n- **Yêu cầu bìa tạp chí:** Bố cục như bìa tạp chí thời trang cao cấp (Vogue, Harper's Bazaar). Có không gian trống để thêm tiêu đề và văn bản."
		}
		return []job{j}, nil

	case ModeOutfit:
		if len(ws.OutfitRefs) == 0 {
			return nil, ErrOutfitRequired
		}
		p := "**Yêu cầu:** Mặc cho người mẫu bộ trang phục được cung cấp trong ảnh thứ hai. Giữ nguyên gương mặt từ ảnh đầu tiên."
		if extra := strings.TrimSpace(req.OutfitInstructions); extra != "" {
			p += " " + extra
		}
		return []job{{prompt: p, identity: face, refs: append([]asset.LockedFace(nil), ws.OutfitRefs...)}}, nil

	case ModeTransform:
		if req.Source == nil || req.Source.IsZero() {
			return nil, ErrSourceRequired
		}
		instr := strings.TrimSpace(req.Instruction)
		if instr == "" {
			return nil, ErrInstruction
		}
		return []job{{prompt: instr, refs: []asset.LockedFace{*req.Source}}}, nil

	case ModePose:
		if req.Source == nil || req.Source.IsZero() {
			return nil, ErrSourceRequired
		}
		desc := strings.TrimSpace(req.PoseDescription)
		hasRef := req.PoseReference != nil && !req.PoseReference.IsZero()
		if !hasRef && desc == "" {
			return nil, ErrInstruction
		}
		p := "YÊU CẦU: Giữ nguyên 100% gương mặt, trang phục, và bối cảnh từ ảnh gốc (ảnh 1). Chỉ thay đổi tư thế của nhân vật."
		refs := []asset.LockedFace{*req.Source}
		if hasRef {
			p += "\n- **Tham khảo tư thế:** Hãy khớp với tư thế của nhân vật trong ảnh tham khảo (ảnh 2)."
			refs = append(refs, *req.PoseReference)
		}
		if desc != "" {
			p += "\n- **Mô tả tư thế mong muốn:** " + desc + "."
		}
		return []job{{prompt: p, refs: refs}}, nil

	case ModeTravel:
		if face == nil {
			return nil, ErrFaceRequired
		}
		return travelJobs(ws.Audience, face, req)
	}
	return nil, fmt.Errorf("unknown mode %q", mode)
}

// travelJobs groups landmarks that render to the same prompt into one call.
func travelJobs(a catalog.Audience, face *asset.LockedFace, req SubmitRequest) ([]job, error) {
	var jobs []job
	index := make(map[string]int)
	for _, l := range req.Landmarks {
		name := strings.TrimSpace(l.Name)
		if name == "" {
			continue
		}
		outfit, _ := prompt.Resolve(l.Outfit)
		if outfit == "" {
			outfit = "trang phục phù hợp với địa điểm"
		}
		pose, _ := prompt.Resolve(l.Pose)
		if pose == "" {
			pose = "tư thế tự nhiên"
		}
		count := l.Count
		if count < 1 {
			count = 1
		}

		p := fmt.Sprintf("**Chủ thể:** %s.\n**Bối cảnh:** Tại %s, %s.\n**Trang phục:** %s.\n**Tư thế:** %s.",
			a.Label(), name, strings.TrimSpace(req.Location), outfit, pose)
		if i, ok := index[p]; ok {
			jobs[i].count += count
			continue
		}
		index[p] = len(jobs)
		jobs = append(jobs, job{prompt: p, identity: face, count: count})
	}
	if len(jobs) == 0 {
		return nil, ErrLandmarksRequired
	}
	return jobs, nil
}

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
	"kol-studio/internal/veo"
)

// OpenVeo starts the video flow for an image asset.
func (s *Studio) OpenVeo(ctx context.Context, owner, id string) (session.Workspace, error) {
	a, _, err := s.locate(ctx, owner, id)
	if err != nil {
		return session.Workspace{}, err
	}
	a = a.WithoutTransient()
	return s.sessions.Update(owner, func(w *session.Workspace) {
		w.Veo = session.VeoState{Open: true, Source: &a}
	}), nil
}

func (s *Studio) CloseVeo(owner string) session.Workspace {
	return s.sessions.Update(owner, func(w *session.Workspace) {
		w.Veo = session.VeoState{}
	})
}

// VeoPrompts fills the four suggested video prompts for idea.
func (s *Studio) VeoPrompts(owner, idea string) ([]prompt.VeoPrompt, error) {
	ws := s.sessions.Get(owner)
	if ws.Veo.Source == nil {
		return nil, ErrNoVideoSource
	}
	prompts := prompt.VeoPrompts(idea)
	s.sessions.Update(owner, func(w *session.Workspace) {
		w.Veo.Prompts = prompts
	})
	return prompts, nil
}

// GenerateVideo renders the open video source with text.
func (s *Studio) GenerateVideo(ctx context.Context, owner, text string, cfg veo.Config) (veo.Video, error) {
	ws := s.sessions.Get(owner)
	if ws.Veo.Source == nil {
		return veo.Video{}, ErrNoVideoSource
	}
	image, err := asset.FromDataURL(ws.Veo.Source.Src)
	if err != nil {
		return veo.Video{}, fmt.Errorf("video source: %w", err)
	}

	s.sessions.Update(owner, func(w *session.Workspace) {
		w.Veo.Generating = true
		w.Veo.Error = ""
		w.Veo.VideoSrc = ""
		w.Veo.VideoPrompt = text
	})

	video, err := s.video.Generate(ctx, text, image, cfg)
	s.sessions.Update(owner, func(w *session.Workspace) {
		w.Veo.Generating = false
		if err != nil {
			w.Veo.Error = errorText(err)
			return
		}
		w.Veo.VideoSrc = video.DataURL()
	})
	if err != nil {
		s.logger.Error("video generation failed", "owner", owner, "err", err)
		return veo.Video{}, err
	}
	return video, nil
}

// SaveVideo stores the rendered clip with its source image.
func (s *Studio) SaveVideo(ctx context.Context, owner string) (asset.LibraryAsset, error) {
	ws := s.sessions.Get(owner)
	if ws.Veo.VideoSrc == "" || ws.Veo.Source == nil {
		return asset.LibraryAsset{}, ErrNoVideo
	}
	a := asset.LibraryAsset{
		ID:       asset.NewStampID("vid", s.now()),
		Src:      ws.Veo.Source.Src,
		VideoSrc: ws.Veo.VideoSrc,
		Prompt:   ws.Veo.VideoPrompt,
		Type:     asset.TypeVideo,
	}
	if _, err := s.library.Save(ctx, owner, a); err != nil {
		return asset.LibraryAsset{}, err
	}
	s.sessions.Update(owner, func(w *session.Workspace) {
		w.Veo.VideoSrc = ""
		w.Veo.VideoPrompt = ""
	})
	return a, nil
}

// KOLName asks for a persona name and stores it in the profile.
func (s *Studio) KOLName(ctx context.Context, owner string) (string, error) {
	ws := s.sessions.Get(owner)
	kind := "nhí"
	switch ws.Audience {
	case catalog.Female:
		kind = "nữ"
	case catalog.Male:
		kind = "nam"
	}
	name, err := s.text.GenerateText(ctx, gemini.TextRequest{
		Model:  gemini.ModelTextFast,
		Prompt: fmt.Sprintf("Tạo một tên KOL %s độc đáo, dễ nhớ, phù hợp với thị trường Việt Nam. Chỉ trả về 1 cái tên duy nhất.", kind),
	})
	if err != nil {
		return "", err
	}
	if name = strings.TrimSpace(name); name == "" {
		name = "KOL"
	}
	s.sessions.Update(owner, func(w *session.Workspace) {
		w.KOLName = name
	})
	return name, nil
}

// RichPrompt rewrites the composed selections into a detailed prompt and
// stores it as the workspace prompt.
func (s *Studio) RichPrompt(ctx context.Context, owner string, sel prompt.Selections) (string, error) {
	ws := s.sessions.Get(owner)
	base := prompt.SuggestionBase(ws.Audience, sel.Resolve())
	rich, err := s.text.GenerateText(ctx, gemini.TextRequest{
		Model:  gemini.ModelTextFast,
		Prompt: fmt.Sprintf("Hãy đóng vai một nhiếp ảnh gia chuyên nghiệp. Viết lại prompt sau chi tiết hơn, mô tả ánh sáng, góc máy, mood ảnh để tạo ra bức ảnh đẹp nhất: \"%s\"", base),
	})
	if err != nil {
		return "", err
	}
	if rich = strings.TrimSpace(rich); rich == "" {
		rich = base
	}
	s.sessions.Update(owner, func(w *session.Workspace) {
		w.CustomPrompt = rich
	})
	return rich, nil
}

type PromptFromImageOptions struct {
	CopyHairColor bool `json:"copyHairColor,omitempty"`
	CopyHairStyle bool `json:"copyHairStyle,omitempty"`
	RemoveTattoo  bool `json:"removeTattoo,omitempty"`
}

// PromptFromImage describes a sample photo as a generation prompt.
func (s *Studio) PromptFromImage(ctx context.Context, image asset.LockedFace, opts PromptFromImageOptions) (string, error) {
	if image.IsZero() {
		return "", ErrSourceRequired
	}
	p := "Mô tả chi tiết bức ảnh này để dùng làm prompt tạo ảnh (image generation prompt). Tập trung vào ánh sáng, phong cách nhiếp ảnh, tư thế, và trang phục."
	if opts.CopyHairColor {
		p += " Ghi chú rõ màu tóc."
	}
	if opts.CopyHairStyle {
		p += " Ghi chú rõ kiểu tóc."
	}
	if opts.RemoveTattoo {
		p += " Lưu ý: Nếu nhân vật có hình xăm, hãy bỏ qua chi tiết đó trong mô tả."
	}
	return s.text.GenerateText(ctx, gemini.TextRequest{
		Model:  gemini.ModelTextPro,
		Prompt: p,
		Images: []asset.LockedFace{image},
	})
}

// ExtractOutfit isolates the outfit of a photo on a white background. The
// result becomes the first outfit reference of the workspace.
func (s *Studio) ExtractOutfit(ctx context.Context, owner string, image asset.LockedFace) (asset.LibraryAsset, error) {
	if image.IsZero() {
		return asset.LibraryAsset{}, ErrSourceRequired
	}
	src, err := s.images.EditImage(ctx, "Tách riêng bộ trang phục trong ảnh này và đặt trên nền trắng. Giữ nguyên chi tiết, chất liệu và màu sắc. Loại bỏ người mẫu và bối cảnh.", image)
	if err != nil {
		return asset.LibraryAsset{}, err
	}
	outfit, err := asset.FromDataURL(src)
	if err != nil {
		return asset.LibraryAsset{}, err
	}
	s.sessions.Update(owner, func(w *session.Workspace) {
		w.OutfitRefs = prependUnique(w.OutfitRefs, outfit)
	})
	return asset.LibraryAsset{
		ID:     asset.NewStampID("outfit", s.now()),
		Src:    src,
		Prompt: "Trang phục được tách từ ảnh",
		Type:   asset.TypeOutfit,
	}, nil
}

// ExtractBackground removes the people from a photo and keeps the scene.
func (s *Studio) ExtractBackground(ctx context.Context, image asset.LockedFace) (asset.LibraryAsset, error) {
	if image.IsZero() {
		return asset.LibraryAsset{}, ErrSourceRequired
	}
	src, err := s.images.EditImage(ctx, "Loại bỏ nhân vật khỏi bức ảnh này. Giữ nguyên bối cảnh và lấp đầy khoảng trống một cách tự nhiên (inpainting/background removal).", image)
	if err != nil {
		return asset.LibraryAsset{}, err
	}
	return asset.LibraryAsset{
		ID:     asset.NewStampID("bg", s.now()),
		Src:    src,
		Prompt: "Bối cảnh được tách từ ảnh",
		Type:   asset.TypeBackground,
	}, nil
}

// Landmarks lists photo spots for a location. An unparseable reply yields an
// empty list.
func (s *Studio) Landmarks(ctx context.Context, location string) ([]string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return []string{}, nil
	}
	text, err := s.text.GenerateText(ctx, gemini.TextRequest{
		Model:  gemini.ModelTextFast,
		Prompt: fmt.Sprintf("Liệt kê 5 địa danh nổi tiếng nhất để chụp ảnh check-in tại %s. Trả về dưới dạng danh sách JSON array string ([\"Địa điểm 1\", \"Địa điểm 2\",...]).", location),
		JSON:   true,
	})
	if err != nil {
		return nil, err
	}
	var out []string
	if err := gemini.DecodeJSON(text, &out); err != nil {
		s.logger.Warn("landmark reply not parseable", "location", location, "err", err)
		return []string{}, nil
	}
	return out, nil
}

type CaptionLength string

const (
	CaptionShort  CaptionLength = "short"
	CaptionMedium CaptionLength = "medium"
	CaptionLong   CaptionLength = "long"
)

type CaptionRequest struct {
	Image  *asset.LockedFace `json:"image,omitempty"`
	Topic  string            `json:"topic"`
	Length CaptionLength     `json:"length"`
	Tone   prompt.Selection  `json:"tone"`
	CTA    string            `json:"cta,omitempty"`
}

type CaptionPair struct {
	Vietnamese string `json:"vietnamese"`
	English    string `json:"english"`
}

type CaptionSet struct {
	Captions              []CaptionPair `json:"captions"`
	HashtagBank           []string      `json:"hashtagBank"`
	ImagePromptSuggestion string        `json:"imagePromptSuggestion"`
}

// Captions writes three bilingual captions, a hashtag bank and an image
// prompt suggestion.
func (s *Studio) Captions(ctx context.Context, owner string, req CaptionRequest) (CaptionSet, error) {
	hasImage := req.Image != nil && !req.Image.IsZero()
	if !hasImage && strings.TrimSpace(req.Topic) == "" {
		return CaptionSet{}, ErrCaptionInput
	}
	ws := s.sessions.Get(owner)

	var images []asset.LockedFace
	if hasImage {
		images = []asset.LockedFace{*req.Image}
	}
	var out CaptionSet
	err := s.text.GenerateJSON(ctx, gemini.TextRequest{
		Model:  gemini.ModelTextPro,
		Prompt: captionPrompt(ws.KOLName, req),
		Images: images,
	}, &out)
	if err != nil {
		return CaptionSet{}, err
	}
	if suggestion := strings.TrimSpace(out.ImagePromptSuggestion); suggestion != "" {
		if err := s.UseSuggestion(ctx, owner, suggestion); err != nil {
			s.logger.Warn("caption suggestion hand-off failed", "owner", owner, "err", err)
		}
	}
	return out, nil
}

func captionPrompt(kolName string, req CaptionRequest) string {
	if strings.TrimSpace(kolName) == "" {
		kolName = "này"
	}
	length := "Dài, sâu sắc, kể chuyện"
	switch req.Length {
	case CaptionShort:
		length = "Ngắn gọn, súc tích"
	case CaptionMedium:
		length = "Vừa phải, đủ ý"
	}
	tone, _ := prompt.Resolve(req.Tone)
	if tone == "" {
		tone = "Tự nhiên, thu hút"
	}
	cta := strings.TrimSpace(req.CTA)
	if cta == "" {
		cta = "Không có"
	}

	return fmt.Sprintf(`Bạn là một chuyên gia Social Media. Hãy viết nội dung cho KOL %s.
    - Chủ đề: %s
    - Độ dài: %s
    - Giọng văn: %s
    - CTA: %s

    Yêu cầu output JSON:
    {
        "captions": [
            { "vietnamese": "Caption tiếng Việt 1", "english": "English caption 1" },
            { "vietnamese": "Caption tiếng Việt 2", "english": "English caption 2" },
            { "vietnamese": "Caption tiếng Việt 3", "english": "English caption 3" }
        ],
        "hashtagBank": ["#tag1", "#tag2", ...],
        "imagePromptSuggestion": "Gợi ý prompt để tạo ảnh phù hợp với caption này (chi tiết, nghệ thuật)"
    }`, kolName, req.Topic, length, tone, cta)
}

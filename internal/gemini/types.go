package gemini

import "kol-studio/internal/asset"

const (
	ModelTextFast  = "gemini-2.5-flash"
	ModelTextPro   = "gemini-3-pro-preview"
	ModelImageFast = "gemini-2.5-flash-image"
	ModelImagePro  = "gemini-3-pro-image-preview"
)

// ImageRequest is one image generation call. Identity, when set, is always
// transmitted as the first image, followed by References in order.
type ImageRequest struct {
	Instruction string
	Identity    *asset.LockedFace
	References  []asset.LockedFace
	Count       int
	AspectRatio string
	Model       string
}

// Images returns the transmitted image order.
func (r ImageRequest) Images() []asset.LockedFace {
	out := make([]asset.LockedFace, 0, len(r.References)+1)
	if r.Identity != nil && !r.Identity.IsZero() {
		out = append(out, *r.Identity)
	}
	return append(out, r.References...)
}

type TextRequest struct {
	Model             string
	Prompt            string
	SystemInstruction string
	Images            []asset.LockedFace
	JSON              bool
}

// ImageModel maps a user-facing model choice to a model id.
func ImageModel(choice string) string {
	switch choice {
	case "pro", ModelImagePro:
		return ModelImagePro
	default:
		return ModelImageFast
	}
}

// EffectiveCount clamps count for models that return a single image.
func EffectiveCount(model string, count int) int {
	if count < 1 {
		count = 1
	}
	if model == ModelImagePro {
		return 1
	}
	return count
}

type generateContentRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	Temperature        float64      `json:"temperature,omitempty"`
	CandidateCount     int          `json:"candidateCount,omitempty"`
	ResponseModalities []string     `json:"responseModalities,omitempty"`
	ResponseMimeType   string       `json:"responseMimeType,omitempty"`
	ImageConfig        *imageConfig `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

package gemini

import (
	"context"
	"regexp"
	"strings"

	"kol-studio/internal/asset"
	"kol-studio/internal/prompt"
)

var ratioTokenRegex = regexp.MustCompile(`\(([^)]+)\)`)

var supportedRatios = map[string]struct{}{
	"1:1":  {},
	"9:16": {},
	"16:9": {},
	"4:3":  {},
	"3:4":  {},
}

// NormalizeAspectRatio accepts labels such as "Ngang (16:9)" and returns a
// supported ratio, defaulting to 1:1.
func NormalizeAspectRatio(label string) string {
	ratio := strings.TrimSpace(label)
	if m := ratioTokenRegex.FindStringSubmatch(ratio); len(m) == 2 {
		ratio = strings.TrimSpace(m[1])
	}
	if _, ok := supportedRatios[ratio]; ok {
		return ratio
	}
	return "1:1"
}

// GenerateImages returns one data URL per generated image.
func (c *Client) GenerateImages(ctx context.Context, req ImageRequest) ([]string, error) {
	instruction := strings.TrimSpace(req.Instruction)
	if instruction == "" {
		return nil, ErrEmptyPrompt
	}

	model := req.Model
	if model == "" {
		model = ModelImageFast
	}
	count := EffectiveCount(model, req.Count)

	payload := generateContentRequest{
		Contents: []content{
			{Role: "user", Parts: buildParts(prompt.WithSafety(instruction), req.Images())},
		},
		GenerationConfig: generationConfig{
			CandidateCount:     count,
			ResponseModalities: []string{"IMAGE", "TEXT"},
			ImageConfig:        &imageConfig{AspectRatio: NormalizeAspectRatio(req.AspectRatio)},
		},
	}

	var images []string
	err := c.withRetry(ctx, "generate_images", func(ctx context.Context) error {
		resp, err := c.generateContent(ctx, model, payload)
		if err != nil && payload.GenerationConfig.ImageConfig != nil && isUnknownFieldError(err, "imageConfig") {
			payload.GenerationConfig.ImageConfig = nil
			resp, err = c.generateContent(ctx, model, payload)
		}
		if err != nil {
			return err
		}
		images = extractImages(resp)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, ErrNoImage
	}

	c.logger.Debug("images generated", "model", model, "requested", count, "received", len(images))
	return images, nil
}

// EditImage applies an instruction to one image with the high-fidelity model.
func (c *Client) EditImage(ctx context.Context, instruction string, image asset.LockedFace) (string, error) {
	images, err := c.GenerateImages(ctx, ImageRequest{
		Instruction: instruction,
		References:  []asset.LockedFace{image},
		Count:       1,
		Model:       ModelImagePro,
	})
	if err != nil {
		return "", err
	}
	return images[0], nil
}

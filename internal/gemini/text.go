package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// GenerateText returns the trimmed text of the first candidate. An empty
// reply is not an error; callers choose their own fallback.
func (c *Client) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", ErrEmptyPrompt
	}

	model := req.Model
	if model == "" {
		model = ModelTextFast
	}

	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: buildParts(req.Prompt, req.Images)}},
	}
	if s := strings.TrimSpace(req.SystemInstruction); s != "" {
		payload.SystemInstruction = &content{Role: "user", Parts: []part{{Text: s}}}
	}
	if req.JSON {
		payload.GenerationConfig.ResponseMimeType = "application/json"
	}

	var text string
	err := c.withRetry(ctx, "generate_text", func(ctx context.Context) error {
		resp, err := c.generateContent(ctx, model, payload)
		if err != nil {
			return err
		}
		text = extractText(resp)
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// GenerateJSON runs a JSON-mode call and decodes the reply into out.
func (c *Client) GenerateJSON(ctx context.Context, req TextRequest, out any) error {
	req.JSON = true
	text, err := c.GenerateText(ctx, req)
	if err != nil {
		return err
	}
	if err := DecodeJSON(text, out); err != nil {
		return err
	}
	return nil
}

// DecodeJSON tolerates markdown code fences around the payload. Failures
// match ErrDecodeJSON.
func DecodeJSON(text string, out any) error {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}
	if text == "" {
		return fmt.Errorf("%w: empty reply", ErrDecodeJSON)
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("%w: %w", ErrDecodeJSON, err)
	}
	return nil
}

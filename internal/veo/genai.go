package veo

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"kol-studio/internal/asset"
)

// GenAIBackend drives Veo through the Gemini API SDK.
type GenAIBackend struct {
	client *genai.Client
	model  string
}

func NewGenAIBackend(ctx context.Context, apiKey string, httpClient *http.Client) (*GenAIBackend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &GenAIBackend{client: client, model: Model}, nil
}

func (b *GenAIBackend) Start(ctx context.Context, prompt string, image asset.LockedFace, cfg Config) (*Operation, error) {
	data, err := image.Bytes()
	if err != nil {
		return nil, err
	}
	op, err := b.client.Models.GenerateVideos(ctx, b.model, prompt,
		&genai.Image{ImageBytes: data, MIMEType: image.MimeType},
		&genai.GenerateVideosConfig{
			NumberOfVideos: 1,
			AspectRatio:    cfg.AspectRatio,
			Resolution:     cfg.Resolution,
			NegativePrompt: cfg.NegativePrompt,
		},
	)
	if err != nil {
		return nil, err
	}
	return fromGenAI(op), nil
}

func (b *GenAIBackend) Poll(ctx context.Context, op *Operation) (*Operation, error) {
	handle, ok := op.Handle.(*genai.GenerateVideosOperation)
	if !ok {
		return nil, errors.New("operation was not started by this backend")
	}
	next, err := b.client.Operations.GetVideosOperation(ctx, handle, nil)
	if err != nil {
		return nil, err
	}
	return fromGenAI(next), nil
}

func fromGenAI(op *genai.GenerateVideosOperation) *Operation {
	out := &Operation{Name: op.Name, Done: op.Done, Handle: op}
	if op.Error != nil {
		out.Err = fmt.Sprint(op.Error)
	}
	if op.Response != nil && len(op.Response.GeneratedVideos) > 0 {
		if v := op.Response.GeneratedVideos[0].Video; v != nil {
			out.VideoURI = v.URI
		}
	}
	return out
}

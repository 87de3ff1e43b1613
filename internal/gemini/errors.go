package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNoImage     = errors.New("no image returned, likely a content policy rejection")
	ErrCancelled   = errors.New("generation cancelled")
	ErrEmptyPrompt = errors.New("prompt is empty")
	ErrDecodeJSON  = errors.New("decode json")
)

type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini API %s: %s", e.Status, e.Body)
}

// IsTransient reports rate-limit and capacity errors worth retrying.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return true
		}
		return strings.Contains(apiErr.Body, "RESOURCE_EXHAUSTED")
	}
	return false
}

func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// cancelled converts a failure caused by a cancelled context into ErrCancelled.
func cancelled(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
	return err
}

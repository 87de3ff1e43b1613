package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"kol-studio/internal/asset"
)

type Channel string

const (
	SuggestionPrompt Channel = "suggestionPrompt"
	BackgroundToUse  Channel = "backgroundToUse"
	OutfitToUse      Channel = "outfitToUse"
)

var channels = []Channel{SuggestionPrompt, BackgroundToUse, OutfitToUse}

func Channels() []Channel {
	return append([]Channel(nil), channels...)
}

func ParseChannel(value string) (Channel, error) {
	for _, c := range channels {
		if string(c) == value {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown hand-off channel %q", value)
}

// Message is one pending hand-off. Prompt is used by suggestionPrompt,
// Image by the two image channels.
type Message struct {
	Channel Channel           `json:"channel"`
	Prompt  string            `json:"prompt,omitempty"`
	Image   *asset.LockedFace `json:"image,omitempty"`
}

var ErrInvalidMessage = errors.New("invalid hand-off message")

var validate = validator.New()

func (m Message) Validate() error {
	switch m.Channel {
	case SuggestionPrompt:
		if strings.TrimSpace(m.Prompt) == "" {
			return fmt.Errorf("%w: %s needs a prompt", ErrInvalidMessage, m.Channel)
		}
	case BackgroundToUse, OutfitToUse:
		if m.Image == nil {
			return fmt.Errorf("%w: %s needs an image", ErrInvalidMessage, m.Channel)
		}
		if err := validate.Struct(m.Image); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidMessage, m.Channel, err)
		}
	default:
		return fmt.Errorf("%w: unknown channel %q", ErrInvalidMessage, m.Channel)
	}
	return nil
}

// Store holds at most one serialized message per scope and channel.
type Store interface {
	Put(ctx context.Context, scope string, ch Channel, data []byte) error
	// Take returns the stored value and clears it; nil when empty.
	Take(ctx context.Context, scope string, ch Channel) ([]byte, error)
	Clear(ctx context.Context, scope string) error
}

type Options struct {
	Store  Store
	Logger *slog.Logger
}

type Bus struct {
	store  Store
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[string]map[int]chan Channel
	nextID int
}

func New(opts Options) *Bus {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	store := opts.Store
	if store == nil {
		store = NewMemoryStore()
	}
	return &Bus{store: store, logger: logger, subs: make(map[string]map[int]chan Channel)}
}

func (b *Bus) Publish(ctx context.Context, scope string, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode hand-off: %w", err)
	}
	if err := b.store.Put(ctx, scope, msg.Channel, data); err != nil {
		return fmt.Errorf("store hand-off: %w", err)
	}
	b.notify(scope, msg.Channel)
	return nil
}

// Consume reads and clears every channel. Malformed stored values are
// logged and dropped.
func (b *Bus) Consume(ctx context.Context, scope string) ([]Message, error) {
	var out []Message
	for _, ch := range channels {
		data, err := b.store.Take(ctx, scope, ch)
		if err != nil {
			return out, fmt.Errorf("read hand-off %s: %w", ch, err)
		}
		if data == nil {
			continue
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			b.logger.Warn("dropping malformed hand-off", "scope", scope, "channel", ch, "err", err)
			continue
		}
		if msg.Channel != ch {
			b.logger.Warn("dropping hand-off stored under the wrong channel", "scope", scope, "channel", ch, "got", msg.Channel)
			continue
		}
		if err := msg.Validate(); err != nil {
			b.logger.Warn("dropping invalid hand-off", "scope", scope, "channel", ch, "err", err)
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (b *Bus) Reset(ctx context.Context, scope string) error {
	return b.store.Clear(ctx, scope)
}

// Subscribe delivers the channel name of every publish in scope until the
// returned cancel func is called.
func (b *Bus) Subscribe(scope string) (<-chan Channel, func()) {
	ch := make(chan Channel, len(channels))

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.subs[scope] == nil {
		b.subs[scope] = make(map[int]chan Channel)
	}
	b.subs[scope][id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[scope], id)
			if len(b.subs[scope]) == 0 {
				delete(b.subs, scope)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Bus) notify(scope string, c Channel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs[scope] {
		select {
		case sub <- c:
		default:
		}
	}
}

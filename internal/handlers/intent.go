package handlers

import (
	"errors"
	"strconv"
	"strings"

	"kol-studio/internal/catalog"
	"kol-studio/internal/quickedit"
	"kol-studio/internal/studio"
)

var errMissingID = errors.New("missing asset id")

const maxBotCount = 4

// genArgs is the parsed form of "/gen [mode] [xN] [pro] <prompt>".
type genArgs struct {
	Mode   studio.Mode
	Count  int
	Model  string
	Prompt string
}

func parseGen(args string, fallback studio.Mode) genArgs {
	out := genArgs{Mode: fallback, Count: 1}
	if out.Mode == "" {
		out.Mode = studio.ModeCreative
	}

	fields := strings.Fields(args)
	i := 0
	for ; i < len(fields); i++ {
		word := strings.ToLower(fields[i])
		if m, err := studio.ParseMode(word); err == nil && i == 0 {
			out.Mode = m
			continue
		}
		if n, ok := parseCount(word); ok {
			out.Count = n
			continue
		}
		if word == "pro" && out.Mode != studio.ModePro && out.Model == "" {
			out.Model = "pro"
			continue
		}
		break
	}
	out.Prompt = strings.Join(fields[i:], " ")
	return out
}

func parseCount(word string) (int, bool) {
	if !strings.HasPrefix(word, "x") {
		return 0, false
	}
	n, err := strconv.Atoi(word[1:])
	if err != nil || n < 1 {
		return 0, false
	}
	return min(n, maxBotCount), true
}

// parseEdit reads "/edit <id> <kind> <value>" where kind is color, outfit
// or pose. Anything else after the id is a freeform instruction.
func parseEdit(args string) (string, quickedit.Request, error) {
	id, rest := splitFirst(args)
	if id == "" {
		return "", quickedit.Request{}, errMissingID
	}
	kind, value := splitFirst(rest)

	var req quickedit.Request
	switch strings.ToLower(kind) {
	case "color", "mau", "màu":
		req.Color = value
	case "outfit", "trangphuc":
		req.Outfit.Choice, req.Outfit.Custom = customChoice(value)
	case "pose", "tuthe":
		req.Pose.Choice, req.Pose.Custom = customChoice(value)
	default:
		req.Freeform = rest
	}
	return id, req, nil
}

func customChoice(value string) (string, string) {
	if strings.TrimSpace(value) == "" {
		return "", ""
	}
	return catalog.Custom, value
}

// splitFirst returns the first word and the trimmed remainder.
func splitFirst(s string) (string, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ""
	}
	i := strings.IndexAny(s, " \t\n")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i+1:])
}

type photoAction string

const (
	photoFace       photoAction = "face"
	photoOutfit     photoAction = "outfit"
	photoExtract    photoAction = "extract"
	photoBackground photoAction = "background"
	photoPrompt     photoAction = "prompt"
	photoCaption    photoAction = "caption"
	photoTransform  photoAction = "transform"
	photoPose       photoAction = "pose"
)

// parsePhotoCaption decides what a single photo is for. An empty caption
// locks the face.
func parsePhotoCaption(caption string) (photoAction, string) {
	word, rest := splitFirst(caption)
	switch a := photoAction(strings.ToLower(strings.TrimPrefix(word, "/"))); a {
	case "":
		return photoFace, ""
	case photoFace, photoOutfit, photoExtract, photoBackground, photoPrompt, photoCaption, photoTransform, photoPose:
		return a, rest
	}
	return photoTransform, strings.TrimSpace(caption)
}

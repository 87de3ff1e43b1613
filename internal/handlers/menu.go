package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kol-studio/internal/catalog"
	"kol-studio/internal/session"
	"kol-studio/internal/studio"
)

const menuCallbackPrefix = "ks"

const (
	menuMain     = "main"
	menuMode     = "mode"
	menuAudience = "audience"
	menuRatio    = "ratio"
)

// menuState is the bot's per-chat generation settings. The workspace
// itself lives in the studio; this only holds what the web form would.
type menuState struct {
	Mode        studio.Mode
	Count       int
	Model       string
	AspectRatio string

	Menu           string
	MessageID      int
	AwaitingPrompt bool

	UpdatedAt time.Time
}

type stateKey struct {
	ChatID int64
	UserID int64
}

type menuStore struct {
	mu sync.Mutex
	m  map[stateKey]*menuState
}

func newMenuStore() *menuStore {
	return &menuStore{m: make(map[stateKey]*menuState)}
}

func (s *menuStore) Get(chatID, userID int64) menuState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.getOrCreateLocked(chatID, userID)
}

func (s *menuStore) Update(chatID, userID int64, fn func(*menuState)) menuState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(chatID, userID)
	if fn != nil {
		fn(st)
	}
	st.UpdatedAt = time.Now()
	return *st
}

func (s *menuStore) Reset(chatID, userID int64) menuState {
	return s.Update(chatID, userID, func(st *menuState) {
		*st = defaultMenu()
	})
}

func (s *menuStore) getOrCreateLocked(chatID, userID int64) *menuState {
	key := stateKey{ChatID: chatID, UserID: userID}
	if st, ok := s.m[key]; ok {
		return st
	}
	st := defaultMenu()
	s.m[key] = &st
	return s.m[key]
}

func defaultMenu() menuState {
	return menuState{
		Mode:      studio.ModeCreative,
		Count:     1,
		Menu:      menuMain,
		UpdatedAt: time.Now(),
	}
}

func (h *Handler) openMenu(chatID, userID int64, menu string) error {
	st := h.menus.Update(chatID, userID, func(st *menuState) { st.Menu = menu })
	ws := h.studio.Workspace(ownerOf(userID))

	msgID, err := h.tg.SendKeyboard(chatID, menuText(st, ws), menuKeyboard(userID, st, ws))
	if err != nil {
		return err
	}
	h.menus.Update(chatID, userID, func(st *menuState) { st.MessageID = msgID })
	return nil
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil {
		return nil
	}
	data := strings.TrimSpace(q.Data)
	if !strings.HasPrefix(data, menuCallbackPrefix+":") {
		return nil
	}

	parts := strings.Split(data, ":")
	if len(parts) < 3 {
		return nil
	}
	ownerID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil
	}
	if ownerID != q.From.ID {
		_ = h.tg.AnswerCallback(q.ID, "Menu này không dành cho bạn.", true)
		return nil
	}

	action := parts[2]
	args := parts[3:]
	chatID := q.Message.Chat.ID
	msgID := q.Message.MessageID
	owner := ownerOf(ownerID)

	switch action {
	case "close":
		_ = h.tg.AnswerCallback(q.ID, "", false)
		return h.tg.EditText(chatID, msgID, "Đã đóng menu. /menu để mở lại.")
	case "audience":
		if len(args) >= 1 {
			a := args[0]
			if _, err := h.studio.UpdateProfile(owner, studio.ProfileUpdate{Audience: &a}); err != nil {
				_ = h.tg.AnswerCallback(q.ID, studio.Message(err), true)
				return nil
			}
		}
	case "prompt":
		h.menus.Update(chatID, ownerID, func(st *menuState) { st.AwaitingPrompt = true })
		_ = h.tg.AnswerCallback(q.ID, "", false)
		return h.tg.SendText(chatID, "✍️ Gửi mô tả ảnh bạn muốn tạo.")
	case "generate":
		_ = h.tg.AnswerCallback(q.ID, "", false)
		st := h.menus.Get(chatID, ownerID)
		return h.generate(ctx, chatID, owner, genArgs{Mode: st.Mode, Count: st.Count, Model: st.Model}, st.AspectRatio)
	}

	ws := h.studio.Workspace(owner)
	updated := h.menus.Update(chatID, ownerID, func(st *menuState) {
		st.MessageID = msgID
		applyMenuAction(st, ws, action, args)
	})

	_ = h.tg.AnswerCallback(q.ID, "", false)
	return h.tg.EditKeyboard(chatID, msgID, menuText(updated, ws), menuKeyboard(ownerID, updated, ws))
}

func applyMenuAction(st *menuState, ws session.Workspace, action string, args []string) {
	switch action {
	case "menu":
		if len(args) >= 1 {
			st.Menu = args[0]
		}
	case "mode":
		if len(args) >= 1 {
			if m, err := studio.ParseMode(args[0]); err == nil {
				st.Mode = m
			}
			st.Menu = menuMain
		}
	case "count":
		if len(args) >= 1 {
			if n, err := strconv.Atoi(args[0]); err == nil && n >= 1 && n <= maxBotCount {
				st.Count = n
			}
		}
	case "model":
		if st.Model == "" {
			st.Model = "pro"
		} else {
			st.Model = ""
		}
	case "ratio":
		if len(args) >= 1 {
			ratios := catalog.Default().Options(ws.Audience, catalog.AspectRatio)
			if idx, err := strconv.Atoi(args[0]); err == nil && idx >= 0 && idx < len(ratios) {
				st.AspectRatio = ratios[idx]
			} else {
				st.AspectRatio = ""
			}
			st.Menu = menuMain
		}
	case "audience":
		st.Menu = menuMain
	}
}

func menuText(st menuState, ws session.Workspace) string {
	var b strings.Builder
	b.WriteString("✨ KOL Studio\n\n")
	fmt.Fprintf(&b, "Chế độ: %s\n", st.Mode)
	fmt.Fprintf(&b, "Đối tượng: %s\n", audienceName(ws.Audience))
	fmt.Fprintf(&b, "Số ảnh: %d\n", st.Count)
	fmt.Fprintf(&b, "Model: %s\n", modelName(st.Model))
	ratio := st.AspectRatio
	if ratio == "" {
		ratio = "mặc định"
	}
	fmt.Fprintf(&b, "Tỉ lệ: %s\n", ratio)
	fmt.Fprintf(&b, "Gương mặt: %s · Trang phục: %d\n", lockedText(ws.LockedFace != nil), len(ws.OutfitRefs))
	if ws.CustomPrompt != "" {
		fmt.Fprintf(&b, "\nPrompt: %s\n", shorten(ws.CustomPrompt, 200))
	}
	return b.String()
}

func menuKeyboard(ownerID int64, st menuState, ws session.Workspace) tgbotapi.InlineKeyboardMarkup {
	switch st.Menu {
	case menuMode:
		return modeKeyboard(ownerID, st)
	case menuAudience:
		return audienceKeyboard(ownerID, ws)
	case menuRatio:
		return ratioKeyboard(ownerID, st, ws)
	}

	var countRow []tgbotapi.InlineKeyboardButton
	for n := 1; n <= maxBotCount; n++ {
		label := fmt.Sprintf("x%d", n)
		if n == st.Count {
			label = "✅ " + label
		}
		countRow = append(countRow, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "count", strconv.Itoa(n))))
	}

	return tgbotapi.NewInlineKeyboardMarkup(
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("Chế độ: "+string(st.Mode), cb(ownerID, "menu", menuMode)),
			tgbotapi.NewInlineKeyboardButtonData("Đối tượng", cb(ownerID, "menu", menuAudience)),
		},
		countRow,
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("Tỉ lệ", cb(ownerID, "menu", menuRatio)),
			tgbotapi.NewInlineKeyboardButtonData("Model: "+modelName(st.Model), cb(ownerID, "model")),
		},
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("✍️ Prompt", cb(ownerID, "prompt")),
			tgbotapi.NewInlineKeyboardButtonData("🎨 Tạo ảnh", cb(ownerID, "generate")),
		},
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("Đóng", cb(ownerID, "close")),
		},
	)
}

func modeKeyboard(ownerID int64, st menuState) tgbotapi.InlineKeyboardMarkup {
	modes := []studio.Mode{studio.ModeCreative, studio.ModePro, studio.ModeOutfit, studio.ModeTravel}
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, m := range modes {
		label := string(m)
		if m == st.Mode {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "mode", string(m))))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	rows = append(rows, backRow(ownerID))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func audienceKeyboard(ownerID int64, ws session.Workspace) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, a := range catalog.Audiences() {
		label := a.Name
		if a.Key == string(ws.Audience) {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "audience", a.Key)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, backRow(ownerID))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// ratioKeyboard uses option indexes since labels can exceed the 64-byte
// callback limit.
func ratioKeyboard(ownerID int64, st menuState, ws session.Workspace) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, r := range catalog.Default().Options(ws.Audience, catalog.AspectRatio) {
		label := r
		if r == st.AspectRatio {
			label = "✅ " + label
		}
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "ratio", strconv.Itoa(i))),
		})
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("Mặc định", cb(ownerID, "ratio", "-")),
	}, backRow(ownerID))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func backRow(ownerID int64) []tgbotapi.InlineKeyboardButton {
	return []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅ Quay lại", cb(ownerID, "menu", menuMain)),
	}
}

func cb(ownerID int64, parts ...string) string {
	return fmt.Sprintf("%s:%d:%s", menuCallbackPrefix, ownerID, strings.Join(parts, ":"))
}

func audienceName(a catalog.Audience) string {
	for _, opt := range catalog.Audiences() {
		if opt.Key == string(a) {
			return opt.Name
		}
	}
	return string(a)
}

func modelName(model string) string {
	if model == "pro" {
		return "Pro"
	}
	return "Nhanh"
}

func lockedText(v bool) string {
	if v {
		return "đã khóa"
	}
	return "chưa có"
}

package handlers

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kol-studio/internal/asset"
	"kol-studio/internal/gemini"
	"kol-studio/internal/mediagroup"
	"kol-studio/internal/studio"
	"kol-studio/internal/telegram"
)

type fakeMessenger struct {
	mu        sync.Mutex
	texts     []string
	photos    []string
	docs      []string
	keyboards int
	answers   []string
	images    map[string]asset.LockedFace
}

func (f *fakeMessenger) SendText(chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeMessenger) SendKeyboard(chatID int64, text string, kb telegram.Keyboard) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keyboards++
	return 42, nil
}

func (f *fakeMessenger) EditKeyboard(chatID int64, messageID int, text string, kb telegram.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keyboards++
	return nil
}

func (f *fakeMessenger) EditText(chatID int64, messageID int, text string) error { return nil }

func (f *fakeMessenger) AnswerCallback(id, text string, alert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeMessenger) SendTyping(chatID int64)    {}
func (f *fakeMessenger) SendUploading(chatID int64) {}

func (f *fakeMessenger) SendPhotoDataURL(chatID int64, dataURL, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos = append(f.photos, caption)
	return nil
}

func (f *fakeMessenger) SendVideo(chatID int64, data []byte, mimeType, caption string) error {
	return nil
}

func (f *fakeMessenger) SendDocument(chatID int64, name string, data []byte, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, name)
	return nil
}

func (f *fakeMessenger) DownloadImage(ctx context.Context, fileID string) (asset.LockedFace, error) {
	return f.images[fileID], nil
}

func (f *fakeMessenger) Download(ctx context.Context, fileID string) ([]byte, string, error) {
	return []byte(`[{"id":"a","src":"data:image/png;base64,QQ==","prompt":"p"}]`), "application/json", nil
}

func (f *fakeMessenger) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

type fakeImages struct{}

func (fakeImages) GenerateImages(ctx context.Context, req gemini.ImageRequest) ([]string, error) {
	out := make([]string, max(req.Count, 1))
	for i := range out {
		out[i] = "data:image/png;base64,R0VO"
	}
	return out, nil
}

func (fakeImages) EditImage(ctx context.Context, instruction string, image asset.LockedFace) (string, error) {
	return "data:image/png;base64,RURJVA==", nil
}

type fakeText struct{}

func (fakeText) GenerateText(ctx context.Context, req gemini.TextRequest) (string, error) {
	if req.JSON {
		return `["Tháp Eiffel","Khải Hoàn Môn"]`, nil
	}
	return "Linh", nil
}

func (fakeText) GenerateJSON(ctx context.Context, req gemini.TextRequest, out any) error {
	return json.Unmarshal([]byte(`{}`), out)
}

var (
	face   = asset.LockedFace{Base64: "RkFDRQ==", MimeType: "image/jpeg"}
	outfit = asset.LockedFace{Base64: "T1VURklU", MimeType: "image/jpeg"}
)

func newTestHandler() (*Handler, *fakeMessenger, *studio.Studio) {
	tg := &fakeMessenger{images: map[string]asset.LockedFace{"face": face, "outfit": outfit}}
	st := studio.New(studio.Options{Images: fakeImages{}, Text: fakeText{}})
	return New(Options{Telegram: tg, Studio: st}), tg, st
}

func command(chatID, userID int64, text string) telegram.Update {
	cmd := strings.Fields(text)[0]
	return telegram.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		From:     &tgbotapi.User{ID: userID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func TestPhotoLocksFaceThenTextGenerates(t *testing.T) {
	h, tg, st := newTestHandler()
	ctx := context.Background()

	if err := h.processPhoto(ctx, 1, 7, face, ""); err != nil {
		t.Fatal(err)
	}
	if st.Workspace("tg:7").LockedFace == nil {
		t.Fatal("face was not locked")
	}

	h.menus.Update(1, 7, func(s *menuState) { s.Count = 2 })
	err := h.HandleUpdate(ctx, telegram.Update{Message: &tgbotapi.Message{
		Text: "chân dung studio",
		Chat: &tgbotapi.Chat{ID: 1},
		From: &tgbotapi.User{ID: 7},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if len(tg.photos) != 2 {
		t.Fatalf("photos = %d", len(tg.photos))
	}

	if err := h.HandleUpdate(ctx, command(1, 7, "/save")); err != nil {
		t.Fatal(err)
	}
	lib, _ := st.Library().Get(ctx, "tg:7")
	if len(lib) != 2 {
		t.Fatalf("library = %d", len(lib))
	}
}

func TestAlbumLocksFaceAndAddsOutfits(t *testing.T) {
	h, _, st := newTestHandler()

	h.HandleMediaGroup(context.Background(), mediagroup.Group{
		ChatID:  1,
		UserID:  7,
		FileIDs: []string{"face", "outfit"},
	})

	ws := st.Workspace("tg:7")
	if ws.LockedFace == nil || !ws.LockedFace.SamePayload(face) {
		t.Fatal("first album photo must be the face")
	}
	if len(ws.OutfitRefs) != 1 || !ws.OutfitRefs[0].SamePayload(outfit) {
		t.Fatalf("outfit refs = %+v", ws.OutfitRefs)
	}
}

func TestGenWithoutFaceReportsMessage(t *testing.T) {
	h, tg, _ := newTestHandler()

	if err := h.HandleUpdate(context.Background(), command(1, 7, "/gen outfit dạo phố")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(tg.lastText(), "❌") {
		t.Fatalf("last text = %q", tg.lastText())
	}
}

func TestTravelUsesSuggestedLandmarks(t *testing.T) {
	h, tg, st := newTestHandler()
	ctx := context.Background()
	st.LockFace("tg:7", face)

	if err := h.HandleUpdate(ctx, command(1, 7, "/gen travel Paris")); err != nil {
		t.Fatal(err)
	}
	if len(tg.photos) != 2 {
		t.Fatalf("photos = %d, texts = %v", len(tg.photos), tg.texts)
	}
}

func TestCallbackOwnerCheck(t *testing.T) {
	h, tg, _ := newTestHandler()

	err := h.HandleUpdate(context.Background(), telegram.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "q",
		From:    &tgbotapi.User{ID: 9},
		Message: &tgbotapi.Message{MessageID: 5, Chat: &tgbotapi.Chat{ID: 1}},
		Data:    cb(7, "model"),
	}})
	if err != nil {
		t.Fatal(err)
	}
	if len(tg.answers) != 1 || tg.answers[0] == "" {
		t.Fatalf("answers = %v", tg.answers)
	}
	if h.menus.Get(1, 7).Model != "" {
		t.Fatal("foreign callback changed the menu")
	}
}

func TestCallbackUpdatesMenuAndAudience(t *testing.T) {
	h, tg, st := newTestHandler()
	ctx := context.Background()

	for _, data := range []string{cb(7, "count", "3"), cb(7, "mode", "travel"), cb(7, "audience", "male")} {
		err := h.HandleUpdate(ctx, telegram.Update{CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "q",
			From:    &tgbotapi.User{ID: 7},
			Message: &tgbotapi.Message{MessageID: 5, Chat: &tgbotapi.Chat{ID: 1}},
			Data:    data,
		}})
		if err != nil {
			t.Fatal(err)
		}
	}

	menu := h.menus.Get(1, 7)
	if menu.Count != 3 || menu.Mode != studio.ModeTravel {
		t.Fatalf("menu = %+v", menu)
	}
	if st.Workspace("tg:7").Audience != "male" {
		t.Fatal("audience was not updated")
	}
	if tg.keyboards != 3 {
		t.Fatalf("keyboards = %d", tg.keyboards)
	}
}

func TestLibraryImportAndExport(t *testing.T) {
	h, tg, _ := newTestHandler()
	ctx := context.Background()

	err := h.HandleUpdate(ctx, telegram.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: 1},
		From:     &tgbotapi.User{ID: 7},
		Document: &tgbotapi.Document{FileID: "doc", FileName: "kol-builder-library.json"},
	}})
	if err != nil {
		t.Fatal(err)
	}

	if err := h.HandleUpdate(ctx, command(1, 7, "/library")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(tg.lastText(), "• a ") {
		t.Fatalf("library text = %q", tg.lastText())
	}

	if err := h.HandleUpdate(ctx, command(1, 7, "/export")); err != nil {
		t.Fatal(err)
	}
	if len(tg.docs) != 1 || tg.docs[0] != "kol-builder-library.json" {
		t.Fatalf("docs = %v", tg.docs)
	}
}

func TestStopWithoutWork(t *testing.T) {
	h, tg, _ := newTestHandler()
	if err := h.HandleUpdate(context.Background(), command(1, 7, "/stop")); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(tg.lastText(), "Đã dừng") {
		t.Fatal("nothing was running")
	}
}

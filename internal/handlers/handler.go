package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"kol-studio/internal/asset"
	"kol-studio/internal/library"
	"kol-studio/internal/mediagroup"
	"kol-studio/internal/prompt"
	"kol-studio/internal/studio"
	"kol-studio/internal/telegram"
	"kol-studio/internal/veo"
)

// Messenger is the part of the Telegram client the bot talks through.
type Messenger interface {
	SendText(chatID int64, text string) error
	SendKeyboard(chatID int64, text string, kb telegram.Keyboard) (int, error)
	EditKeyboard(chatID int64, messageID int, text string, kb telegram.Keyboard) error
	EditText(chatID int64, messageID int, text string) error
	AnswerCallback(id, text string, alert bool) error
	SendTyping(chatID int64)
	SendUploading(chatID int64)
	SendPhotoDataURL(chatID int64, dataURL, caption string) error
	SendVideo(chatID int64, data []byte, mimeType, caption string) error
	SendDocument(chatID int64, name string, data []byte, caption string) error
	DownloadImage(ctx context.Context, fileID string) (asset.LockedFace, error)
	Download(ctx context.Context, fileID string) ([]byte, string, error)
}

type Options struct {
	Telegram Messenger
	Studio   *studio.Studio
	Logger   *slog.Logger
}

type Handler struct {
	tg         Messenger
	studio     *studio.Studio
	logger     *slog.Logger
	menus      *menuStore
	aggregator *mediagroup.Aggregator
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Handler{
		tg:     opts.Telegram,
		studio: opts.Studio,
		logger: logger,
		menus:  newMenuStore(),
	}
}

func (h *Handler) SetMediaGroupAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

func ownerOf(userID int64) string {
	return "tg:" + strconv.FormatInt(userID, 10)
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID

	switch {
	case msg.IsCommand():
		return h.handleCommand(ctx, chatID, userID, msg)
	case len(msg.Photo) > 0:
		return h.handlePhoto(ctx, chatID, userID, msg)
	case msg.Document != nil:
		return h.handleDocument(ctx, chatID, userID, msg.Document)
	case strings.TrimSpace(msg.Text) != "":
		return h.handleText(ctx, chatID, userID, msg.Text)
	}
	return nil
}

// HandleMediaGroup treats an album as a KOL kit: the first photo is the
// face, the rest are outfit references.
func (h *Handler) HandleMediaGroup(ctx context.Context, group mediagroup.Group) {
	if err := h.processAlbum(ctx, group); err != nil {
		h.logger.Error("media group processing failed", "chat_id", group.ChatID, "err", err)
	}
}

func (h *Handler) processAlbum(ctx context.Context, group mediagroup.Group) error {
	h.tg.SendTyping(group.ChatID)

	images, err := h.downloadAll(ctx, group.FileIDs)
	if err != nil {
		h.logger.Error("photo download failed", "err", err)
		return h.tg.SendText(group.ChatID, "❌ Không tải được ảnh từ Telegram.")
	}

	owner := ownerOf(group.UserID)
	if _, err := h.studio.LockFace(owner, images[0]); err != nil {
		return h.fail(group.ChatID, err)
	}
	for i := len(images) - 1; i >= 1; i-- {
		h.studio.AddOutfitRef(owner, images[i])
	}
	return h.tg.SendText(group.ChatID, fmt.Sprintf("🔒 Đã khóa gương mặt và thêm %d ảnh trang phục. Dùng /gen outfit để tạo ảnh.", len(images)-1))
}

func (h *Handler) downloadAll(ctx context.Context, fileIDs []string) ([]asset.LockedFace, error) {
	out := make([]asset.LockedFace, len(fileIDs))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, fileID := range fileIDs {
		eg.Go(func() error {
			img, err := h.tg.DownloadImage(egCtx, fileID)
			if err != nil {
				return err
			}
			out[i] = img
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *Handler) handleCommand(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	owner := ownerOf(userID)
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		return h.tg.SendText(chatID, helpText)
	case "menu":
		return h.openMenu(chatID, userID, menuMain)
	case "audience":
		return h.openMenu(chatID, userID, menuAudience)
	case "gen":
		st := h.menus.Get(chatID, userID)
		return h.generate(ctx, chatID, owner, parseGen(args, st.Mode), st.AspectRatio)
	case "stop":
		if h.studio.Cancel(owner) {
			return h.tg.SendText(chatID, "⏹ Đã dừng.")
		}
		return h.tg.SendText(chatID, "Không có tác vụ nào đang chạy.")
	case "save":
		return h.saveGenerated(ctx, chatID, owner)
	case "library":
		return h.listLibrary(ctx, chatID, owner, args)
	case "show":
		return h.showAsset(ctx, chatID, owner, args)
	case "delete":
		if args == "" {
			return h.fail(chatID, errMissingID)
		}
		if _, err := h.studio.Library().Delete(ctx, owner, args); err != nil {
			return h.fail(chatID, err)
		}
		return h.tg.SendText(chatID, "🗑 Đã xóa "+args)
	case "export":
		return h.exportLibrary(ctx, chatID, owner, false)
	case "zip":
		return h.exportLibrary(ctx, chatID, owner, true)
	case "regen":
		id, rest := splitFirst(args)
		if id == "" {
			return h.fail(chatID, errMissingID)
		}
		h.tg.SendUploading(chatID)
		a, err := h.studio.Regenerate(ctx, owner, id, rest)
		if err != nil {
			return h.fail(chatID, err)
		}
		return h.sendAssets(chatID, []asset.LibraryAsset{a})
	case "variation":
		return h.variations(ctx, chatID, owner, args)
	case "keep":
		n, err := h.studio.SaveVariations(ctx, owner)
		if err != nil {
			return h.fail(chatID, err)
		}
		return h.tg.SendText(chatID, fmt.Sprintf("✅ Đã lưu %d biến thể vào thư viện.", n))
	case "edit":
		id, req, err := parseEdit(args)
		if err != nil {
			return h.fail(chatID, err)
		}
		h.tg.SendUploading(chatID)
		a, err := h.studio.QuickEdit(ctx, owner, id, req)
		h.studio.CloseQuickEdit(owner)
		if err != nil {
			return h.fail(chatID, err)
		}
		return h.sendAssets(chatID, []asset.LibraryAsset{a})
	case "use":
		ch, err := h.studio.UseAsset(ctx, owner, args)
		if err != nil {
			return h.fail(chatID, err)
		}
		return h.tg.SendText(chatID, "📤 Đã chuyển sang "+string(ch)+". Dùng /handoff để nhận.")
	case "handoff":
		return h.consumeHandoff(ctx, chatID, owner)
	case "video":
		return h.video(ctx, chatID, owner, args)
	case "savevideo":
		a, err := h.studio.SaveVideo(ctx, owner)
		if err != nil {
			return h.fail(chatID, err)
		}
		return h.tg.SendText(chatID, "✅ Đã lưu video "+a.ID)
	case "name":
		name, err := h.studio.KOLName(ctx, owner)
		if err != nil {
			return h.fail(chatID, err)
		}
		return h.tg.SendText(chatID, "✨ Tên KOL: "+name)
	case "caption":
		return h.captions(ctx, chatID, owner, studio.CaptionRequest{Topic: args, Length: studio.CaptionMedium})
	case "unlock":
		h.studio.UnlockFace(owner)
		return h.tg.SendText(chatID, "🔓 Đã bỏ khóa gương mặt.")
	case "clearoutfits":
		h.studio.ClearOutfitRefs(owner)
		return h.tg.SendText(chatID, "Đã xóa ảnh trang phục.")
	case "reset", "clear":
		if _, err := h.studio.Reset(ctx, owner); err != nil {
			return h.fail(chatID, err)
		}
		h.menus.Reset(chatID, userID)
		return h.tg.SendText(chatID, "✅ Đã làm mới không gian làm việc. Thư viện vẫn được giữ.")
	default:
		return h.tg.SendText(chatID, "❌ Lệnh không hợp lệ. Dùng /help.")
	}
}

func (h *Handler) handleText(ctx context.Context, chatID, userID int64, text string) error {
	st := h.menus.Get(chatID, userID)
	if st.AwaitingPrompt {
		h.menus.Update(chatID, userID, func(st *menuState) { st.AwaitingPrompt = false })
	}
	return h.generate(ctx, chatID, ownerOf(userID), genArgs{
		Mode:   st.Mode,
		Count:  st.Count,
		Model:  st.Model,
		Prompt: strings.TrimSpace(text),
	}, st.AspectRatio)
}

func (h *Handler) handlePhoto(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	fileID := msg.Photo[len(msg.Photo)-1].FileID

	if msg.MediaGroupID != "" && h.aggregator != nil {
		h.aggregator.Add(mediagroup.Item{
			ChatID:       chatID,
			UserID:       userID,
			Username:     msg.From.UserName,
			MediaGroupID: msg.MediaGroupID,
			MessageID:    msg.MessageID,
			Caption:      msg.Caption,
			FileID:       fileID,
		})
		return nil
	}

	h.tg.SendTyping(chatID)
	img, err := h.tg.DownloadImage(ctx, fileID)
	if err != nil {
		h.logger.Error("photo download failed", "err", err)
		return h.tg.SendText(chatID, "❌ Không tải được ảnh từ Telegram.")
	}
	return h.processPhoto(ctx, chatID, userID, img, msg.Caption)
}

func (h *Handler) processPhoto(ctx context.Context, chatID, userID int64, img asset.LockedFace, caption string) error {
	owner := ownerOf(userID)
	action, text := parsePhotoCaption(caption)

	switch action {
	case photoFace:
		if _, err := h.studio.LockFace(owner, img); err != nil {
			return h.fail(chatID, err)
		}
		return h.tg.SendText(chatID, "🔒 Đã khóa gương mặt KOL. Gửi mô tả hoặc dùng /gen để tạo ảnh.")
	case photoOutfit:
		ws := h.studio.AddOutfitRef(owner, img)
		return h.tg.SendText(chatID, fmt.Sprintf("👗 Đã thêm ảnh trang phục (%d).", len(ws.OutfitRefs)))
	case photoExtract:
		h.tg.SendUploading(chatID)
		a, err := h.studio.ExtractOutfit(ctx, owner, img)
		if err != nil {
			return h.fail(chatID, err)
		}
		if _, err := h.studio.Library().Save(ctx, owner, a); err != nil {
			return h.fail(chatID, err)
		}
		return h.sendAssets(chatID, []asset.LibraryAsset{a})
	case photoBackground:
		h.tg.SendUploading(chatID)
		a, err := h.studio.ExtractBackground(ctx, img)
		if err != nil {
			return h.fail(chatID, err)
		}
		if _, err := h.studio.Library().Save(ctx, owner, a); err != nil {
			return h.fail(chatID, err)
		}
		return h.sendAssets(chatID, []asset.LibraryAsset{a})
	case photoPrompt:
		p, err := h.studio.PromptFromImage(ctx, img, studio.PromptFromImageOptions{})
		if err != nil {
			return h.fail(chatID, err)
		}
		return h.tg.SendText(chatID, p)
	case photoCaption:
		return h.captions(ctx, chatID, owner, studio.CaptionRequest{Image: &img, Topic: text, Length: studio.CaptionMedium})
	case photoPose:
		st := h.menus.Get(chatID, userID)
		return h.submit(ctx, chatID, owner, studio.SubmitRequest{
			Mode:            studio.ModePose,
			Count:           st.Count,
			Model:           st.Model,
			AspectRatio:     prompt.Selection{Choice: st.AspectRatio},
			PoseReference:   &img,
			PoseDescription: text,
		})
	default:
		st := h.menus.Get(chatID, userID)
		return h.submit(ctx, chatID, owner, studio.SubmitRequest{
			Mode:        studio.ModeTransform,
			Count:       st.Count,
			Model:       st.Model,
			AspectRatio: prompt.Selection{Choice: st.AspectRatio},
			Source:      &img,
			Instruction: text,
		})
	}
}

func (h *Handler) handleDocument(ctx context.Context, chatID, userID int64, doc *tgbotapi.Document) error {
	if !strings.HasSuffix(strings.ToLower(doc.FileName), ".json") {
		return h.tg.SendText(chatID, "Chỉ nhận tệp thư viện .json.")
	}
	data, _, err := h.tg.Download(ctx, doc.FileID)
	if err != nil {
		h.logger.Error("document download failed", "err", err)
		return h.tg.SendText(chatID, "❌ Không tải được tệp từ Telegram.")
	}
	_, n, err := h.studio.Library().Import(ctx, ownerOf(userID), data)
	if err != nil {
		return h.fail(chatID, err)
	}
	return h.tg.SendText(chatID, fmt.Sprintf("📥 Đã nhập %d ảnh vào thư viện.", n))
}

func (h *Handler) generate(ctx context.Context, chatID int64, owner string, g genArgs, ratio string) error {
	req := studio.SubmitRequest{
		Mode:         g.Mode,
		Count:        g.Count,
		Model:        g.Model,
		AspectRatio:  prompt.Selection{Choice: ratio},
		CustomPrompt: g.Prompt,
	}

	switch g.Mode {
	case studio.ModeTransform, studio.ModePose:
		return h.tg.SendText(chatID, "📷 Hãy gửi ảnh kèm chú thích \""+string(g.Mode)+" <mô tả>\".")
	case studio.ModeTravel:
		if g.Prompt == "" {
			return h.fail(chatID, studio.ErrLandmarksRequired)
		}
		names, err := h.studio.Landmarks(ctx, g.Prompt)
		if err != nil {
			return h.fail(chatID, err)
		}
		req.CustomPrompt = ""
		req.Location = g.Prompt
		for _, name := range names[:min(len(names), 3)] {
			req.Landmarks = append(req.Landmarks, studio.Landmark{Name: name, Count: g.Count})
		}
	}
	return h.submit(ctx, chatID, owner, req)
}

func (h *Handler) submit(ctx context.Context, chatID int64, owner string, req studio.SubmitRequest) error {
	h.tg.SendUploading(chatID)
	_ = h.tg.SendText(chatID, "🎨 Đang tạo ảnh, vui lòng chờ... (/stop để dừng)")

	ws, err := h.studio.Submit(ctx, owner, req)
	if err != nil {
		return h.fail(chatID, err)
	}
	if err := h.sendAssets(chatID, ws.Generated); err != nil {
		return err
	}
	return h.tg.SendText(chatID, "💾 /save để lưu vào thư viện.")
}

func (h *Handler) saveGenerated(ctx context.Context, chatID int64, owner string) error {
	ws := h.studio.Workspace(owner)
	if len(ws.Generated) == 0 {
		return h.tg.SendText(chatID, "Chưa có ảnh nào để lưu.")
	}
	if _, err := h.studio.Library().SaveAll(ctx, owner, ws.Generated); err != nil {
		return h.fail(chatID, err)
	}
	return h.tg.SendText(chatID, fmt.Sprintf("✅ Đã lưu %d ảnh vào thư viện.", len(ws.Generated)))
}

func (h *Handler) listLibrary(ctx context.Context, chatID int64, owner, filter string) error {
	lib, err := h.studio.Library().Get(ctx, owner)
	if err != nil {
		return h.fail(chatID, err)
	}
	lib = lib.Filter(library.ParseFilter(filter))
	if len(lib) == 0 {
		return h.tg.SendText(chatID, "📚 Thư viện trống.")
	}
	return h.tg.SendText(chatID, formatLibrary(lib))
}

func formatLibrary(lib library.Library) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📚 Thư viện (%d):\n", len(lib))
	for _, a := range lib {
		fmt.Fprintf(&b, "• %s [%s] %s\n", a.ID, a.Kind(), shorten(a.Prompt, 60))
	}
	b.WriteString("\n/show <id> để xem ảnh.")
	return b.String()
}

func shorten(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func (h *Handler) showAsset(ctx context.Context, chatID int64, owner, id string) error {
	if id == "" {
		return h.fail(chatID, errMissingID)
	}
	a, err := h.studio.Library().Find(ctx, owner, id)
	if err != nil {
		return h.fail(chatID, err)
	}
	return h.sendAssets(chatID, []asset.LibraryAsset{a})
}

func (h *Handler) exportLibrary(ctx context.Context, chatID int64, owner string, archive bool) error {
	lib, err := h.studio.Library().Get(ctx, owner)
	if err != nil {
		return h.fail(chatID, err)
	}
	if archive {
		var buf bytes.Buffer
		if err := library.ExportZIP(&buf, lib); err != nil {
			return h.fail(chatID, err)
		}
		return h.tg.SendDocument(chatID, library.ArchiveFileName, buf.Bytes(), "")
	}
	data, err := library.ExportJSON(lib)
	if err != nil {
		return h.fail(chatID, err)
	}
	return h.tg.SendDocument(chatID, library.ExportFileName, data, "")
}

func (h *Handler) variations(ctx context.Context, chatID int64, owner, id string) error {
	if id == "" {
		return h.fail(chatID, errMissingID)
	}
	h.tg.SendUploading(chatID)
	res, err := h.studio.Variations(ctx, owner, id)
	if err != nil {
		return h.fail(chatID, err)
	}
	if err := h.sendAssets(chatID, res.Variations); err != nil {
		return err
	}
	return h.tg.SendText(chatID, "💾 /keep để lưu các biến thể.")
}

func (h *Handler) consumeHandoff(ctx context.Context, chatID int64, owner string) error {
	ws, channels, err := h.studio.ConsumeHandoff(ctx, owner)
	if err != nil && len(channels) == 0 {
		return h.fail(chatID, err)
	}
	if len(channels) == 0 {
		return h.tg.SendText(chatID, "Không có gì được chuyển sang.")
	}
	var b strings.Builder
	b.WriteString("📥 Đã nhận:\n")
	for _, ch := range channels {
		b.WriteString("• " + string(ch) + "\n")
	}
	if ws.CustomPrompt != "" {
		b.WriteString("\nPrompt: " + ws.CustomPrompt)
	}
	return h.tg.SendText(chatID, b.String())
}

func (h *Handler) video(ctx context.Context, chatID int64, owner, args string) error {
	id, idea := splitFirst(args)
	if id == "" {
		return h.fail(chatID, errMissingID)
	}
	if _, err := h.studio.OpenVeo(ctx, owner, id); err != nil {
		return h.fail(chatID, err)
	}

	if idea == "" {
		prompts, err := h.studio.VeoPrompts(owner, "")
		if err != nil {
			return h.fail(chatID, err)
		}
		var b strings.Builder
		b.WriteString("🎬 Gợi ý prompt video:\n\n")
		for _, p := range prompts {
			fmt.Fprintf(&b, "• %s\n%s\n\n", p.Title, p.Prompt)
		}
		b.WriteString("Dùng /video " + id + " <prompt> để tạo.")
		return h.tg.SendText(chatID, b.String())
	}

	_ = h.tg.SendText(chatID, "🎬 Đang tạo video, có thể mất vài phút...")
	v, err := h.studio.GenerateVideo(ctx, owner, idea, veo.Config{AspectRatio: "9:16"}.Normalize())
	if err != nil {
		return h.fail(chatID, err)
	}
	if err := h.tg.SendVideo(chatID, v.Data, v.MimeType, shorten(idea, 200)); err != nil {
		return err
	}
	return h.tg.SendText(chatID, "💾 /savevideo để lưu vào thư viện.")
}

func (h *Handler) captions(ctx context.Context, chatID int64, owner string, req studio.CaptionRequest) error {
	h.tg.SendTyping(chatID)
	set, err := h.studio.Captions(ctx, owner, req)
	if err != nil {
		return h.fail(chatID, err)
	}
	return h.tg.SendText(chatID, formatCaptions(set))
}

func formatCaptions(set studio.CaptionSet) string {
	var b strings.Builder
	for i, c := range set.Captions {
		fmt.Fprintf(&b, "✍️ Caption %d\n%s\n\n🇬🇧 %s\n\n", i+1, c.Vietnamese, c.English)
	}
	if len(set.HashtagBank) > 0 {
		b.WriteString(strings.Join(set.HashtagBank, " ") + "\n\n")
	}
	if set.ImagePromptSuggestion != "" {
		b.WriteString("💡 " + set.ImagePromptSuggestion + "\nDùng /handoff để nhận gợi ý này.")
	}
	return strings.TrimSpace(b.String())
}

func (h *Handler) sendAssets(chatID int64, assets []asset.LibraryAsset) error {
	for _, a := range assets {
		caption := "🆔 " + a.ID
		if a.VideoSrc != "" {
			if v, err := asset.FromDataURL(a.VideoSrc); err == nil {
				if data, err := v.Bytes(); err == nil {
					if err := h.tg.SendVideo(chatID, data, v.MimeType, caption); err != nil {
						return err
					}
					continue
				}
			}
		}
		if err := h.tg.SendPhotoDataURL(chatID, a.Src, caption); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) fail(chatID int64, err error) error {
	if studio.IsCancelled(err) {
		return h.tg.SendText(chatID, "⏹ Đã dừng.")
	}
	h.logger.Error("request failed", "chat_id", chatID, "err", err)

	text := studio.Message(err)
	if errors.Is(err, errMissingID) {
		text = "Vui lòng nhập id ảnh. Dùng /library để xem danh sách."
	}
	return h.tg.SendText(chatID, "❌ "+text)
}

const helpText = `✨ KOL Studio

Gửi 1 ảnh chân dung để khóa gương mặt KOL, hoặc một album: ảnh đầu là gương mặt, các ảnh sau là trang phục.
Chú thích ảnh: outfit, extract, background, prompt, caption <chủ đề>, pose <mô tả>, transform <yêu cầu>.

/menu - Cài đặt tạo ảnh
/audience - Chọn đối tượng KOL
/gen [creative|pro|outfit|travel] [x2] [pro] <mô tả> - Tạo ảnh
/stop - Dừng tác vụ đang chạy
/save - Lưu ảnh vừa tạo
/library [kol_video|outfit|background] - Thư viện
/show <id>, /delete <id>, /regen <id> [pro]
/variation <id>, /keep - Biến thể
/edit <id> [color|outfit|pose] <giá trị> - Chỉnh sửa nhanh
/use <id>, /handoff - Chuyển trang phục/bối cảnh
/video <id> [prompt], /savevideo - Video
/name - Gợi ý tên KOL
/caption <chủ đề> - Viết caption
/export, /zip - Xuất thư viện (gửi lại tệp .json để nhập)
/unlock, /clearoutfits, /reset`

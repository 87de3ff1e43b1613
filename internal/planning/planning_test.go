package planning

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"kol-studio/internal/asset"
	"kol-studio/internal/catalog"
	"kol-studio/internal/gemini"
	"kol-studio/internal/prompt"
)

type fakeText struct {
	reply string
	err   error
	reqs  []gemini.TextRequest
}

func (f *fakeText) GenerateJSON(_ context.Context, req gemini.TextRequest, out any) error {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return f.err
	}
	return gemini.DecodeJSON(f.reply, out)
}

type fakeImages struct {
	out  []string
	reqs []gemini.ImageRequest
}

func (f *fakeImages) GenerateImages(_ context.Context, req gemini.ImageRequest) ([]string, error) {
	f.reqs = append(f.reqs, req)
	return f.out, nil
}

func fixedNow() time.Time { return time.UnixMilli(1700000000000) }

func TestCalendarPrompt(t *testing.T) {
	got := CalendarPrompt(CalendarInput{
		Audience: catalog.Male,
		KOLName:  "Minh",
		Topic:    prompt.Selection{Choice: "Fitness & Thể hình"},
		Tone:     prompt.Selection{Choice: catalog.Custom, Custom: " Hài hước "},
		Weather:  prompt.Selection{Choice: catalog.Auto},
	})
	if !strings.Contains(got, "cho một KOL nam tên là Minh.") {
		t.Fatalf("missing subject: %s", got)
	}
	if !strings.Contains(got, "- Chủ đề chính: Fitness & Thể hình\n- Giọng văn (tone of voice): Hài hước") {
		t.Fatalf("unexpected details: %s", got)
	}
	if strings.Contains(got, "thời tiết") {
		t.Fatal("auto weather must be omitted")
	}

	bare := CalendarPrompt(CalendarInput{Audience: catalog.Girl})
	if strings.Contains(bare, "Bối cảnh chung") || strings.Contains(bare, "tên là") {
		t.Fatalf("unexpected campaign block: %s", bare)
	}
}

func TestCalendarRowsGetDefaultOverrides(t *testing.T) {
	text := &fakeText{reply: "```json\n[{\"day\":\"Tuần 1 - Thứ 2\",\"contentType\":\"Reels\",\"description\":\"Chạy bộ\",\"imagePromptSuggestion\":\"chạy bộ công viên\",\"captionTheme\":\"năng lượng\"}]\n```"}
	p := New(Options{Text: text})

	rows, err := p.Calendar(context.Background(), CalendarInput{Audience: catalog.Female})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Day != "Tuần 1 - Thứ 2" {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if rows[0].Overrides.Pose.Choice != catalog.Auto || rows[0].Overrides.AspectRatio.Choice != "Vuông (1:1)" {
		t.Fatalf("unexpected overrides %+v", rows[0].Overrides)
	}
	req := text.reqs[0]
	if req.Model != gemini.ModelTextPro || req.SystemInstruction == "" || !strings.Contains(req.Prompt, "Output JSON format") {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestPostPromptDefaults(t *testing.T) {
	got := PostPrompt(PostInput{Audience: catalog.Boy, KOLName: "Bin", Topic: "Lắp lego"})
	for _, want := range []string{"KOL Bin (boy)", "Chủ đề: Lắp lego", "Định dạng: Bài viết", "Tone: Tự nhiên", "Style: Đời thường"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in %s", want, got)
		}
	}
}

func TestStrategyValidation(t *testing.T) {
	cases := []struct {
		in      StrategyInput
		wantErr bool
	}{
		{StrategyInput{Kind: Channel, Goal: "10k follow", Platform: "TikTok", Niche: "Ẩm thực"}, false},
		{StrategyInput{Kind: Channel, Goal: "10k follow", Platform: "  ", Niche: "Ẩm thực"}, true},
		{StrategyInput{Kind: Offer, Product: "Khóa học", Price: "499k", Problem: "Thiếu thời gian"}, false},
		{StrategyInput{Kind: Landing, Product: "Serum", Audience: "Nữ 25-35"}, true},
		{StrategyInput{Kind: Affiliate, Product: "Máy lọc", Description: "x", USP: "y", Audience: "z", Offer: "w", Goal: "g"}, false},
		{StrategyInput{Kind: "podcast"}, true},
	}
	for i, c := range cases {
		err := c.in.Validate()
		if (err != nil) != c.wantErr {
			t.Fatalf("case %d: err=%v wantErr=%v", i, err, c.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidStrategy) {
			t.Fatalf("case %d: want ErrInvalidStrategy, got %v", i, err)
		}
	}
}

func TestStrategyInvalidInputMakesNoCall(t *testing.T) {
	text := &fakeText{}
	p := New(Options{Text: text})
	if _, err := p.Strategy(context.Background(), StrategyInput{Kind: Funnel}); err == nil {
		t.Fatal("want validation error")
	}
	if len(text.reqs) != 0 {
		t.Fatalf("want no calls, got %d", len(text.reqs))
	}
}

func TestStrategyAcceptsLooseItems(t *testing.T) {
	text := &fakeText{reply: `[{"stage":"Giai đoạn 1","task":"Lập kênh","description":"Tạo hồ sơ","imagePromptSuggestion":"ảnh bìa"},{"section":"Headline","content":"Da sáng sau 7 ngày"},"Gửi email cảm ơn",42]`}
	p := New(Options{Text: text})

	items, err := p.Strategy(context.Background(), StrategyInput{Kind: Landing, Product: "Serum", Audience: "Nữ", CTA: "Mua ngay"})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("want 3 items, got %+v", items)
	}
	if items[1].Task != "Headline" || items[1].Description != "Da sáng sau 7 ngày" {
		t.Fatalf("synonyms not mapped: %+v", items[1])
	}
	if items[2].Topic() != "Gửi email cảm ơn" {
		t.Fatalf("bare string not mapped: %+v", items[2])
	}
	if !strings.Contains(text.reqs[0].Prompt, "CTA: Mua ngay") {
		t.Fatalf("unexpected prompt %s", text.reqs[0].Prompt)
	}
}

func TestRowImages(t *testing.T) {
	images := &fakeImages{out: []string{"data:image/png;base64,AA", "data:image/png;base64,BB"}}
	p := New(Options{Images: images, Now: fixedNow})
	face := asset.LockedFace{Base64: "FACE", MimeType: "image/png"}

	if _, err := p.RowImages(context.Background(), RowImageRequest{Suggestion: "x"}); !errors.Is(err, ErrIdentityRequired) {
		t.Fatalf("want ErrIdentityRequired, got %v", err)
	}
	if len(images.reqs) != 0 {
		t.Fatal("no call expected without identity")
	}

	ov := DefaultOverrides()
	ov.Pose = prompt.Selection{Choice: catalog.Custom, Custom: "Ngồi thiền"}
	ov.AspectRatio = prompt.Selection{Choice: "Dọc (9:16)"}
	ov.AdditionalRequirements = "Ánh nắng sớm"

	out, err := p.RowImages(context.Background(), RowImageRequest{
		Prefix:     "cal",
		Suggestion: "yoga bên hồ",
		Audience:   catalog.Female,
		Overrides:  &ov,
		Identity:   &face,
		Count:      2,
		Post:       &Post{Title: "T", Caption: "C"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].ID != "cal_1700000000000_0" || out[1].ID != "cal_1700000000000_1" {
		t.Fatalf("unexpected ids %+v", out)
	}
	if out[0].Prompt != "yoga bên hồ" || out[0].BlogTitle != "T" || !out[0].InputImages[0].SamePayload(face) {
		t.Fatalf("unexpected asset %+v", out[0])
	}

	req := images.reqs[0]
	if req.Identity == nil || req.AspectRatio != "Dọc (9:16)" || req.Count != 2 {
		t.Fatalf("unexpected request %+v", req)
	}
	for _, want := range []string{"**Creative Brief:** yoga bên hồ", "**Tư thế:** Ngồi thiền.", "**Yêu cầu thêm:** Ánh nắng sớm."} {
		if !strings.Contains(req.Instruction, want) {
			t.Fatalf("missing %q in %s", want, req.Instruction)
		}
	}
	if strings.Contains(req.Instruction, "Phong cách") {
		t.Fatal("auto style must be left out")
	}
}

func TestUpdateAtCopies(t *testing.T) {
	rows := []CalendarRow{{Day: "a"}, {Day: "b"}}
	next, err := UpdateAt(rows, 1, func(r *CalendarRow) { r.IsGeneratingPost = true })
	if err != nil {
		t.Fatal(err)
	}
	if !next[1].IsGeneratingPost || rows[1].IsGeneratingPost {
		t.Fatal("update must apply to a copy")
	}
	if _, err := UpdateAt(rows, 5, func(*CalendarRow) {}); !errors.Is(err, ErrRowOutOfRange) {
		t.Fatalf("want ErrRowOutOfRange, got %v", err)
	}
}

func TestCalendarCSV(t *testing.T) {
	var buf bytes.Buffer
	rows := []CalendarRow{{Day: "Tuần 1, Thứ 2", Description: "Mô tả \"đặc biệt\"", RowState: RowState{GeneratedPost: &Post{Title: "Tiêu đề"}}}}
	if err := WriteCalendarCSV(&buf, rows); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte{0xEF, 0xBB, 0xBF}) {
		t.Fatal("missing utf-8 bom")
	}
	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(buf.String(), utf8BOM))).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[1][0] != "Tuần 1, Thứ 2" || records[1][2] != "Mô tả \"đặc biệt\"" || records[1][5] != "Tiêu đề" {
		t.Fatalf("unexpected records %q", records)
	}
}

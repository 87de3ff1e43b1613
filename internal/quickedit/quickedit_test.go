package quickedit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"kol-studio/internal/asset"
	"kol-studio/internal/catalog"
	"kol-studio/internal/prompt"
)

type fakeEditor struct {
	calls       int
	instruction string
	image       asset.LockedFace
}

func (f *fakeEditor) EditImage(ctx context.Context, instruction string, image asset.LockedFace) (string, error) {
	f.calls++
	f.instruction = instruction
	f.image = image
	return "data:image/png;base64,RURJVA==", nil
}

func TestExclusivityBeforeNetwork(t *testing.T) {
	ed := &fakeEditor{}
	o := New(Options{Editor: ed})
	src := asset.LibraryAsset{ID: "a", Src: "data:image/png;base64,AA"}

	_, err := o.Edit(context.Background(), src, Request{Color: "đỏ", Pose: prompt.Selection{Choice: "Ôm gấu bông"}})
	if !errors.Is(err, ErrMultipleEdits) {
		t.Fatalf("want ErrMultipleEdits, got %v", err)
	}
	_, err = o.Edit(context.Background(), src, Request{Outfit: prompt.Selection{Choice: catalog.Unchanged}, Pose: prompt.Selection{Choice: catalog.Custom, Custom: " "}})
	if !errors.Is(err, ErrNoEdit) {
		t.Fatalf("want ErrNoEdit, got %v", err)
	}
	if ed.calls != 0 {
		t.Fatal("validation errors must not reach the network")
	}
}

func TestInstructions(t *testing.T) {
	cases := []struct {
		req  Request
		kind Kind
		want string
	}{
		{Request{Color: " xanh navy "}, KindColor, "YÊU CẦU: Chỉ thay đổi MÀU SẮC của trang phục thành 'xanh navy'."},
		{Request{Outfit: prompt.Selection{Choice: catalog.Custom, Custom: "váy đỏ"}}, KindOutfit, "YÊU CẦU: Chỉ thay đổi TRANG PHỤC thành 'váy đỏ'. Giữ nguyên mọi thứ khác."},
		{Request{Pose: prompt.Selection{Choice: "Thả diều"}}, KindPose, "YÊU CẦU: Chỉ thay đổi TƯ THẾ của nhân vật thành 'Thả diều'. Giữ nguyên mọi thứ khác."},
		{Request{Freeform: "thêm kính râm"}, KindFreeform, "YÊU CẦU: thêm kính râm. Giữ nguyên mọi thứ khác càng nhiều càng tốt."},
	}
	for _, c := range cases {
		kind, got, err := c.req.Instruction()
		if err != nil {
			t.Fatal(err)
		}
		if kind != c.kind || !strings.HasPrefix(got, c.want) {
			t.Fatalf("%s: got %q", c.kind, got)
		}
	}
}

func TestEditDerivedAsset(t *testing.T) {
	ed := &fakeEditor{}
	o := New(Options{Editor: ed, Now: func() time.Time { return time.UnixMilli(1700000000000) }})
	src := asset.LibraryAsset{ID: "kol_1_0", Src: "data:image/jpeg;base64,U1JD", Prompt: "gốc", IsRegenerating: true}

	got, err := o.Edit(context.Background(), src, Request{Freeform: "thêm mũ"})
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "edit_kol_1_0_1700000000000" {
		t.Fatalf("unexpected id %s", got.ID)
	}
	wantPrompt := "Chỉnh sửa: \"YÊU CẦU: thêm mũ. Giữ nguyên mọi thứ khác càng nhiều càng tốt.\"\n---\nPrompt gốc:\ngốc"
	if got.Prompt != wantPrompt {
		t.Fatalf("got prompt %q", got.Prompt)
	}
	if len(got.InputImages) != 1 || got.InputImages[0].MimeType != "image/jpeg" || ed.image.Base64 != "U1JD" {
		t.Fatalf("unexpected inputs %+v", got.InputImages)
	}
	if got.IsRegenerating {
		t.Fatal("transient flags must be cleared")
	}
}

func TestReplacePolicies(t *testing.T) {
	list := []asset.LibraryAsset{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	derived := asset.LibraryAsset{ID: "edit_b_1", Src: "new"}

	lib := ReplaceInLibrary(list, "b", derived)
	if len(lib) != 3 || lib[0].ID != "edit_b_1" || lib[1].ID != "a" || lib[2].ID != "c" {
		t.Fatalf("library policy: %+v", lib)
	}

	row, ok := ReplaceInList(list, "b", derived)
	if !ok || row[1].ID != "b" || row[1].Src != "new" || list[1].Src != "" {
		t.Fatalf("row policy: %+v", row)
	}
}

func TestSessionStateMachine(t *testing.T) {
	var s Session
	s, err := s.Begin(asset.LibraryAsset{ID: "a"})
	if err != nil || s.State != StateEditing {
		t.Fatalf("begin: %v %s", err, s.State)
	}
	if _, err := s.Begin(asset.LibraryAsset{ID: "b"}); !errors.Is(err, ErrBusy) {
		t.Fatalf("want ErrBusy, got %v", err)
	}
	s = s.Fail(errors.New("boom"))
	if s.State != StateError || s.Error != "boom" {
		t.Fatalf("fail: %+v", s)
	}
	s = s.Close()
	if s.State != StateIdle || s.Target != nil || s.Error != "" {
		t.Fatalf("close must reset: %+v", s)
	}
}

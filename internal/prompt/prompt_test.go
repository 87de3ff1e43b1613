package prompt

import (
	"strings"
	"testing"

	"kol-studio/internal/catalog"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		name   string
		sel    Selection
		want   string
		wantOK bool
	}{
		{"unchanged", Selection{Choice: catalog.Unchanged}, "", false},
		{"auto", Selection{Choice: catalog.Auto}, "", false},
		{"auto short", Selection{Choice: catalog.AutoShort}, "", false},
		{"empty", Selection{}, "", false},
		{"custom", Selection{Choice: catalog.Custom, Custom: "  áo len đỏ  "}, "áo len đỏ", true},
		{"custom blank", Selection{Choice: catalog.Custom, Custom: "   "}, "", true},
		{"literal", Selection{Choice: "Bãi biển Đà Nẵng"}, "Bãi biển Đà Nẵng", true},
	}
	for _, c := range cases {
		got, ok := Resolve(c.sel)
		if got != c.want || ok != c.wantOK {
			t.Fatalf("%s: got (%q, %v), want (%q, %v)", c.name, got, ok, c.want, c.wantOK)
		}
	}
}

func TestComposeFixedOrder(t *testing.T) {
	sel := Selections{
		AdditionalRequirements: {Choice: "cười tươi"},
		Pose:                   {Choice: "Đứng thẳng, tay buông tự nhiên"},
		Context:                {Choice: "Bãi biển Đà Nẵng"},
		Style:                  {Choice: catalog.Auto},
		Clothing:               {Choice: catalog.Custom, Custom: ""},
	}
	want := "- Bối cảnh: Bãi biển Đà Nẵng.\n- Tư thế: Đứng thẳng, tay buông tự nhiên.\n- Yêu cầu thêm: cười tươi."

	for i := 0; i < 5; i++ {
		if got := Compose(sel.Resolve()); got != want {
			t.Fatalf("got %q\nwant %q", got, want)
		}
	}
}

func TestComposeEmpty(t *testing.T) {
	sel := Selections{Pose: {Choice: catalog.Unchanged}, Context: {Choice: catalog.Auto}}
	if got := Compose(sel.Resolve()); got != "" {
		t.Fatalf("want empty, got %q", got)
	}
}

func TestComposeExcept(t *testing.T) {
	r := Resolved{Context: "Phố cổ Hà Nội", Clothing: "Áo dài"}
	if got := ComposeExcept(r, Clothing); got != "- Bối cảnh: Phố cổ Hà Nội." {
		t.Fatalf("got %q", got)
	}
}

func TestBrief(t *testing.T) {
	got := Brief(BriefOptions{
		Audience:       catalog.Girl,
		SkinTone:       "Trắng hồng",
		Resolved:       Resolved{Pose: "Ôm gấu bông", Context: "Vườn hoa"},
		IdentityLocked: true,
	})
	want := strings.Join([]string{
		"**Creative Brief:** Chân dung nghệ thuật",
		"**Chủ thể:** Một người mẫu Việt Nam là trẻ em, tông da Trắng hồng.",
		"**YÊU CẦU BẮT BUỘC (GƯƠNG MẶT):** Giữ nguyên 100% đặc điểm gương mặt từ ảnh tham khảo đầu tiên.",
		"**Bối cảnh:** Vườn hoa.",
		"**Tư thế:** Ôm gấu bông.",
	}, "\n")
	if got != want {
		t.Fatalf("got\n%s\nwant\n%s", got, want)
	}

	raw := Brief(BriefOptions{Prompt: "ảnh chân dung", CreatingKOL: true, IdentityLocked: true})
	if raw != "ảnh chân dung" {
		t.Fatalf("creating a KOL should send the raw prompt, got %q", raw)
	}
}

func TestWithSafetyIdempotent(t *testing.T) {
	once := WithSafety("chụp ảnh")
	twice := WithSafety(once)
	if once != twice {
		t.Fatal("safety block prepended twice")
	}
	if StripSafety(once) != "chụp ảnh" {
		t.Fatalf("strip mismatch: %q", StripSafety(once))
	}
}

func TestVariationInstructionOrder(t *testing.T) {
	got := VariationInstruction("ánh hoàng hôn")
	face := strings.Index(got, "GƯƠNG MẶT")
	style := strings.Index(got, "PHONG CÁCH")
	scene := strings.Index(got, "KỊCH BẢN:** ánh hoàng hôn")
	if face < 0 || style < face || scene < style {
		t.Fatalf("constraints out of order:\n%s", got)
	}
}

func TestVeoPrompts(t *testing.T) {
	prompts := VeoPrompts("  xoay người  ")
	if len(prompts) != 4 {
		t.Fatalf("want 4 prompts, got %d", len(prompts))
	}
	for _, p := range prompts {
		if !strings.Contains(p.Prompt, "- **Ý tưởng:** xoay người\n") {
			t.Fatalf("idea not injected: %s", p.Prompt)
		}
		if !strings.HasSuffix(p.Prompt, veoRule) {
			t.Fatalf("rule suffix missing: %s", p.Title)
		}
	}
	if strings.Contains(VeoPrompts("")[0].Prompt, "Ý tưởng:** \n") {
		t.Fatal("blank idea should use the template default")
	}
}

func TestSuggestionBase(t *testing.T) {
	got := SuggestionBase(catalog.Male, Resolved{Style: "Lịch lãm, trưởng thành"})
	if got != "Chụp ảnh một KOL nam.\n- Phong cách: Lịch lãm, trưởng thành." {
		t.Fatalf("got %q", got)
	}
}

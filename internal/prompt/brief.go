package prompt

import (
	"strings"

	"kol-studio/internal/catalog"
)

const safetyHeader = "**QUY TẮC AN TOÀN NỘI DUNG NHẠY CẢM (ƯU TIÊN TUYỆT ĐỐI) - V2**"

// SafetyGuidance is prepended to every instruction at transmission time.
const SafetyGuidance = safetyHeader + `
1. Không tạo nội dung khỏa thân, khiêu dâm hoặc gợi dục dưới bất kỳ hình thức nào.
2. Với nhân vật là trẻ em: trang phục kín đáo, phù hợp lứa tuổi; tư thế và bối cảnh hồn nhiên, an toàn.
3. Trang phục bơi, đồ lót hoặc đồ ngủ chỉ được thể hiện theo phong cách thời trang, lịch sự, không nhấn vào cơ thể.
4. Không tạo hình ảnh bạo lực, máu me, vũ khí, chất cấm hoặc hành vi nguy hiểm.
5. Không mô phỏng người nổi tiếng có thật, không chèn logo hay thương hiệu có thật nếu không được yêu cầu.
6. Nếu yêu cầu vi phạm các quy tắc trên, hãy diễn giải lại theo hướng an toàn gần nhất thay vì thực hiện nguyên văn.`

// WithSafety prefixes instruction with the safety block once.
func WithSafety(instruction string) string {
	if strings.HasPrefix(instruction, SafetyGuidance) {
		return instruction
	}
	return SafetyGuidance + "\n\n" + instruction
}

// StripSafety removes a leading safety block, if any.
func StripSafety(instruction string) string {
	if !strings.HasPrefix(instruction, SafetyGuidance) {
		return instruction
	}
	return strings.TrimPrefix(strings.TrimPrefix(instruction, SafetyGuidance), "\n\n")
}

type BriefOptions struct {
	Prompt         string
	Audience       catalog.Audience
	SkinTone       string
	Resolved       Resolved
	IdentityLocked bool
	CreatingKOL    bool
}

var briefFields = []struct {
	field Field
	label string
}{
	{BodyType, "Vóc dáng"},
	{Context, "Bối cảnh"},
	{Clothing, "Trang phục"},
	{Style, "Phong cách"},
	{Pose, "Tư thế"},
	{CameraAngle, "Góc máy"},
	{AdditionalRequirements, "Yêu cầu thêm"},
}

// Brief renders the creative brief sent to the image model.
func Brief(opts BriefOptions) string {
	if opts.CreatingKOL {
		return opts.Prompt
	}

	var b strings.Builder
	lead := strings.TrimSpace(opts.Prompt)
	if lead == "" {
		lead = "Chân dung nghệ thuật"
	}
	b.WriteString("**Creative Brief:** " + lead)

	subject := "Một người mẫu Việt Nam"
	if opts.Audience.IsKid() {
		subject += " là trẻ em"
	}
	if tone := strings.TrimSpace(opts.SkinTone); tone != "" && !catalog.IsSentinel(tone) {
		subject += ", tông da " + tone
	}
	b.WriteString("\n**Chủ thể:** " + subject + ".")

	if opts.IdentityLocked {
		b.WriteString("\n**YÊU CẦU BẮT BUỘC (GƯƠNG MẶT):** Giữ nguyên 100% đặc điểm gương mặt từ ảnh tham khảo đầu tiên.")
	}

	for _, bf := range briefFields {
		v := strings.TrimSpace(opts.Resolved[bf.field])
		if v == "" {
			continue
		}
		b.WriteString("\n**" + bf.label + ":** " + v + ".")
	}
	return b.String()
}

// SuggestionBase is the seed handed to the rich-prompt rewrite.
func SuggestionBase(a catalog.Audience, r Resolved) string {
	base := "Chụp ảnh " + a.Label() + "."
	if composed := Compose(r); composed != "" {
		base += "\n" + composed
	}
	return base
}

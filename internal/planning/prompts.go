package planning

import (
	"fmt"
	"strings"

	"kol-studio/internal/catalog"
	"kol-studio/internal/prompt"
)

const calendarSystemInstruction = "Bạn là chuyên gia lập kế hoạch nội dung. Tạo lịch 4 tuần (28 ngày) dưới dạng JSON."

const calendarFormat = `
Output JSON format: [{ "day": "Tuần 1 - Thứ 2", "contentType": "Reels/Photo", "description": "Mô tả nội dung", "imagePromptSuggestion": "Prompt tạo ảnh chi tiết", "captionTheme": "Chủ đề caption" }, ...]`

const strategyItemFormat = `
Mỗi phần tử có dạng: { "stage": "Giai đoạn", "task": "Tên đầu việc", "description": "Mô tả chi tiết cách làm", "imagePromptSuggestion": "Gợi ý ảnh minh họa" }`

type CalendarInput struct {
	Audience catalog.Audience `json:"audience"`
	KOLName  string           `json:"kolName,omitempty"`
	Topic    prompt.Selection `json:"topic"`
	Tone     prompt.Selection `json:"tone"`
	Weather  prompt.Selection `json:"weather"`
	BodyType prompt.Selection `json:"bodyType"`
	Style    prompt.Selection `json:"style"`
}

// PostSettings are the campaign-wide tone and style a row post inherits.
func (in CalendarInput) PostSettings() (tone, style string) {
	tone, _ = prompt.Resolve(in.Tone)
	style, _ = prompt.Resolve(in.Style)
	return tone, style
}

// CalendarPrompt renders the campaign request for a 4-week plan.
func CalendarPrompt(in CalendarInput) string {
	var b strings.Builder
	b.WriteString("Bạn là một chuyên gia sáng tạo nội dung mạng xã hội. Hãy tạo một lịch nội dung cho 1 tháng (4 tuần) cho ")
	b.WriteString(in.Audience.Label())
	if name := strings.TrimSpace(in.KOLName); name != "" {
		b.WriteString(" tên là " + name)
	}
	b.WriteString(".")

	details := make([]string, 0, 5)
	add := func(label string, sel prompt.Selection) {
		if v, ok := prompt.Resolve(sel); ok && strings.TrimSpace(v) != "" {
			details = append(details, label+": "+v)
		}
	}
	add("Chủ đề chính", in.Topic)
	add("Giọng văn (tone of voice)", in.Tone)
	add("Bối cảnh thời tiết chủ đạo", in.Weather)
	add("Vóc dáng của KOL", in.BodyType)
	add("Phong cách hình ảnh chung", in.Style)

	if len(details) > 0 {
		b.WriteString("\n**Bối cảnh chung của chiến dịch:**\n- ")
		b.WriteString(strings.Join(details, "\n- "))
	}
	return b.String()
}

type PostInput struct {
	Audience    catalog.Audience
	KOLName     string
	Topic       string
	ContentType string
	Tone        string
	Style       string
}

func PostPrompt(in PostInput) string {
	return fmt.Sprintf(`Viết bài đăng mạng xã hội cho KOL %s (%s).
    - Chủ đề: %s
    - Định dạng: %s
    - Tone: %s
    - Style: %s

    Output JSON: { "title": "Tiêu đề bắt mắt", "caption": "Nội dung bài viết đầy đủ (có icon, tách đoạn)" }`,
		in.KOLName, in.Audience, in.Topic,
		orDefault(in.ContentType, "Bài viết"),
		orDefault(in.Tone, "Tự nhiên"),
		orDefault(in.Style, "Đời thường"))
}

// StrategyPrompt renders the request for one strategy kind. Inputs must have
// passed Validate.
func StrategyPrompt(in StrategyInput) string {
	switch in.Kind {
	case Channel:
		return fmt.Sprintf(`Lập chiến lược xây kênh %s cho KOL %s trong lĩnh vực %s để đạt mục tiêu %s.
    Output JSON list of steps: [{ "stage": "Giai đoạn 1: Xây nền", "task": "Tên đầu việc", "description": "Mô tả chi tiết cách làm", "imagePromptSuggestion": "Gợi ý ảnh minh họa" }, ...]`,
			in.Platform, in.KOLName, in.Niche, in.Goal)
	case Funnel:
		return fmt.Sprintf(`Thiết kế phễu marketing cho sản phẩm %s nhắm tới %s của KOL %s. Mục tiêu: %s.
    Output JSON list steps.`, in.Product, in.Audience, in.KOLName, in.Goal) + strategyItemFormat
	case Offer:
		return fmt.Sprintf(`Xây dựng Offer Stack (Combo ưu đãi) cho sản phẩm %s (Giá: %s) giải quyết vấn đề %s của KOL %s.
    Output JSON list items.`, in.Product, in.Price, in.Problem, in.KOLName) + strategyItemFormat
	case Landing:
		return fmt.Sprintf(`Viết nội dung (Copywriting) cho Landing Page bán %s cho %s, CTA: %s.
    Output JSON list sections (Headline, Problem, Solution, Benefits, Social Proof, CTA).`, in.Product, in.Audience, in.CTA) + strategyItemFormat
	case Affiliate:
		return fmt.Sprintf(`Lập chiến dịch Affiliate Marketing cho KOL %s.
    - Sản phẩm: %s
    - Mô tả: %s
    - USP: %s
    - Target: %s
    - Offer: %s
    - Goal: %s
    Output JSON list of content plan items.`, in.KOLName, in.Product, in.Description, in.USP, in.Audience, in.Offer, in.Goal) + strategyItemFormat
	}
	return ""
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

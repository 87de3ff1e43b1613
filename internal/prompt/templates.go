package prompt

import (
	"fmt"
	"strings"
)

var FallbackDirections = []string{
	"Biến thể ánh sáng",
	"Biến thể góc chụp",
	"Biến thể màu sắc",
	"Biến thể bối cảnh",
}

// VariationSynthesis asks the text model for creative directions for an image.
func VariationSynthesis(originalPrompt string) string {
	return fmt.Sprintf(`Phân tích hình ảnh và prompt gốc: "%s".
    Hãy tạo ra 4 ý tưởng biến thể sáng tạo khác nhau cho hình ảnh này (Thay đổi về ánh sáng, góc chụp, hoặc bối cảnh tinh tế, nhưng giữ nguyên nhân vật).
    Trả về dưới dạng JSON array of strings.`, originalPrompt)
}

// VariationInstruction layers face, style and scenario in that order.
func VariationInstruction(direction string) string {
	var b strings.Builder
	b.WriteString("**YÊU CẦU BIẾN THỂ:**\n")
	b.WriteString("1. **GƯƠNG MẶT:** Giữ 100% gương mặt từ ảnh 1.\n")
	b.WriteString("2. **PHONG CÁCH:** Lấy cảm hứng từ ảnh 2.\n")
	b.WriteString("3. **KỊCH BẢN:** " + direction)
	return b.String()
}

type VeoPrompt struct {
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}

const veoRule = "\n- **LUẬT BẮT BUỘC - KHÔNG NGOẠI LỆ:** Giữ nguyên 100% nhân vật (bao gồm gương mặt, kiểu tóc), trang phục, và bối cảnh từ ảnh gốc. Video được tạo ra TUYỆT ĐỐI KHÔNG được chứa bất kỳ loại văn bản, chữ, logo, watermark, hay âm thanh lời thoại nào."

var veoTemplates = []struct {
	title, intro, idea, req string
}{
	{
		title: "Gợi ý 1: Khoảnh khắc Tĩnh lặng (Cinemagraph)",
		intro: "Tạo một video cinemagraph 8K siêu thực từ ảnh tĩnh. Chuyển động phải cực kỳ tinh tế, gần như không thể nhận thấy, tạo cảm giác một khoảnh khắc sống động bị đóng băng trong thời gian.",
		idea:  "Nhân vật chớp mắt cực chậm, một vài sợi tóc bay nhẹ trong gió thoảng, ánh sáng thay đổi một cách mềm mại trên da, hậu cảnh có chuyển động siêu nhỏ (lá cây rung rinh, gợn sóng lăn tăn). Toàn bộ video phải là một vòng lặp hoàn hảo.",
		req:   "Cinematic, hyperrealistic, subtle motion, seamless loop.",
	},
	{
		title: "Gợi ý 2: Chân dung Cảm xúc (Emotional Portrait)",
		intro: "Tạo một video cận cảnh (close-up) 4K, mang đậm phong cách điện ảnh, tập trung vào biểu cảm vi tế và cảm xúc nội tâm. Sử dụng ống kính 85mm f/1.4 để tạo độ sâu trường ảnh nông.",
		idea:  "Nhân vật từ từ ngẩng đầu, ánh mắt chuyển từ suy tư, xa xăm sang nhìn thẳng vào ống kính với một nụ cười ấm áp, gần gũi. Ánh sáng mềm mại chiếu vào một bên mặt, tạo khối.",
		req:   "Chuyển động siêu chậm (extreme slow-motion), lấy nét vào mắt, ánh sáng dịu (soft lighting), bokeh đẹp.",
	},
	{
		title: "Gợi ý 3: Khoảnh khắc Tự nhiên (Candid Moment)",
		intro: "Tạo một video góc máy trung bình (medium shot) ghi lại một khoảnh khắc tự nhiên, chân thật như một thước phim tài liệu được quay bằng máy quay cầm tay (handheld style).",
		idea:  "Nhân vật nhẹ nhàng vuốt tóc, sau đó cầm tách cà phê lên, thổi nhẹ cho nguội rồi nhấp một ngụm, ánh mắt nhìn ra xa với vẻ thư thái, bình yên.",
		req:   "Chuyển động mượt mà, không gượng ép, rung máy nhẹ tự nhiên, tông màu chân thực.",
	},
	{
		title: "Gợi ý 4: Cảnh quay Điện ảnh (Cinematic Scene)",
		intro: "Tạo một cảnh quay điện ảnh ngắn, đầy kịch tính với chuyển động máy quay chuyên nghiệp. Sử dụng tông màu phim (film color grading).",
		idea:  "Máy quay tiến vào rất chậm (dolly-in) về phía nhân vật đang đứng yên, tạo cảm giác tập trung và hồi hộp. Có thể có hiệu ứng ánh đèn đường phản chiếu trên vũng nước mưa, hoặc ánh nắng xuyên qua cửa sổ tạo luồng sáng (god rays).",
		req:   "Sử dụng ánh sáng tương phản cao (chiaroscuro) để tạo chiều sâu, chuyển động máy quay mượt mà, tông màu điện ảnh (teal and orange, vintage look, etc.).",
	},
}

// VeoPrompts returns the four motion templates. A blank idea keeps each
// template's own default idea.
func VeoPrompts(idea string) []VeoPrompt {
	idea = strings.TrimSpace(idea)
	out := make([]VeoPrompt, 0, len(veoTemplates))
	for _, t := range veoTemplates {
		v := idea
		if v == "" {
			v = t.idea
		}
		out = append(out, VeoPrompt{
			Title:  t.title,
			Prompt: t.intro + "\n- **Ý tưởng:** " + v + "\n- **Yêu cầu:** " + t.req + veoRule,
		})
	}
	return out
}

package studio

import (
	"errors"
	"strings"

	"kol-studio/internal/asset"
	"kol-studio/internal/gemini"
	"kol-studio/internal/library"
	"kol-studio/internal/planning"
	"kol-studio/internal/quickedit"
	"kol-studio/internal/variation"
	"kol-studio/internal/veo"
)

var userMessages = []struct {
	err error
	msg string
}{
	{ErrFaceRequired, "Vui lòng khóa gương mặt KOL trước khi tạo ảnh."},
	{variation.ErrIdentityRequired, "Vui lòng khóa gương mặt KOL trước khi tạo biến thể để đảm bảo tính nhất quán."},
	{planning.ErrIdentityRequired, "Vui lòng khóa gương mặt KOL trước khi tạo ảnh."},
	{ErrOutfitRequired, "Vui lòng thêm ít nhất một ảnh trang phục."},
	{ErrSourceRequired, "Vui lòng tải ảnh gốc."},
	{ErrInstruction, "Vui lòng nhập yêu cầu biến đổi."},
	{ErrLandmarksRequired, "Vui lòng chọn ít nhất một địa điểm để tạo ảnh."},
	{ErrNoVideoSource, "Vui lòng chọn ảnh để tạo video."},
	{ErrNoVideo, "Chưa có video nào để lưu."},
	{ErrNoPendingVariants, "Không có biến thể nào để lưu."},
	{ErrNotReference, "Chỉ có thể dùng ảnh trang phục hoặc bối cảnh."},
	{ErrCaptionInput, "Vui lòng tải ảnh lên hoặc nhập chủ đề để tạo caption."},
	{gemini.ErrNoImage, "AI không trả về hình ảnh nào. Có thể do vi phạm chính sách nội dung."},
	{gemini.ErrEmptyPrompt, "Vui lòng nhập mô tả hoặc chọn tùy chọn để tạo ảnh."},
	{veo.ErrEmptyPrompt, "Vui lòng chọn hoặc nhập prompt cho video."},
	{veo.ErrNoVideo, "Không nhận được video từ AI."},
	{quickedit.ErrMultipleEdits, "Vui lòng chỉ chọn một loại chỉnh sửa mỗi lần."},
	{quickedit.ErrNoEdit, "Vui lòng nhập ít nhất một yêu cầu chỉnh sửa."},
	{quickedit.ErrBusy, "Đang có một yêu cầu chỉnh sửa khác."},
	{library.ErrNotFound, "Không tìm thấy ảnh."},
	{planning.ErrRowOutOfRange, "Không tìm thấy dòng kế hoạch."},
	{ErrPlanReplaced, "Kế hoạch đã được tạo lại, kết quả của dòng cũ đã bị bỏ qua."},
	{asset.ErrVideoWithoutSource, "Video phải kèm ảnh gốc."},
}

// Message turns err into the Vietnamese text shown to users.
func Message(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}

	var importErr *library.ImportError
	if errors.As(err, &importErr) {
		return "Tệp thư viện không hợp lệ: " + importErr.Reason
	}
	if errors.Is(err, planning.ErrInvalidStrategy) {
		return "Vui lòng điền đầy đủ thông tin chiến lược."
	}
	if gemini.IsTransient(err) {
		return "Hệ thống AI đang quá tải, vui lòng thử lại sau ít phút."
	}
	var apiErr *gemini.APIError
	if errors.As(err, &apiErr) && strings.Contains(apiErr.Body, "Requested entity was not found") {
		return "API key không hợp lệ hoặc đã hết hạn. Vui lòng thử lại."
	}
	return "Đã xảy ra lỗi: " + err.Error()
}

package planning

import (
	"encoding/csv"
	"fmt"
	"io"
)

const (
	CalendarFileName = "lich-noi-dung.csv"
	StrategyFileName = "chien-luoc.csv"
)

const utf8BOM = "\ufeff"

var calendarHeader = []string{"Ngày", "Loại nội dung", "Mô tả", "Chủ đề caption", "Gợi ý ảnh", "Tiêu đề", "Bài viết"}

var strategyHeader = []string{"Giai đoạn", "Đầu việc", "Mô tả", "Gợi ý ảnh", "Tiêu đề", "Bài viết"}

func WriteCalendarCSV(w io.Writer, rows []CalendarRow) error {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, calendarHeader)
	for _, r := range rows {
		title, caption := postFields(r.GeneratedPost)
		records = append(records, []string{r.Day, r.ContentType, r.Description, r.CaptionTheme, r.ImagePromptSuggestion, title, caption})
	}
	return writeCSV(w, records)
}

func WriteStrategyCSV(w io.Writer, items []StrategyItem) error {
	records := make([][]string, 0, len(items)+1)
	records = append(records, strategyHeader)
	for _, it := range items {
		title, caption := postFields(it.GeneratedPost)
		records = append(records, []string{it.Stage, it.Task, it.Description, it.ImagePromptSuggestion, title, caption})
	}
	return writeCSV(w, records)
}

func postFields(p *Post) (string, string) {
	if p == nil {
		return "", ""
	}
	return p.Title, p.Caption
}

// writeCSV prefixes a byte order mark so spreadsheet apps detect UTF-8.
func writeCSV(w io.Writer, records [][]string) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

package entry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/aircom83/ebbinghaus-english-public/internal/model"
)

// ImportResult はExcel取り込みの結果。
type ImportResult struct {
	Added  int             `json:"added"`
	Errors []BulkLineError `json:"errors,omitempty"`
}

// ImportWorkbook はExcelファイルからエントリーを一括登録する。
//
// 先頭シートのA列を日本語、B列を英語として読む。1行目が
// 「日本語」「japanese」等のヘッダーに見える場合はスキップする。
// 不正な行はエラー一覧に積み、有効な行だけを登録する（部分コミット）。
func (s *Service) ImportWorkbook(ctx context.Context, userID string, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, model.NewEmptyFieldsError()
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	today := s.clock.Today()
	result := &ImportResult{}
	var entries []*model.Entry

	for i, row := range rows {
		japanese, english := cellAt(row, 0), cellAt(row, 1)
		if japanese == "" && english == "" {
			continue
		}
		if i == 0 && isHeaderRow(japanese, english) {
			continue
		}

		entry, err := s.buildEntry(userID, japanese, english, today)
		if err != nil {
			result.Errors = append(result.Errors, BulkLineError{
				Line:    i + 1,
				Content: strings.TrimSpace(japanese + " / " + english),
				Reason:  "日本語と英語の両方が必要です",
			})
			continue
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		if len(result.Errors) > 0 {
			return result, nil
		}
		return nil, model.NewEmptyFieldsError()
	}

	if err := s.entryRepo.CreateBatch(ctx, entries); err != nil {
		return nil, fmt.Errorf("failed to create entries: %w", err)
	}

	result.Added = len(entries)
	if s.metrics != nil {
		s.metrics.RecordEntriesRegistered(len(entries))
		s.metrics.RecordImportRows(len(entries))
	}

	slog.Info("entries imported from workbook",
		slog.String("user_id", userID),
		slog.Int("count", len(entries)),
	)

	return result, nil
}

// cellAt は行のi番目のセル値をトリムして返す。範囲外は空文字。
func cellAt(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// isHeaderRow は1行目がヘッダー行かどうかを推定する。
func isHeaderRow(japanese, english string) bool {
	j := strings.ToLower(japanese)
	e := strings.ToLower(english)
	return j == "日本語" || j == "japanese" || e == "英語" || e == "english"
}

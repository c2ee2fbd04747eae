package entry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/aircom83/ebbinghaus-english-public/internal/model"
)

// buildWorkbook はテスト用のxlsxを組み立てる。rowsは[日本語, 英語]のペア。
func buildWorkbook(t *testing.T, rows [][]string) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		for j, cell := range row {
			axis, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("failed to build cell name: %v", err)
			}
			if err := f.SetCellValue("Sheet1", axis, cell); err != nil {
				t.Fatalf("failed to set cell: %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to write workbook: %v", err)
	}
	return buf
}

// TestImportWorkbook_Success はヘッダー行をスキップして全行が登録されることを検証する。
func TestImportWorkbook_Success(t *testing.T) {
	var created []*model.Entry
	repo := &mockEntryRepo{
		createBatchFn: func(ctx context.Context, entries []*model.Entry) error {
			created = entries
			return nil
		},
	}
	svc := newTestService(repo)

	buf := buildWorkbook(t, [][]string{
		{"日本語", "英語"},
		{"りんご", "apple"},
		{"犬", "dog"},
	})

	result, err := svc.ImportWorkbook(context.Background(), "user-1", buf)
	if err != nil {
		t.Fatalf("ImportWorkbook failed: %v", err)
	}

	if result.Added != 2 {
		t.Errorf("added = %d, want 2", result.Added)
	}
	if len(result.Errors) != 0 {
		t.Errorf("errors = %v, want none", result.Errors)
	}
	if len(created) != 2 {
		t.Fatalf("persisted %d entries, want 2", len(created))
	}
	if created[0].Japanese != "りんご" || created[0].English != "apple" {
		t.Errorf("entry[0] = %q/%q, want りんご/apple", created[0].Japanese, created[0].English)
	}
	// 登録日基準のスケジュールが確定していること
	if got := created[0].Schedule[0].String(); got != testToday.AddDays(1).String() {
		t.Errorf("schedule[0] = %s, want %s", got, testToday.AddDays(1).String())
	}
}

// TestImportWorkbook_BlankRowsSkipped は空行が無視されることを検証する。
func TestImportWorkbook_BlankRowsSkipped(t *testing.T) {
	var created []*model.Entry
	repo := &mockEntryRepo{
		createBatchFn: func(ctx context.Context, entries []*model.Entry) error {
			created = entries
			return nil
		},
	}
	svc := newTestService(repo)

	buf := buildWorkbook(t, [][]string{
		{"りんご", "apple"},
		{"", ""},
		{"猫", "cat"},
	})

	result, err := svc.ImportWorkbook(context.Background(), "user-1", buf)
	if err != nil {
		t.Fatalf("ImportWorkbook failed: %v", err)
	}
	if result.Added != 2 || len(created) != 2 {
		t.Errorf("added = %d (persisted %d), want 2", result.Added, len(created))
	}
}

// TestImportWorkbook_PartialCommit は不正行があっても有効行は登録され、
// 行番号付きでエラーが併記されることを検証する。
func TestImportWorkbook_PartialCommit(t *testing.T) {
	var batch []*model.Entry
	repo := &mockEntryRepo{
		createBatchFn: func(ctx context.Context, entries []*model.Entry) error {
			batch = entries
			return nil
		},
	}
	svc := newTestService(repo)

	buf := buildWorkbook(t, [][]string{
		{"りんご", "apple"},
		{"犬", ""},
	})

	result, err := svc.ImportWorkbook(context.Background(), "user-1", buf)
	if err != nil {
		t.Fatalf("ImportWorkbook failed: %v", err)
	}

	if len(result.Errors) != 1 {
		t.Fatalf("errors = %d, want 1", len(result.Errors))
	}
	if result.Errors[0].Line != 2 {
		t.Errorf("error line = %d, want 2", result.Errors[0].Line)
	}
	if result.Added != 1 {
		t.Errorf("added = %d, want 1", result.Added)
	}
	if len(batch) != 1 || batch[0].Japanese != "りんご" {
		t.Errorf("persisted = %v, want only りんご/apple", batch)
	}
}

// TestImportWorkbook_AllRowsInvalid は有効行ゼロだと何も登録されないことを検証する。
func TestImportWorkbook_AllRowsInvalid(t *testing.T) {
	batchCalled := false
	repo := &mockEntryRepo{
		createBatchFn: func(ctx context.Context, entries []*model.Entry) error {
			batchCalled = true
			return nil
		},
	}
	svc := newTestService(repo)

	buf := buildWorkbook(t, [][]string{
		{"犬", ""},
		{"", "cat"},
	})

	result, err := svc.ImportWorkbook(context.Background(), "user-1", buf)
	if err != nil {
		t.Fatalf("ImportWorkbook failed: %v", err)
	}

	if result.Added != 0 || batchCalled {
		t.Error("nothing should be persisted when every row is invalid")
	}
	if len(result.Errors) != 2 {
		t.Errorf("errors = %d, want 2", len(result.Errors))
	}
}

// TestImportWorkbook_EmptyWorkbook は有効行ゼロでEMPTY_FIELDSになることを検証する。
func TestImportWorkbook_EmptyWorkbook(t *testing.T) {
	svc := newTestService(&mockEntryRepo{})

	buf := buildWorkbook(t, [][]string{{"日本語", "英語"}})

	_, err := svc.ImportWorkbook(context.Background(), "user-1", buf)
	if err == nil {
		t.Fatal("expected error for workbook with no data rows")
	}
	wantAPIError(t, err, model.ErrCodeEmptyFields)
}

// TestImportWorkbook_NotAWorkbook はxlsx以外の入力でエラーになることを検証する。
func TestImportWorkbook_NotAWorkbook(t *testing.T) {
	svc := newTestService(&mockEntryRepo{})

	_, err := svc.ImportWorkbook(context.Background(), "user-1", strings.NewReader("plain text"))
	if err == nil {
		t.Fatal("expected error for non-xlsx input")
	}
}

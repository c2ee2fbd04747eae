// Package entry は学習エントリーの管理機能を提供する。
package entry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aircom83/ebbinghaus-english-public/internal/clock"
	"github.com/aircom83/ebbinghaus-english-public/internal/metrics"
	"github.com/aircom83/ebbinghaus-english-public/internal/model"
	"github.com/aircom83/ebbinghaus-english-public/internal/repository"
	"github.com/aircom83/ebbinghaus-english-public/internal/scheduler"
)

// Service は学習エントリーの登録・参照・編集のサービス。
type Service struct {
	entryRepo repository.EntryRepository
	clock     clock.Clock
	metrics   metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	entryRepo repository.EntryRepository,
	clk clock.Clock,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		entryRepo: entryRepo,
		clock:     clk,
		metrics:   collector,
	}
}

// EntrySummary はエントリー一覧の1件分の表示情報。
type EntrySummary struct {
	ID            string            `json:"id"`
	Japanese      string            `json:"japanese"`
	English       string            `json:"english"`
	RegisteredOn  model.Date        `json:"registered_on"`
	Status        model.EntryStatus `json:"status"`
	NextReviewOn  *model.Date       `json:"next_review_on,omitempty"`
	NextTierIndex int               `json:"next_tier_index"`
	ReviewCount   int               `json:"review_count"`
}

// Stats はエントリー一覧の集計情報。
type Stats struct {
	Total     int `json:"total"`
	Due       int `json:"due"`
	Learning  int `json:"learning"`
	Completed int `json:"completed"`
}

// ListResult はListの戻り値。
type ListResult struct {
	Entries []EntrySummary `json:"entries"`
	Stats   Stats          `json:"stats"`
}

// List はユーザーの全エントリーを学習状態付きで返す。
func (s *Service) List(ctx context.Context, userID string) (*ListResult, error) {
	entries, err := s.entryRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := s.clock.Today()
	result := &ListResult{Entries: make([]EntrySummary, len(entries))}
	for i, e := range entries {
		result.Entries[i] = summarize(e, today)
		switch result.Entries[i].Status {
		case model.EntryStatusDue:
			result.Stats.Due++
		case model.EntryStatusCompleted:
			result.Stats.Completed++
		default:
			result.Stats.Learning++
		}
	}
	result.Stats.Total = len(entries)

	return result, nil
}

// summarize はエントリーを表示用サマリーに変換する。
func summarize(e *model.Entry, today model.Date) EntrySummary {
	summary := EntrySummary{
		ID:            e.ID,
		Japanese:      e.Japanese,
		English:       e.English,
		RegisteredOn:  e.RegisteredOn,
		Status:        status(e, today),
		NextTierIndex: e.NextTierIndex,
		ReviewCount:   len(e.History),
	}
	if next, ok := e.NextReviewOn(); ok {
		summary.NextReviewOn = &next
	}
	return summary
}

// status はエントリーの学習状態を判定する。
func status(e *model.Entry, today model.Date) model.EntryStatus {
	if e.Completed {
		return model.EntryStatusCompleted
	}
	if scheduler.IsDue(e, today) {
		return model.EntryStatusDue
	}
	return model.EntryStatusLearning
}

// Add は新しいエントリーを登録する。
// 登録日は今日で、復習スケジュールは登録時に確定する。
func (s *Service) Add(ctx context.Context, userID, japanese, english string) (*model.Entry, error) {
	entry, err := s.buildEntry(userID, japanese, english, s.clock.Today())
	if err != nil {
		return nil, err
	}

	if err := s.entryRepo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordEntriesRegistered(1)
	}

	slog.Info("entry registered",
		slog.String("user_id", userID),
		slog.String("entry_id", entry.ID),
	)

	return entry, nil
}

// buildEntry は入力を検証してエントリーを組み立てる。
func (s *Service) buildEntry(userID, japanese, english string, registeredOn model.Date) (*model.Entry, error) {
	japanese = strings.TrimSpace(japanese)
	english = strings.TrimSpace(english)
	if japanese == "" || english == "" {
		return nil, model.NewEmptyFieldsError()
	}

	now := time.Now()
	entry := &model.Entry{
		ID:        uuid.New().String(),
		UserID:    userID,
		Japanese:  japanese,
		English:   english,
		CreatedAt: now,
		UpdatedAt: now,
	}
	scheduler.NewEntryState(entry, registeredOn)

	return entry, nil
}

// BulkLineError は一括登録入力の1行分のエラー。行番号は1始まり。
type BulkLineError struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

// BulkResult は一括登録の結果。
type BulkResult struct {
	Added  int             `json:"added"`
	Errors []BulkLineError `json:"errors,omitempty"`
}

// BulkAddLines は「日本語 / 英語」形式の複数行テキストからエントリーを一括登録する。
//
// 各行は最初の "/" で日本語と英語に分割する。空行は無視する。
// 不正な行はエラー一覧に積み、有効な行だけを登録する（部分コミット）。
func (s *Service) BulkAddLines(ctx context.Context, userID, text string) (*BulkResult, error) {
	today := s.clock.Today()
	result := &BulkResult{}
	var entries []*model.Entry

	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		japanese, english, ok := strings.Cut(line, "/")
		if !ok {
			result.Errors = append(result.Errors, BulkLineError{
				Line:    i + 1,
				Content: line,
				Reason:  "「日本語 / 英語」の形式ではありません",
			})
			continue
		}

		entry, err := s.buildEntry(userID, japanese, english, today)
		if err != nil {
			result.Errors = append(result.Errors, BulkLineError{
				Line:    i + 1,
				Content: line,
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
	}

	slog.Info("entries bulk registered",
		slog.String("user_id", userID),
		slog.Int("count", len(entries)),
	)

	return result, nil
}

// Get は指定IDのエントリーを履歴付きで返す。
func (s *Service) Get(ctx context.Context, userID, entryID string) (*model.Entry, error) {
	entry, err := s.entryRepo.FindByIDAndUser(ctx, entryID, userID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, model.NewEntryNotFoundError(entryID)
	}
	return entry, nil
}

// Edit はエントリーの日本語・英語テキストを更新する。
// スケジュールと履歴は変更しない。
func (s *Service) Edit(ctx context.Context, userID, entryID, japanese, english string) (*model.Entry, error) {
	japanese = strings.TrimSpace(japanese)
	english = strings.TrimSpace(english)
	if japanese == "" || english == "" {
		return nil, model.NewEmptyFieldsError()
	}

	entry, err := s.entryRepo.FindByIDAndUser(ctx, entryID, userID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, model.NewEntryNotFoundError(entryID)
	}

	if err := s.entryRepo.UpdateTexts(ctx, entryID, userID, japanese, english); err != nil {
		return nil, fmt.Errorf("failed to update entry: %w", err)
	}

	entry.Japanese = japanese
	entry.English = english
	return entry, nil
}

// Delete は指定IDのエントリーを削除する。
func (s *Service) Delete(ctx context.Context, userID, entryID string) error {
	deleted, err := s.entryRepo.Delete(ctx, entryID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return model.NewEntryNotFoundError(entryID)
	}

	slog.Info("entry deleted",
		slog.String("user_id", userID),
		slog.String("entry_id", entryID),
	)
	return nil
}

// DueEntries は今日復習対象のエントリーを登録順で返す。
// 予定日を過ぎたまま未解答のエントリーも対象に含む。
func (s *Service) DueEntries(ctx context.Context, userID string) ([]*model.Entry, error) {
	entries, err := s.entryRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := s.clock.Today()
	var due []*model.Entry
	for _, e := range entries {
		if scheduler.IsDue(e, today) {
			due = append(due, e)
		}
	}
	return due, nil
}

// PracticedToday は今日1回以上解答したエントリーを返す。
// 追加練習の出題対象になる。
func (s *Service) PracticedToday(ctx context.Context, userID string) ([]*model.Entry, error) {
	entries, err := s.entryRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := s.clock.Today()
	var practiced []*model.Entry
	for _, e := range entries {
		if e.PracticedOn(today) {
			practiced = append(practiced, e)
		}
	}
	return practiced, nil
}

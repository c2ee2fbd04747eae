package entry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aircom83/ebbinghaus-english-public/internal/clock"
	"github.com/aircom83/ebbinghaus-english-public/internal/metrics"
	"github.com/aircom83/ebbinghaus-english-public/internal/model"
	"github.com/aircom83/ebbinghaus-english-public/internal/quiz"
	"github.com/aircom83/ebbinghaus-english-public/internal/repository"
	"github.com/aircom83/ebbinghaus-english-public/internal/scheduler"
)

// Recorder は復習テストの解答を判定して永続化する。
// クイズセッションからAnswerRecorderとして利用される。
type Recorder struct {
	entryRepo repository.EntryRepository
	clock     clock.Clock
	metrics   metrics.MetricsCollector
}

// NewRecorder はRecorderを生成する。
func NewRecorder(
	entryRepo repository.EntryRepository,
	clk clock.Clock,
	collector metrics.MetricsCollector,
) *Recorder {
	return &Recorder{
		entryRepo: entryRepo,
		clock:     clk,
		metrics:   collector,
	}
}

// RecordAnswer は解答を判定し、エントリーの学習状態を更新して保存する。
// 保存に失敗した場合はエラーを返し、呼び出し側のセッション状態は進まない。
func (r *Recorder) RecordAnswer(ctx context.Context, userID, entryID, submitted string) (*scheduler.AnswerResult, error) {
	entry, err := r.entryRepo.FindByIDAndUser(ctx, entryID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entry: %w", err)
	}
	if entry == nil {
		return nil, model.NewEntryNotFoundError(entryID)
	}

	result := scheduler.RecordAnswer(entry, submitted, r.clock.Today())

	if err := r.entryRepo.Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to save answer: %w", err)
	}

	if r.metrics != nil {
		if result.Correct {
			r.metrics.RecordAnswer(string(model.ReviewCorrect))
		} else {
			r.metrics.RecordAnswer(string(model.ReviewIncorrect))
		}
	}

	slog.Info("answer recorded",
		slog.String("user_id", userID),
		slog.String("entry_id", entryID),
		slog.Bool("correct", result.Correct),
	)

	return &result, nil
}

// compile-time interface check
var _ quiz.AnswerRecorder = (*Recorder)(nil)

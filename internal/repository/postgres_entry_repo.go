package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/aircom83/ebbinghaus-english-public/internal/model"
)

// PostgresEntryRepo はPostgreSQLを使用した学習エントリーリポジトリ。
//
// scheduleはDATE[]カラム、historyはJSONBカラムに格納し、
// ドメイン型との変換はこの層で閉じる。
type PostgresEntryRepo struct {
	db *sql.DB
}

// NewPostgresEntryRepo はPostgresEntryRepoを生成する。
func NewPostgresEntryRepo(db *sql.DB) *PostgresEntryRepo {
	return &PostgresEntryRepo{db: db}
}

const entryColumns = `id, user_id, japanese, english, registered_on, schedule,
	 next_tier_index, history, completed, created_at, updated_at`

// scanEntry は1行分のカラム値をmodel.Entryに復元する。
func scanEntry(scan func(dest ...any) error) (*model.Entry, error) {
	entry := &model.Entry{}
	var schedule []time.Time
	var history []byte

	err := scan(
		&entry.ID, &entry.UserID, &entry.Japanese, &entry.English,
		&entry.RegisteredOn, pq.Array(&schedule),
		&entry.NextTierIndex, &history, &entry.Completed,
		&entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(schedule) != model.TierCount {
		return nil, fmt.Errorf("entry %s: schedule has %d dates, want %d", entry.ID, len(schedule), model.TierCount)
	}
	for i, t := range schedule {
		entry.Schedule[i] = model.DateOf(t.UTC())
	}

	if len(history) > 0 {
		if err := json.Unmarshal(history, &entry.History); err != nil {
			return nil, fmt.Errorf("entry %s: failed to decode history: %w", entry.ID, err)
		}
	}

	return entry, nil
}

// scheduleParam はスケジュールをDATE[]パラメータに変換する。
func scheduleParam(schedule [model.TierCount]model.Date) driver.Valuer {
	times := make([]time.Time, model.TierCount)
	for i, d := range schedule {
		times[i] = d.Time()
	}
	return pq.Array(times)
}

// historyParam は解答履歴をJSONBパラメータに変換する。
func historyParam(history []model.ReviewRecord) ([]byte, error) {
	if history == nil {
		history = []model.ReviewRecord{}
	}
	b, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}
	return b, nil
}

// ListByUserID はユーザーの全エントリーを登録日時の昇順で返す。
func (r *PostgresEntryRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+`
		 FROM entries
		 WHERE user_id = $1
		 ORDER BY created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.Entry
	for rows.Next() {
		entry, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}

	return entries, nil
}

// FindByIDAndUser は指定IDのエントリーを取得する。
// 存在しない、または別ユーザーの所有の場合はnilを返す。
func (r *PostgresEntryRepo) FindByIDAndUser(ctx context.Context, id, userID string) (*model.Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+`
		 FROM entries
		 WHERE id = $1 AND user_id = $2`,
		id, userID,
	)

	entry, err := scanEntry(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find entry: %w", err)
	}

	return entry, nil
}

// Create はエントリーを作成する。
func (r *PostgresEntryRepo) Create(ctx context.Context, entry *model.Entry) error {
	history, err := historyParam(entry.History)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO entries (`+entryColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID, entry.UserID, entry.Japanese, entry.English,
		entry.RegisteredOn, scheduleParam(entry.Schedule),
		entry.NextTierIndex, history, entry.Completed,
		entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

// CreateBatch は複数エントリーを同一トランザクションで作成する。
// 1件でも失敗した場合は全件ロールバックする。
func (r *PostgresEntryRepo) CreateBatch(ctx context.Context, entries []*model.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries (`+entryColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		history, err := historyParam(entry.History)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx,
			entry.ID, entry.UserID, entry.Japanese, entry.English,
			entry.RegisteredOn, scheduleParam(entry.Schedule),
			entry.NextTierIndex, history, entry.Completed,
			entry.CreatedAt, entry.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert entry %s: %w", entry.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Update はエントリーの学習状態を更新する。
func (r *PostgresEntryRepo) Update(ctx context.Context, entry *model.Entry) error {
	history, err := historyParam(entry.History)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE entries
		 SET schedule = $1, next_tier_index = $2, history = $3, completed = $4, updated_at = now()
		 WHERE id = $5 AND user_id = $6`,
		scheduleParam(entry.Schedule), entry.NextTierIndex, history, entry.Completed,
		entry.ID, entry.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("entry not found: %s", entry.ID)
	}
	return nil
}

// UpdateTexts はエントリーの日本語・英語テキストのみを更新する。
func (r *PostgresEntryRepo) UpdateTexts(ctx context.Context, id, userID, japanese, english string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE entries
		 SET japanese = $1, english = $2, updated_at = now()
		 WHERE id = $3 AND user_id = $4`,
		japanese, english, id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry texts: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("entry not found: %s", id)
	}
	return nil
}

// Delete は指定IDのエントリーを削除する。対象が存在しない場合はfalseを返す。
func (r *PostgresEntryRepo) Delete(ctx context.Context, id, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM entries WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete entry: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// DeleteByUserID はユーザーの全エントリーを削除する。
func (r *PostgresEntryRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM entries WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user entries: %w", err)
	}
	return nil
}

// compile-time interface check
var _ EntryRepository = (*PostgresEntryRepo)(nil)

// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, entry, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeEntryNotFound      = "ENTRY_NOT_FOUND"
	ErrCodeEmptyFields        = "EMPTY_FIELDS"
	ErrCodeEmptyAnswer        = "EMPTY_ANSWER"
	ErrCodeUsernameTaken      = "USERNAME_TAKEN"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeInvalidUsername    = "INVALID_USERNAME"
	ErrCodeInvalidPassword    = "INVALID_PASSWORD"
	ErrCodeNoQuizSession      = "NO_QUIZ_SESSION"
	ErrCodeInvalidTransition  = "INVALID_TRANSITION"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeStorageFailure     = "STORAGE_FAILURE"
)

// NewEntryNotFoundError はエントリー未検出エラーを生成する。
// 他ユーザーのエントリーを参照した場合も存在を隠すため同じエラーを返す。
func NewEntryNotFoundError(entryID string) *APIError {
	return &APIError{
		Code:     ErrCodeEntryNotFound,
		Message:  fmt.Sprintf("指定されたエントリーが見つかりません: %s", entryID),
		Category: "entry",
		Action:   "登録一覧からエントリーを確認してください。",
	}
}

// NewEmptyFieldsError は日本語・英語の入力不足エラーを生成する。
func NewEmptyFieldsError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyFields,
		Message:  "日本語と英語の両方を入力してください。",
		Category: "validation",
		Action:   "空欄の項目を入力してから登録してください。",
	}
}

// NewEmptyAnswerError は空の解答エラーを生成する。
// 空の解答はSchedulerに到達する前に拒否され、セッション状態は変化しない。
func NewEmptyAnswerError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyAnswer,
		Message:  "解答が入力されていません。",
		Category: "validation",
		Action:   "英語を入力してから回答してください。",
	}
}

// NewUsernameTakenError はユーザー名重複エラーを生成する。
func NewUsernameTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  "このユーザー名は既に使われています。",
		Category: "auth",
		Action:   "別のユーザー名で登録してください。",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// ユーザー名不存在とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが間違っています。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewInvalidUsernameError はユーザー名の形式エラーを生成する。
func NewInvalidUsernameError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidUsername,
		Message:  "ユーザー名は2文字以上にしてください。",
		Category: "validation",
		Action:   "2文字以上のユーザー名を入力してください。",
	}
}

// NewInvalidPasswordError はパスワードの形式エラーを生成する。
func NewInvalidPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPassword,
		Message:  "パスワードは4文字以上にしてください。",
		Category: "validation",
		Action:   "4文字以上のパスワードを入力してください。",
	}
}

// NewNoQuizSessionError はクイズセッション不存在エラーを生成する。
func NewNoQuizSessionError() *APIError {
	return &APIError{
		Code:     ErrCodeNoQuizSession,
		Message:  "進行中のクイズセッションがありません。",
		Category: "entry",
		Action:   "クイズを開始してから操作してください。",
	}
}

// NewInvalidTransitionError はクイズ状態機械の不正な遷移エラーを生成する。
func NewInvalidTransitionError(op string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTransition,
		Message:  fmt.Sprintf("この状態では操作 %s を実行できません。", op),
		Category: "entry",
		Action:   "画面を更新して現在の状態を確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewStorageFailureError は永続化失敗エラーを生成する。
// 呼び出し側は同じ操作を再試行できる（コア内部では自動再試行しない）。
func NewStorageFailureError() *APIError {
	return &APIError{
		Code:     ErrCodeStorageFailure,
		Message:  "データの保存に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから同じ操作を再度お試しください。",
	}
}

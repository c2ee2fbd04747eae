// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層から利用する。
type MetricsCollector interface {
	RecordAnswer(result string)
	RecordEntriesRegistered(count int)
	RecordQuizStarted(mode string)
	RecordQuizCompleted(mode string)
	RecordImportRows(count int)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	answers           *prometheus.CounterVec
	entriesRegistered prometheus.Counter
	quizStarted       *prometheus.CounterVec
	quizCompleted     *prometheus.CounterVec
	importRows        prometheus.Counter
	httpStatus        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ebbinghaus_answers_total",
			Help: "復習テストの解答数（正誤別）",
		}, []string{"result"}),
		entriesRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ebbinghaus_entries_registered_total",
			Help: "登録された学習エントリーの合計数",
		}),
		quizStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ebbinghaus_quiz_sessions_total",
			Help: "開始されたクイズセッション数（モード別）",
		}, []string{"mode"}),
		quizCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ebbinghaus_quiz_completions_total",
			Help: "最終結果まで到達したクイズセッション数（モード別）",
		}, []string{"mode"}),
		importRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ebbinghaus_import_rows_total",
			Help: "一括登録で取り込まれた行の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ebbinghaus_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.answers,
		c.entriesRegistered,
		c.quizStarted,
		c.quizCompleted,
		c.importRows,
		c.httpStatus,
	)

	return c
}

// RecordAnswer は復習テストの解答を正誤別に記録する。
func (c *Collector) RecordAnswer(result string) {
	c.answers.WithLabelValues(result).Inc()
}

// RecordEntriesRegistered は登録されたエントリー数を記録する。
func (c *Collector) RecordEntriesRegistered(count int) {
	c.entriesRegistered.Add(float64(count))
}

// RecordQuizStarted はクイズセッションの開始をモード別に記録する。
func (c *Collector) RecordQuizStarted(mode string) {
	c.quizStarted.WithLabelValues(mode).Inc()
}

// RecordQuizCompleted はクイズセッションの完了をモード別に記録する。
func (c *Collector) RecordQuizCompleted(mode string) {
	c.quizCompleted.WithLabelValues(mode).Inc()
}

// RecordImportRows は一括登録で取り込まれた行数を記録する。
func (c *Collector) RecordImportRows(count int) {
	c.importRows.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
// /metricsエンドポイントにマウントして使う。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

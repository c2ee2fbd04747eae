package entry

import (
	"net/url"
	"strings"

	"github.com/aircom83/ebbinghaus-english-public/internal/model"
)

// weblioBaseURL はWeblio英和・和英辞典の検索URL。
const weblioBaseURL = "https://ejje.weblio.jp/content/"

// DictionaryURL は辞書サイトの検索URLを組み立てる。
// 検索語が空の場合はエラーを返す。
func DictionaryURL(term string) (string, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return "", model.NewEmptyFieldsError()
	}
	return weblioBaseURL + url.PathEscape(term), nil
}

// Package security は入力値の無害化とURL検証を提供する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer はユーザー入力のHTMLを無害化する。
type Sanitizer interface {
	Sanitize(raw string) string
}

// policySanitizer はbluemondayのポリシーを保持する。Policyはスレッドセーフ。
type policySanitizer struct {
	policy *bluemonday.Policy
}

// NewRichTextSanitizer はチャレンジ説明文用のサニタイザを生成する。
// 許可タグ: p, br, a, ul, ol, li, blockquote, pre, code, strong, em, h3, h4
// aタグはhttp/httpsの絶対URLのみ許可し、target="_blank"とrel="noopener noreferrer"を付与する。
func NewRichTextSanitizer() Sanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "h3", "h4",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.AllowRelativeURLs(false)
	p.RequireParseableURLs(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &policySanitizer{policy: p}
}

// NewPlainTextSanitizer はお問い合わせ本文用のサニタイザを生成する。
// すべてのタグを除去し、前後の空白を取り除く。
func NewPlainTextSanitizer() Sanitizer {
	return &policySanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はHTMLを無害化して返す。
func (s *policySanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}

// Package security はユーザー入力の無害化を提供する。
//
// ノート本文はbluemondayの許可リストポリシーで簡単な書式のみを残し、
// タイトル・タグ・ユーザー名はStrictPolicyで全てのタグを除去する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer は入力文字列を保存前に無害化するインターフェース。
type Sanitizer interface {
	// Sanitize は無害化した文字列を返す。同一入力に対して常に同一出力を返す。
	Sanitize(raw string) string
}

// policySanitizer はbluemondayのポリシーを保持するSanitizerの実装。
// bluemonday.Policyは構築後の並行利用が安全。
type policySanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はノート本文用のSanitizerを生成する。
// ポリシーの内容:
//   - 許可タグ: p, br, ul, ol, li, blockquote, pre, code, strong, em, a
//   - aタグはhttp/https/mailtoのhrefのみ許可し、rel="nofollow noreferrer noopener"を付与
//   - script, style, iframe, on*属性は許可リストに無いため除去される
func NewContentSanitizer() Sanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowRelativeURLs(false)
	p.RequireNoFollowOnLinks(true)
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	return &policySanitizer{policy: p}
}

// NewTextSanitizer はタイトル・タグ・ユーザー名用のSanitizerを生成する。
// 全てのHTMLタグを除去し、前後の空白を取り除く。
func NewTextSanitizer() Sanitizer {
	return &textSanitizer{policySanitizer{policy: bluemonday.StrictPolicy()}}
}

// Sanitize はHTMLを許可リストに従って無害化する。
func (s *policySanitizer) Sanitize(raw string) string {
	return s.policy.Sanitize(raw)
}

type textSanitizer struct {
	policySanitizer
}

// Sanitize はタグを除去した上で前後の空白を取り除く。
func (s *textSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(strings.TrimSpace(raw)))
}

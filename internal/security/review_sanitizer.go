// Package security は入力コンテンツのサニタイズ機能を提供する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ReviewSanitizerService はレビュー本文のサニタイズ機能のインターフェースを定義する。
// レビューは保存前に必ずこのサービスを通過させる。
type ReviewSanitizerService interface {
	// Sanitize はレビュー本文からHTMLタグをすべて除去したプレーンテキストを返す。
	// 前後の空白も取り除く。同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// reviewSanitizer はReviewSanitizerServiceの実装。
// bluemondayの厳格ポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type reviewSanitizer struct {
	policy *bluemonday.Policy
}

// NewReviewSanitizer はReviewSanitizerServiceの新しいインスタンスを生成する。
// レビューはプレーンテキストとして扱うため、タグを一切許可しない
// StrictPolicyを使用する。scriptタグやon*イベント属性も当然除去される。
func NewReviewSanitizer() *reviewSanitizer {
	return &reviewSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はレビュー本文からHTMLタグをすべて除去したプレーンテキストを返す。
func (s *reviewSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}

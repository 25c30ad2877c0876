// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はユーザー入力の自由テキスト（名前、プロジェクト名、
// タスクのタイトル・説明など）を保存前に無害化し、格納型XSSを防ぐ。
// bluemondayのStrictPolicyを使用し、すべてのHTMLタグを除去する。
package security

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService は自由テキストの無害化機能のインターフェースを定義する。
type TextSanitizerService interface {
	// SanitizeText は入力からすべてのHTMLタグを除去したプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(s string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフに無害化処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicy（許可タグなし）を使用するため、タグはすべて除去される。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText は入力からすべてのHTMLタグを除去したプレーンテキストを返す。
// bluemondayはエンティティをエスケープして返すため、除去後にアンエスケープして
// プレーンテキストとして格納する。
func (s *textSanitizer) SanitizeText(in string) string {
	return html.UnescapeString(s.policy.Sanitize(in))
}

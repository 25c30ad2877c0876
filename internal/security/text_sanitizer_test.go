package security

import (
	"strings"
	"testing"
)

// TestSanitizeText_StripsAllTags はすべてのHTMLタグが除去されることを検証する。
func TestSanitizeText_StripsAllTags(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "scriptタグが除去される",
			input: `タスク<script>alert('xss')</script>名`,
			want:  "タスク名",
		},
		{
			name:  "bタグが除去される",
			input: "<b>重要な</b>プロジェクト",
			want:  "重要なプロジェクト",
		},
		{
			name:  "aタグが除去されテキストだけ残る",
			input: `<a href="https://evil.com">リンク名</a>`,
			want:  "リンク名",
		},
		{
			name:  "imgタグが丸ごと除去される",
			input: `名前<img src="x" onerror="alert(1)">`,
			want:  "名前",
		},
		{
			name:  "入れ子タグが除去される",
			input: "<div><p><strong>買い物</strong>リスト</p></div>",
			want:  "買い物リスト",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.SanitizeText(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitizeText_PlainTextUnchanged はプレーンテキストがそのまま通過することを検証する。
func TestSanitizeText_PlainTextUnchanged(t *testing.T) {
	sanitizer := NewTextSanitizer()

	inputs := []string{
		"週次レポートの作成",
		"田中 太郎",
		"日本",
		"買い物: 牛乳 & 卵",
	}

	for _, input := range inputs {
		if got := sanitizer.SanitizeText(input); got != input {
			t.Errorf("SanitizeText(%q) = %q, expected unchanged", input, got)
		}
	}
}

// TestSanitizeText_UnescapesEntities はタグ除去後にエンティティが
// プレーンテキストに戻されることを検証する。
func TestSanitizeText_UnescapesEntities(t *testing.T) {
	sanitizer := NewTextSanitizer()

	got := sanitizer.SanitizeText("A & B")
	if got != "A & B" {
		t.Errorf("SanitizeText(%q) = %q, want %q", "A & B", got, "A & B")
	}
}

// TestSanitizeText_XSSPayloads は典型的なXSSペイロードが無害化されることを検証する。
func TestSanitizeText_XSSPayloads(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name       string
		input      string
		wantAbsent []string
	}{
		{
			name:       "SVG onloadによるXSS",
			input:      `<svg onload="alert('xss')">`,
			wantAbsent: []string{"<svg", "onload", "alert"},
		},
		{
			name:       "img onerrorによるXSS",
			input:      `<img src="x" onerror="alert('xss')">`,
			wantAbsent: []string{"<img", "onerror", "alert"},
		},
		{
			name:       "iframe埋め込み",
			input:      `<iframe src="https://evil.com"></iframe>`,
			wantAbsent: []string{"<iframe", "evil.com"},
		},
		{
			name:       "イベントハンドラの大文字混在",
			input:      `<p OnClick="alert('xss')">テスト</p>`,
			wantAbsent: []string{"onclick", "alert"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.SanitizeText(tt.input)
			for _, absent := range tt.wantAbsent {
				if strings.Contains(strings.ToLower(got), strings.ToLower(absent)) {
					t.Errorf("SanitizeText(%q) = %q, should NOT contain %q (case-insensitive)", tt.input, got, absent)
				}
			}
		})
	}
}

// TestSanitizeText_EmptyInput は空文字列の入力を安全に処理できることを検証する。
func TestSanitizeText_EmptyInput(t *testing.T) {
	sanitizer := NewTextSanitizer()

	if got := sanitizer.SanitizeText(""); got != "" {
		t.Errorf("SanitizeText(\"\") = %q, expected empty string", got)
	}
}

// TestSanitizeText_Idempotent は同一入力に対して常に同一出力（冪等性）を検証する。
func TestSanitizeText_Idempotent(t *testing.T) {
	sanitizer := NewTextSanitizer()

	input := `<b>レポート</b><script>alert(1)</script>作成`

	result1 := sanitizer.SanitizeText(input)
	result2 := sanitizer.SanitizeText(input)
	result3 := sanitizer.SanitizeText(result1) // 二重サニタイズ

	if result1 != result2 {
		t.Errorf("冪等性違反: 1回目=%q, 2回目=%q", result1, result2)
	}
	if result1 != result3 {
		t.Errorf("二重サニタイズで結果が変わった: 1回目=%q, 二重=%q", result1, result3)
	}
}

// TestTextSanitizerInterface はTextSanitizerServiceインターフェースの適合を検証する。
func TestTextSanitizerInterface(t *testing.T) {
	var _ TextSanitizerService = NewTextSanitizer()
}

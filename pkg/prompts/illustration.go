package prompts

import (
	"strings"

	"github.com/shouni/go-storybook-kit/pkg/domain"
	"github.com/shouni/go-storybook-kit/pkg/styles"
)

// clauseDelimiter は挿絵プロンプトの各句をつなぐ固定の区切りです。
const clauseDelimiter = ", "

// BuildIllustrationPrompt は場面句・特徴句・画風サフィックス・安全句を
// この順で結合した挿絵プロンプトを返します。純粋関数であり、
// 同一入力に対して常に同一の文字列を返します。
//
// 特徴句は参照キャラクターの視覚特徴を登録順に連結したものです。
// 特徴を持たないキャラクターは区切り文字すら残しません。
func BuildIllustrationPrompt(sceneClause string, characters []domain.Character, preset styles.Preset) string {
	clauses := make([]string, 0, 4)
	if s := strings.TrimSpace(sceneClause); s != "" {
		clauses = append(clauses, s)
	}
	if traits := TraitsClause(characters); traits != "" {
		clauses = append(clauses, traits)
	}
	if preset.PromptSuffix != "" {
		clauses = append(clauses, preset.PromptSuffix)
	}
	clauses = append(clauses, styles.SafetyModifiers)
	return strings.Join(clauses, clauseDelimiter)
}

// TraitsClause は参照キャラクターの視覚特徴を登録順に結合した特徴句を返します。
// 全キャラクターが特徴を持たなければ空文字列です。
func TraitsClause(characters []domain.Character) string {
	parts := make([]string, 0, len(characters))
	for _, c := range characters {
		if f := c.TraitsFragment(); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, clauseDelimiter)
}

// TruncateScene は場面要約が得られなかった場合の代替場面句を作ります。
// ページ本文を単語境界を尊重しつつ上限長で切り詰めます。
func TruncateScene(pageText string, limit int) string {
	s := strings.TrimSpace(pageText)
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := s[:limit]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}

// Package adapters は外部の生成バックエンドを capability の契約へ適合させます。
package adapters

import (
	"context"
	"fmt"
	"strings"

	"github.com/shouni/go-gemini-client/pkg/gemini"

	"github.com/shouni/go-storybook-kit/pkg/domain"
)

// GeminiChat は gemini クライアントをチャット能力へ適合させます。
type GeminiChat struct {
	aiClient gemini.GenerativeModel
	model    string
}

// NewGeminiChat は GeminiChat を生成します。
func NewGeminiChat(aiClient gemini.GenerativeModel, model string) *GeminiChat {
	return &GeminiChat{aiClient: aiClient, model: model}
}

// Complete は会話履歴を単一のプロンプトへ平坦化して応答を取得します。
func (g *GeminiChat) Complete(ctx context.Context, turns []domain.Turn) (string, error) {
	if len(turns) == 0 {
		return "", fmt.Errorf("会話履歴が空です: %w", domain.ErrInvalidPrompt)
	}

	resp, err := g.aiClient.GenerateContent(ctx, flattenTurns(turns), g.model)
	if err != nil {
		return "", classifyError("チャット応答の生成", err)
	}
	return resp.Text, nil
}

// flattenTurns は役割ラベル付きの1本のプロンプトへ履歴を平坦化します。
// システム指示はラベルを付けず先頭へそのまま置きます。
func flattenTurns(turns []domain.Turn) string {
	var sb strings.Builder
	for _, turn := range turns {
		switch turn.Role {
		case domain.RoleSystem:
			sb.WriteString(turn.Text)
			sb.WriteString("\n\n")
		case domain.RoleAssistant:
			sb.WriteString("Assistant: ")
			sb.WriteString(turn.Text)
			sb.WriteString("\n")
		default:
			sb.WriteString("User: ")
			sb.WriteString(turn.Text)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("Assistant:")
	return sb.String()
}

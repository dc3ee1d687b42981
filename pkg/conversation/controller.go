// Package conversation は対話による物語づくりのフェーズ制御と、
// チャット能力を介した本文生成を司ります。フェーズの進行は常に明示的な
// 操作によって行われ、コントローラが勝手に進めることはありません。
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-storybook-kit/pkg/capability"
	"github.com/shouni/go-storybook-kit/pkg/domain"
	"github.com/shouni/go-storybook-kit/pkg/prompts"
	"github.com/shouni/go-storybook-kit/pkg/styles"
)

// defaultWindowSize はチャット能力へ渡す会話履歴の最大ターン数です。
// これを超えた古いターンは文脈から外れます（会話記録自体は失われません）。
const defaultWindowSize = 20

// Controller は1つの物語に対する対話セッションを制御します。
type Controller struct {
	doc        *domain.StoryDocument
	chat       capability.ChatModel
	builder    prompts.Builder
	logger     *slog.Logger
	windowSize int
}

// New は Controller を生成します。
func New(doc *domain.StoryDocument, chat capability.ChatModel, builder prompts.Builder, logger *slog.Logger) *Controller {
	return &Controller{
		doc:        doc,
		chat:       chat,
		builder:    builder,
		logger:     logger,
		windowSize: defaultWindowSize,
	}
}

// Document は制御対象の物語を返します。
func (c *Controller) Document() *domain.StoryDocument { return c.doc }

// EnterPhase は明示的な操作としてフェーズを切り替えます。
func (c *Controller) EnterPhase(p domain.Phase) error {
	if err := c.doc.SetPhase(p); err != nil {
		return err
	}
	c.logger.Info("フェーズを切り替えました", "phase", p)
	return nil
}

// phaseAllows はフェーズごとに有効な操作の表です。
var phaseAllows = map[domain.Phase]map[string]bool{
	domain.PhaseBrainstorm: {
		"chat": true,
	},
	domain.PhaseCharacters: {
		"chat":           true,
		"edit_character": true,
	},
	domain.PhasePageWriting: {
		"chat":           true,
		"edit_character": true, // 執筆中の臨時登録を許す
		"write_page":     true,
	},
	domain.PhaseRevision: {
		"chat":       true,
		"write_page": true,
	},
}

// requireAction は現在のフェーズで操作が有効かを検査します。
func (c *Controller) requireAction(action string) error {
	phase := c.doc.Phase()
	if !phaseAllows[phase][action] {
		return fmt.Errorf("フェーズ %s では操作 %q は行えません: %w", phase, action, domain.ErrInvalidTransition)
	}
	return nil
}

// ProcessUserInput はユーザー発話を記録し、チャット能力の応答を記録して返します。
// 応答の取得に失敗してもユーザー発話の記録は残ります。
func (c *Controller) ProcessUserInput(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("ユーザー発話が空です: %w", domain.ErrInvalidTransition)
	}

	c.doc.AppendTurn(domain.RoleUser, text)

	window, err := c.contextWindow()
	if err != nil {
		return "", err
	}
	reply, err := c.chat.Complete(ctx, window)
	if err != nil {
		// 発話は記録済みのまま失敗を返す
		return "", fmt.Errorf("チャット応答の取得に失敗しました: %w", err)
	}

	c.doc.AppendTurn(domain.RoleAssistant, reply)
	return reply, nil
}

// GeneratePageText は会話の文脈と先行ページの本文からページ本文を生成します。
// 成功時のみページへ反映し、失敗時はページを変更しません。
func (c *Controller) GeneratePageText(ctx context.Context, pageIndex int) (string, error) {
	if err := c.requireAction("write_page"); err != nil {
		return "", err
	}
	if _, err := c.doc.Page(pageIndex); err != nil {
		return "", err
	}

	instruction, err := c.pageInstruction(pageIndex)
	if err != nil {
		return "", err
	}

	window, err := c.writingWindow()
	if err != nil {
		return "", err
	}
	window = append(window, domain.Turn{Role: domain.RoleUser, Text: instruction})

	reply, err := c.chat.Complete(ctx, window)
	if err != nil {
		return "", fmt.Errorf("ページ %d の本文生成に失敗しました: %w", pageIndex, err)
	}
	return c.commitPageText(pageIndex, reply)
}

// RefinePage は既存の本文を修正指示に沿って書き直します。
// 成功時のみページへ反映し、失敗時はページを変更しません。
func (c *Controller) RefinePage(ctx context.Context, pageIndex int, request string) (string, error) {
	if err := c.requireAction("write_page"); err != nil {
		return "", err
	}
	if strings.TrimSpace(request) == "" {
		return "", fmt.Errorf("修正指示が空です: %w", domain.ErrInvalidTransition)
	}
	page, err := c.doc.Page(pageIndex)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(page.Text) == "" {
		return "", fmt.Errorf("ページ %d は本文が未執筆です: %w", pageIndex, domain.ErrEmptyPageText)
	}

	instruction, err := c.builder.Build(prompts.ModeRefinePage, prompts.TemplateData{
		TargetAge:         string(c.doc.AgeBand()),
		PageNumber:        pageIndex,
		CurrentText:       page.Text,
		RefinementRequest: request,
	})
	if err != nil {
		return "", err
	}

	window, err := c.writingWindow()
	if err != nil {
		return "", err
	}
	window = append(window, domain.Turn{Role: domain.RoleUser, Text: instruction})

	reply, err := c.chat.Complete(ctx, window)
	if err != nil {
		return "", fmt.Errorf("ページ %d の本文修正に失敗しました: %w", pageIndex, err)
	}
	return c.commitPageText(pageIndex, reply)
}

// commitPageText は生成結果を検証してページへ反映します。
func (c *Controller) commitPageText(pageIndex int, reply string) (string, error) {
	text := strings.TrimSpace(reply)
	if text == "" {
		return "", fmt.Errorf("ページ %d の生成本文が空でした: %w", pageIndex, domain.ErrEmptyPageText)
	}
	if err := c.doc.SetPageText(pageIndex, text); err != nil {
		return "", err
	}
	c.doc.AppendTurn(domain.RoleAssistant, text)
	return text, nil
}

// AddCharacter は現在のフェーズで許される場合にキャラクターを登録します。
func (c *Controller) AddCharacter(char domain.Character) error {
	if err := c.requireAction("edit_character"); err != nil {
		return err
	}
	return c.doc.AddCharacter(char)
}

// UpdateCharacter はキャラクターの編集をコミットします。
// 参照中の挿絵済みページの失効は StoryDocument 側で行われます。
func (c *Controller) UpdateCharacter(name, description string, traits []string) error {
	if err := c.requireAction("edit_character"); err != nil {
		return err
	}
	return c.doc.UpdateCharacter(name, description, traits)
}

// ExtractVisualTraits はキャラクターの説明文から挿絵の一貫性に必要な
// 視覚特徴の一覧を抽出します。
func (c *Controller) ExtractVisualTraits(ctx context.Context, name, description string) ([]string, error) {
	instruction, err := c.builder.Build(prompts.ModeExtractTraits, prompts.TemplateData{
		Name:        name,
		Description: description,
	})
	if err != nil {
		return nil, err
	}

	reply, err := c.chat.Complete(ctx, []domain.Turn{{Role: domain.RoleUser, Text: instruction}})
	if err != nil {
		return nil, fmt.Errorf("視覚特徴の抽出に失敗しました: %w", err)
	}

	var traits []string
	for _, part := range strings.Split(reply, ",") {
		if t := strings.Trim(part, " \t\n\"."); t != "" {
			traits = append(traits, t)
		}
	}
	if len(traits) == 0 {
		return nil, fmt.Errorf("視覚特徴を1つも抽出できませんでした: %w", domain.ErrInvalidPrompt)
	}
	return traits, nil
}

// contextWindow は物語ガイドのシステム指示と直近の会話履歴からなる文脈です。
func (c *Controller) contextWindow() ([]domain.Turn, error) {
	return c.window(prompts.ModeStoryGuide)
}

// writingWindow は本文執筆用のシステム指示に差し替えた文脈です。
func (c *Controller) writingWindow() ([]domain.Turn, error) {
	return c.window(prompts.ModePageWriter)
}

// window はシステム指示と直近の会話履歴からなる文脈を組み立てます。
// 上限を超えた古いターンは落とされます。
func (c *Controller) window(systemMode string) ([]domain.Turn, error) {
	preset, err := styles.Get(c.doc.Style())
	if err != nil {
		return nil, err
	}
	system, err := c.builder.Build(systemMode, prompts.TemplateData{
		TargetAge: string(c.doc.AgeBand()),
		Style:     preset.DisplayName,
		Title:     c.doc.Title(),
	})
	if err != nil {
		return nil, err
	}

	history := c.doc.Transcript()
	if len(history) > c.windowSize {
		history = history[len(history)-c.windowSize:]
	}

	window := make([]domain.Turn, 0, len(history)+1)
	window = append(window, domain.Turn{Role: domain.RoleSystem, Text: system})
	window = append(window, history...)
	return window, nil
}

// pageInstruction は対象ページの本文生成指示を組み立てます。
// 先行ページの本文を渡して物語の連続性を保ちます。
func (c *Controller) pageInstruction(pageIndex int) (string, error) {
	var previous []prompts.PageText
	for _, p := range c.doc.Pages() {
		if p.Index >= pageIndex {
			break
		}
		if p.Text != "" {
			previous = append(previous, prompts.PageText{Number: p.Index, Text: p.Text})
		}
	}

	var mainName, mainDescription string
	if chars := c.doc.Characters(); len(chars) > 0 {
		mainName = chars[0].Name
		mainDescription = chars[0].Description
	}

	return c.builder.Build(prompts.ModeWritePage, prompts.TemplateData{
		Title:                c.doc.Title(),
		TargetAge:            string(c.doc.AgeBand()),
		PageNumber:           pageIndex,
		TotalPages:           c.doc.PageCount(),
		CharacterName:        mainName,
		CharacterDescription: mainDescription,
		PreviousText:         prompts.FormatPreviousPages(previous),
		PagePurpose:          "Continue the story from the previous pages.",
	})
}

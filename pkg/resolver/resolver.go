// Package resolver はページ本文・参照キャラクター・スタイルプリセットから
// 挿絵プロンプトを解決します。プロンプトの組み立て自体は pkg/prompts の
// 純粋関数が担い、本パッケージは場面要約の取得（チャット能力の呼び出しと
// その失敗時の切り詰めフォールバック）を束ねます。
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/shouni/go-storybook-kit/pkg/capability"
	"github.com/shouni/go-storybook-kit/pkg/domain"
	"github.com/shouni/go-storybook-kit/pkg/prompts"
	"github.com/shouni/go-storybook-kit/pkg/styles"
)

const (
	// defaultSceneLimit はフォールバック場面句の最大長です。
	defaultSceneLimit = 240

	defaultCacheExpiration = 30 * time.Minute
	cacheCleanupInterval   = 1 * time.Hour
)

// Resolver は挿絵プロンプトを解決します。
// 同一本文の場面要約はキャッシュされ、同時要求は singleflight で集約されます。
type Resolver struct {
	chat       capability.ChatModel
	builder    prompts.Builder
	sceneCache *cache.Cache
	sceneGroup singleflight.Group
	logger     *slog.Logger
	sceneLimit int
}

// New は Resolver を生成します。chat が nil の場合、場面要約は常に
// 切り詰めフォールバックになります（解決自体は失敗しません）。
func New(chat capability.ChatModel, builder prompts.Builder, logger *slog.Logger) *Resolver {
	return &Resolver{
		chat:       chat,
		builder:    builder,
		sceneCache: cache.New(defaultCacheExpiration, cacheCleanupInterval),
		logger:     logger,
		sceneLimit: defaultSceneLimit,
	}
}

// Resolve はページの挿絵プロンプトを解決して返します。
// 本文が空のページに対しては ErrEmptyPageText を返します。
// 場面要約の失敗は解決の失敗にはならず、本文の切り詰めで代替します。
func (r *Resolver) Resolve(ctx context.Context, page domain.Page, characters []domain.Character, preset styles.Preset) (string, error) {
	if strings.TrimSpace(page.Text) == "" {
		return "", fmt.Errorf("ページ %d は本文が空のため挿絵プロンプトを解決できません: %w", page.Index, domain.ErrEmptyPageText)
	}

	scene := r.sceneClause(ctx, page.Text)
	return prompts.BuildIllustrationPrompt(scene, characters, preset), nil
}

// sceneClause は本文の場面要約を取得します。チャット能力が使えない、
// または失敗した場合は切り詰めた本文で代替します。
func (r *Resolver) sceneClause(ctx context.Context, pageText string) string {
	if r.chat == nil {
		return prompts.TruncateScene(pageText, r.sceneLimit)
	}

	if cached, ok := r.sceneCache.Get(pageText); ok {
		if s, ok := cached.(string); ok {
			return s
		}
	}

	val, err, _ := r.sceneGroup.Do(pageText, func() (interface{}, error) {
		// singleflight で待機中に他のゴルーチンが要約を完了させている可能性があるため再確認
		if cached, ok := r.sceneCache.Get(pageText); ok {
			return cached, nil
		}

		scene, err := r.summarize(ctx, pageText)
		if err != nil {
			return nil, err
		}
		r.sceneCache.Set(pageText, scene, cache.DefaultExpiration)
		return scene, nil
	})
	if err != nil {
		r.logger.Warn("場面要約に失敗したため本文の切り詰めで代替します", "error", err)
		return prompts.TruncateScene(pageText, r.sceneLimit)
	}

	scene, ok := val.(string)
	if !ok || strings.TrimSpace(scene) == "" {
		return prompts.TruncateScene(pageText, r.sceneLimit)
	}
	return scene
}

// summarize は固定の指示テンプレートでチャット能力を呼び出します。
func (r *Resolver) summarize(ctx context.Context, pageText string) (string, error) {
	instruction, err := r.builder.Build(prompts.ModeSceneSummary, prompts.TemplateData{PageText: pageText})
	if err != nil {
		return "", fmt.Errorf("場面要約の指示構築に失敗しました: %w", err)
	}

	reply, err := r.chat.Complete(ctx, []domain.Turn{
		{Role: domain.RoleUser, Text: instruction},
	})
	if err != nil {
		return "", fmt.Errorf("場面要約の応答取得に失敗しました: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

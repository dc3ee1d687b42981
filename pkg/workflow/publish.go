package workflow

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/shouni/go-storybook-kit/pkg/publisher"
)

// Publish は保存済みプロジェクトの出力物を exports/ 配下へ生成します。
func (m *Manager) Publish(ctx context.Context, slug string, includeHTML bool) (publisher.PublishResult, error) {
	doc, err := m.store.Load(ctx, slug)
	if err != nil {
		return publisher.PublishResult{}, err
	}

	result, err := m.publisher.Publish(ctx, doc.Snapshot(), publisher.Options{
		OutputDir:   m.store.ExportDir(slug),
		IllustDir:   filepath.Join("..", "pages"),
		IncludeHTML: includeHTML,
	})
	if err != nil {
		return result, fmt.Errorf("プロジェクト %q のパブリッシュに失敗しました: %w", slug, err)
	}

	m.logger.Info("出力物を生成しました",
		"slug", slug, "markdown", result.MarkdownPath, "html", result.HTMLPath)
	return result, nil
}

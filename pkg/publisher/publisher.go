// Package publisher は完成した物語の出力物（Markdown と HTML）を組み立てて保存します。
package publisher

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/shouni/go-remote-io/pkg/remoteio"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/shouni/go-storybook-kit/pkg/domain"
)

const (
	defaultMarkdownName = "storybook.md"
	htmlPageTemplate    = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: "Georgia", serif; max-width: 42rem; margin: 2rem auto; padding: 0 1rem; }
img { max-width: 100%%; border-radius: 8px; }
</style>
</head>
<body>
%s
</body>
</html>
`
)

// Options はパブリッシュ動作を制御する設定項目です。
type Options struct {
	OutputDir    string // 出力先ディレクトリ
	IllustDir    string // Markdown から見た挿絵参照の基点。空ならプロジェクト直下
	IncludeHTML  bool   // HTML 版も生成するか
	MarkdownName string // 空なら storybook.md
}

// PublishResult はパブリッシュ処理の結果として生成されたファイルの情報を保持します。
type PublishResult struct {
	MarkdownPath string
	HTMLPath     string
}

// StoryPublisher は成果物の永続化とフォーマット変換を担います。
type StoryPublisher struct {
	writer remoteio.OutputWriter
	md     goldmark.Markdown
}

// NewStoryPublisher は StoryPublisher を生成します。
func NewStoryPublisher(writer remoteio.OutputWriter) *StoryPublisher {
	return &StoryPublisher{
		writer: writer,
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Publish は Markdown の構築と保存、必要なら HTML 変換までを一括して実行します。
func (p *StoryPublisher) Publish(ctx context.Context, snap domain.Snapshot, opts Options) (PublishResult, error) {
	result := PublishResult{}

	name := opts.MarkdownName
	if name == "" {
		name = defaultMarkdownName
	}
	markdownPath := path.Join(opts.OutputDir, name)

	content := p.buildMarkdown(snap, opts.IllustDir)
	if err := p.writer.Write(ctx, markdownPath, strings.NewReader(content), "text/markdown; charset=utf-8"); err != nil {
		return result, fmt.Errorf("markdownファイルの書き込みに失敗しました: %w", err)
	}
	result.MarkdownPath = markdownPath

	if opts.IncludeHTML {
		var body bytes.Buffer
		if err := p.md.Convert([]byte(content), &body); err != nil {
			return result, fmt.Errorf("HTMLの変換に失敗しました: %w", err)
		}
		page := fmt.Sprintf(htmlPageTemplate, snap.Title, body.String())

		htmlPath := strings.TrimSuffix(markdownPath, path.Ext(markdownPath)) + ".html"
		if err := p.writer.Write(ctx, htmlPath, strings.NewReader(page), "text/html; charset=utf-8"); err != nil {
			return result, fmt.Errorf("HTMLファイルの書き込みに失敗しました: %w", err)
		}
		result.HTMLPath = htmlPath
	}

	return result, nil
}

// buildMarkdown は物語全体を1つの Markdown 文書へ組み立てます。
func (p *StoryPublisher) buildMarkdown(snap domain.Snapshot, illustDir string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", snap.Title))
	if snap.Author != "" {
		sb.WriteString(fmt.Sprintf("*by %s*\n\n", snap.Author))
	}

	for _, page := range snap.Pages {
		sb.WriteString(fmt.Sprintf("## Page %d\n\n", page.Index))

		if page.IllustrationRef != "" {
			ref := page.IllustrationRef
			if illustDir != "" {
				ref = path.Join(illustDir, path.Base(ref))
			}
			sb.WriteString(fmt.Sprintf("![Page %d](%s)\n\n", page.Index, ref))
		}
		if page.Text != "" {
			sb.WriteString(page.Text)
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}

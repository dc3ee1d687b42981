package adapters

import (
	"context"
	"fmt"

	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"
	imagekit "github.com/shouni/gemini-image-kit/pkg/generator"

	"github.com/shouni/go-storybook-kit/pkg/capability"
	"github.com/shouni/go-storybook-kit/pkg/domain"
)

// defaultAspectRatio は児童書の正方形に近い見開きに合わせた既定値です。
const defaultAspectRatio = "1:1"

// GeminiImage は gemini-image-kit の生成器を挿絵能力へ適合させます。
// バックエンドは細かい進捗を公開しないため、進捗は要求の節目で粗く報告します。
type GeminiImage struct {
	generator imagekit.ImageGenerator
}

// NewGeminiImage は GeminiImage を生成します。
func NewGeminiImage(generator imagekit.ImageGenerator) *GeminiImage {
	return &GeminiImage{generator: generator}
}

// Generate は挿絵を1枚生成します。ctx のキャンセルはバックエンド呼び出しへ伝播します。
func (g *GeminiImage) Generate(ctx context.Context, req capability.ImageRequest, onProgress capability.ProgressFunc) (*capability.ImageResult, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("挿絵プロンプトが空です: %w", domain.ErrInvalidPrompt)
	}

	aspect := req.AspectRatio
	if aspect == "" {
		aspect = defaultAspectRatio
	}

	if onProgress != nil {
		onProgress(0.1)
	}

	resp, err := g.generator.GenerateMangaPanel(ctx, imagedom.ImageGenerationRequest{
		Prompt:      req.Prompt,
		AspectRatio: aspect,
		Seed:        req.Seed,
	})
	if err != nil {
		return nil, classifyError("挿絵の生成", err)
	}
	if resp == nil || len(resp.Data) == 0 {
		return nil, fmt.Errorf("挿絵の応答が空でした: %w", domain.ErrCapabilityUnavailable)
	}

	if onProgress != nil {
		onProgress(0.9)
	}

	usedSeed := resp.UsedSeed
	return &capability.ImageResult{
		Data:     resp.Data,
		MimeType: resp.MimeType,
		UsedSeed: &usedSeed,
	}, nil
}

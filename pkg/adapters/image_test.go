package adapters

import (
	"context"
	"errors"
	"fmt"
	"testing"

	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"

	"github.com/shouni/go-storybook-kit/pkg/capability"
	"github.com/shouni/go-storybook-kit/pkg/domain"
)

// stubImageGenerator は固定応答を返す画像生成器です。
type stubImageGenerator struct {
	resp    *imagedom.ImageResponse
	err     error
	calls   int
	lastReq imagedom.ImageGenerationRequest
}

func (s *stubImageGenerator) GenerateMangaPanel(_ context.Context, req imagedom.ImageGenerationRequest) (*imagedom.ImageResponse, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func (s *stubImageGenerator) GenerateMangaPage(_ context.Context, _ imagedom.ImagePageRequest) (*imagedom.ImageResponse, error) {
	return nil, errors.New("未使用の経路です")
}

func TestGeminiImage_Generate(t *testing.T) {
	t.Run("応答が結果へ写像されること", func(t *testing.T) {
		stub := &stubImageGenerator{resp: &imagedom.ImageResponse{
			Data:     []byte("png-bytes"),
			MimeType: "image/png",
			UsedSeed: 42,
		}}
		g := NewGeminiImage(stub)

		var progress []float64
		result, err := g.Generate(context.Background(), capability.ImageRequest{Prompt: "a mouse"}, func(v float64) {
			progress = append(progress, v)
		})
		if err != nil {
			t.Fatal(err)
		}
		if string(result.Data) != "png-bytes" || result.MimeType != "image/png" {
			t.Errorf("結果の写像が不正です: %+v", result)
		}
		if result.UsedSeed == nil || *result.UsedSeed != 42 {
			t.Errorf("UsedSeedの期待値 42, 実際の値 %v", result.UsedSeed)
		}
		if stub.lastReq.AspectRatio != defaultAspectRatio {
			t.Errorf("縦横比の既定値が適用されていません: %q", stub.lastReq.AspectRatio)
		}
		for i, v := range progress {
			if v < 0 || v > 1 {
				t.Errorf("進捗が範囲外です: %v", v)
			}
			if i > 0 && v < progress[i-1] {
				t.Errorf("進捗が後退しています: %v", progress)
			}
		}
	})

	t.Run("空プロンプトはバックエンドを呼ばず拒否されること", func(t *testing.T) {
		stub := &stubImageGenerator{}
		g := NewGeminiImage(stub)

		_, err := g.Generate(context.Background(), capability.ImageRequest{}, nil)
		if !errors.Is(err, domain.ErrInvalidPrompt) {
			t.Fatalf("ErrInvalidPromptを期待しましたが %v でした", err)
		}
		if stub.calls != 0 {
			t.Errorf("空プロンプトでバックエンドが呼ばれました: %d回", stub.calls)
		}
	})

	t.Run("バックエンドの失敗が分類されること", func(t *testing.T) {
		stub := &stubImageGenerator{err: fmt.Errorf("connection refused")}
		g := NewGeminiImage(stub)

		_, err := g.Generate(context.Background(), capability.ImageRequest{Prompt: "a mouse"}, nil)
		if !errors.Is(err, domain.ErrCapabilityUnavailable) {
			t.Errorf("ErrCapabilityUnavailableを期待しましたが %v でした", err)
		}
	})

	t.Run("空の応答データは利用不能として扱われること", func(t *testing.T) {
		stub := &stubImageGenerator{resp: &imagedom.ImageResponse{MimeType: "image/png"}}
		g := NewGeminiImage(stub)

		_, err := g.Generate(context.Background(), capability.ImageRequest{Prompt: "a mouse"}, nil)
		if !errors.Is(err, domain.ErrCapabilityUnavailable) {
			t.Errorf("ErrCapabilityUnavailableを期待しましたが %v でした", err)
		}
	})
}

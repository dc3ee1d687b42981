package resolver

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/shouni/go-storybook-kit/pkg/domain"
	"github.com/shouni/go-storybook-kit/pkg/prompts"
	"github.com/shouni/go-storybook-kit/pkg/styles"
)

// stubChat は固定応答または固定エラーを返すチャット能力です。
type stubChat struct {
	reply string
	err   error
	calls int
}

func (s *stubChat) Complete(_ context.Context, _ []domain.Turn) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func newTestResolver(t *testing.T, chat *stubChat) *Resolver {
	t.Helper()
	builder, err := prompts.NewTextPromptBuilder()
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	if chat == nil {
		return New(nil, builder, logger)
	}
	return New(chat, builder, logger)
}

func mustPreset(t *testing.T, name string) styles.Preset {
	t.Helper()
	p, err := styles.Get(name)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestResolver_LunaScenario(t *testing.T) {
	chat := &stubChat{reply: "a small mouse discovering a golden key in the grass"}
	r := newTestResolver(t, chat)
	preset := mustPreset(t, "watercolor")

	page := domain.Page{Index: 3, Text: "Luna finds a key.", State: domain.StateTextDrafted}
	luna := domain.Character{Name: "Luna", VisualTraits: []string{"small brown mouse", "red scarf"}}

	got, err := r.Resolve(context.Background(), page, []domain.Character{luna}, preset)
	if err != nil {
		t.Fatalf("解決に失敗しました: %v", err)
	}

	idxScene := strings.Index(got, chat.reply)
	idxTraits := strings.Index(got, "small brown mouse, red scarf")
	idxStyle := strings.Index(got, preset.PromptSuffix)
	idxSafety := strings.Index(got, styles.SafetyModifiers)
	if idxScene < 0 || idxTraits < 0 || idxStyle < 0 || idxSafety < 0 {
		t.Fatalf("必要な句が欠けています: %q", got)
	}
	if !(idxScene < idxTraits && idxTraits < idxStyle && idxStyle < idxSafety) {
		t.Errorf("句の順序が不正です: %q", got)
	}
}

func TestResolver_EmptyPageText(t *testing.T) {
	r := newTestResolver(t, &stubChat{reply: "x"})
	page := domain.Page{Index: 1, Text: "   ", State: domain.StateEmpty}

	_, err := r.Resolve(context.Background(), page, nil, mustPreset(t, "cartoon"))
	if !errors.Is(err, domain.ErrEmptyPageText) {
		t.Errorf("ErrEmptyPageTextを期待しましたが %v でした", err)
	}
}

func TestResolver_FallbackOnChatFailure(t *testing.T) {
	chat := &stubChat{err: errors.New("backend down")}
	r := newTestResolver(t, chat)
	preset := mustPreset(t, "cartoon")

	page := domain.Page{Index: 1, Text: "Luna finds a key.", State: domain.StateTextDrafted}
	got, err := r.Resolve(context.Background(), page, nil, preset)
	if err != nil {
		t.Fatalf("場面要約の失敗が解決全体の失敗になりました: %v", err)
	}
	if !strings.HasPrefix(got, "Luna finds a key.") {
		t.Errorf("切り詰めフォールバックが使われていません: %q", got)
	}
	if !strings.Contains(got, styles.SafetyModifiers) {
		t.Errorf("安全句が欠けています: %q", got)
	}
}

func TestResolver_NilChatUsesFallback(t *testing.T) {
	r := newTestResolver(t, nil)
	page := domain.Page{Index: 1, Text: "The sun rises over the hill.", State: domain.StateTextDrafted}

	got, err := r.Resolve(context.Background(), page, nil, mustPreset(t, "pencil_sketch"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "The sun rises over the hill.") {
		t.Errorf("本文由来の場面句になっていません: %q", got)
	}
}

func TestResolver_SceneCache(t *testing.T) {
	chat := &stubChat{reply: "a cached scene"}
	r := newTestResolver(t, chat)
	preset := mustPreset(t, "cartoon")
	page := domain.Page{Index: 1, Text: "same text", State: domain.StateTextDrafted}

	if _, err := r.Resolve(context.Background(), page, nil, preset); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Resolve(context.Background(), page, nil, preset); err != nil {
		t.Fatal(err)
	}
	if chat.calls != 1 {
		t.Errorf("同一本文の要約がキャッシュされていません: 呼び出し回数 %d", chat.calls)
	}
}

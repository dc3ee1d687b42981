package prompts

import (
	"strings"
	"testing"

	"github.com/shouni/go-storybook-kit/pkg/domain"
	"github.com/shouni/go-storybook-kit/pkg/styles"
)

func TestBuildIllustrationPrompt(t *testing.T) {
	preset, err := styles.Get("watercolor")
	if err != nil {
		t.Fatal(err)
	}
	luna := domain.Character{
		Name:         "Luna",
		VisualTraits: []string{"small brown mouse", "red scarf"},
	}

	t.Run("句が場面・特徴・画風・安全句の順で並ぶこと", func(t *testing.T) {
		got := BuildIllustrationPrompt("Luna discovers a golden key", []domain.Character{luna}, preset)

		idxScene := strings.Index(got, "Luna discovers a golden key")
		idxTraits := strings.Index(got, "small brown mouse, red scarf")
		idxStyle := strings.Index(got, preset.PromptSuffix)
		idxSafety := strings.Index(got, styles.SafetyModifiers)
		if idxScene < 0 || idxTraits < 0 || idxStyle < 0 || idxSafety < 0 {
			t.Fatalf("必要な句が欠けています: %q", got)
		}
		if !(idxScene < idxTraits && idxTraits < idxStyle && idxStyle < idxSafety) {
			t.Errorf("句の順序が不正です: %q", got)
		}
	})

	t.Run("同一入力で同一の文字列になること", func(t *testing.T) {
		a := BuildIllustrationPrompt("scene", []domain.Character{luna}, preset)
		b := BuildIllustrationPrompt("scene", []domain.Character{luna}, preset)
		if a != b {
			t.Errorf("決定性が破れています: %q != %q", a, b)
		}
	})

	t.Run("参照キャラクターがなければ特徴句の痕跡が残らないこと", func(t *testing.T) {
		got := BuildIllustrationPrompt("a quiet forest", nil, preset)
		want := "a quiet forest" + clauseDelimiter + preset.PromptSuffix + clauseDelimiter + styles.SafetyModifiers
		if got != want {
			t.Errorf("期待値 %q, 実際の値 %q", want, got)
		}
	})

	t.Run("特徴のないキャラクターは区切りを残さないこと", func(t *testing.T) {
		ghost := domain.Character{Name: "Ghost"}
		with := BuildIllustrationPrompt("scene", []domain.Character{ghost}, preset)
		without := BuildIllustrationPrompt("scene", nil, preset)
		if with != without {
			t.Errorf("空の特徴が区切りを生みました: %q", with)
		}
	})
}

func TestTraitsClause_RegistryOrder(t *testing.T) {
	chars := []domain.Character{
		{Name: "Zoe", VisualTraits: []string{"tall giraffe"}},
		{Name: "Luna", VisualTraits: []string{"small brown mouse", "red scarf"}},
	}
	got := TraitsClause(chars)
	if got != "tall giraffe, small brown mouse, red scarf" {
		t.Errorf("登録順の連結になっていません: %q", got)
	}
}

func TestTruncateScene(t *testing.T) {
	t.Run("上限以内はそのまま返ること", func(t *testing.T) {
		if got := TruncateScene("short text", 240); got != "short text" {
			t.Errorf("期待値 'short text', 実際の値 %q", got)
		}
	})

	t.Run("単語境界で切り詰められること", func(t *testing.T) {
		got := TruncateScene("Luna finds a key under the old oak tree", 20)
		if len(got) > 20 {
			t.Errorf("上限を超えています: %q", got)
		}
		if strings.HasSuffix(got, " ") || got == "" {
			t.Errorf("切り詰め結果が不正です: %q", got)
		}
	})
}

func TestTextPromptBuilder(t *testing.T) {
	b, err := NewTextPromptBuilder()
	if err != nil {
		t.Fatalf("ビルダーの初期化に失敗しました: %v", err)
	}

	t.Run("場面要約の指示に本文が埋め込まれること", func(t *testing.T) {
		got, err := b.Build(ModeSceneSummary, TemplateData{PageText: "Luna finds a key."})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(got, "Luna finds a key.") {
			t.Errorf("本文が埋め込まれていません: %q", got)
		}
	})

	t.Run("不明なモードは拒否されること", func(t *testing.T) {
		if _, err := b.Build("nonsense", TemplateData{}); err == nil {
			t.Error("不明なモードが受理されてしまいました")
		}
	})
}

func TestFormatPreviousPages(t *testing.T) {
	if got := FormatPreviousPages(nil); got != "(This is the first page)" {
		t.Errorf("先頭ページの表記が不正です: %q", got)
	}
	got := FormatPreviousPages([]PageText{{Number: 1, Text: "one"}, {Number: 2, Text: "two"}})
	if got != "Page 1: one\nPage 2: two" {
		t.Errorf("整形結果が不正です: %q", got)
	}
}

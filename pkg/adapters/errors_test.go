package adapters

import (
	"context"
	"errors"
	"testing"

	"github.com/shouni/go-storybook-kit/pkg/domain"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"接続拒否は能力未準備", errors.New("dial tcp: connection refused"), domain.ErrCapabilityUnavailable},
		{"レート制限は能力未準備", errors.New("googleapi: Error 429: rate limit exceeded"), domain.ErrCapabilityUnavailable},
		{"安全性ブロックはプロンプト不正", errors.New("response blocked by safety settings"), domain.ErrInvalidPrompt},
		{"メモリ不足は容量不足", errors.New("out of memory during decode"), domain.ErrResourceExhausted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyError("test", tc.err)
			if !errors.Is(got, tc.want) {
				t.Errorf("期待する分類 %v に対し %v でした", tc.want, got)
			}
		})
	}

	t.Run("キャンセルは分類せず素通しすること", func(t *testing.T) {
		got := classifyError("test", context.Canceled)
		if !errors.Is(got, context.Canceled) {
			t.Errorf("context.Canceledが保たれていません: %v", got)
		}
		if errors.Is(got, domain.ErrCapabilityUnavailable) {
			t.Error("キャンセルが失敗として分類されました")
		}
	})

	t.Run("未知のエラーは元のまま包むこと", func(t *testing.T) {
		base := errors.New("mystery")
		got := classifyError("test", base)
		if !errors.Is(got, base) {
			t.Errorf("元のエラーが失われました: %v", got)
		}
	})

	t.Run("nilはnilのままであること", func(t *testing.T) {
		if got := classifyError("test", nil); got != nil {
			t.Errorf("nilの期待に対し %v でした", got)
		}
	})
}

func TestFlattenTurns(t *testing.T) {
	turns := []domain.Turn{
		{Role: domain.RoleSystem, Text: "You are a guide."},
		{Role: domain.RoleUser, Text: "hello"},
		{Role: domain.RoleAssistant, Text: "hi there"},
		{Role: domain.RoleUser, Text: "tell me a story"},
	}
	got := flattenTurns(turns)
	want := "You are a guide.\n\nUser: hello\nAssistant: hi there\nUser: tell me a story\nAssistant:"
	if got != want {
		t.Errorf("平坦化結果が不正です:\n期待値 %q\n実際の値 %q", want, got)
	}
}

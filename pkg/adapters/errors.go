package adapters

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shouni/go-storybook-kit/pkg/domain"
)

// classifyError はバックエンドのエラーをエラー分類体系へ写像します。
// メッセージの詳細は握りつぶさず、分類の番兵をラップして付与します。
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "unavailable", "connection refused", "no such host", "timeout", "deadline", "quota", "rate limit", "429", "503"):
		return fmt.Errorf("%s: %v: %w", op, err, domain.ErrCapabilityUnavailable)
	case containsAny(msg, "safety", "blocked", "invalid argument", "invalid prompt", "400"):
		return fmt.Errorf("%s: %v: %w", op, err, domain.ErrInvalidPrompt)
	case containsAny(msg, "resource exhausted", "out of memory", "insufficient"):
		return fmt.Errorf("%s: %v: %w", op, err, domain.ErrResourceExhausted)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

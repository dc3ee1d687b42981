// Package capability は物語生成コアが依存する外部能力の境界を定義します。
// コアはここで定義されたインターフェースのみに依存し、
// 具体的な通信や認証は pkg/adapters 側の実装が担います。
package capability

import (
	"context"

	"github.com/shouni/go-storybook-kit/pkg/domain"
)

// ChatModel は会話型テキスト生成の能力です。
// 会話履歴を渡し、単一の応答テキストを受け取ります。
type ChatModel interface {
	Complete(ctx context.Context, turns []domain.Turn) (string, error)
}

// ImageRequest は挿絵生成の要求です。
type ImageRequest struct {
	Prompt      string // 解決済みの完全な挿絵プロンプト
	AspectRatio string // 例: "1:1", "16:9"。空なら実装の既定値
	Seed        *int64 // 再現用シード。nil なら実装任せ
}

// ImageResult は挿絵生成の結果です。
type ImageResult struct {
	Data     []byte // 画像バイト列
	MimeType string // 例: "image/png"
	UsedSeed *int64 // 実際に使われたシード
}

// ProgressFunc は生成の進捗通知です。value は 0.0〜1.0 の割合です。
// 呼び出し頻度と単調性の保証は呼び出し側（オーケストレータ）が行うため、
// 実装は観測したままの値を任意の頻度で報告して構いません。
type ProgressFunc func(value float64)

// ImageModel は挿絵生成の能力です。
// 実装は ctx のキャンセルへ協調的に応答しなければなりません。
type ImageModel interface {
	Generate(ctx context.Context, req ImageRequest, onProgress ProgressFunc) (*ImageResult, error)
}

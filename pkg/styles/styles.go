// Package styles は挿絵スタイルプリセットの固定カタログを提供します。
// プリセットは画風ごとのプロンプトサフィックスと説明の固定の組み合わせで、
// 同一の物語の全挿絵へ一律に適用されます。
package styles

import (
	"fmt"
	"sort"
	"strings"
)

// SafetyModifiers は内容に依存せず常にプロンプト末尾へ付与する児童向け安全句です。
const SafetyModifiers = "children's book illustration, friendly and approachable, warm colors, gentle and safe feeling, age-appropriate"

// Preset は1つの挿絵スタイルプリセットです。
type Preset struct {
	Name         string // 内部名（StoryDocument が保持するキー）
	DisplayName  string // UI 表示用の名前
	PromptSuffix string // プロンプトへ付与する画風指定
	Description  string // 説明文
}

// DefaultName は新規の物語に適用されるプリセット名です。
const DefaultName = "storybook_classic"

var presets = map[string]Preset{
	"watercolor": {
		Name:         "watercolor",
		DisplayName:  "Watercolor",
		PromptSuffix: "watercolor illustration style, soft edges, warm pastel colors, dreamy atmosphere, gentle brush strokes, children's picture book art",
		Description:  "Soft, dreamy watercolor with pastel colors",
	},
	"cartoon": {
		Name:         "cartoon",
		DisplayName:  "Cartoon",
		PromptSuffix: "cartoon illustration style, bright vibrant colors, simple bold shapes, clean lines, playful character design, children's picture book art",
		Description:  "Bright, vibrant cartoon with bold shapes",
	},
	"storybook_classic": {
		Name:         "storybook_classic",
		DisplayName:  "Storybook Classic",
		PromptSuffix: "classic children's book illustration style, warm earthy colors, detailed but soft rendering, cozy inviting atmosphere, reminiscent of classic picture books, nostalgic feeling",
		Description:  "Classic picture book style with warm, cozy feeling",
	},
	"modern_digital": {
		Name:         "modern_digital",
		DisplayName:  "Modern Digital",
		PromptSuffix: "modern digital illustration style, bold saturated colors, clean vector-like lines, contemporary character design, children's picture book art, sense of wonder and adventure",
		Description:  "Clean, modern digital art with bold colors",
	},
	"pencil_sketch": {
		Name:         "pencil_sketch",
		DisplayName:  "Pencil Sketch",
		PromptSuffix: "pencil sketch illustration style, hand-drawn look, soft graphite shading, gentle lines, expressive strokes, children's book art, warm and personal feeling",
		Description:  "Hand-drawn pencil sketch with soft shading",
	},
}

// Get は名前でプリセットを取得します。未知の名前はエラーになります。
func Get(name string) (Preset, error) {
	p, ok := presets[name]
	if !ok {
		names := make([]string, 0, len(presets))
		for n := range presets {
			names = append(names, n)
		}
		sort.Strings(names)
		return Preset{}, fmt.Errorf("不明なスタイル %q です。利用可能: %s", name, strings.Join(names, ", "))
	}
	return p, nil
}

// Valid は名前が定義済みプリセットかを返します。
func Valid(name string) bool {
	_, ok := presets[name]
	return ok
}

// List は全プリセットを名前順で返します。
func List() []Preset {
	out := make([]Preset, 0, len(presets))
	for _, p := range presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

package prompts

import (
	_ "embed"
)

// 指示テンプレートのモード名です。
const (
	ModeStoryGuide    = "story_guide"    // 物語づくりを導く対話のシステム指示
	ModePageWriter    = "page_writer"    // ページ本文執筆のシステム指示
	ModeWritePage     = "write_page"     // 特定ページの本文生成
	ModeRefinePage    = "refine_page"    // 既存ページ本文の修正
	ModeSceneSummary  = "scene_summary"  // 挿絵用の場面要約
	ModeExtractTraits = "extract_traits" // キャラクター描写からの視覚特徴抽出
)

// TemplateData は指示テンプレートに渡すデータ構造です。
// モードごとに使うフィールドは異なります。未使用フィールドは空のままで構いません。
type TemplateData struct {
	TargetAge            string // 対象年齢帯（例: "5-8"）
	Style                string // スタイルの表示名
	Title                string // 物語のタイトル
	PageNumber           int    // 対象ページ番号（1始まり）
	TotalPages           int    // 総ページ数
	CharacterName        string // 主役キャラクター名
	CharacterDescription string // 主役キャラクターの説明
	PreviousText         string // 直前までのページ本文のまとめ
	PagePurpose          string // このページで描くべき内容の指示
	CurrentText          string // 修正対象の現行本文
	RefinementRequest    string // 修正の依頼内容
	PageText             string // 場面要約の対象となるページ本文
	Name                 string // 特徴抽出の対象キャラクター名
	Description          string // 特徴抽出の元になる説明文
}

var (
	//go:embed story_guide.md
	storyGuidePrompt string
	//go:embed page_writer.md
	pageWriterPrompt string
	//go:embed write_page.md
	writePagePrompt string
	//go:embed refine_page.md
	refinePagePrompt string
	//go:embed scene_summary.md
	sceneSummaryPrompt string
	//go:embed extract_traits.md
	extractTraitsPrompt string
)

// allTemplates はモードとテンプレート文字列を紐づけるマップなのだ。
var allTemplates = map[string]string{
	ModeStoryGuide:    storyGuidePrompt,
	ModePageWriter:    pageWriterPrompt,
	ModeWritePage:     writePagePrompt,
	ModeRefinePage:    refinePagePrompt,
	ModeSceneSummary:  sceneSummaryPrompt,
	ModeExtractTraits: extractTraitsPrompt,
}

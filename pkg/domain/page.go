package domain

import "fmt"

// PageState はページの挿絵ライフサイクル上の状態です。
type PageState string

const (
	// StateEmpty は本文のないページです。
	StateEmpty PageState = "empty"
	// StateTextDrafted は本文があり挿絵が未確定のページです。
	StateTextDrafted PageState = "text_drafted"
	// StateIllustrationPending は挿絵生成ジョブが進行中のページです。
	StateIllustrationPending PageState = "illustration_pending"
	// StateIllustrationReady は現在の本文と整合する挿絵を持つページです。
	StateIllustrationReady PageState = "illustration_ready"
	// StateStale は挿絵生成後に本文が変わってしまったページです。
	StateStale PageState = "stale"
)

// Page は絵本の1ページです。Index は 1 始まりで、物語内で隙間なく連番です。
// IllustratedText は現在の挿絵を生成したときの本文で、失効判定に使います。
type Page struct {
	Index                int       `json:"index"`
	Text                 string    `json:"text"`
	IllustrationPrompt   string    `json:"illustration_prompt,omitempty"`
	IllustrationRef      string    `json:"illustration_ref,omitempty"`
	IllustratedText      string    `json:"illustrated_text,omitempty"`
	ReferencedCharacters []string  `json:"referenced_characters,omitempty"`
	State                PageState `json:"state"`

	// prevState は挿絵要求前の状態。失敗・キャンセル時の巻き戻しに使います。
	prevState PageState

	// invalidated は挿絵生成中にキャラクター編集がコミットされたことを示します。
	// 進行中ジョブの成果はもう信頼できないため、完了時に STALE へ落とします。
	invalidated bool
}

// HasIllustration は保存済みの挿絵を参照しているかを返します。
func (p *Page) HasIllustration() bool {
	return p.IllustrationRef != ""
}

// SetText は本文を差し替え、状態を再評価します。
// 挿絵がなければ TEXT_DRAFTED（本文まで空なら EMPTY）、
// 挿絵があり本文が生成時点から変わっていれば STALE になります。
// 挿絵ジョブ進行中の本文変更は許可されません。
func (p *Page) SetText(text string) error {
	if p.State == StateIllustrationPending {
		return fmt.Errorf("ページ %d は挿絵生成中のため本文を変更できません: %w", p.Index, ErrInvalidTransition)
	}
	p.Text = text
	switch {
	case !p.HasIllustration() && text == "":
		p.State = StateEmpty
	case !p.HasIllustration():
		p.State = StateTextDrafted
	case text != p.IllustratedText:
		p.State = StateStale
	default:
		p.State = StateIllustrationReady
	}
	return nil
}

// BeginIllustration は挿絵生成ジョブの開始を記録します。
// 本文が空なら ErrEmptyPageText、TEXT_DRAFTED / STALE 以外からは
// ErrInvalidTransition を返し、いずれの場合も状態は変化しません。
func (p *Page) BeginIllustration() error {
	if p.Text == "" {
		return fmt.Errorf("ページ %d: %w", p.Index, ErrEmptyPageText)
	}
	if p.State != StateTextDrafted && p.State != StateStale {
		return fmt.Errorf("ページ %d は状態 %s から挿絵を要求できません: %w", p.Index, p.State, ErrInvalidTransition)
	}
	p.prevState = p.State
	p.State = StateIllustrationPending
	return nil
}

// CompleteIllustration はジョブ成功を反映し、ILLUSTRATION_READY へ遷移します。
// 生成中にキャラクター編集がコミットされていた場合、成果物は編集前の特徴で
// 作られているため READY にはせず STALE として着地します。
func (p *Page) CompleteIllustration(ref, prompt string) error {
	if p.State != StateIllustrationPending {
		return fmt.Errorf("ページ %d は挿絵生成中ではありません: %w", p.Index, ErrInvalidTransition)
	}
	p.IllustrationRef = ref
	p.IllustrationPrompt = prompt
	p.IllustratedText = p.Text
	if p.invalidated {
		p.State = StateStale
	} else {
		p.State = StateIllustrationReady
	}
	p.invalidated = false
	return nil
}

// AbortIllustration はジョブの失敗またはキャンセルを反映し、
// 要求前の状態（TEXT_DRAFTED または STALE）へ巻き戻します。部分結果は破棄されます。
func (p *Page) AbortIllustration() error {
	if p.State != StateIllustrationPending {
		return fmt.Errorf("ページ %d は挿絵生成中ではありません: %w", p.Index, ErrInvalidTransition)
	}
	p.State = p.prevState
	p.invalidated = false
	return nil
}

// MarkStale は、参照するキャラクターの編集コミット等により挿絵が信頼できなく
// なったことを記録します。生成中のページでは進行中ジョブの成果の無効化を
// 予約します。挿絵を持たないページでは何もしません。
func (p *Page) MarkStale() {
	switch p.State {
	case StateIllustrationReady:
		p.State = StateStale
	case StateIllustrationPending:
		p.invalidated = true
	}
}

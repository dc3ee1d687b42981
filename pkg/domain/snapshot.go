package domain

import (
	"fmt"
	"slices"
)

// Snapshot は StoryDocument の永続化・表示用の不変コピーです。
// 進行中ジョブの状態（ILLUSTRATION_PENDING）はスナップショットへ持ち出さず、
// 要求前の状態へ正規化されます。ジョブはオーケストレータ内にのみ存在するためです。
type Snapshot struct {
	Title      string      `json:"title"`
	Author     string      `json:"author"`
	AgeBand    AgeBand     `json:"target_age_band"`
	Style      string      `json:"style_preset"`
	Phase      Phase       `json:"phase"`
	Characters []Character `json:"characters"`
	Pages      []Page      `json:"pages"`
	Transcript []Turn      `json:"transcript"`
}

// Snapshot は最後にコミットされた内容の不変コピーを返します。
func (d *StoryDocument) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	pages := slices.Clone(d.pages)
	for i := range pages {
		if pages[i].State == StateIllustrationPending {
			pages[i].State = pages[i].prevState
		}
		pages[i].ReferencedCharacters = slices.Clone(pages[i].ReferencedCharacters)
	}

	return Snapshot{
		Title:      d.title,
		Author:     d.author,
		AgeBand:    d.ageBand,
		Style:      d.style,
		Phase:      d.phase,
		Characters: d.characters.All(),
		Pages:      pages,
		Transcript: slices.Clone(d.transcript),
	}
}

// FromSnapshot はスナップショットから StoryDocument を復元します。
// ページ状態は本文と挿絵の実体から導出し直すため、保存側の表記ゆれに耐性があります。
func FromSnapshot(s Snapshot) (*StoryDocument, error) {
	doc, err := NewStoryDocument(s.Title, s.Author, s.AgeBand, s.Style)
	if err != nil {
		return nil, err
	}
	if s.Phase != "" {
		if err := doc.SetPhase(s.Phase); err != nil {
			return nil, err
		}
	}
	for _, c := range s.Characters {
		if err := doc.AddCharacter(c); err != nil {
			return nil, fmt.Errorf("キャラクターの復元に失敗しました: %w", err)
		}
	}

	doc.mu.Lock()
	defer doc.mu.Unlock()
	doc.pages = make([]Page, len(s.Pages))
	for i, p := range s.Pages {
		page := Page{
			Text:                 p.Text,
			IllustrationPrompt:   p.IllustrationPrompt,
			IllustrationRef:      p.IllustrationRef,
			IllustratedText:      p.IllustratedText,
			ReferencedCharacters: slices.Clone(p.ReferencedCharacters),
		}
		page.State = deriveState(page)
		doc.pages[i] = page
	}
	doc.renumber()
	for i := range doc.pages {
		for _, name := range doc.pages[i].ReferencedCharacters {
			if _, ok := doc.characters.Find(name); !ok {
				return nil, fmt.Errorf("ページ %d が未登録キャラクター %q を参照しています: %w", i+1, name, ErrCorruptData)
			}
		}
	}
	doc.transcript = slices.Clone(s.Transcript)
	return doc, nil
}

// deriveState は本文と挿絵の実体からページ状態を導出します。
func deriveState(p Page) PageState {
	switch {
	case p.IllustrationRef == "" && p.Text == "":
		return StateEmpty
	case p.IllustrationRef == "":
		return StateTextDrafted
	case p.Text != p.IllustratedText:
		return StateStale
	default:
		return StateIllustrationReady
	}
}

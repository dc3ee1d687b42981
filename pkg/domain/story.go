package domain

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// StoryDocument は物語コンテンツ唯一の正本です。
// 書き込みは会話コントローラとジョブ完了コールバックに限られ、内部のミューテックスで
// 直列化されます。読み取りは常に最後にコミットされたスナップショットに対して行えます。
type StoryDocument struct {
	mu sync.RWMutex

	title      string
	author     string
	ageBand    AgeBand
	style      string
	phase      Phase
	pages      []Page
	characters *CharacterRegistry
	transcript []Turn
}

// NewStoryDocument は空のページ・キャラクター・会話記録を持つ物語を生成します。
func NewStoryDocument(title, author string, ageBand AgeBand, style string) (*StoryDocument, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("タイトルが空です: %w", ErrInvalidTransition)
	}
	if !ValidAgeBand(ageBand) {
		return nil, fmt.Errorf("不明な対象年齢帯 %q: %w", ageBand, ErrInvalidTransition)
	}
	return &StoryDocument{
		title:      title,
		author:     author,
		ageBand:    ageBand,
		style:      style,
		phase:      PhaseBrainstorm,
		characters: NewCharacterRegistry(),
	}, nil
}

// --- メタデータ ---

func (d *StoryDocument) Title() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.title
}

func (d *StoryDocument) Author() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.author
}

func (d *StoryDocument) AgeBand() AgeBand {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ageBand
}

// Style は挿絵スタイルプリセットの名前を返します。
func (d *StoryDocument) Style() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.style
}

func (d *StoryDocument) Phase() Phase {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.phase
}

// SetPhase はフェーズを差し替えます。妥当性の判断は会話コントローラの責務です。
func (d *StoryDocument) SetPhase(p Phase) error {
	if !ValidPhase(p) {
		return fmt.Errorf("不明なフェーズ %q: %w", p, ErrInvalidTransition)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.phase = p
	return nil
}

// --- 会話記録 ---

// AppendTurn は発話を現在のフェーズでタグ付けして追記し、記録されたターンを返します。
// 記録は追記専用です。
func (d *StoryDocument) AppendTurn(role Role, text string) Turn {
	d.mu.Lock()
	defer d.mu.Unlock()
	turn := Turn{Role: role, Text: text, Phase: d.phase, At: time.Now()}
	d.transcript = append(d.transcript, turn)
	return turn
}

// Transcript は会話記録全体のコピーを返します。
func (d *StoryDocument) Transcript() []Turn {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.transcript)
}

// --- ページ操作 ---

// renumber はページ番号を 1..N の隙間ない連番へ振り直します。
func (d *StoryDocument) renumber() {
	for i := range d.pages {
		d.pages[i].Index = i + 1
	}
}

// AppendPage は末尾へ空ページを追加し、その番号を返します。
func (d *StoryDocument) AppendPage() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pages = append(d.pages, Page{State: StateEmpty})
	d.renumber()
	return len(d.pages)
}

// InsertPage は指定位置（1始まり）へ空ページを挿入し、後続を繰り下げます。
func (d *StoryDocument) InsertPage(at int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if at < 1 || at > len(d.pages)+1 {
		return fmt.Errorf("挿入位置 %d が範囲外です: %w", at, ErrInvalidTransition)
	}
	d.pages = slices.Insert(d.pages, at-1, Page{State: StateEmpty})
	d.renumber()
	return nil
}

// RemovePage はページを削除し、残りを詰めて振り直します。
func (d *StoryDocument) RemovePage(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkIndex(index); err != nil {
		return err
	}
	d.pages = slices.Delete(d.pages, index-1, index)
	d.renumber()
	return nil
}

// MovePage はページを並べ替え、全体を振り直します。
func (d *StoryDocument) MovePage(from, to int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkIndex(from); err != nil {
		return err
	}
	if err := d.checkIndex(to); err != nil {
		return err
	}
	page := d.pages[from-1]
	d.pages = slices.Delete(d.pages, from-1, from)
	d.pages = slices.Insert(d.pages, to-1, page)
	d.renumber()
	return nil
}

// PageCount はページ数を返します。
func (d *StoryDocument) PageCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.pages)
}

// Page は指定ページのコピーを返します。
func (d *StoryDocument) Page(index int) (Page, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if err := d.checkIndex(index); err != nil {
		return Page{}, err
	}
	return d.pages[index-1], nil
}

// Pages は全ページのコピーを本の順で返します。
func (d *StoryDocument) Pages() []Page {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.pages)
}

func (d *StoryDocument) checkIndex(index int) error {
	if index < 1 || index > len(d.pages) {
		return fmt.Errorf("ページ %d は存在しません: %w", index, ErrNotFound)
	}
	return nil
}

// SetPageText は本文を差し替え、ページ状態を再評価します。
func (d *StoryDocument) SetPageText(index int, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkIndex(index); err != nil {
		return err
	}
	return d.pages[index-1].SetText(text)
}

// SetPageCharacters はページの参照キャラクターを明示的に設定します。
// 未登録の名前が含まれる場合は拒否します。参照整合の破れは通常操作からは
// 決して生じさせないための検証です。
func (d *StoryDocument) SetPageCharacters(index int, names []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkIndex(index); err != nil {
		return err
	}
	for _, name := range names {
		if _, ok := d.characters.Find(name); !ok {
			return fmt.Errorf("ページ %d が未登録キャラクター %q を参照しています: %w", index, name, ErrInvalidTransition)
		}
	}
	d.pages[index-1].ReferencedCharacters = slices.Clone(names)
	return nil
}

// BeginIllustration は挿絵ジョブ開始をページ状態へ反映します。
func (d *StoryDocument) BeginIllustration(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkIndex(index); err != nil {
		return err
	}
	return d.pages[index-1].BeginIllustration()
}

// CompleteIllustration はジョブ成功の結果をページへ引き渡します。
// ここでジョブの結果の所有権がオーケストレータから StoryDocument へ移ります。
func (d *StoryDocument) CompleteIllustration(index int, ref, prompt string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkIndex(index); err != nil {
		return err
	}
	return d.pages[index-1].CompleteIllustration(ref, prompt)
}

// AbortIllustration はジョブの失敗・キャンセルを反映し、要求前の状態へ戻します。
func (d *StoryDocument) AbortIllustration(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkIndex(index); err != nil {
		return err
	}
	return d.pages[index-1].AbortIllustration()
}

// --- キャラクター操作 ---

// AddCharacter はキャラクターを登録します。
func (d *StoryDocument) AddCharacter(c Character) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.characters.Add(c)
}

// Character は名前でキャラクターを検索します。
func (d *StoryDocument) Character(name string) (Character, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.characters.Find(name)
}

// Characters は登録順のキャラクター一覧を返します。
func (d *StoryDocument) Characters() []Character {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.characters.All()
}

// UpdateCharacter は視覚的特徴の編集をコミットします。
// そのキャラクターを参照し挿絵を持つ全ページは、コミットと同時に STALE になります。
// 挿絵生成中のページは、進行中ジョブの完了時に READY ではなく STALE として着地します。
func (d *StoryDocument) UpdateCharacter(name, description string, traits []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.characters.Update(name, description, traits); err != nil {
		return err
	}
	for i := range d.pages {
		if d.pageReferences(&d.pages[i], name) {
			d.pages[i].MarkStale()
		}
	}
	return nil
}

// RemoveCharacter はキャラクターを削除します。
// いずれかのページが明示的に参照している間は削除できません（参照整合の保護）。
func (d *StoryDocument) RemoveCharacter(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.pages {
		if slices.ContainsFunc(d.pages[i].ReferencedCharacters, func(n string) bool {
			return strings.EqualFold(n, name)
		}) {
			return fmt.Errorf("キャラクター %q はページ %d から参照されています: %w", name, d.pages[i].Index, ErrInvalidTransition)
		}
	}
	if !d.characters.Remove(name) {
		return fmt.Errorf("キャラクター %q は未登録です: %w", name, ErrNotFound)
	}
	return nil
}

// pageReferences はページが指定キャラクターを参照しているかを判定します。
// 明示指定があればそれを使い、なければ本文への名前の出現で推定します。
func (d *StoryDocument) pageReferences(p *Page, name string) bool {
	if len(p.ReferencedCharacters) > 0 {
		return slices.ContainsFunc(p.ReferencedCharacters, func(n string) bool {
			return strings.EqualFold(n, name)
		})
	}
	c, ok := d.characters.Find(name)
	return ok && c.AppearsIn(p.Text)
}

// ReferencedCharacters はページが参照するキャラクターを登録順で解決します。
// 明示指定があればその集合を、なければ本文からの推定を使います。
func (d *StoryDocument) ReferencedCharacters(index int) ([]Character, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if err := d.checkIndex(index); err != nil {
		return nil, err
	}
	p := d.pages[index-1]
	if len(p.ReferencedCharacters) == 0 {
		return d.characters.ReferencedBy(p.Text), nil
	}
	want := make(map[string]bool, len(p.ReferencedCharacters))
	for _, name := range p.ReferencedCharacters {
		want[strings.ToLower(name)] = true
	}
	var refs []Character
	for _, c := range d.characters.All() {
		if want[strings.ToLower(c.Name)] {
			refs = append(refs, c)
		}
	}
	return refs, nil
}

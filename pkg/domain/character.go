package domain

import (
	"fmt"
	"strings"
)

// Character は物語に登場するキャラクターの定義を保持します。
// VisualTraits は挿絵プロンプトへ注入する外見上の特徴で、登録順を保持します。
type Character struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	VisualTraits []string `json:"visual_traits"`
}

// TraitsFragment は視覚的特徴をカンマ区切りの一句にまとめます。
// 特徴が未設定の場合は空文字列を返し、プロンプトへは何も寄与しません。
func (c Character) TraitsFragment() string {
	return strings.Join(c.VisualTraits, ", ")
}

// AppearsIn は名前が本文に（大文字小文字を無視して）現れるかを判定します。
// 代名詞やあだ名のみで言及されたキャラクターは検出できない、既知のヒューリスティックです。
func (c Character) AppearsIn(text string) bool {
	if c.Name == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(c.Name))
}

// String はキャラクターの情報を文字列で返します。
func (c Character) String() string {
	return fmt.Sprintf("%s (%d traits)", c.Name, len(c.VisualTraits))
}

// CharacterRegistry は1つの物語が所有するキャラクターの登録簿です。
// 登録順を保持したまま、名前による検索（大文字小文字を無視）を提供します。
type CharacterRegistry struct {
	ordered []Character
	index   map[string]int // 小文字化した名前 -> ordered の位置
}

// NewCharacterRegistry は空の登録簿を生成します。
func NewCharacterRegistry() *CharacterRegistry {
	return &CharacterRegistry{index: make(map[string]int)}
}

// Add はキャラクターを末尾に登録します。
// 名前が空、または既登録の名前と（大文字小文字を無視して）衝突する場合はエラーを返します。
func (r *CharacterRegistry) Add(c Character) error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return fmt.Errorf("キャラクター名が空です: %w", ErrInvalidTransition)
	}
	key := strings.ToLower(name)
	if _, ok := r.index[key]; ok {
		return fmt.Errorf("キャラクター %q は登録済みです: %w", name, ErrInvalidTransition)
	}
	c.Name = name
	r.index[key] = len(r.ordered)
	r.ordered = append(r.ordered, c)
	return nil
}

// Find は名前でキャラクターを検索します。見つからない場合は ok=false を返します。
func (r *CharacterRegistry) Find(name string) (Character, bool) {
	i, ok := r.index[strings.ToLower(name)]
	if !ok {
		return Character{}, false
	}
	return r.ordered[i], true
}

// Update は既存キャラクターの説明と視覚的特徴を差し替えます。
// 編集のコミットに伴うページ失効は StoryDocument 側が担います。
func (r *CharacterRegistry) Update(name, description string, traits []string) error {
	i, ok := r.index[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("キャラクター %q は未登録です: %w", name, ErrNotFound)
	}
	c := r.ordered[i]
	c.Description = description
	c.VisualTraits = append([]string(nil), traits...)
	r.ordered[i] = c
	return nil
}

// Remove は名前でキャラクターを削除します。登録順は詰め直されます。
func (r *CharacterRegistry) Remove(name string) bool {
	i, ok := r.index[strings.ToLower(name)]
	if !ok {
		return false
	}
	r.ordered = append(r.ordered[:i], r.ordered[i+1:]...)
	delete(r.index, strings.ToLower(name))
	for k := range r.index {
		if r.index[k] > i {
			r.index[k]--
		}
	}
	return true
}

// All は登録順のキャラクター一覧の防御的コピーを返します。
func (r *CharacterRegistry) All() []Character {
	out := make([]Character, len(r.ordered))
	copy(out, r.ordered)
	for i := range out {
		if out[i].VisualTraits != nil {
			traits := make([]string, len(out[i].VisualTraits))
			copy(traits, out[i].VisualTraits)
			out[i].VisualTraits = traits
		}
	}
	return out
}

// Len は登録数を返します。
func (r *CharacterRegistry) Len() int {
	return len(r.ordered)
}

// ReferencedBy は本文へ名前が現れるキャラクターを登録順で返します。
func (r *CharacterRegistry) ReferencedBy(text string) []Character {
	var refs []Character
	for _, c := range r.ordered {
		if c.AppearsIn(text) {
			refs = append(refs, c)
		}
	}
	return refs
}

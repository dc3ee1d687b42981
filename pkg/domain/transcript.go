package domain

import "time"

// Role は会話ターンの発話者です。
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Phase は会話コントローラの進行フェーズです。
// フェーズ遷移は常に明示的なユーザー操作で行われ、自動では進みません。
type Phase string

const (
	PhaseBrainstorm  Phase = "brainstorm"
	PhaseCharacters  Phase = "characters"
	PhasePageWriting Phase = "page_writing"
	PhaseRevision    Phase = "revision"
)

// ValidPhase はフェーズ値が定義済みのものかを返します。
func ValidPhase(p Phase) bool {
	switch p {
	case PhaseBrainstorm, PhaseCharacters, PhasePageWriting, PhaseRevision:
		return true
	}
	return false
}

// Turn は会話記録の1ターンです。発話時点のフェーズでタグ付けされます。
// 記録は追記専用で、後からページ本文が編集されても書き換えられません。
type Turn struct {
	Role  Role      `json:"role"`
	Text  string    `json:"text"`
	Phase Phase     `json:"phase"`
	At    time.Time `json:"at"`
}

// AgeBand は対象年齢帯の固定列挙です。
type AgeBand string

const (
	AgeBand2to5  AgeBand = "2-5"
	AgeBand5to8  AgeBand = "5-8"
	AgeBand6to10 AgeBand = "6-10"
)

// ValidAgeBand は年齢帯が定義済みのものかを返します。
func ValidAgeBand(b AgeBand) bool {
	switch b {
	case AgeBand2to5, AgeBand5to8, AgeBand6to10:
		return true
	}
	return false
}

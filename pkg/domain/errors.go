package domain

import "errors"

// コア全体で共有するエラー種別の定義です。
// 呼び出し側は errors.Is で種別を判定し、ユーザー向けの文言への翻訳は
// プレゼンテーション層に委ねます。
var (
	// ErrInvalidTransition はステートマシンの不正な操作を示します。
	// 正しい呼び出し側からは決して発生しないプログラミングエラーです。
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrEmptyPageText は本文が空のページに対する挿絵要求を示します。
	ErrEmptyPageText = errors.New("page text is empty")

	// ErrJobAlreadyPending は同一ページ・同一種別のジョブ二重投入を示します。
	ErrJobAlreadyPending = errors.New("job already pending for page")

	// ErrCapabilityUnavailable は生成バックエンドが応答できない状態を示します。
	// 「しばらくして再試行」の意味を持ちます。
	ErrCapabilityUnavailable = errors.New("generation capability unavailable")

	// ErrInvalidPrompt はバックエンドが入力を拒否したことを示します。
	// 「本文を編集して再試行」の意味を持ちます。
	ErrInvalidPrompt = errors.New("prompt rejected by backend")

	// ErrResourceExhausted は画像バックエンドのメモリ等の枯渇を示します。
	ErrResourceExhausted = errors.New("generation resource exhausted")

	// 永続化エラー。load/save の呼び出し元へそのまま伝播します。
	ErrNotFound    = errors.New("story project not found")
	ErrCorruptData = errors.New("story data is corrupt")
	ErrIOFailure   = errors.New("storage io failure")
)

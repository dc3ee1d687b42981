package orchestrator

import (
	"context"
	"sync"
	"time"
)

// JobKind は生成ジョブの能力種別です。種別が異なれば同一ページでも並行できます。
type JobKind string

const (
	KindText         JobKind = "text"
	KindIllustration JobKind = "illustration"
)

// JobStatus はジョブの状態です。queued/running は非終端、それ以外は終端です。
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Terminal は終端状態かを返します。
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// FailureKind は失敗の分類です。呼び出し側の案内文言の出し分けに使います。
type FailureKind string

const (
	FailureNone                  FailureKind = ""
	FailureCapabilityUnavailable FailureKind = "capability_unavailable" // 後で再試行
	FailureInvalidPrompt         FailureKind = "invalid_prompt"         // 本文の修正が必要
	FailureResourceExhausted     FailureKind = "resource_exhausted"     // 容量不足
	FailureUnknown               FailureKind = "unknown"
)

// RunFunc はジョブ本体です。ctx のキャンセルへ協調的に応答し、
// 進捗を onProgress で報告します（頻度と単調性の調整は呼び出し側が行います）。
type RunFunc func(ctx context.Context, onProgress func(float64)) (any, error)

// JobSpec はジョブの投入仕様です。
type JobSpec struct {
	Kind        JobKind
	PageIndex   int
	Run         RunFunc
	SoftTimeout time.Duration // 0 なら無期限。超過時は cancelled として終端します
}

// Job は投入済みジョブのハンドルです。
type Job struct {
	id        int64
	kind      JobKind
	pageIndex int

	mu       sync.Mutex
	status   JobStatus
	progress float64
	failure  FailureKind
	err      error
	result   any

	done        chan struct{}
	cancel      context.CancelFunc
	submittedAt time.Time
}

// ID はジョブの識別子を返します。
func (j *Job) ID() int64 { return j.id }

// Kind は能力種別を返します。
func (j *Job) Kind() JobKind { return j.kind }

// PageIndex は対象ページ番号を返します。
func (j *Job) PageIndex() int { return j.pageIndex }

// Status は現在の状態を返します。
func (j *Job) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Progress は最後に記録された進捗（0.0〜1.0、単調非減少）を返します。
func (j *Job) Progress() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}

// Failure は失敗の分類を返します。失敗していなければ FailureNone です。
func (j *Job) Failure() FailureKind {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.failure
}

// Err は終端後のエラーを返します。成功またはキャンセルなら nil の場合があります。
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Result は成功時の結果を返します。終端前や失敗時は nil です。
func (j *Job) Result() any {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// SubmittedAt は投入時刻を返します。ソフトタイムアウト起因のキャンセルを
// 呼び出し側が経過時間で判別するために使います。
func (j *Job) SubmittedAt() time.Time { return j.submittedAt }

// Done はジョブの終端で閉じられるチャネルを返します。
func (j *Job) Done() <-chan struct{} { return j.done }

// recordProgress は進捗を単調非減少かつ [0,1] に収めて記録します。
// 前回値から実際に増加したときのみ true を返します。
func (j *Job) recordProgress(v float64) bool {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() || v <= j.progress {
		return false
	}
	j.progress = v
	return true
}

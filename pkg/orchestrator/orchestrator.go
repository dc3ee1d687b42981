// Package orchestrator は生成ジョブの投入・進捗・キャンセル・完了待ちを司ります。
// 会話側のスレッドを塞がず、ページごとの「同種別1ジョブ」規律と
// FIFO の全体並行数上限を強制します。
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/shouni/go-storybook-kit/pkg/domain"
)

const (
	// defaultMaxConcurrent は全ページ・全種別をまたぐ同時実行数の既定値です。
	defaultMaxConcurrent = 2

	// defaultProgressInterval は進捗通知の最小間隔です。
	// これより高頻度の報告は内部値のみ更新し、通知は間引かれます。
	defaultProgressInterval = 200 * time.Millisecond

	// eventBufferSize を超えてバッファに溜まった通知は破棄されます。
	eventBufferSize = 64
)

// Event はジョブの進捗・状態変化の push 通知です。
type Event struct {
	JobID     int64
	Kind      JobKind
	PageIndex int
	Progress  float64
	Status    JobStatus
}

// Options は Orchestrator の設定です。ゼロ値のフィールドには既定値が使われます。
type Options struct {
	MaxConcurrent    int
	ProgressInterval time.Duration
}

type jobKey struct {
	kind      JobKind
	pageIndex int
}

// Orchestrator は生成ジョブの実行基盤です。
type Orchestrator struct {
	logger           *slog.Logger
	sem              *semaphore.Weighted
	progressInterval time.Duration

	mu        sync.Mutex
	pending   map[jobKey]*Job // queued または running のジョブ
	queueTail chan struct{}   // 投入順に実行枠の取得を直列化するチケット列の末尾

	nextID atomic.Int64
	events chan Event
}

// New は Orchestrator を生成します。
func New(opts Options, logger *slog.Logger) *Orchestrator {
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	interval := opts.ProgressInterval
	if interval <= 0 {
		interval = defaultProgressInterval
	}
	head := make(chan struct{})
	close(head)
	return &Orchestrator{
		logger:           logger,
		sem:              semaphore.NewWeighted(int64(maxConcurrent)),
		progressInterval: interval,
		pending:          make(map[jobKey]*Job),
		queueTail:        head,
		events:           make(chan Event, eventBufferSize),
	}
}

// Events は進捗・状態変化の push 通知チャネルを返します。
// 通知は best-effort で、受信が追いつかない分は破棄されます。
// 終端の確定的な観測には Job.Done と AwaitResult を使ってください。
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// Submit はジョブを投入します。同一ページ・同一種別のジョブが既に
// 終端していない場合は ErrJobAlreadyPending を返します。
// 全体並行数の上限を超えた分は FIFO 順で実行を待ちます。
func (o *Orchestrator) Submit(spec JobSpec) (*Job, error) {
	if spec.Run == nil {
		return nil, fmt.Errorf("ジョブ本体が未指定です: %w", domain.ErrInvalidTransition)
	}
	if spec.Kind != KindText && spec.Kind != KindIllustration {
		return nil, fmt.Errorf("不明なジョブ種別 %q です: %w", spec.Kind, domain.ErrInvalidTransition)
	}

	key := jobKey{kind: spec.Kind, pageIndex: spec.PageIndex}

	o.mu.Lock()
	if _, exists := o.pending[key]; exists {
		o.mu.Unlock()
		return nil, fmt.Errorf("ページ %d の %s ジョブは既に進行中です: %w", spec.PageIndex, spec.Kind, domain.ErrJobAlreadyPending)
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{
		id:          o.nextID.Add(1),
		kind:        spec.Kind,
		pageIndex:   spec.PageIndex,
		status:      StatusQueued,
		done:        make(chan struct{}),
		cancel:      cancel,
		submittedAt: time.Now(),
	}
	o.pending[key] = job

	// 待ち順は投入時点でここで確定する。実行ゴルーチンの起動順には依らない。
	prev := o.queueTail
	turn := make(chan struct{})
	o.queueTail = turn
	o.mu.Unlock()

	if spec.SoftTimeout > 0 {
		timer := time.AfterFunc(spec.SoftTimeout, cancel)
		go func() {
			<-job.done
			timer.Stop()
		}()
	}

	go o.run(ctx, key, job, spec.Run, prev, turn)

	o.logger.Info("ジョブを投入しました",
		"job_id", job.id, "kind", job.kind, "page", job.pageIndex)
	return job, nil
}

// Cancel はジョブのキャンセルを要求します。実際の終端は次の安全な
// チェックポイントで行われます。既に終端したジョブには何もしません。
func (o *Orchestrator) Cancel(job *Job) {
	if job == nil {
		return
	}
	job.cancel()
}

// AwaitResult はジョブの終端を待ち、結果またはエラーを返します。
// ctx の期限切れはジョブ自体には影響しません。
func (o *Orchestrator) AwaitResult(ctx context.Context, job *Job) (any, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("ジョブ %d の完了待ちが打ち切られました: %w", job.ID(), ctx.Err())
	case <-job.done:
	}

	job.mu.Lock()
	defer job.mu.Unlock()
	switch job.status {
	case StatusSucceeded:
		return job.result, nil
	case StatusCancelled:
		return nil, fmt.Errorf("ジョブ %d はキャンセルされました: %w", job.id, context.Canceled)
	default:
		return nil, job.err
	}
}

// run はジョブ本体を実行し、終端処理まで面倒を見ます。
// 実行枠の取得は prev/turn のチケット列で投入順に直列化されます。
func (o *Orchestrator) run(ctx context.Context, key jobKey, job *Job, fn RunFunc, prev, turn chan struct{}) {
	acquired := false
	select {
	case <-prev:
		acquired = o.sem.Acquire(ctx, 1) == nil
	case <-ctx.Done():
	}
	close(turn)
	if !acquired {
		// 実行枠を待っている間にキャンセルされた
		o.finalize(key, job, StatusCancelled, FailureNone, nil, nil)
		return
	}
	defer o.sem.Release(1)

	job.mu.Lock()
	job.status = StatusRunning
	job.mu.Unlock()
	o.publish(job, StatusRunning, 0)

	throttle := rate.NewLimiter(rate.Every(o.progressInterval), 1)
	onProgress := func(v float64) {
		if !job.recordProgress(v) {
			return
		}
		if throttle.Allow() {
			o.publish(job, StatusRunning, job.Progress())
		}
	}

	result, err := fn(ctx, onProgress)
	switch {
	case ctx.Err() != nil, errors.Is(err, context.Canceled):
		// 部分結果は破棄する
		o.finalize(key, job, StatusCancelled, FailureNone, nil, nil)
	case err != nil:
		o.finalize(key, job, StatusFailed, classifyFailure(err), nil, err)
	default:
		job.recordProgress(1)
		o.finalize(key, job, StatusSucceeded, FailureNone, result, nil)
	}
}

// finalize はジョブを終端状態へ移し、進行中の登録を解いて通知します。
func (o *Orchestrator) finalize(key jobKey, job *Job, status JobStatus, failure FailureKind, result any, err error) {
	job.mu.Lock()
	job.status = status
	job.failure = failure
	job.result = result
	job.err = err
	progress := job.progress
	job.mu.Unlock()

	o.mu.Lock()
	delete(o.pending, key)
	o.mu.Unlock()

	close(job.done)
	o.publish(job, status, progress)

	switch status {
	case StatusFailed:
		o.logger.Warn("ジョブが失敗しました",
			"job_id", job.id, "kind", job.kind, "page", job.pageIndex,
			"failure", failure, "error", err)
	default:
		o.logger.Info("ジョブが終端しました",
			"job_id", job.id, "kind", job.kind, "page", job.pageIndex, "status", status)
	}
}

// publish は通知を送ります。受信側が詰まっていれば破棄します。
func (o *Orchestrator) publish(job *Job, status JobStatus, progress float64) {
	select {
	case o.events <- Event{
		JobID:     job.id,
		Kind:      job.kind,
		PageIndex: job.pageIndex,
		Progress:  progress,
		Status:    status,
	}:
	default:
	}
}

// classifyFailure は能力層のエラーを失敗分類へ写像します。
func classifyFailure(err error) FailureKind {
	switch {
	case errors.Is(err, domain.ErrCapabilityUnavailable):
		return FailureCapabilityUnavailable
	case errors.Is(err, domain.ErrInvalidPrompt):
		return FailureInvalidPrompt
	case errors.Is(err, domain.ErrResourceExhausted):
		return FailureResourceExhausted
	default:
		return FailureUnknown
	}
}

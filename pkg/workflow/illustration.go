package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/shouni/go-storybook-kit/internal/config"
	"github.com/shouni/go-storybook-kit/pkg/capability"
	"github.com/shouni/go-storybook-kit/pkg/domain"
	"github.com/shouni/go-storybook-kit/pkg/orchestrator"
	"github.com/shouni/go-storybook-kit/pkg/styles"
)

// illustrationPayload は挿絵ジョブの成功結果です。
type illustrationPayload struct {
	prompt string
	image  *capability.ImageResult
}

// IllustrationRunner はページの挿絵生成と結果の物語への反映を管理します。
type IllustrationRunner struct {
	manager     *Manager
	slug        string
	doc         *domain.StoryDocument
	limiter     *rate.Limiter
	softTimeout time.Duration
}

// NewIllustrationRunner は IllustrationRunner を初期化します。
func (m *Manager) NewIllustrationRunner(slug string, doc *domain.StoryDocument) *IllustrationRunner {
	softTimeout := m.cfg.Options.SoftTimeout
	if softTimeout <= 0 {
		softTimeout = config.DefaultSoftTimeout
	}
	return &IllustrationRunner{
		manager:     m,
		slug:        slug,
		doc:         doc,
		limiter:     rate.NewLimiter(rate.Every(config.DefaultRateInterval), 2),
		softTimeout: softTimeout,
	}
}

// Submit は対象ページの挿絵ジョブを投入し、ページを生成中状態へ移します。
// ジョブの終端は Await で物語へ反映してください。
func (r *IllustrationRunner) Submit(pageIndex int) (*orchestrator.Job, error) {
	preset, err := styles.Get(r.doc.Style())
	if err != nil {
		return nil, err
	}
	characters, err := r.doc.ReferencedCharacters(pageIndex)
	if err != nil {
		return nil, err
	}
	page, err := r.doc.Page(pageIndex)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(page.Text) == "" {
		return nil, fmt.Errorf("ページ %d は本文が空のため挿絵を要求できません: %w", pageIndex, domain.ErrEmptyPageText)
	}

	// 同一ページへの二重投入はオーケストレータが ErrJobAlreadyPending で
	// 拒否するため、ページ状態の遷移はジョブ受理後に行う。
	// 受理から遷移完了までジョブ本体は ready で足止めする。
	ready := make(chan struct{})
	job, err := r.manager.orchestrator.Submit(orchestrator.JobSpec{
		Kind:        orchestrator.KindIllustration,
		PageIndex:   pageIndex,
		SoftTimeout: r.softTimeout,
		Run: func(ctx context.Context, onProgress func(float64)) (any, error) {
			select {
			case <-ready:
			case <-ctx.Done():
				return nil, ctx.Err()
			}

			prompt, err := r.manager.resolver.Resolve(ctx, page, characters, preset)
			if err != nil {
				return nil, err
			}
			onProgress(0.05)

			image, err := r.manager.image.Generate(ctx, capability.ImageRequest{Prompt: prompt}, onProgress)
			if err != nil {
				return nil, err
			}
			return &illustrationPayload{prompt: prompt, image: image}, nil
		},
	})
	if err != nil {
		return nil, err
	}

	if err := r.doc.BeginIllustration(pageIndex); err != nil {
		r.manager.orchestrator.Cancel(job)
		return nil, err
	}
	close(ready)
	return job, nil
}

// Await はジョブの終端を待ち、結果を物語とプロジェクトストアへ反映します。
// 失敗・キャンセル時はページを要求前の状態へ戻します。
func (r *IllustrationRunner) Await(ctx context.Context, job *orchestrator.Job) error {
	pageIndex := job.PageIndex()

	result, err := r.manager.orchestrator.AwaitResult(ctx, job)
	if err != nil {
		if !job.Status().Terminal() {
			// 待機側の打ち切り。ジョブ自体をキャンセルし、終端を見届けてから
			// ページを巻き戻す。ジョブ実行中の巻き戻しは状態の食い違いを生む。
			r.manager.orchestrator.Cancel(job)
			<-job.Done()
		}
		saveCtx := context.WithoutCancel(ctx)
		if abortErr := r.doc.AbortIllustration(pageIndex); abortErr != nil {
			r.manager.logger.Warn("ページ状態の巻き戻しに失敗しました", "page", pageIndex, "error", abortErr)
		}
		if saveErr := r.manager.store.Save(saveCtx, r.slug, r.doc); saveErr != nil {
			r.manager.logger.Warn("巻き戻し後の保存に失敗しました", "slug", r.slug, "error", saveErr)
		}
		return fmt.Errorf("ページ %d の挿絵生成が完了しませんでした: %w", pageIndex, err)
	}

	payload, ok := result.(*illustrationPayload)
	if !ok {
		return fmt.Errorf("挿絵ジョブの結果の型が不正です: %T", result)
	}

	ref, err := r.manager.store.WriteIllustration(ctx, r.slug, pageIndex, payload.image.Data, payload.image.MimeType)
	if err != nil {
		if abortErr := r.doc.AbortIllustration(pageIndex); abortErr != nil {
			r.manager.logger.Warn("ページ状態の巻き戻しに失敗しました", "page", pageIndex, "error", abortErr)
		}
		return err
	}
	if err := r.doc.CompleteIllustration(pageIndex, ref, payload.prompt); err != nil {
		return err
	}
	if err := r.manager.store.Save(ctx, r.slug, r.doc); err != nil {
		return err
	}

	r.manager.logger.Info("挿絵を保存しました", "slug", r.slug, "page", pageIndex, "ref", ref)
	return nil
}

// Illustrate は1ページの挿絵生成を投入から反映まで一括で行います。
func (r *IllustrationRunner) Illustrate(ctx context.Context, pageIndex int) error {
	job, err := r.Submit(pageIndex)
	if err != nil {
		return err
	}
	return r.Await(ctx, job)
}

// IllustrateAll は挿絵が必要な全ページ（本文ありで未生成、または失効）を
// 並列に生成します。バックエンド保護のためレートリミッタで間隔を空けます。
func (r *IllustrationRunner) IllustrateAll(ctx context.Context) error {
	var targets []int
	for _, p := range r.doc.Pages() {
		if p.State == domain.StateTextDrafted || p.State == domain.StateStale {
			targets = append(targets, p.Index)
		}
	}
	if len(targets) == 0 {
		return nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, pageIndex := range targets {
		index := pageIndex
		eg.Go(func() error {
			if err := r.limiter.Wait(egCtx); err != nil {
				return err
			}
			if err := r.Illustrate(egCtx, index); err != nil {
				return fmt.Errorf("ページ %d: %w", index, err)
			}
			return nil
		})
	}
	return eg.Wait()
}

package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shouni/go-storybook-kit/internal/config"
	"github.com/shouni/go-storybook-kit/pkg/capability"
	"github.com/shouni/go-storybook-kit/pkg/domain"
	"github.com/shouni/go-storybook-kit/pkg/orchestrator"
	"github.com/shouni/go-storybook-kit/pkg/prompts"
	"github.com/shouni/go-storybook-kit/pkg/publisher"
	"github.com/shouni/go-storybook-kit/pkg/resolver"
	"github.com/shouni/go-storybook-kit/pkg/storage"
)

type localReader struct{}

func (localReader) Open(_ context.Context, path string) (io.ReadCloser, error) {
	return os.Open(path)
}

type localWriter struct{}

func (localWriter) Write(_ context.Context, path string, r io.Reader, _ string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// stubImage は固定の画像または固定エラーを返す挿絵能力です。
type stubImage struct {
	err error
}

func (s *stubImage) Generate(_ context.Context, req capability.ImageRequest, onProgress capability.ProgressFunc) (*capability.ImageResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if onProgress != nil {
		onProgress(0.5)
	}
	return &capability.ImageResult{Data: []byte("png:" + req.Prompt), MimeType: "image/png"}, nil
}

// blockingImage は release が閉じられるか ctx が打ち切られるまで完了しない挿絵能力です。
type blockingImage struct {
	release chan struct{}
}

func (s *blockingImage) Generate(ctx context.Context, req capability.ImageRequest, _ capability.ProgressFunc) (*capability.ImageResult, error) {
	select {
	case <-s.release:
		return &capability.ImageResult{Data: []byte("png:" + req.Prompt), MimeType: "image/png"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// newTestManager は外部バックエンドに触れないテスト用 Manager を組み立てます。
func newTestManager(t *testing.T, image capability.ImageModel) *Manager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	builder, err := prompts.NewTextPromptBuilder()
	if err != nil {
		t.Fatal(err)
	}
	reader := localReader{}
	writer := localWriter{}
	store := storage.New(t.TempDir(), reader, writer, logger)
	return &Manager{
		cfg:           &config.Config{ProjectsDir: "unused"},
		reader:        reader,
		writer:        writer,
		logger:        logger,
		promptBuilder: builder,
		image:         image,
		store:         store,
		resolver:      resolver.New(nil, builder, logger),
		orchestrator:  orchestrator.New(orchestrator.Options{MaxConcurrent: 2}, logger),
		publisher:     publisher.NewStoryPublisher(writer),
	}
}

func illustratableDoc(t *testing.T) *domain.StoryDocument {
	t.Helper()
	doc, err := domain.NewStoryDocument("Luna's Key", "Tester", domain.AgeBand5to8, "watercolor")
	if err != nil {
		t.Fatal(err)
	}
	if err := doc.AddCharacter(domain.Character{
		Name:         "Luna",
		VisualTraits: []string{"small brown mouse", "red scarf"},
	}); err != nil {
		t.Fatal(err)
	}
	doc.AppendPage()
	if err := doc.SetPageText(1, "Luna finds a key."); err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestIllustrationRunner_Success(t *testing.T) {
	m := newTestManager(t, &stubImage{})
	ctx := context.Background()
	doc := illustratableDoc(t)

	slug, err := m.store.CreateProject(doc.Title())
	if err != nil {
		t.Fatal(err)
	}
	runner := m.NewIllustrationRunner(slug, doc)

	if err := runner.Illustrate(ctx, 1); err != nil {
		t.Fatalf("挿絵生成に失敗しました: %v", err)
	}

	p, err := doc.Page(1)
	if err != nil {
		t.Fatal(err)
	}
	if p.State != domain.StateIllustrationReady {
		t.Errorf("ページ状態の期待値 %s, 実際の値 %s", domain.StateIllustrationReady, p.State)
	}
	if !strings.Contains(p.IllustrationPrompt, "small brown mouse, red scarf") {
		t.Errorf("特徴句がプロンプトに含まれていません: %q", p.IllustrationPrompt)
	}

	// アセットと story.json の両方が書き出されていること
	rc, err := m.store.OpenIllustration(ctx, slug, p.IllustrationRef)
	if err != nil {
		t.Fatal(err)
	}
	rc.Close()
	if _, err := m.store.Load(ctx, slug); err != nil {
		t.Fatalf("保存済みプロジェクトの読み直しに失敗しました: %v", err)
	}
}

func TestIllustrationRunner_FailureRevertsPage(t *testing.T) {
	m := newTestManager(t, &stubImage{err: fmt.Errorf("接続できません: %w", domain.ErrCapabilityUnavailable)})
	ctx := context.Background()
	doc := illustratableDoc(t)

	slug, err := m.store.CreateProject(doc.Title())
	if err != nil {
		t.Fatal(err)
	}
	runner := m.NewIllustrationRunner(slug, doc)

	err = runner.Illustrate(ctx, 1)
	if err == nil {
		t.Fatal("失敗が報告されませんでした")
	}

	p, _ := doc.Page(1)
	if p.State != domain.StateTextDrafted {
		t.Errorf("失敗後の状態の期待値 %s, 実際の値 %s", domain.StateTextDrafted, p.State)
	}
	if p.IllustrationRef != "" {
		t.Errorf("失敗したのに挿絵参照が残っています: %q", p.IllustrationRef)
	}
}

func TestIllustrationRunner_DuplicateSubmit(t *testing.T) {
	m := newTestManager(t, &stubImage{})
	doc := illustratableDoc(t)

	slug, err := m.store.CreateProject(doc.Title())
	if err != nil {
		t.Fatal(err)
	}
	runner := m.NewIllustrationRunner(slug, doc)

	job, err := runner.Submit(1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := runner.Submit(1); !errors.Is(err, domain.ErrJobAlreadyPending) {
		t.Errorf("ErrJobAlreadyPendingを期待しましたが %v でした", err)
	}

	if err := runner.Await(context.Background(), job); err != nil {
		t.Fatal(err)
	}
}

func TestIllustrationRunner_AwaitTimeoutCancelsJob(t *testing.T) {
	image := &blockingImage{release: make(chan struct{})}
	defer close(image.release)
	m := newTestManager(t, image)
	doc := illustratableDoc(t)

	slug, err := m.store.CreateProject(doc.Title())
	if err != nil {
		t.Fatal(err)
	}
	runner := m.NewIllustrationRunner(slug, doc)

	job, err := runner.Submit(1)
	if err != nil {
		t.Fatal(err)
	}

	awaitCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := runner.Await(awaitCtx, job); err == nil {
		t.Fatal("待機の打ち切りが報告されませんでした")
	}

	// 巻き戻しの時点でジョブ本体も終端していること
	if !job.Status().Terminal() {
		t.Errorf("ジョブが終端していません: %s", job.Status())
	}
	if job.Status() != orchestrator.StatusCancelled {
		t.Errorf("ジョブ状態の期待値 %s, 実際の値 %s", orchestrator.StatusCancelled, job.Status())
	}
	p, _ := doc.Page(1)
	if p.State != domain.StateTextDrafted {
		t.Errorf("巻き戻し後の状態の期待値 %s, 実際の値 %s", domain.StateTextDrafted, p.State)
	}

	// 進行中の登録も解けており、同じページへ再投入できること
	retry, err := runner.Submit(1)
	if err != nil {
		t.Fatalf("再投入に失敗しました: %v", err)
	}
	m.orchestrator.Cancel(retry)
	<-retry.Done()
}

func TestIllustrationRunner_EmptyPage(t *testing.T) {
	m := newTestManager(t, &stubImage{})
	doc, err := domain.NewStoryDocument("Blank", "Tester", domain.AgeBand5to8, "watercolor")
	if err != nil {
		t.Fatal(err)
	}
	doc.AppendPage()

	runner := m.NewIllustrationRunner("blank", doc)
	if _, err := runner.Submit(1); !errors.Is(err, domain.ErrEmptyPageText) {
		t.Errorf("ErrEmptyPageTextを期待しましたが %v でした", err)
	}
}

func TestIllustrateAll(t *testing.T) {
	m := newTestManager(t, &stubImage{})
	ctx := context.Background()
	doc := illustratableDoc(t)
	doc.AppendPage()
	if err := doc.SetPageText(2, "The key glows softly."); err != nil {
		t.Fatal(err)
	}
	doc.AppendPage() // 本文のない3ページ目は対象外

	slug, err := m.store.CreateProject(doc.Title())
	if err != nil {
		t.Fatal(err)
	}
	runner := m.NewIllustrationRunner(slug, doc)
	// テストではレート制限を外す
	runner.limiter.SetLimit(1e9)

	if err := runner.IllustrateAll(ctx); err != nil {
		t.Fatal(err)
	}

	for _, index := range []int{1, 2} {
		p, _ := doc.Page(index)
		if p.State != domain.StateIllustrationReady {
			t.Errorf("ページ %d の状態の期待値 %s, 実際の値 %s", index, domain.StateIllustrationReady, p.State)
		}
	}
	p3, _ := doc.Page(3)
	if p3.State != domain.StateEmpty {
		t.Errorf("空ページが処理されてしまいました: %s", p3.State)
	}
}

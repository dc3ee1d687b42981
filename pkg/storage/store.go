// Package storage は物語プロジェクトの永続化を担います。
// プロジェクトは基点ディレクトリ直下のスラグ名ディレクトリで、
// story.json（物語の記録）、pages/（挿絵アセット）、exports/（出力物）を持ちます。
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-storybook-kit/pkg/domain"
)

const (
	storyFileName  = "story.json"
	pagesDirName   = "pages"
	exportsDirName = "exports"
)

// ProjectInfo は一覧表示用のプロジェクト概要です。
type ProjectInfo struct {
	Slug      string
	Title     string
	PageCount int
}

// Store は物語プロジェクトの読み書きを担います。
// アセットの読み書きは remoteio を経由し、プロジェクトの列挙と削除は
// 基点ディレクトリに対するローカル操作です。
type Store struct {
	baseDir string
	reader  remoteio.InputReader
	writer  remoteio.OutputWriter
	logger  *slog.Logger
}

// New は Store を生成します。
func New(baseDir string, reader remoteio.InputReader, writer remoteio.OutputWriter, logger *slog.Logger) *Store {
	return &Store{
		baseDir: baseDir,
		reader:  reader,
		writer:  writer,
		logger:  logger,
	}
}

// CreateProject はタイトルからスラグを割り当て、プロジェクトディレクトリを用意します。
// 既存のスラグと衝突する場合は連番を付けます。
func (s *Store) CreateProject(title string) (string, error) {
	base := Slugify(title)
	slug := base
	for n := 2; ; n++ {
		dir := filepath.Join(s.baseDir, slug)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			break
		} else if err != nil {
			return "", fmt.Errorf("プロジェクトディレクトリの確認に失敗しました: %w", domain.ErrIOFailure)
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}

	for _, sub := range []string{pagesDirName, exportsDirName} {
		if err := os.MkdirAll(filepath.Join(s.baseDir, slug, sub), 0o755); err != nil {
			return "", fmt.Errorf("プロジェクトディレクトリの作成に失敗しました: %w", domain.ErrIOFailure)
		}
	}
	s.logger.Info("プロジェクトを作成しました", "slug", slug, "title", title)
	return slug, nil
}

// Save は物語のスナップショットを story.json へ書き出します。
func (s *Store) Save(ctx context.Context, slug string, doc *domain.StoryDocument) error {
	snap := doc.Snapshot()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("物語の直列化に失敗しました: %w", err)
	}

	path := s.storyPath(slug)
	if err := s.writer.Write(ctx, path, bytes.NewReader(data), "application/json; charset=utf-8"); err != nil {
		return fmt.Errorf("story.json の書き込みに失敗しました (path: %s): %w", path, domain.ErrIOFailure)
	}
	return nil
}

// Load は story.json から物語を復元します。
// プロジェクトが存在しなければ ErrNotFound、記録が壊れていれば ErrCorruptData です。
func (s *Store) Load(ctx context.Context, slug string) (*domain.StoryDocument, error) {
	path := s.storyPath(slug)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("プロジェクト %q が見つかりません: %w", slug, domain.ErrNotFound)
	}

	rc, err := s.reader.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("story.json の読み込みに失敗しました (path: %s): %w", path, domain.ErrIOFailure)
	}
	defer rc.Close()

	var snap domain.Snapshot
	if err := json.NewDecoder(rc).Decode(&snap); err != nil {
		return nil, fmt.Errorf("story.json の解析に失敗しました (path: %s): %w", path, domain.ErrCorruptData)
	}

	doc, err := domain.FromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("物語の復元に失敗しました (slug: %s): %w", slug, err)
	}
	return doc, nil
}

// List は基点ディレクトリ直下の全プロジェクトの概要を、更新の新しい順に返します。
// story.json を持たないディレクトリは黙って読み飛ばします。
func (s *Store) List(ctx context.Context) ([]ProjectInfo, error) {
	entries, err := os.ReadDir(s.baseDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("プロジェクト一覧の取得に失敗しました: %w", domain.ErrIOFailure)
	}

	type listed struct {
		info    ProjectInfo
		modTime time.Time
	}
	var found []listed
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		slug := entry.Name()
		stat, err := os.Stat(s.storyPath(slug))
		if err != nil {
			continue
		}
		rc, err := s.reader.Open(ctx, s.storyPath(slug))
		if err != nil {
			continue
		}
		var snap domain.Snapshot
		decodeErr := json.NewDecoder(rc).Decode(&snap)
		rc.Close()
		if decodeErr != nil {
			s.logger.Warn("壊れた story.json を読み飛ばします", "slug", slug, "error", decodeErr)
			continue
		}
		found = append(found, listed{
			info: ProjectInfo{
				Slug:      slug,
				Title:     snap.Title,
				PageCount: len(snap.Pages),
			},
			modTime: stat.ModTime(),
		})
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].modTime.After(found[j].modTime)
	})
	infos := make([]ProjectInfo, 0, len(found))
	for _, f := range found {
		infos = append(infos, f.info)
	}
	return infos, nil
}

// Delete はプロジェクトをアセットごと削除します。
func (s *Store) Delete(slug string) error {
	dir := filepath.Join(s.baseDir, slug)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("プロジェクト %q が見つかりません: %w", slug, domain.ErrNotFound)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("プロジェクト %q の削除に失敗しました: %w", slug, domain.ErrIOFailure)
	}
	s.logger.Info("プロジェクトを削除しました", "slug", slug)
	return nil
}

// WriteIllustration はページの挿絵を保存し、story.json へ格納できる
// プロジェクト相対の参照を返します。
func (s *Store) WriteIllustration(ctx context.Context, slug string, pageIndex int, data []byte, mimeType string) (string, error) {
	ref := filepath.Join(pagesDirName, fmt.Sprintf("page_%02d.png", pageIndex))
	path := filepath.Join(s.baseDir, slug, ref)
	if err := s.writer.Write(ctx, path, bytes.NewReader(data), mimeType); err != nil {
		return "", fmt.Errorf("ページ %d の挿絵の保存に失敗しました (path: %s): %w", pageIndex, path, domain.ErrIOFailure)
	}
	return ref, nil
}

// OpenIllustration は保存済みの挿絵を開きます。
func (s *Store) OpenIllustration(ctx context.Context, slug, ref string) (io.ReadCloser, error) {
	path := filepath.Join(s.baseDir, slug, ref)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("挿絵 %q が見つかりません: %w", ref, domain.ErrNotFound)
	}
	rc, err := s.reader.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("挿絵 %q を開けませんでした: %w", ref, domain.ErrIOFailure)
	}
	return rc, nil
}

// ExportPath はプロジェクトの出力物の置き場所を返します。
func (s *Store) ExportPath(slug, filename string) string {
	return filepath.Join(s.baseDir, slug, exportsDirName, filename)
}

// ExportDir はプロジェクトの出力物ディレクトリを返します。
func (s *Store) ExportDir(slug string) string {
	return filepath.Join(s.baseDir, slug, exportsDirName)
}

// ProjectDir はプロジェクトディレクトリの絶対位置を返します。
func (s *Store) ProjectDir(slug string) string {
	return filepath.Join(s.baseDir, slug)
}

func (s *Store) storyPath(slug string) string {
	return filepath.Join(s.baseDir, slug, storyFileName)
}

package workflow

import (
	"context"
	"fmt"

	"github.com/shouni/go-storybook-kit/pkg/conversation"
	"github.com/shouni/go-storybook-kit/pkg/domain"
	"github.com/shouni/go-storybook-kit/pkg/styles"
)

// SessionRunner は1つのプロジェクトに対する対話セッションを実行します。
// 物語への変更は操作のたびにプロジェクトストアへ保存されます。
type SessionRunner struct {
	manager    *Manager
	slug       string
	controller *conversation.Controller
}

// CreateSession は新しいプロジェクトを作成してセッションを開始します。
func (m *Manager) CreateSession(ctx context.Context, title, author string, ageBand domain.AgeBand, style string) (*SessionRunner, error) {
	if style == "" {
		style = styles.DefaultName
	}
	if !styles.Valid(style) {
		return nil, fmt.Errorf("不明なスタイル %q です", style)
	}

	doc, err := domain.NewStoryDocument(title, author, ageBand, style)
	if err != nil {
		return nil, err
	}

	slug, err := m.store.CreateProject(title)
	if err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, slug, doc); err != nil {
		return nil, err
	}

	return m.newSession(slug, doc), nil
}

// OpenSession は保存済みプロジェクトを読み込んでセッションを再開します。
func (m *Manager) OpenSession(ctx context.Context, slug string) (*SessionRunner, error) {
	doc, err := m.store.Load(ctx, slug)
	if err != nil {
		return nil, err
	}
	return m.newSession(slug, doc), nil
}

func (m *Manager) newSession(slug string, doc *domain.StoryDocument) *SessionRunner {
	return &SessionRunner{
		manager:    m,
		slug:       slug,
		controller: conversation.New(doc, m.chat, m.promptBuilder, m.logger),
	}
}

// Slug はプロジェクトの識別子を返します。
func (s *SessionRunner) Slug() string { return s.slug }

// Controller は対話コントローラを返します。
func (s *SessionRunner) Controller() *conversation.Controller { return s.controller }

// Document は物語を返します。
func (s *SessionRunner) Document() *domain.StoryDocument { return s.controller.Document() }

// Reply はユーザー発話を処理して応答を返します。
// 応答の取得に失敗しても、記録済みのユーザー発話は保存されます。
func (s *SessionRunner) Reply(ctx context.Context, text string) (string, error) {
	reply, replyErr := s.controller.ProcessUserInput(ctx, text)
	if err := s.save(ctx); err != nil {
		return "", err
	}
	if replyErr != nil {
		return "", replyErr
	}
	return reply, nil
}

// WritePage は対象ページの本文を生成して保存します。
func (s *SessionRunner) WritePage(ctx context.Context, pageIndex int) (string, error) {
	text, err := s.controller.GeneratePageText(ctx, pageIndex)
	if err != nil {
		return "", err
	}
	if err := s.save(ctx); err != nil {
		return "", err
	}
	return text, nil
}

// RefinePage は対象ページの本文を修正指示に沿って書き直し、保存します。
func (s *SessionRunner) RefinePage(ctx context.Context, pageIndex int, request string) (string, error) {
	text, err := s.controller.RefinePage(ctx, pageIndex, request)
	if err != nil {
		return "", err
	}
	if err := s.save(ctx); err != nil {
		return "", err
	}
	return text, nil
}

func (s *SessionRunner) save(ctx context.Context) error {
	if err := s.manager.store.Save(ctx, s.slug, s.Document()); err != nil {
		return fmt.Errorf("プロジェクト %q の保存に失敗しました: %w", s.slug, err)
	}
	return nil
}

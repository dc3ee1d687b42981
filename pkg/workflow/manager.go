// Package workflow はアプリケーションの各工程を担う Runner 群を構築・管理します。
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"google.golang.org/genai"

	imagekit "github.com/shouni/gemini-image-kit/pkg/generator"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-storybook-kit/internal/config"
	"github.com/shouni/go-storybook-kit/pkg/adapters"
	"github.com/shouni/go-storybook-kit/pkg/capability"
	"github.com/shouni/go-storybook-kit/pkg/orchestrator"
	"github.com/shouni/go-storybook-kit/pkg/prompts"
	"github.com/shouni/go-storybook-kit/pkg/publisher"
	"github.com/shouni/go-storybook-kit/pkg/resolver"
	"github.com/shouni/go-storybook-kit/pkg/storage"
)

const (
	defaultGeminiTemperature = float32(0.7)
	defaultCacheExpiration   = 30 * time.Minute
	cacheCleanupInterval     = 1 * time.Hour
	defaultTTL               = 24 * time.Hour
)

// ManagerArgs は Manager の構築に必要な依存です。
type ManagerArgs struct {
	Config     *config.Config
	HTTPClient httpkit.ClientInterface
	Reader     remoteio.InputReader
	Writer     remoteio.OutputWriter
	Logger     *slog.Logger
}

// Manager は、ワークフローの各工程を担う Runner 群を構築・管理します。
type Manager struct {
	cfg           *config.Config
	httpClient    httpkit.ClientInterface
	reader        remoteio.InputReader
	writer        remoteio.OutputWriter
	aiClient      gemini.GenerativeModel
	logger        *slog.Logger
	promptBuilder prompts.Builder
	chat          capability.ChatModel
	image         capability.ImageModel
	store         *storage.Store
	resolver      *resolver.Resolver
	orchestrator  *orchestrator.Orchestrator
	publisher     *publisher.StoryPublisher
}

// New は設定を基に新しい Manager を初期化します。
func New(ctx context.Context, args ManagerArgs) (*Manager, error) {
	if args.Config == nil {
		return nil, fmt.Errorf("Config は必須です")
	}
	if args.HTTPClient == nil {
		return nil, fmt.Errorf("httpClient は必須です")
	}
	if args.Reader == nil {
		return nil, fmt.Errorf("InputReader は必須です")
	}
	if args.Writer == nil {
		return nil, fmt.Errorf("OutputWriter は必須です")
	}
	logger := args.Logger
	if logger == nil {
		logger = slog.Default()
	}

	aiClient, err := initializeAIClient(ctx, args.Config.GeminiAPIKey)
	if err != nil {
		return nil, err
	}

	promptBuilder, err := prompts.NewTextPromptBuilder()
	if err != nil {
		return nil, fmt.Errorf("TextPromptBuilder の新規作成に失敗しました: %w", err)
	}

	imageGenerator, err := initializeImageGenerator(args.Config.GeminiImageModel, args.Reader, args.HTTPClient, aiClient)
	if err != nil {
		return nil, fmt.Errorf("画像生成エンジンの初期化に失敗しました: %w", err)
	}

	chat := adapters.NewGeminiChat(aiClient, args.Config.GeminiModel)
	store := storage.New(args.Config.ProjectsDir, args.Reader, args.Writer, logger)

	maxConcurrent := args.Config.Options.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = config.DefaultMaxConcurrent
	}

	return &Manager{
		cfg:           args.Config,
		httpClient:    args.HTTPClient,
		reader:        args.Reader,
		writer:        args.Writer,
		aiClient:      aiClient,
		logger:        logger,
		promptBuilder: promptBuilder,
		chat:          chat,
		image:         adapters.NewGeminiImage(imageGenerator),
		store:         store,
		resolver:      resolver.New(chat, promptBuilder, logger),
		orchestrator:  orchestrator.New(orchestrator.Options{MaxConcurrent: maxConcurrent}, logger),
		publisher:     publisher.NewStoryPublisher(args.Writer),
	}, nil
}

// Store はプロジェクトストアを返します。
func (m *Manager) Store() *storage.Store { return m.store }

// Orchestrator は生成ジョブの実行基盤を返します。
func (m *Manager) Orchestrator() *orchestrator.Orchestrator { return m.orchestrator }

// initializeAIClient は gemini クライアントを初期化します。
func initializeAIClient(ctx context.Context, apiKey string) (gemini.GenerativeModel, error) {
	clientConfig := gemini.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(defaultGeminiTemperature),
	}
	aiClient, err := gemini.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return aiClient, nil
}

// initializeImageGenerator は、画像キャッシュを含む ImageGenerator を初期化します。
func initializeImageGenerator(
	model string,
	reader remoteio.InputReader,
	httpClient httpkit.ClientInterface,
	aiClient gemini.GenerativeModel,
) (imagekit.ImageGenerator, error) {
	imgCache := cache.New(defaultCacheExpiration, cacheCleanupInterval)
	core, err := imagekit.NewGeminiImageCore(
		aiClient,
		reader,
		httpClient,
		imgCache,
		defaultTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("GeminiImageCore の初期化に失敗しました: %w", err)
	}
	return imagekit.NewGeminiGenerator(model, core)
}

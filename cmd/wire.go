package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"sentinela-gateway/handler"
	"sentinela-gateway/internal/config"
	"sentinela-gateway/internal/integrations/feeds"
	"sentinela-gateway/internal/integrations/gemini"
	"sentinela-gateway/internal/integrations/paramstore"
	"sentinela-gateway/internal/repository"
	"sentinela-gateway/internal/usecase"
)

// buildHandler wires every dependency from cfg. The returned cleanup releases
// store connections.
func buildHandler(ctx context.Context, cfg config.Config, logger *slog.Logger) (*handler.Handler, func(), error) {
	cleanup := func() {}

	var awsCfg aws.Config
	if cfg.NeedsAWS() {
		var err error
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, cleanup, fmt.Errorf("load AWS config: %w", err)
		}
	}

	kv, closeKV, err := buildStore(cfg, awsCfg)
	if err != nil {
		return nil, cleanup, err
	}
	cleanup = closeKV

	keys, err := buildKeySource(cfg, awsCfg)
	if err != nil {
		return nil, cleanup, err
	}
	ai, err := gemini.NewClient(keys,
		gemini.WithBaseURL(cfg.GeminiBaseURL),
		gemini.WithModel(cfg.GeminiModel),
	)
	if err != nil {
		return nil, cleanup, fmt.Errorf("create gemini client: %w", err)
	}

	feedList, err := feeds.ParseList(cfg.NewsFeeds, cfg.NewsTimeout)
	if err != nil {
		return nil, cleanup, err
	}
	sources := make([]usecase.NewsSource, 0, len(feedList))
	for _, f := range feedList {
		sources = append(sources, f)
	}

	chat, err := usecase.NewChatService(kv, ai, logger, cfg.AITimeout)
	if err != nil {
		return nil, cleanup, fmt.Errorf("create chat service: %w", err)
	}
	complaints, err := usecase.NewComplaintService(kv, logger)
	if err != nil {
		return nil, cleanup, fmt.Errorf("create complaint service: %w", err)
	}
	news, err := usecase.NewNewsService(sources, kv, logger, cfg.NewsTimeout)
	if err != nil {
		return nil, cleanup, fmt.Errorf("create news service: %w", err)
	}

	h, err := handler.NewHandler(chat, complaints, news, logger)
	if err != nil {
		return nil, cleanup, fmt.Errorf("create handler: %w", err)
	}
	return h, cleanup, nil
}

func buildStore(cfg config.Config, awsCfg aws.Config) (usecase.KV, func(), error) {
	switch cfg.KVBackend {
	case config.BackendRedis:
		client, err := repository.NewRedisClient(cfg.KVURL)
		if err != nil {
			return nil, func() {}, err
		}
		store, err := repository.NewRedisStore(client)
		if err != nil {
			return nil, func() {}, err
		}
		return store, func() { _ = client.Close() }, nil
	case config.BackendDynamoDB:
		store, err := repository.NewDynamoStore(awsdynamodb.NewFromConfig(awsCfg), cfg.StateTable)
		if err != nil {
			return nil, func() {}, err
		}
		return store, func() {}, nil
	default:
		return repository.NewMemoryStore(), func() {}, nil
	}
}

// buildKeySource prefers an explicit key, then the SSM parameter. With
// neither, requests fail with a configuration error rather than at startup.
func buildKeySource(cfg config.Config, awsCfg aws.Config) (gemini.KeySource, error) {
	if cfg.GeminiAPIKey != "" || cfg.GeminiKeyParam == "" {
		return gemini.StaticKey(cfg.GeminiAPIKey), nil
	}
	ps, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("create SSM client: %w", err)
	}
	return paramstore.NewSecretKey(ps, cfg.GeminiKeyParam)
}

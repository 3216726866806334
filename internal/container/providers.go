// Package container wires the expense wizard's components from configuration
// and owns their startup and teardown order.
package container

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/expense-wizard/internal/ai"
	"github.com/garyjia/expense-wizard/internal/application/port"
	"github.com/garyjia/expense-wizard/internal/config"
	"github.com/garyjia/expense-wizard/internal/infrastructure/external/disabled"
	"github.com/garyjia/expense-wizard/internal/infrastructure/external/gemini"
	infraLark "github.com/garyjia/expense-wizard/internal/infrastructure/external/lark"
	"github.com/garyjia/expense-wizard/internal/infrastructure/external/openai"
	"github.com/garyjia/expense-wizard/internal/infrastructure/persistence/bolt"
	"github.com/garyjia/expense-wizard/internal/infrastructure/persistence/memory"
	"github.com/garyjia/expense-wizard/internal/infrastructure/persistence/sqlite"
)

// NamedNotifier pairs a notifier with its subscription name
type NamedNotifier struct {
	Name     string
	Notifier port.Notifier
}

// ProvideStore opens the draft store selected by cfg.Driver
func ProvideStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (port.DraftStore, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return memory.NewStore(), nil
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case config.DriverBolt:
		store, err := bolt.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open bolt store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// ProvideGateway builds the AI gateway for cfg.Provider. Provider none
// yields a gateway that refuses document work and skips compliance.
func ProvideGateway(ctx context.Context, cfg config.AIConfig, company string, logger *zap.Logger) (port.AIGateway, error) {
	if cfg.Provider == config.ProviderNone {
		logger.Warn("AI provider disabled; receipts and policy uploads will be refused")
		return disabled.Gateway{}, nil
	}

	prompts, err := ai.LoadPrompts(cfg.PromptsPath, company)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openai.NewGateway(openai.Config{
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Model:    cfg.Model,
			MaxPages: cfg.MaxPDFPages,
		}, prompts, logger), nil
	case config.ProviderGemini:
		gw, err := gemini.NewGateway(ctx, gemini.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		}, prompts, logger)
		if err != nil {
			return nil, err
		}
		return gw, nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}

// ProvideNotifiers returns the acknowledgment channels enabled in cfg.
// The log notifier is not included here; the container always adds it.
func ProvideNotifiers(cfg config.NotifyConfig, logger *zap.Logger) ([]NamedNotifier, error) {
	var out []NamedNotifier

	if cfg.Lark.Enabled {
		larkCfg := infraLark.Config{
			AppID:     cfg.Lark.AppID,
			AppSecret: cfg.Lark.AppSecret,
			ReceiveID: cfg.Lark.ReceiveOpenID,
			BaseURL:   cfg.Lark.BaseURL,
		}
		if err := larkCfg.Validate(); err != nil {
			return nil, fmt.Errorf("lark notifier: %w", err)
		}
		client := infraLark.NewSDKClient(larkCfg, nil)
		out = append(out, NamedNotifier{
			Name:     "lark",
			Notifier: infraLark.NewMessenger(client, larkCfg.ReceiveID, logger),
		})
	}

	return out, nil
}

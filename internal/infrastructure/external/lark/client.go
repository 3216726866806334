// Package lark sends submission acknowledgments through the Lark IM API.
package lark

import (
	"errors"
	"net/http"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"go.uber.org/zap"
)

// Config holds Lark app credentials and the acknowledgment recipient
type Config struct {
	AppID     string
	AppSecret string
	ReceiveID string // open_id of the user or bot receiving acknowledgments
	BaseURL   string // defaults to the public Lark open platform
}

// Validate checks required settings
func (c Config) Validate() error {
	if c.AppID == "" || c.AppSecret == "" {
		return errors.New("lark app_id and app_secret are required")
	}
	if c.ReceiveID == "" {
		return errors.New("lark receive_id is required")
	}
	return nil
}

// NewSDKClient creates a Lark SDK client with token caching
func NewSDKClient(cfg Config, httpClient *http.Client) *lark.Client {
	opts := []lark.ClientOptionFunc{
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, lark.WithOpenBaseUrl(cfg.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, lark.WithHttpClient(httpClient))
	}
	return lark.NewClient(cfg.AppID, cfg.AppSecret, opts...)
}

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// Package openai implements port.AIGateway on the OpenAI chat completions API.
package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/garyjia/expense-wizard/internal/ai"
	"github.com/garyjia/expense-wizard/internal/application/port"
	"github.com/garyjia/expense-wizard/internal/domain/entity"
	"github.com/garyjia/expense-wizard/internal/infrastructure/document"
)

// Config configures the gateway
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	MaxPages int
}

// Gateway implements port.AIGateway using a vision-capable chat model
type Gateway struct {
	client   *openai.Client
	model    string
	maxPages int
	prompts  *ai.PromptSet
	logger   *zap.Logger
}

var _ port.AIGateway = (*Gateway)(nil)

// NewGateway creates an OpenAI gateway
func NewGateway(cfg Config, prompts *ai.PromptSet, logger *zap.Logger) *Gateway {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4o
	}
	return &Gateway{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		maxPages: cfg.MaxPages,
		prompts:  prompts,
		logger:   logger,
	}
}

// ParseReceipt sends the receipt pages with the extraction prompt
func (g *Gateway) ParseReceipt(ctx context.Context, doc port.Document) (*entity.ExtractedLine, error) {
	g.logger.Debug("Parsing receipt", zap.String("name", doc.Name), zap.String("mime_type", doc.MIMEType))

	prompt, err := g.prompts.ReceiptUser()
	if err != nil {
		return nil, err
	}
	parts, err := g.imageParts(doc)
	if err != nil {
		return nil, err
	}

	content, err := g.complete(ctx, g.prompts.Receipt, withText(prompt, parts))
	if err != nil {
		return nil, err
	}

	line, err := ai.ParseReceiptReply(content)
	if err != nil {
		g.logger.Error("Failed to parse receipt reply", zap.Error(err), zap.String("content", content))
		return nil, err
	}
	return line, nil
}

// ExtractPolicyRules summarises a policy document. Text files are sent inline.
func (g *Gateway) ExtractPolicyRules(ctx context.Context, doc port.Document) (string, error) {
	g.logger.Debug("Extracting policy rules", zap.String("name", doc.Name), zap.String("mime_type", doc.MIMEType))

	var msg openai.ChatCompletionMessage
	if text, ok := document.Text(doc); ok {
		prompt, err := g.prompts.PolicyUser(text)
		if err != nil {
			return "", err
		}
		msg = openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt}
	} else {
		prompt, err := g.prompts.PolicyUser("")
		if err != nil {
			return "", err
		}
		parts, err := g.imageParts(doc)
		if err != nil {
			return "", err
		}
		msg = withText(prompt, parts)
	}

	content, err := g.complete(ctx, g.prompts.Policy, msg)
	if err != nil {
		return "", err
	}
	rules := strings.TrimSpace(content)
	if rules == "" {
		return "", ai.ErrEmptyReply
	}
	return rules, nil
}

// CheckPolicyCompliance asks the model to judge one line
func (g *Gateway) CheckPolicyCompliance(ctx context.Context, line *entity.ExpenseLineItem, customRules string) (*port.ComplianceVerdict, error) {
	prompt, err := g.prompts.ComplianceUser(line, customRules)
	if err != nil {
		return nil, err
	}

	content, err := g.complete(ctx, g.prompts.Compliance, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})
	if err != nil {
		return nil, err
	}

	warning, ok := ai.ParseComplianceVerdict(content)
	g.logger.Info("Compliance check completed",
		zap.String("expense_item", line.ExpenseItem),
		zap.Bool("compliant", ok),
		zap.Bool("custom_policy", customRules != ""))
	return &port.ComplianceVerdict{Compliant: ok, Warning: warning}, nil
}

func (g *Gateway) complete(ctx context.Context, p ai.Prompt, user openai.ChatCompletionMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			user,
		},
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		g.logger.Error("OpenAI API call failed", zap.Error(err))
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ai.ErrEmptyReply
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *Gateway) imageParts(doc port.Document) ([]openai.ChatMessagePart, error) {
	images, err := document.ToImages(doc, g.maxPages)
	if err != nil {
		return nil, err
	}

	parts := make([]openai.ChatMessagePart, 0, len(images))
	for _, img := range images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:%s;base64,%s", img.MIMEType, base64.StdEncoding.EncodeToString(img.Data)),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}
	return parts, nil
}

func withText(prompt string, images []openai.ChatMessagePart) openai.ChatCompletionMessage {
	parts := append([]openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: prompt}}, images...)
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts}
}

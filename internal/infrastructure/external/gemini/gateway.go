// Package gemini implements port.AIGateway on the Google Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/garyjia/expense-wizard/internal/ai"
	"github.com/garyjia/expense-wizard/internal/application/port"
	"github.com/garyjia/expense-wizard/internal/domain/entity"
	"github.com/garyjia/expense-wizard/internal/infrastructure/document"
)

// DefaultModel handles images and PDFs inline
const DefaultModel = "gemini-2.5-flash"

// Gateway implements port.AIGateway. PDFs and images are sent as inline
// bytes since Gemini reads them natively.
type Gateway struct {
	client  *genai.Client
	model   string
	prompts *ai.PromptSet
	logger  *zap.Logger
}

var _ port.AIGateway = (*Gateway)(nil)

// Config configures the gateway
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// NewGateway creates a Gemini gateway
func NewGateway(ctx context.Context, cfg Config, prompts *ai.PromptSet, logger *zap.Logger) (*Gateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gateway{client: client, model: cfg.Model, prompts: prompts, logger: logger}, nil
}

// ParseReceipt sends the receipt with the extraction prompt
func (g *Gateway) ParseReceipt(ctx context.Context, doc port.Document) (*entity.ExtractedLine, error) {
	prompt, err := g.prompts.ReceiptUser()
	if err != nil {
		return nil, err
	}

	text, err := g.generate(ctx, g.prompts.Receipt, documentPart(doc), genai.NewPartFromText(prompt))
	if err != nil {
		return nil, err
	}

	line, err := ai.ParseReceiptReply(text)
	if err != nil {
		g.logger.Error("Failed to parse receipt reply", zap.Error(err), zap.String("content", text))
		return nil, err
	}
	return line, nil
}

// ExtractPolicyRules summarises a policy document into a numbered list
func (g *Gateway) ExtractPolicyRules(ctx context.Context, doc port.Document) (string, error) {
	var parts []*genai.Part
	if body, ok := document.Text(doc); ok {
		prompt, err := g.prompts.PolicyUser(body)
		if err != nil {
			return "", err
		}
		parts = []*genai.Part{genai.NewPartFromText(prompt)}
	} else {
		prompt, err := g.prompts.PolicyUser("")
		if err != nil {
			return "", err
		}
		parts = []*genai.Part{documentPart(doc), genai.NewPartFromText(prompt)}
	}

	text, err := g.generate(ctx, g.prompts.Policy, parts...)
	if err != nil {
		return "", err
	}
	if text = strings.TrimSpace(text); text == "" {
		return "", ai.ErrEmptyReply
	}
	return text, nil
}

// CheckPolicyCompliance asks the model to judge one line
func (g *Gateway) CheckPolicyCompliance(ctx context.Context, line *entity.ExpenseLineItem, customRules string) (*port.ComplianceVerdict, error) {
	prompt, err := g.prompts.ComplianceUser(line, customRules)
	if err != nil {
		return nil, err
	}

	text, err := g.generate(ctx, g.prompts.Compliance, genai.NewPartFromText(prompt))
	if err != nil {
		return nil, err
	}

	warning, ok := ai.ParseComplianceVerdict(text)
	return &port.ComplianceVerdict{Compliant: ok, Warning: warning}, nil
}

func (g *Gateway) generate(ctx context.Context, p ai.Prompt, parts ...*genai.Part) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.Temperature),
		MaxOutputTokens: int32(p.MaxTokens),
	}
	if p.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(p.System, genai.RoleUser)
	}

	g.logger.Debug("Sending Gemini request", zap.String("model", g.model), zap.Int("parts", len(parts)))

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, cfg)
	if err != nil {
		g.logger.Error("Gemini API call failed", zap.Error(err))
		return "", fmt.Errorf("generating content: %w", err)
	}
	return resp.Text(), nil
}

func documentPart(doc port.Document) *genai.Part {
	return genai.NewPartFromBytes(doc.Data, doc.MIMEType)
}

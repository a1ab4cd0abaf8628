package gemini

import (
	"context"
	"fmt"
	"strings"

	"despesas_bot/internal/config"

	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

// Client Google Gemini 文本生成客户端
type Client struct {
	client       *genai.Client
	model        string
	systemPrompt string
}

type Option func(*genai.ClientConfig)

// WithBaseURL 替换 API 地址（测试用）
func WithBaseURL(baseURL string) Option {
	return func(cc *genai.ClientConfig) {
		cc.HTTPOptions.BaseURL = baseURL
	}
}

// NewClient 创建 Gemini 客户端
func NewClient(ctx context.Context, cfg config.GeminiConfig, systemPrompt string, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cc)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Client{
		client:       client,
		model:        model,
		systemPrompt: strings.TrimSpace(systemPrompt),
	}, nil
}

// Complete 生成单轮回复
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("gemini prompt is empty")
	}

	var genCfg *genai.GenerateContentConfig
	if c.systemPrompt != "" {
		genCfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(c.systemPrompt, genai.RoleUser),
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), genCfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini response has no candidates")
	}
	// 空文本不是错误，由调用方决定是否回复
	return strings.TrimSpace(resp.Text()), nil
}

package interpreter

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/genai"
)

// GeminiLLM calls the Gemini API through google.golang.org/genai.
type GeminiLLM struct {
	Model   string
	APIKey  string
	BaseURL string
}

func NewGeminiLLMFromConfig(cfg *LLMSettings) (*GeminiLLM, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: llm config is nil", ErrConfig)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: api key missing; provide llm.api_key or API_KEY", ErrConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: llm model is required", ErrConfig)
	}
	return &GeminiLLM{Model: cfg.Model, APIKey: cfg.APIKey, BaseURL: cfg.BaseURL}, nil
}

func (g *GeminiLLM) Complete(ctx context.Context, req Request) (string, error) {
	cc := &genai.ClientConfig{APIKey: g.APIKey, Backend: genai.BackendGeminiAPI}
	if g.BaseURL != "" {
		cc.HTTPOptions.BaseURL = g.BaseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return "", err
	}

	parts, err := geminiParts(req.Parts)
	if err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       genai.Ptr(float32(req.Sampling.Temperature)),
	}
	if req.Sampling.ThinkingBudget > 0 {
		config.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(req.Sampling.ThinkingBudget)}
	}

	resp, err := client.Models.GenerateContent(ctx, g.Model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, config)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func geminiParts(parts []Part) ([]*genai.Part, error) {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		switch p.Kind {
		case PartImage:
			data, err := base64.StdEncoding.DecodeString(p.Image.Data)
			if err != nil {
				return nil, fmt.Errorf("decode inline image: %w", err)
			}
			out = append(out, genai.NewPartFromBytes(data, p.Image.MIMEType))
		default:
			out = append(out, genai.NewPartFromText(p.Text))
		}
	}
	return out, nil
}

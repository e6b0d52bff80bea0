package interpreter

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAILLM implements LLMClient using the official openai-go SDK (chat completions).
// OpenAI-compatible gateways (e.g. DeepSeek) are reached through BaseURL.
type OpenAILLM struct {
	Model string
	Opts  []option.RequestOption
}

func NewOpenAILLMFromConfig(cfg *LLMSettings) (*OpenAILLM, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: llm config is nil", ErrConfig)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: api key missing; provide llm.api_key", ErrConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: llm model is required", ErrConfig)
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAILLM{Model: cfg.Model, Opts: opts}, nil
}

func (o *OpenAILLM) Complete(ctx context.Context, req Request) (string, error) {
	client := openai.NewClient(o.Opts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(openAIContentParts(req.Parts)),
		},
		Temperature: openai.Float(req.Sampling.Temperature),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// openAIContentParts keeps part order; images travel as data URIs.
func openAIContentParts(parts []Part) []openai.ChatCompletionContentPartUnionParam {
	out := make([]openai.ChatCompletionContentPartUnionParam, 0, len(parts))
	for _, p := range parts {
		switch p.Kind {
		case PartImage:
			out = append(out, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: dataURIPrefix + p.Image.MIMEType + base64Marker + p.Image.Data,
			}))
		default:
			out = append(out, openai.TextContentPart(p.Text))
		}
	}
	return out
}

package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider implements Provider and StreamingProvider for the OpenAI API
// and any OpenAI-compatible endpoint.
type OpenAIProvider struct {
	client  openai.Client
	model   string
	reqOpts []option.RequestOption
}

// OpenAIOption configures the OpenAIProvider.
type OpenAIOption func(*OpenAIProvider)

// WithModel sets the default model.
func WithModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.model = model
	}
}

// WithBaseURL sets a custom base URL (for Azure OpenAI or proxies).
func WithBaseURL(url string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.reqOpts = append(p.reqOpts, option.WithBaseURL(url))
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(apiKey string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.reqOpts = append(p.reqOpts, option.WithAPIKey(apiKey))
	}
}

// NewOpenAI creates a new OpenAI provider.
// API key is read from OPENAI_API_KEY environment variable by default.
func NewOpenAI(opts ...OpenAIOption) *OpenAIProvider {
	p := &OpenAIProvider{model: "gpt-4o-mini"}
	for _, opt := range opts {
		opt(p)
	}
	p.client = openai.NewClient(p.reqOpts...)
	return p
}

// Chat implements Provider.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	params := p.buildParams(req)

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion failed: %w", err)
	}

	resp := &ChatResponse{
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}
	if len(completion.Choices) > 0 {
		resp.Content = completion.Choices[0].Message.Content
	}
	return resp, nil
}

// ChatStream implements StreamingProvider.
func (p *OpenAIProvider) ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error) {
	params := p.buildParams(req)

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)

	chunks := make(chan StreamChunk, 100)

	go func() {
		defer close(chunks)

		for stream.Next() {
			event := stream.Current()

			chunk := StreamChunk{}
			if len(event.Choices) > 0 {
				delta := event.Choices[0].Delta
				if delta.Content != "" {
					chunk.Content = delta.Content
				}
				if event.Choices[0].FinishReason != "" {
					chunk.Done = true
				}
			}
			if event.Usage.TotalTokens > 0 {
				chunk.Usage = &Usage{
					PromptTokens:     int(event.Usage.PromptTokens),
					CompletionTokens: int(event.Usage.CompletionTokens),
					TotalTokens:      int(event.Usage.TotalTokens),
				}
			}

			select {
			case chunks <- chunk:
			case <-ctx.Done():
				// The consumer may already be gone; never block on the
				// final error send.
				select {
				case chunks <- StreamChunk{Error: ctx.Err()}:
				default:
				}
				return
			}
		}

		if err := stream.Err(); err != nil {
			select {
			case chunks <- StreamChunk{Error: err}:
			default:
			}
		}
	}()

	return chunks, nil
}

func (p *OpenAIProvider) buildParams(req ChatRequest) openai.ChatCompletionNewParams {
	model := req.Model
	if model == "" {
		model = p.model
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	return params
}

var (
	_ Provider          = (*OpenAIProvider)(nil)
	_ StreamingProvider = (*OpenAIProvider)(nil)
)

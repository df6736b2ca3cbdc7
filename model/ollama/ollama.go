// Package ollama provides an implementation of model.Provider backed by a
// local Ollama server. Tool use is driven through the textual tag protocol
// rather than native function calling, so only text content is exchanged.
package ollama

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/model"
	"github.com/ollama/ollama/api"
)

// Options configures the Ollama model adapter.
type Options struct {
	Model       string
	Temperature float64
	NumCtx      int
}

// Provider wraps the Ollama chat API behind the generic model.Provider
// interface.
type Provider struct {
	client *api.Client
	opts   Options
}

// NewProvider creates a new Ollama provider. The server address is taken
// from OLLAMA_HOST, falling back to the local default.
func NewProvider(optFns ...func(o *Options)) (*Provider, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("ollama client: %w", err)
	}
	return NewProviderFromClient(client, optFns...), nil
}

// NewProviderFromClient creates a new Ollama provider from an existing client.
func NewProviderFromClient(client *api.Client, optFns ...func(o *Options)) *Provider {
	opts := Options{
		Model:       "llama3.1",
		Temperature: 0.7,
		NumCtx:      32768,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Provider{client: client, opts: opts}
}

// Generate implements unified streaming / non-streaming generation.
func (p *Provider) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		stream := req.Stream
		chatReq := &api.ChatRequest{
			Model:    p.opts.Model,
			Messages: buildMessages(req),
			Stream:   &stream,
			Options: map[string]any{
				"temperature": p.opts.Temperature,
				"num_ctx":     p.opts.NumCtx,
			},
		}

		var full strings.Builder
		var doneReason string
		var usage *model.TokenUsage

		err := p.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
			if resp.Message.Content != "" {
				full.WriteString(resp.Message.Content)
				if stream && !resp.Done {
					out <- model.Response{
						Partial: true,
						Content: core.Content{
							Role:  "assistant",
							Parts: []core.Part{core.TextPart{Text: resp.Message.Content}},
						},
					}
				}
			}
			if resp.Done {
				doneReason = resp.DoneReason
				usage = &model.TokenUsage{
					PromptTokens:     resp.Metrics.PromptEvalCount,
					CompletionTokens: resp.Metrics.EvalCount,
					TotalTokens:      resp.Metrics.PromptEvalCount + resp.Metrics.EvalCount,
				}
			}
			return nil
		})
		if err != nil {
			errCh <- fmt.Errorf("ollama chat error: %w", err)
			return
		}

		finishReason := "stop"
		if doneReason != "" {
			finishReason = doneReason
		}

		out <- model.Response{
			Partial: false,
			Content: core.Content{
				Role:  "assistant",
				Parts: []core.Part{core.TextPart{Text: full.String()}},
			},
			FinishReason: finishReason,
			Usage:        usage,
		}
	}()

	return out, errCh
}

// buildMessages flattens conversation contents into Ollama chat messages.
// Tool results are rendered as user-role text since the server has no native
// tool-result channel.
func buildMessages(req model.Request) []api.Message {
	var messages []api.Message

	if req.Instructions != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.Instructions})
	}

	for _, c := range req.Contents {
		role := c.Role
		if role != "system" && role != "assistant" {
			role = "user"
		}

		var text strings.Builder
		var images []api.ImageData

		for _, part := range c.Parts {
			switch pt := part.(type) {
			case core.TextPart:
				text.WriteString(pt.Text)
			case core.ImagePart:
				if data, err := base64.StdEncoding.DecodeString(pt.Data); err == nil {
					images = append(images, data)
				}
			case core.ToolResultPart:
				fmt.Fprintf(&text, "[%s result]\n%s\n", pt.ToolName, pt.Content)
			}
		}

		if text.Len() == 0 && len(images) == 0 {
			continue
		}

		messages = append(messages, api.Message{
			Role:    role,
			Content: text.String(),
			Images:  images,
		})
	}

	return messages
}

// Info returns metadata describing this Ollama provider implementation.
func (p *Provider) Info() model.Info {
	return model.Info{
		Name:          p.opts.Model,
		Provider:      "ollama",
		SupportsTools: false,
	}
}

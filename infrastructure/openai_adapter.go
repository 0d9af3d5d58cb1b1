package infrastructure

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"wordrace/domain/entities"
)

// maxScanTokenSize bounds a single SSE line; reasoning models can emit
// long chunks.
const maxScanTokenSize = 1024 * 1024

// OpenAIAdapter speaks the OpenAI-compatible chat completions streaming
// protocol, which Groq, OpenRouter and most gateway deployments also serve.
// The ModelSpec's EndpointRef selects the base URL; Provider selects the
// request shaping quirks.
type OpenAIAdapter struct {
	client *http.Client
	apiKey string
}

// NewOpenAIAdapter creates an adapter using the given API key. The HTTP
// client carries no timeout of its own; deadlines arrive on the context.
func NewOpenAIAdapter(apiKey string) *OpenAIAdapter {
	return &OpenAIAdapter{
		client: &http.Client{},
		apiKey: apiKey,
	}
}

// chatRequest is the subset of the chat completions request body the core
// needs.
type chatRequest struct {
	Model           string        `json:"model"`
	Messages        []chatMessage `json:"messages"`
	Stream          bool          `json:"stream"`
	StreamOptions   *streamOpts   `json:"stream_options,omitempty"`
	MaxTokens       *int          `json:"max_completion_tokens,omitempty"`
	Temperature     *float64      `json:"temperature,omitempty"`
	TopP            *float64      `json:"top_p,omitempty"`
	ReasoningEffort string        `json:"reasoning_effort,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type streamOpts struct {
	IncludeUsage bool `json:"include_usage"`
}

// chatChunk is the subset of a streamed chunk the core consumes.
type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Stream implements StreamingAdapter over the chat completions SSE wire.
func (a *OpenAIAdapter) Stream(ctx context.Context, spec entities.ModelSpec, prompt string, opts StreamOptions, emit DeltaFunc) error {
	body := a.buildRequest(spec, prompt, opts)
	payload, err := json.Marshal(body)
	if err != nil {
		return &AdapterError{Kind: entities.ErrorAdapterFailure, Message: fmt.Sprintf("marshal request: %v", err)}
	}

	endpoint := strings.TrimRight(spec.EndpointRef, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return &AdapterError{Kind: entities.ErrorAdapterFailure, Message: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	started := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		kind, msg := ClassifyStreamError(ctx, err)
		return &AdapterError{Kind: kind, Message: msg}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		limited, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		errBody := strings.TrimSpace(string(limited))
		// Some providers wedge partial model output inside validation
		// error bodies; surface it so the attempt keeps the text.
		if partial := recoverPartialText(errBody); partial != "" {
			emit(Delta{Kind: DeltaText, Text: partial})
		}
		return &AdapterError{
			Kind:    entities.ErrorAdapterFailure,
			Message: fmt.Sprintf("provider returned %d: %s", resp.StatusCode, errBody),
		}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScanTokenSize)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			log.WithError(err).WithField("model_id", spec.ID).Debug("Skipping malformed stream chunk")
			continue
		}
		if len(chunk.Choices) > 0 {
			delta := chunk.Choices[0].Delta
			if delta.ReasoningContent != "" {
				emit(Delta{Kind: DeltaReasoning, Text: delta.ReasoningContent})
			}
			if delta.Content != "" {
				emit(Delta{Kind: DeltaText, Text: delta.Content})
			}
		}
		if chunk.Usage != nil {
			emit(Delta{Kind: DeltaUsage, Usage: &entities.TokenUsage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}})
		}
	}
	if err := scanner.Err(); err != nil {
		kind, msg := ClassifyStreamError(ctx, err)
		return &AdapterError{Kind: kind, Message: msg}
	}

	log.WithFields(log.Fields{
		"model_id":   spec.ID,
		"elapsed_ms": time.Since(started).Milliseconds(),
	}).Debug("Adapter stream finished")
	return nil
}

// buildRequest shapes the request body for the spec's provider. Anthropic
// gateways reject top_p alongside temperature, so temperature wins there.
func (a *OpenAIAdapter) buildRequest(spec entities.ModelSpec, prompt string, opts StreamOptions) chatRequest {
	req := chatRequest{
		Model:         spec.Name,
		Messages:      []chatMessage{{Role: "user", Content: prompt}},
		Stream:        true,
		StreamOptions: &streamOpts{IncludeUsage: true},
		Temperature:   spec.Temperature,
		TopP:          spec.TopP,
	}
	if req.Model == "" {
		req.Model = spec.ID
	}
	if opts.MaxOutputTokens > 0 {
		req.MaxTokens = &opts.MaxOutputTokens
	}
	if spec.Provider == entities.ProviderAnthropic && spec.Temperature != nil {
		req.TopP = nil
	}
	if spec.Thinking != entities.ThinkingOff {
		req.ReasoningEffort = string(spec.Thinking)
	}
	return req
}

// errorBodyTextPattern finds model output embedded in provider validation
// error messages of the form `"text": "..."` or `"content": "..."`.
var errorBodyTextPattern = regexp.MustCompile(`"(?:text|content)"\s*:\s*"((?:[^"\\]|\\.)*)"`)

// recoverPartialText scrapes whatever model text a provider error body
// carries. Best effort: an empty string means nothing recoverable.
func recoverPartialText(errBody string) string {
	match := errorBodyTextPattern.FindStringSubmatch(errBody)
	if match == nil {
		return ""
	}
	var unquoted string
	if err := json.Unmarshal([]byte(`"`+match[1]+`"`), &unquoted); err != nil {
		return ""
	}
	return unquoted
}

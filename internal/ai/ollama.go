package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// OllamaBackend talks to Ollama's OpenAI-compatible API
// (/v1/chat/completions and /v1/models).
type OllamaBackend struct {
	baseURL    string
	httpClient *http.Client
}

// NewOllamaBackend creates a backend for baseURL, e.g.
// "http://localhost:11434/v1". A nil httpClient uses http.DefaultClient;
// per-call deadlines come from the context.
func NewOllamaBackend(baseURL string, httpClient *http.Client) *OllamaBackend {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OllamaBackend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (o *OllamaBackend) Name() string { return "ollama" }

func (o *OllamaBackend) URL() string { return o.baseURL }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
}

type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Complete runs one non-streaming chat completion.
func (o *OllamaBackend) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	body := chatRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Messages:    make([]chatMessage, 0, len(req.Messages)+1),
	}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	var resp chatResponse
	if err := o.do(ctx, http.MethodPost, "/chat/completions", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("ollama returned no choices")
	}

	return &Completion{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// ListModels returns locally pulled models sorted by name.
func (o *OllamaBackend) ListModels(ctx context.Context) ([]Model, error) {
	var resp modelsResponse
	if err := o.do(ctx, http.MethodGet, "/models", nil, &resp); err != nil {
		return nil, err
	}

	models := make([]Model, 0, len(resp.Data))
	for _, m := range resp.Data {
		models = append(models, Model{Name: m.ID, DisplayName: displayName(m.ID)})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models, nil
}

func (o *OllamaBackend) do(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal ollama request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, o.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build ollama request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// Ollama ignores the key but OpenAI-compatible proxies in front of it may not
	req.Header.Set("Authorization", "Bearer ollama")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read ollama response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Backend: "ollama", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode ollama response: %w", err)
	}
	return nil
}

// displayName turns "llama3.2:latest" into "Llama3.2 (latest)".
func displayName(id string) string {
	name, tag, found := strings.Cut(id, ":")
	if name == "" {
		return id
	}
	name = strings.ToUpper(name[:1]) + name[1:]
	if !found || tag == "" {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, tag)
}

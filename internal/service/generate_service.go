package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
)

const generateSystemPrompt = "You are a helpful blog post generator. Write an engaging blog post " +
	"about the given topic. Keep it informative and well-structured. Do not include a title."

// GenerateService proxies topic prompts to an OpenAI-compatible chat
// completions endpoint. The API key stays server-side.
type GenerateService struct {
	apiKey     string
	apiURL     string
	model      string
	httpClient *http.Client
}

func NewGenerateService(apiKey, apiURL, model string) *GenerateService {
	return &GenerateService{
		apiKey: apiKey,
		apiURL: apiURL,
		model:  model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// KeyPresent reports whether an upstream API key is configured. Surfaced in
// error responses so a misconfigured deployment is diagnosable from the client.
func (s *GenerateService) KeyPresent() bool {
	return s.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (s *GenerateService) Generate(ctx context.Context, topic string) (content string, err error) {
	if topic == "" {
		return "", models.NewValidationError("Topic is required")
	}
	if !s.KeyPresent() {
		return "", fmt.Errorf("generate: no API key configured")
	}

	span, ctx := observability.NewSpan(ctx, "generate.completion")
	span.AddAttributes(observability.Model(s.model))
	defer func() {
		span.SetError(err)
		span.End()
	}()

	reqBody, err := json.Marshal(chatCompletionRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: generateSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Write a blog post about: %s", topic)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("generate: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("generate: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		middleware.GenerateRequests.WithLabelValues("error").Inc()
		return "", fmt.Errorf("generate: upstream request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		middleware.GenerateRequests.WithLabelValues("error").Inc()
		return "", fmt.Errorf("generate: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		middleware.GenerateRequests.WithLabelValues("error").Inc()
		return "", fmt.Errorf("generate: upstream status %d: %s", resp.StatusCode, string(body))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		middleware.GenerateRequests.WithLabelValues("error").Inc()
		return "", fmt.Errorf("generate: decode response: %w", err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		middleware.GenerateRequests.WithLabelValues("error").Inc()
		return "", fmt.Errorf("generate: upstream returned no content")
	}

	middleware.GenerateRequests.WithLabelValues("success").Inc()
	return completion.Choices[0].Message.Content, nil
}

package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

type OpenAIConfig struct {
	BaseURL        string
	APIKey         string
	ChatModel      string
	EmbeddingModel string
}

// OpenAIRepository talks to an OpenAI-compatible API. Both the chat completion
// and embedding endpoints are covered by one repository because they share
// auth and transport.
type OpenAIRepository struct {
	openaiConfig OpenAIConfig
	client       *http.Client
}

func NewOpenAIRepository(cfg OpenAIConfig) *OpenAIRepository {
	return &OpenAIRepository{
		openaiConfig: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Complete sends a single-turn chat completion and returns the raw assistant
// message content.
func (r *OpenAIRepository) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: r.openaiConfig.ChatModel,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: 0,
	}

	var resBody chatResponse
	err := r.post(ctx, "/chat/completions", reqBody, &resBody)
	if err != nil {
		return "", err
	}

	if resBody.Error != nil {
		return "", fmt.Errorf("openai error: %s", resBody.Error.Message)
	}
	if len(resBody.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	return resBody.Choices[0].Message.Content, nil
}

func (r *OpenAIRepository) Embed(ctx context.Context, text string) ([]float64, error) {
	reqBody := embeddingRequest{
		Model: r.openaiConfig.EmbeddingModel,
		Input: text,
	}

	var resBody embeddingResponse
	err := r.post(ctx, "/embeddings", reqBody, &resBody)
	if err != nil {
		return nil, err
	}

	if resBody.Error != nil {
		return nil, fmt.Errorf("openai error: %s", resBody.Error.Message)
	}
	if len(resBody.Data) == 0 {
		return nil, errors.New("openai returned no embedding data")
	}

	return resBody.Data[0].Embedding, nil
}

func (r *OpenAIRepository) post(ctx context.Context, path string, payload any, out any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal openai request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.openaiConfig.BaseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to build openai request: %w", err)
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", r.openaiConfig.APIKey))

	res, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read openai response: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("openai returned status %d: %s", res.StatusCode, string(body))
	}

	err = json.Unmarshal(body, out)
	if err != nil {
		return fmt.Errorf("failed to unmarshal openai response: %w", err)
	}

	return nil
}

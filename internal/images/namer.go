package images

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultEndpoint is the OpenAI-compatible base URL used when none is configured.
const DefaultEndpoint = "https://ark.cn-beijing.volces.com/api/v3"

const namePrompt = "Please analyze this image and generate a short, descriptive filename " +
	"(without extension) in English. The name should be concise and describe the main " +
	"subject or content of the image. Only return the filename, nothing else."

// ChatNamer asks a vision-capable chat completion model for an image name.
type ChatNamer struct {
	client *openai.Client
	model  string
	apiKey string
}

// NewChatNamer builds a namer for an OpenAI-compatible endpoint. An empty
// endpoint selects DefaultEndpoint; a zero timeout means 30 seconds.
func NewChatNamer(apiKey, endpoint, model string, timeout time.Duration) *ChatNamer {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = endpoint
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &ChatNamer{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		apiKey: apiKey,
	}
}

// GenerateName implements Namer.
func (n *ChatNamer) GenerateName(ctx context.Context, data []byte, mime string) (string, error) {
	if n.apiKey == "" {
		return "", errors.New("api key not configured")
	}
	if n.model == "" {
		return "", errors.New("model not configured")
	}

	url := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))
	resp, err := n.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: n.model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: namePrompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: url}},
			},
		}},
		MaxTokens:   50,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

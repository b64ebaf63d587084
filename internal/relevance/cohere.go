package relevance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

// CohereClassifier 通过 cohere Chat 接口判断
type CohereClassifier struct {
	client *cohereclient.Client
	model  string
}

func NewCohereClassifier(apiKey, model string, httpClient *http.Client) *CohereClassifier {
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &CohereClassifier{client: client, model: model}
}

func (c *CohereClassifier) Name() string { return "cohere" }

func (c *CohereClassifier) Reply(ctx context.Context, prompt string) (string, error) {
	req := &cohere.ChatRequest{Message: prompt}
	if c.model != "" {
		req.Model = &c.model
	}
	resp, err := c.client.Chat(ctx, req)
	if err != nil {
		if strings.Contains(err.Error(), "429") {
			return "", fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return "", fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil {
		return "", errors.New("cohere chat returned empty response")
	}
	return strings.TrimSpace(resp.Text), nil
}

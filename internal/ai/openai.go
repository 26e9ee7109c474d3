package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI adapts the go-openai client to the Provider interface with the same
// one-retry policy as the Gemini adapter: an unknown model triggers a model
// listing and a single retry, everything else surfaces as-is.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAI{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := o.generate(ctx, o.model, prompt)
	if err == nil {
		return text, nil
	}
	if !isUnknownModel(err) {
		return "", err
	}

	fallback, listErr := o.findFallbackModel(ctx)
	if listErr != nil {
		return "", err
	}
	log.Printf("openai model %q not available, retrying with %q", o.model, fallback)

	return o.generate(ctx, fallback, prompt)
}

func (o *OpenAI) generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) findFallbackModel(ctx context.Context) (string, error) {
	list, err := o.client.ListModels(ctx)
	if err != nil {
		return "", err
	}
	for _, m := range list.Models {
		if strings.Contains(strings.ToLower(m.ID), "gpt") {
			return m.ID, nil
		}
	}
	if len(list.Models) > 0 {
		return list.Models[0].ID, nil
	}
	return "", fmt.Errorf("openai: no models available")
}

func isUnknownModel(err error) bool {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.HTTPStatusCode == http.StatusNotFound {
		return true
	}
	if code, ok := apiErr.Code.(string); ok && code == "model_not_found" {
		return true
	}
	return false
}

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini calls the generateContent endpoint directly. If the configured
// model is unknown to the API it lists the available models and retries
// exactly once with the first gemini model found; any other failure
// propagates immediately.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewGemini(apiKey, model string) *Gemini {
	if model == "" {
		model = "gemini-1.5-flash-001"
	}
	return &Gemini{
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	text, status, err := g.generate(ctx, g.model, prompt)
	if err == nil {
		return text, nil
	}
	if status != http.StatusNotFound {
		return "", err
	}

	fallback, listErr := g.findFallbackModel(ctx)
	if listErr != nil {
		return "", err
	}
	log.Printf("gemini model %q not available, retrying with %q", g.model, fallback)

	text, _, err = g.generate(ctx, fallback, prompt)
	return text, err
}

func (g *Gemini) generate(ctx context.Context, model, prompt string) (string, int, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}
	jsonData, _ := json.Marshal(reqBody)

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode, fmt.Errorf("gemini: status %d", resp.StatusCode)
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", resp.StatusCode, err
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", resp.StatusCode, fmt.Errorf("gemini: empty response")
	}
	return result.Candidates[0].Content.Parts[0].Text, resp.StatusCode, nil
}

// findFallbackModel lists the models the key can use. The list endpoint has
// returned both a bare array and an object with a models key, so both shapes
// are tolerated here.
func (g *Gemini) findFallbackModel(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/models?key=%s", g.baseURL, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini: list models status %d", resp.StatusCode)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", err
	}

	type modelEntry struct {
		Name string `json:"name"`
	}
	var entries []modelEntry

	var wrapped struct {
		Models []modelEntry `json:"models"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Models) > 0 {
		entries = wrapped.Models
	} else if err := json.Unmarshal(raw, &entries); err != nil {
		return "", fmt.Errorf("gemini: unrecognized model list shape")
	}

	for _, m := range entries {
		if strings.Contains(strings.ToLower(m.Name), "gemini") {
			return strings.TrimPrefix(m.Name, "models/"), nil
		}
	}
	if len(entries) > 0 {
		return strings.TrimPrefix(entries[0].Name, "models/"), nil
	}
	return "", fmt.Errorf("gemini: no models available")
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

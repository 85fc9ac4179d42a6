package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const requestTimeout = 8 * time.Second

// GeminiProvider implements Provider on the Gemini API. Responses must be
// strict JSON; anything else is an error, which callers treat the same as
// no suggestion at all.
type GeminiProvider struct {
	model  string
	client *genai.Client
}

// NewGeminiProvider creates the client eagerly so configuration problems
// surface at startup, not mid-import.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiProvider{model: model, client: client}, nil
}

func (p *GeminiProvider) MapColumns(ctx context.Context, req MapRequest) (MapResponse, error) {
	prompt := "You map bank CSV columns. Given headers and sample rows, decide which header " +
		"holds the transaction date, which the merchant/description, and which the signed amount.\n" +
		"Return ONLY valid raw JSON with keys: date_key, description_key, amount_key (strings, " +
		"must be one of the given headers or empty), confidence (number 0-1).\n" +
		"Do NOT wrap the response in code fences."

	var out MapResponse
	if err := p.ask(ctx, prompt, req, &out); err != nil {
		return MapResponse{}, err
	}
	return out, nil
}

func (p *GeminiProvider) Categorize(ctx context.Context, req CategorizeRequest) (CategorizeResponse, error) {
	prompt := "You categorize bank transactions. Pick the best category from the provided list " +
		"for the given merchant, amount and date.\n" +
		"Return ONLY valid raw JSON with keys: category (string, one of the provided categories " +
		"or empty), confidence (number 0-1).\n" +
		"Do NOT wrap the response in code fences."

	var out CategorizeResponse
	if err := p.ask(ctx, prompt, req, &out); err != nil {
		return CategorizeResponse{}, err
	}
	return out, nil
}

func (p *GeminiProvider) ask(ctx context.Context, prompt string, payload, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt + "\n\nInput JSON:\n" + string(body)}},
	}}
	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		return fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return fmt.Errorf("empty model response")
	}
	if err := json.Unmarshal([]byte(stripFences(text)), out); err != nil {
		return fmt.Errorf("parse model response: %w", err)
	}
	return nil
}

// stripFences removes Markdown code fences when the model ignores the
// raw-JSON instruction.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

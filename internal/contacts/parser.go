// Package contacts extracts contact candidates from free text using the
// Groq chat-completions API.
package contacts

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/crmkit/lead-extractor/internal/domain"
)

const systemPrompt = "You are an expert at extracting contact information. " +
	"Parse the text and extract ALL contacts. Return a valid JSON object where " +
	"the key is 'contacts' and the value is a list of objects. Each object must " +
	"have 'name', 'email', and 'phone'. Use null if a field is missing. " +
	"Return ONLY the JSON object."

// Config holds parser settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Parser implements domain.ContactParser against Groq's OpenAI-compatible
// chat-completions endpoint.
//
// Parse is fail-soft by contract: a missing credential, a failed call, an
// expired timeout, or unparseable output all yield an empty result. No
// retry is performed.
type Parser struct {
	cfg        Config
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewParser creates a contact parser. An empty API key is allowed; Parse
// then degrades to an empty result for every call.
func NewParser(cfg Config, logger zerolog.Logger) *Parser {
	return &Parser{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     logger.With().Str("component", "contacts").Logger(),
	}
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Parse extracts contact candidates from text. It never returns an error.
func (p *Parser) Parse(ctx context.Context, text string) []domain.ContactCandidate {
	if p.cfg.APIKey == "" {
		p.logger.Debug().Msg("Contact parsing key not configured, skipping")
		return nil
	}

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	content, err := p.complete(ctx, text)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Contact parsing failed, degrading to empty")
		return nil
	}

	candidates := decodeCandidates(content)
	p.logger.Debug().Int("candidates", len(candidates)).Msg("Parsed contacts")
	return candidates
}

func (p *Parser) complete(ctx context.Context, text string) (string, error) {
	reqBody := chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Extract all contact information from this text:\n\n" + text},
		},
		Temperature:    0,
		ResponseFormat: responseFormat{Type: "json_object"},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", domain.APIError("failed to marshal chat request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", domain.APIError("failed to build chat request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", domain.APIError("chat request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", domain.APIError("chat API returned status "+resp.Status, nil)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", domain.APIError("failed to decode chat response", err)
	}
	if len(cr.Choices) == 0 {
		return "", domain.APIError("chat response has no choices", nil)
	}
	return cr.Choices[0].Message.Content, nil
}

// decodeCandidates pulls the contact list out of the model's JSON object.
// The prompt asks for a "contacts" key, but any key whose value is a list
// of contact objects is accepted; keys are scanned in sorted order so the
// choice is deterministic.
func decodeCandidates(content string) []domain.ContactCandidate {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil
	}

	if raw, ok := payload["contacts"]; ok {
		if candidates, ok := decodeList(raw); ok {
			return candidates
		}
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if candidates, ok := decodeList(payload[k]); ok {
			return candidates
		}
	}
	return nil
}

func decodeList(raw json.RawMessage) ([]domain.ContactCandidate, bool) {
	var items []struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
		Phone *string `json:"phone"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}

	candidates := make([]domain.ContactCandidate, 0, len(items))
	for _, item := range items {
		candidates = append(candidates, domain.ContactCandidate{
			Name:  item.Name,
			Email: item.Email,
			Phone: item.Phone,
		})
	}
	return candidates, true
}

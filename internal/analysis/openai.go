package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/sashabaranov/go-openai"

	"github.com/bizrank/review-service/internal/types"
)

// ErrNoJSON is returned when the model reply holds no JSON object
var ErrNoJSON = errors.New("no JSON object in model reply")

// ChatClient is the subset of the OpenAI client the analyzer uses
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIConfig configures the generative strategy
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string // any OpenAI-compatible endpoint
	Model       string
	MaxTokens   int
	Temperature float32
}

// NewChatClient builds an OpenAI client honouring a custom base URL
func NewChatClient(cfg OpenAIConfig) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

// OpenAIStrategy asks a chat model for the tag record
type OpenAIStrategy struct {
	client ChatClient
	config OpenAIConfig
	schema string
}

// NewOpenAIStrategy creates the generative strategy
func NewOpenAIStrategy(client ChatClient, cfg OpenAIConfig) *OpenAIStrategy {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 800
	}
	return &OpenAIStrategy{client: client, config: cfg, schema: TagSchemaJSON()}
}

// Name implements Strategy
func (s *OpenAIStrategy) Name() string { return "openai" }

// Analyze implements Strategy
func (s *OpenAIStrategy) Analyze(ctx context.Context, in Input) (*types.AnalysisTags, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: s.systemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(in)},
		},
		Temperature: s.config.Temperature,
		MaxTokens:   s.config.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	raw, err := FirstJSONObject(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	var tags types.AnalysisTags
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("failed to decode analysis JSON: %w", err)
	}
	tags.ModelVersion = resp.Model
	if tags.ModelVersion == "" {
		tags.ModelVersion = s.config.Model
	}
	return &tags, nil
}

func (s *OpenAIStrategy) systemPrompt() string {
	return "You analyze customer reviews of local service businesses. " +
		"Reply with a single JSON object matching this JSON schema and nothing else. " +
		"Scores are 0-10, sentiment.overall is -1..1, confidenceScore is 0-100.\n" + s.schema
}

func userPrompt(in Input) string {
	category := in.CategoryContext
	if category == "" {
		category = "local service"
	}
	return fmt.Sprintf("Business category: %s\nStar rating: %.1f\nReview:\n%s", category, in.Rating, in.Text)
}

// TagSchemaJSON renders the JSON schema of the analysis tag record
func TagSchemaJSON() string {
	r := &jsonschema.Reflector{DoNotReference: true}
	schema := r.Reflect(&types.AnalysisTags{})
	data, err := json.Marshal(schema)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// FirstJSONObject returns the first balanced {...} in s, ignoring braces
// inside JSON strings
func FirstJSONObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", ErrNoJSON
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSON
}

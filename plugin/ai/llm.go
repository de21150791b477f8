package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/semaphore"

	"github.com/idea2prd/idea2prd/blueprint"
	apperrors "github.com/idea2prd/idea2prd/internal/errors"
)

const (
	generateTemperature = 0.7
	generateMaxTokens   = 4000
	chatTemperature     = 0.8
	chatMaxTokens       = 1000
	analyzeTemperature  = 0.7
	analyzeMaxTokens    = 2000
)

const workflowSystemPrompt = `You are an expert n8n workflow designer. Your task is to convert natural language descriptions into valid n8n workflow JSON.

n8n workflow structure:
{
  "nodes": [
    {
      "id": "unique-id",
      "type": "n8n-nodes-base.webhook",
      "name": "Webhook",
      "position": [250, 300],
      "parameters": { /* node-specific config */ }
    }
  ],
  "connections": {
    "node-id": {
      "main": [[{ "node": "next-node-id", "type": "main", "index": 0 }]]
    }
  }
}

Common n8n node types:
- n8n-nodes-base.webhook: HTTP triggers
- n8n-nodes-base.httpRequest: Make HTTP requests
- n8n-nodes-base.function: JavaScript code
- n8n-nodes-base.if: Conditional logic
- n8n-nodes-base.set: Transform data
- n8n-nodes-base.switch: Multiple conditions
- n8n-nodes-base.code: Advanced code execution

IMPORTANT:
1. Return ONLY valid JSON (no markdown, no explanations outside JSON)
2. Use sequential IDs like "node-1", "node-2", etc.
3. Position nodes horizontally: [250, 300], [450, 300], [650, 300], etc.
4. Connect nodes in sequence
5. Keep it simple and practical`

const chatSystemPrompt = `You are an expert n8n workflow assistant. Help users improve and understand their workflows.`

const analyzeSystemPrompt = `You are a product requirement analyst. Analyze the user's product description and extract the user roles and features it implies.

Return ONLY valid JSON with this structure:
{
  "roles": [{ "name": "...", "description": "...", "confidence": "high|medium|low" }],
  "features": [{ "name": "...", "description": "...", "confidence": "high|medium|low" }],
  "summary": "one-paragraph restatement of the requirement"
}`

const storiesSystemPrompt = `You are a product requirement analyst. Generate concise user stories for the given roles and features.

Return ONLY valid JSON with this structure:
{
  "stories": [{ "role": "...", "action": "...", "benefit": "...", "priority": "P0|P1|P2|P3" }]
}`

// Gateway provides LLM-backed generation via OpenRouter. All operations share
// a weighted semaphore so a burst of requests cannot stack up unbounded calls
// against the upstream API.
type Gateway struct {
	client *openai.Client
	config *Config
	sem    *semaphore.Weighted
}

// NewGateway creates a gateway from the given config.
func NewGateway(cfg *Config) (*Gateway, error) {
	if cfg == nil {
		return nil, apperrors.InvalidArgument("config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.InvalidArgument(err.Error())
	}

	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Transport: &attributionTransport{referer: cfg.Referer, title: cfg.Title},
	}

	return &Gateway{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
		sem:    semaphore.NewWeighted(maxConcurrent),
	}, nil
}

// attributionTransport adds the OpenRouter app attribution headers.
type attributionTransport struct {
	referer string
	title   string
}

func (t *attributionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.referer != "" {
		req.Header.Set("HTTP-Referer", t.referer)
	}
	if t.title != "" {
		req.Header.Set("X-Title", t.title)
	}
	return http.DefaultTransport.RoundTrip(req)
}

// GenerateWorkflowResult is the result of a workflow generation call.
type GenerateWorkflowResult struct {
	Workflow    *blueprint.Workflow `json:"workflow"`
	Explanation string              `json:"explanation"`
}

// GenerateWorkflow converts a natural language description into an n8n-style
// workflow graph. An optional context string is prepended to the prompt.
func (g *Gateway) GenerateWorkflow(ctx context.Context, description, contextHint string) (*GenerateWorkflowResult, error) {
	if strings.TrimSpace(description) == "" {
		return nil, apperrors.InvalidArgument("description is required")
	}

	userPrompt := fmt.Sprintf("Generate an n8n workflow for: %s", description)
	if contextHint != "" {
		userPrompt = fmt.Sprintf("Context: %s\n\n%s", contextHint, userPrompt)
	}

	content, err := g.complete(ctx, g.config.Model, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: workflowSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: userPrompt},
	}, generateTemperature, generateMaxTokens)
	if err != nil {
		return nil, err
	}

	var workflow blueprint.Workflow
	if err := json.Unmarshal([]byte(ExtractJSON(content)), &workflow); err != nil {
		return nil, apperrors.InvalidResponse("model returned invalid workflow JSON", err)
	}
	if workflow.Nodes == nil {
		return nil, apperrors.InvalidResponse("invalid workflow: missing nodes array", nil)
	}

	return &GenerateWorkflowResult{
		Workflow:    &workflow,
		Explanation: fmt.Sprintf("Generated workflow with %d nodes", len(workflow.Nodes)),
	}, nil
}

// Chat answers a free-form question about the current workflow.
func (g *Gateway) Chat(ctx context.Context, message string, current *blueprint.Workflow) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", apperrors.InvalidArgument("message is required")
	}

	workflowContext := "No current workflow"
	if current != nil {
		names := make([]string, 0, len(current.Nodes))
		for _, node := range current.Nodes {
			names = append(names, node.Name)
		}
		workflowContext = fmt.Sprintf("Current workflow has %d nodes: %s", len(current.Nodes), strings.Join(names, ", "))
	}

	return g.complete(ctx, g.config.Model, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: chatSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("%s\n\nUser question: %s", workflowContext, message)},
	}, chatTemperature, chatMaxTokens)
}

// ConfidenceLevel grades how strongly the analysis supports an extracted item.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// AnalyzedItem is a role or feature extracted from a requirement description.
type AnalyzedItem struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Confidence  ConfidenceLevel `json:"confidence"`
}

// RequirementAnalysis is the structured result of requirement clarification.
type RequirementAnalysis struct {
	Roles    []AnalyzedItem `json:"roles"`
	Features []AnalyzedItem `json:"features"`
	Summary  string         `json:"summary"`
}

// AnalyzeRequirement extracts user roles and features from a free-text
// product description.
func (g *Gateway) AnalyzeRequirement(ctx context.Context, description string) (*RequirementAnalysis, error) {
	if strings.TrimSpace(description) == "" {
		return nil, apperrors.InvalidArgument("description is required")
	}

	content, err := g.complete(ctx, g.config.Model, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: analyzeSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: description},
	}, analyzeTemperature, analyzeMaxTokens)
	if err != nil {
		return nil, err
	}

	var analysis RequirementAnalysis
	if err := json.Unmarshal([]byte(ExtractJSON(content)), &analysis); err != nil {
		return nil, apperrors.InvalidResponse("model returned invalid analysis JSON", err)
	}

	return &analysis, nil
}

// StoryDraft is a generated user story before persistence.
type StoryDraft struct {
	Role     string `json:"role"`
	Action   string `json:"action"`
	Benefit  string `json:"benefit"`
	Priority string `json:"priority"`
}

// Formatted renders the story in the conventional sentence form.
func (s StoryDraft) Formatted() string {
	return fmt.Sprintf("As a %s, I want to %s, so that %s.", s.Role, s.Action, s.Benefit)
}

// GenerateUserStories produces user stories for the selected roles and
// features from a prior requirement analysis.
func (g *Gateway) GenerateUserStories(ctx context.Context, roles, features []string) ([]StoryDraft, error) {
	if len(roles) == 0 || len(features) == 0 {
		return nil, apperrors.InvalidArgument("at least one role and one feature are required")
	}

	userPrompt := fmt.Sprintf("Roles: %s\nFeatures: %s", strings.Join(roles, ", "), strings.Join(features, ", "))

	content, err := g.complete(ctx, g.config.Model, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: storiesSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: userPrompt},
	}, analyzeTemperature, analyzeMaxTokens)
	if err != nil {
		return nil, err
	}

	var result struct {
		Stories []StoryDraft `json:"stories"`
	}
	if err := json.Unmarshal([]byte(ExtractJSON(content)), &result); err != nil {
		return nil, apperrors.InvalidResponse("model returned invalid stories JSON", err)
	}
	if len(result.Stories) == 0 {
		return nil, apperrors.InvalidResponse("model returned no stories", nil)
	}

	return result.Stories, nil
}

// SceneImage is a generated scene illustration.
type SceneImage struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
}

// GenerateSceneImage asks an image-capable model for a scenario illustration.
// When the model cannot produce an image the call degrades to a placeholder
// URL instead of failing, so a missing illustration never blocks the flow.
func (g *Gateway) GenerateSceneImage(ctx context.Context, prompt string) (*SceneImage, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, apperrors.InvalidArgument("prompt is required")
	}

	content, err := g.complete(ctx, g.config.ImageModel, []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleUser,
			Content: fmt.Sprintf("Generate a professional, clean illustration of this business workflow scenario: %s. "+
				"Make it visually clear and suitable for a PRD document.", prompt),
		},
	}, generateTemperature, 0)
	if err != nil {
		slog.Warn("image generation failed, using placeholder", "error", err)
		return &SceneImage{URL: PlaceholderImageURL(prompt), Prompt: prompt}, nil
	}

	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "http") && !strings.HasPrefix(content, "data:image") {
		slog.Warn("model returned no image, using placeholder")
		return &SceneImage{URL: PlaceholderImageURL(prompt), Prompt: prompt}, nil
	}

	return &SceneImage{URL: content, Prompt: prompt}, nil
}

// PlaceholderImageURL builds the fallback illustration URL for a prompt.
func PlaceholderImageURL(prompt string) string {
	// Truncate on runes so a multibyte prompt is never cut mid-character.
	if runes := []rune(prompt); len(runes) > 50 {
		prompt = string(runes[:50])
	}
	text := url.QueryEscape("Workflow Scene\n\n" + prompt)
	return fmt.Sprintf("https://placehold.co/1024x1024/3b82f6/white?text=%s", text)
}

// complete runs one chat completion under the concurrency cap.
func (g *Gateway) complete(ctx context.Context, model string, messages []openai.ChatCompletionMessage, temperature float32, maxTokens int) (string, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return "", apperrors.ContextCanceled(err)
	}
	defer g.sem.Release(1)

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
	}
	if maxTokens > 0 {
		req.MaxTokens = maxTokens
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return "", apperrors.ContextCanceled(ctx.Err())
		}
		return "", apperrors.LLMUnavailable("chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.InvalidResponse("empty chat response", nil)
	}

	return resp.Choices[0].Message.Content, nil
}

var jsonFenceRegexp = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n```")

// ExtractJSON pulls a JSON payload out of a model response, stripping a
// surrounding markdown code fence when present.
func ExtractJSON(content string) string {
	if match := jsonFenceRegexp.FindStringSubmatch(content); match != nil {
		return strings.TrimSpace(match[1])
	}
	return strings.TrimSpace(content)
}

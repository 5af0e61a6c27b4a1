package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rahul/creator/internal/observability"
	"github.com/rahul/creator/internal/store"
	"github.com/rahul/creator/internal/tools"
	"github.com/tmc/langchaingo/llms"
)

const proposePlanTool = "propose_plan"

// HistoryStore keeps the reasoner exchanges of a run.
type HistoryStore interface {
	AddMessage(runID string, role string, content string) error
	GetHistory(runID string, limit int) ([]llms.MessageContent, error)
}

// LLMReasoner asks a language model for a plan through the propose_plan tool.
type LLMReasoner struct {
	Model        llms.Model
	ModelName    string
	Prompts      *PromptManager
	History      HistoryStore
	RunID        string
	HistoryLimit int
	Logger       *observability.Logger
}

func NewLLMReasoner(model llms.Model, modelName string, prompts *PromptManager, history HistoryStore, runID string, logger *observability.Logger) *LLMReasoner {
	if prompts == nil {
		prompts = NewPromptManager("")
	}
	if logger == nil {
		logger = observability.Nop()
	}
	return &LLMReasoner{
		Model:        model,
		ModelName:    modelName,
		Prompts:      prompts,
		History:      history,
		RunID:        runID,
		HistoryLimit: 10,
		Logger:       logger,
	}
}

type planResponse struct {
	Plan store.Plan `json:"plan"`
}

func (r *LLMReasoner) Think(ctx context.Context, goal, critique string) (store.Plan, error) {
	systemPrompt, err := r.Prompts.GetSystemPrompt()
	if err != nil {
		return nil, err
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
	}

	if r.History != nil && r.HistoryLimit > 0 {
		history, err := r.History.GetHistory(r.RunID, r.HistoryLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to load transcript: %w", err)
		}
		messages = append(messages, history...)
	}

	request := buildRequest(goal, critique)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, request))

	resp, err := r.Model.GenerateContent(ctx, messages, llms.WithTools(plannerTools()))
	if err != nil {
		return nil, fmt.Errorf("reasoner call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("reasoner returned no choices")
	}

	plan, raw, err := parseChoice(resp.Choices[0])
	r.Logger.LogLLM(r.ModelName, request, raw)
	if err != nil {
		return nil, err
	}

	if r.History != nil {
		if err := r.History.AddMessage(r.RunID, "human", request); err != nil {
			return nil, fmt.Errorf("failed to record transcript: %w", err)
		}
		if err := r.History.AddMessage(r.RunID, "ai", raw); err != nil {
			return nil, fmt.Errorf("failed to record transcript: %w", err)
		}
	}

	return plan, nil
}

func buildRequest(goal, critique string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n", goal)
	if critique != "" {
		fmt.Fprintf(&b, "Previous critique: %s\n", critique)
	}
	b.WriteString("Propose the files to create next.")
	return b.String()
}

func plannerTools() []llms.Tool {
	createFile := tools.NewCreateFileTool()
	step := createFile.Parameters()
	step["description"] = createFile.Description()

	return []llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        proposePlanTool,
				Description: "Submit the ordered list of files to create for this round.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"plan": map[string]any{
							"type":  "array",
							"items": step,
						},
					},
					"required": []string{"plan"},
				},
			},
		},
	}
}

// parseChoice prefers a propose_plan tool call and falls back to JSON in the
// text reply. It returns the raw payload that was parsed.
func parseChoice(choice *llms.ContentChoice) (store.Plan, string, error) {
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil || tc.FunctionCall.Name != proposePlanTool {
			continue
		}
		plan, err := parsePlan(tc.FunctionCall.Arguments)
		if err != nil {
			return nil, tc.FunctionCall.Arguments, fmt.Errorf("failed to parse propose_plan arguments: %w", err)
		}
		return plan, tc.FunctionCall.Arguments, nil
	}

	if strings.TrimSpace(choice.Content) == "" {
		return nil, "", fmt.Errorf("reasoner returned neither a plan nor text")
	}
	plan, err := parsePlan(extractJSON(choice.Content))
	if err != nil {
		return nil, choice.Content, fmt.Errorf("failed to parse plan from reply: %w", err)
	}
	return plan, choice.Content, nil
}

func parsePlan(payload string) (store.Plan, error) {
	var resp planResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return nil, err
	}
	if resp.Plan == nil {
		return store.Plan{}, nil
	}
	return resp.Plan, nil
}

// extractJSON strips markdown code fences and returns the outermost object.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

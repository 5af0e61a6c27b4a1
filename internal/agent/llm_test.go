package agent

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/rahul/creator/internal/tools"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	choice   *llms.ContentChoice
	err      error
	messages []llms.MessageContent
	tools    []llms.Tool
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	m.tools = opts.Tools
	if m.err != nil {
		return nil, m.err
	}
	if m.choice == nil {
		return &llms.ContentResponse{}, nil
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{m.choice}}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

type fakeHistory struct {
	roles    []string
	contents []string
	prior    []llms.MessageContent
}

func (h *fakeHistory) AddMessage(runID, role, content string) error {
	h.roles = append(h.roles, role)
	h.contents = append(h.contents, content)
	return nil
}

func (h *fakeHistory) GetHistory(runID string, limit int) ([]llms.MessageContent, error) {
	return h.prior, nil
}

func toolCallChoice(args string) *llms.ContentChoice {
	return &llms.ContentChoice{
		ToolCalls: []llms.ToolCall{{
			ID:   "call_1",
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      proposePlanTool,
				Arguments: args,
			},
		}},
	}
}

func TestLLMReasoner_ToolCall(t *testing.T) {
	model := &fakeModel{choice: toolCallChoice(`{"plan":[{"action":"create_file","path":"app.py","content":"print(1)"}]}`)}
	history := &fakeHistory{prior: []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "Goal: earlier"),
	}}
	r := NewLLMReasoner(model, "test-model", nil, history, "run-1", nil)

	plan, err := r.Think(context.Background(), "todo app", "add a README")
	if err != nil {
		t.Fatal(err)
	}
	if len(plan) != 1 || plan[0].Path != "app.py" || plan[0].Content != "print(1)" {
		t.Errorf("plan = %+v", plan)
	}

	if len(model.tools) != 1 || model.tools[0].Function.Name != proposePlanTool {
		t.Fatalf("propose_plan tool not offered: %+v", model.tools)
	}
	params := model.tools[0].Function.Parameters.(map[string]any)
	items := params["properties"].(map[string]any)["plan"].(map[string]any)["items"].(map[string]any)
	if want := tools.NewCreateFileTool().Description(); items["description"] != want {
		t.Errorf("step schema description = %v, want %q", items["description"], want)
	}
	if len(model.messages) != 3 {
		t.Fatalf("expected system, history and request messages, got %d", len(model.messages))
	}
	if model.messages[0].Role != llms.ChatMessageTypeSystem {
		t.Errorf("first message role = %s", model.messages[0].Role)
	}
	request := model.messages[2].Parts[0].(llms.TextContent).Text
	if !strings.Contains(request, "Goal: todo app") || !strings.Contains(request, "Previous critique: add a README") {
		t.Errorf("request = %q", request)
	}

	if !reflect.DeepEqual(history.roles, []string{"human", "ai"}) {
		t.Errorf("transcript roles = %v", history.roles)
	}
}

func TestLLMReasoner_TextFallback(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"bare", `{"plan":[{"action":"create_file","path":"a.txt","content":"x"}]}`, 1},
		{"fenced", "```json\n{\"plan\":[{\"action\":\"create_file\",\"path\":\"a.txt\",\"content\":\"x\"}]}\n```", 1},
		{"prose", "Here you go:\n{\"plan\": []}\nGood luck.", 0},
		{"no plan field", `{"files":[]}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &fakeModel{choice: &llms.ContentChoice{Content: tt.content}}
			plan, err := NewLLMReasoner(model, "m", nil, nil, "r", nil).Think(context.Background(), "g", "")
			if err != nil {
				t.Fatal(err)
			}
			if plan == nil || len(plan) != tt.want {
				t.Errorf("plan = %+v, want %d steps", plan, tt.want)
			}
		})
	}
}

func TestLLMReasoner_Errors(t *testing.T) {
	boom := errors.New("connection refused")
	tests := []struct {
		name  string
		model *fakeModel
	}{
		{"call fails", &fakeModel{err: boom}},
		{"no choices", &fakeModel{}},
		{"empty reply", &fakeModel{choice: &llms.ContentChoice{}}},
		{"not json", &fakeModel{choice: &llms.ContentChoice{Content: "I cannot help with that."}}},
		{"bad tool args", &fakeModel{choice: toolCallChoice(`{"plan": "nope"}`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history := &fakeHistory{}
			_, err := NewLLMReasoner(tt.model, "m", nil, history, "r", nil).Think(context.Background(), "g", "")
			if err == nil {
				t.Fatal("expected error")
			}
			if len(history.roles) != 0 {
				t.Errorf("failed exchange was recorded: %v", history.roles)
			}
		})
	}

	_, err := NewLLMReasoner(&fakeModel{err: boom}, "m", nil, nil, "r", nil).Think(context.Background(), "g", "")
	if !errors.Is(err, boom) {
		t.Errorf("model error not wrapped: %v", err)
	}
}

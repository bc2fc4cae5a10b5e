package agent

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/internal/util"
	"github.com/hupe1980/agentstudio/model"
	"github.com/hupe1980/agentstudio/tool"
)

// Node ids of the agent loop.
const (
	NodeAgent  = "agent"
	NodeTools  = "tools"
	NodeOutput = "output"
)

// ErrLoopLimit is the terminal error recorded when the model keeps
// requesting tools past the iteration budget.
const ErrLoopLimit = "tool loop limit exceeded"

// State is the per-run state of the agent loop. Messages is append-only:
// nodes replace the slice with an extended copy and never modify entries.
type State struct {
	Messages    []core.Message
	Agent       core.AgentConfig
	ToolResults map[string]any
	Input       map[string]any
	FinalOutput string
	Error       string

	// Iterations counts model round trips.
	Iterations int

	definitions []model.ToolDefinition
	bound       map[string]tool.Config
	budget      int
}

// HasError reports whether a node recorded an error.
func (s *State) HasError() bool { return s.Error != "" }

// LastMessage returns the most recent message, if any.
func (s *State) LastMessage() (core.Message, bool) {
	if len(s.Messages) == 0 {
		return core.Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

func (s *State) appendMessages(msgs ...core.Message) {
	s.Messages = core.AppendMessages(s.Messages, msgs...)
}

// BuildInitialState seeds a run: an optional system message, the prior
// user and assistant turns when memory is enabled, and one user message
// rendered from the prompt template. Rendering problems never fail the
// build; the raw input is used instead.
func BuildInitialState(cfg core.AgentConfig, systemPrompt string, input map[string]any, history []core.Message) *State {
	s := &State{
		Agent:       cfg.Clone(),
		ToolResults: map[string]any{},
		Input:       input,
	}

	var msgs []core.Message
	if systemPrompt != "" {
		msgs = append(msgs, core.NewSystemMessage(systemPrompt))
	}
	if cfg.MemoryEnabled {
		for _, m := range history {
			if m.Role == core.RoleUser || m.Role == core.RoleAssistant {
				msgs = append(msgs, core.Message{Role: m.Role, Content: m.Content})
			}
		}
	}
	msgs = append(msgs, core.NewUserMessage(renderUserMessage(cfg.UserPromptTemplate, input)))

	s.appendMessages(msgs...)
	return s
}

func renderUserMessage(template string, input map[string]any) string {
	if template == "" {
		if msg, ok := input["message"].(string); ok {
			return msg
		}
		return rawInput(input)
	}
	out, err := util.RenderPlaceholders(template, input)
	if err != nil {
		return rawInput(input)
	}
	return out
}

func rawInput(input map[string]any) string {
	if input == nil {
		return ""
	}
	b, err := json.Marshal(input)
	if err != nil {
		return fmt.Sprint(input)
	}
	return string(b)
}

// RouteAfterAgent selects the node following agent.
func RouteAfterAgent(s *State) string {
	if s.HasError() {
		return NodeOutput
	}
	if last, ok := s.LastMessage(); ok && last.Role == core.RoleAssistant && last.HasToolCalls() {
		return NodeTools
	}
	return NodeOutput
}

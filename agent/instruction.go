package agent

import (
	"strings"

	"github.com/hupe1980/agentstudio/core"
)

// Provider supplies dynamic instruction text for an agent configuration.
type Provider interface {
	Instruction(cfg core.AgentConfig) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(cfg core.AgentConfig) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(cfg core.AgentConfig) (string, error) { return f(cfg) }

// Instruction represents either a static instruction string or a dynamic provider.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(cfg core.AgentConfig) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsZero reports whether the instruction carries neither text nor provider.
func (i Instruction) IsZero() bool { return i.provider == nil && i.text == "" }

// Resolve returns the instruction text, invoking the provider if needed.
func (i Instruction) Resolve(cfg core.AgentConfig) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(cfg)
	}
	return i.text, nil
}

// SystemPrompt joins the non-empty parts of an agent's system prompt:
// global instruction, the configured system prompt and the additional
// instructions, separated by blank lines.
func SystemPrompt(global string, cfg core.AgentConfig) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{global, cfg.SystemPrompt, cfg.AdditionalInstructions} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n\n")
}

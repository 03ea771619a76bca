// Package executor identifies which coding agent configuration runs a request.
package executor

import (
	"errors"
	"fmt"
	"strings"
)

// BaseCodingAgent names a supported coding agent CLI.
type BaseCodingAgent string

const (
	ClaudeCode  BaseCodingAgent = "CLAUDE_CODE"
	Copilot     BaseCodingAgent = "COPILOT"
	Codex       BaseCodingAgent = "CODEX"
	Gemini      BaseCodingAgent = "GEMINI"
	Amp         BaseCodingAgent = "AMP"
	Opencode    BaseCodingAgent = "OPENCODE"
	CursorAgent BaseCodingAgent = "CURSOR_AGENT"
	QwenCode    BaseCodingAgent = "QWEN_CODE"
)

var knownAgents = []BaseCodingAgent{ClaudeCode, Copilot, Codex, Gemini, Amp, Opencode, CursorAgent, QwenCode}

var defaultExecutables = map[BaseCodingAgent]string{
	ClaudeCode:  "claude",
	Copilot:     "copilot",
	Codex:       "codex",
	Gemini:      "gemini",
	Amp:         "amp",
	Opencode:    "opencode",
	CursorAgent: "cursor-agent",
	QwenCode:    "qwen",
}

// ErrUnknownAgent is returned by ParseProfileID for an unrecognised agent name.
var ErrUnknownAgent = errors.New("executor: unknown coding agent")

// KnownAgents returns every supported agent in declaration order.
func KnownAgents() []BaseCodingAgent {
	out := make([]BaseCodingAgent, len(knownAgents))
	copy(out, knownAgents)
	return out
}

// Valid reports whether a is a supported agent.
func (a BaseCodingAgent) Valid() bool {
	_, ok := defaultExecutables[a]
	return ok
}

// ProfileID selects an agent and an optional named variant of its
// configuration (e.g. "COPILOT:PLAN").
type ProfileID struct {
	Executor BaseCodingAgent `json:"executor"`
	Variant  *string         `json:"variant,omitempty"`
}

// NewProfileID returns the default profile for the agent.
func NewProfileID(agent BaseCodingAgent) ProfileID {
	return ProfileID{Executor: agent}
}

// WithVariant returns a copy of p using the named variant.
func (p ProfileID) WithVariant(variant string) ProfileID {
	p.Variant = &variant
	return p
}

// Clone returns a copy that shares no memory with p.
func (p ProfileID) Clone() ProfileID {
	if p.Variant != nil {
		v := *p.Variant
		p.Variant = &v
	}
	return p
}

// String formats the profile as AGENT or AGENT:VARIANT.
func (p ProfileID) String() string {
	if p.Variant == nil {
		return string(p.Executor)
	}
	return string(p.Executor) + ":" + *p.Variant
}

// DefaultExecutable returns the CLI binary name for the profile's agent,
// or "" when the agent is unknown.
func (p ProfileID) DefaultExecutable() string {
	return defaultExecutables[p.Executor]
}

// ParseProfileID parses AGENT or AGENT:VARIANT. Agent names are matched
// case-insensitively and may use '-' in place of '_'.
func ParseProfileID(s string) (ProfileID, error) {
	s = strings.TrimSpace(s)
	name, variant, hasVariant := strings.Cut(s, ":")

	agent := BaseCodingAgent(strings.ToUpper(strings.ReplaceAll(name, "-", "_")))
	if !agent.Valid() {
		return ProfileID{}, fmt.Errorf("%w: %q", ErrUnknownAgent, name)
	}

	p := NewProfileID(agent)
	if hasVariant {
		if variant == "" {
			return ProfileID{}, fmt.Errorf("executor: empty variant in profile %q", s)
		}
		p = p.WithVariant(variant)
	}
	return p, nil
}

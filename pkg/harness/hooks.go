package harness

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// HookDef is one canonical hook entry, decoded from hooks.toml (spec
// §4.8.3).
type HookDef struct {
	Event    string   `toml:"event"`
	Script   string   `toml:"script"`
	Tools    []string `toml:"tools,omitempty"`
	Blocking bool     `toml:"blocking,omitempty"`
	Harness  string   `toml:"harness,omitempty"` // "", "claude", or "pi": restricts which bridge emits it
}

type hooksDocument struct {
	Hooks []HookDef `toml:"hooks"`
}

// DecodeHooksToml parses a hooks.toml document into its canonical hook
// list, preserving declaration order.
func DecodeHooksToml(data []byte) ([]HookDef, error) {
	var doc hooksDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse hooks.toml: %w", err)
	}
	return doc.Hooks, nil
}

// claudeEventNames is the canonical-to-Claude event translation table
// (spec §4.8.3).
var claudeEventNames = map[string]string{
	"pre_tool_use":        "PreToolUse",
	"post_tool_use":       "PostToolUse",
	"session_start":       "SessionStart",
	"session_end":         "SessionEnd",
	"stop":                "Stop",
	"user_prompt_submit":  "UserPromptSubmit",
	"subagent_start":      "SubagentStart",
	"subagent_stop":       "SubagentStop",
	"pre_compact":         "PreCompact",
}

// piEventNames is the canonical-to-Pi event translation table. Canonical
// events with no Pi mapping are omitted, per the table in spec §4.8.3.
var piEventNames = map[string]string{
	"pre_tool_use":  "tool_call",
	"post_tool_use": "tool_result",
	"session_start": "session_start",
	"session_end":   "session_shutdown",
}

// ClaudeHookAction is one {"type":"command","command":...} entry.
type ClaudeHookAction struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

// ClaudeHookGroup groups hook actions under a shared matcher.
type ClaudeHookGroup struct {
	Matcher string             `json:"matcher"`
	Hooks   []ClaudeHookAction `json:"hooks"`
}

// ClaudeHooksDocument is the hooks.json shape Claude reads, keyed by
// Claude event name.
type ClaudeHooksDocument map[string][]ClaudeHookGroup

// TranslateHooksToClaude converts canonical hooks into hooks.json, honoring
// the matcher-grouping and harness-skip rules in spec §4.8.3.
// pluginRootVar is the literal command template prefix, normally
// "${CLAUDE_PLUGIN_ROOT}/hooks/".
func TranslateHooksToClaude(hooks []HookDef, pluginRootVar string) ClaudeHooksDocument {
	doc := make(ClaudeHooksDocument)

	// matcher -> ordered action list, per event, preserving first-seen
	// matcher order within the event.
	type matcherBucket struct {
		matcher string
		actions []ClaudeHookAction
	}
	buckets := make(map[string][]*matcherBucket)

	for _, h := range hooks {
		if h.Harness == "pi" {
			continue
		}
		claudeEvent, ok := claudeEventNames[h.Event]
		if !ok {
			continue
		}
		matcher := "*"
		if len(h.Tools) > 0 {
			matcher = strings.Join(h.Tools, "|")
		}

		list := buckets[claudeEvent]
		var bucket *matcherBucket
		for _, b := range list {
			if b.matcher == matcher {
				bucket = b
				break
			}
		}
		if bucket == nil {
			bucket = &matcherBucket{matcher: matcher}
			buckets[claudeEvent] = append(buckets[claudeEvent], bucket)
		}
		bucket.actions = append(bucket.actions, ClaudeHookAction{
			Type:    "command",
			Command: pluginRootVar + h.Script,
		})
	}

	for event, list := range buckets {
		groups := make([]ClaudeHookGroup, 0, len(list))
		for _, b := range list {
			groups = append(groups, ClaudeHookGroup{Matcher: b.matcher, Hooks: b.actions})
		}
		doc[event] = groups
	}
	return doc
}

// PiHookTarget is one hook the Pi bridge should dispatch for a canonical
// event.
type PiHookTarget struct {
	PiEvent  string
	Script   string
	Blocking bool
}

// TranslateHooksToPi filters canonical hooks to those with a Pi mapping,
// skipping harness:"claude"-scoped hooks (spec §4.8.3).
func TranslateHooksToPi(hooks []HookDef) []PiHookTarget {
	var out []PiHookTarget
	for _, h := range hooks {
		if h.Harness == "claude" {
			continue
		}
		piEvent, ok := piEventNames[h.Event]
		if !ok {
			continue
		}
		out = append(out, PiHookTarget{PiEvent: piEvent, Script: h.Script, Blocking: h.Blocking})
	}
	return out
}

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentspaces/asp/pkg/harness"
)

func TestParseHarnesses_DefaultsToClaude(t *testing.T) {
	assert.Equal(t, []harness.ID{harness.Claude}, parseHarnesses(""))
}

func TestParseHarnesses_SplitsAndTrims(t *testing.T) {
	assert.Equal(t, []harness.ID{harness.Claude, harness.Pi, harness.Codex}, parseHarnesses("claude, pi ,codex"))
}

func TestSingleHarness_DefaultsToClaude(t *testing.T) {
	assert.Equal(t, harness.Claude, singleHarness(""))
	assert.Equal(t, harness.Codex, singleHarness("codex"))
}

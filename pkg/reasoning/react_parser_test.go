package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReActTakesFirstActionOnMultipleActionsInOneTurn(t *testing.T) {
	text := "Thought: I should look this up, then maybe look up something else.\n" +
		"Action: lookup\n" +
		"Action Input: {\"query\": \"first\"}\n" +
		"Action: calculator\n" +
		"Action Input: {\"query\": \"second\"}"

	parsed := ParseReAct(text)

	require.True(t, parsed.HasAction)
	assert.Equal(t, "lookup", parsed.Action)
	assert.Equal(t, `{"query": "first"}`, parsed.ActionInput)
}

func TestParseReActRecognizesFinalAnswer(t *testing.T) {
	parsed := ParseReAct("Thought: done thinking.\nAnswer: 42")
	require.True(t, parsed.IsFinalAnswer)
	assert.Equal(t, "42", parsed.FinalAnswer)
}

func TestParseReActMarksMalformedWhenNeitherActionNorAnswer(t *testing.T) {
	parsed := ParseReAct("Thought: just rambling with no anchor conclusion.")
	assert.True(t, parsed.IsMalformed)
}

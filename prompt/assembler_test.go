package prompt

import (
	"strings"
	"testing"

	"github.com/poiesic/ragtime/ai"
	"github.com/poiesic/ragtime/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(id core.ID, title, text string) core.Candidate {
	return core.Candidate{
		Fragment: &core.Fragment{ID: id, SourceID: "src", Title: title, Text: text},
		Score:    0.8,
	}
}

func testTemplate() Template {
	return Template{
		Version: "t",
		System:  "Answer in {language}.\nContext:\n{context}",
		Human:   "Q: {question}",
	}
}

func TestAssemblerBuild(t *testing.T) {
	a, err := NewAssembler(testTemplate())
	require.NoError(t, err)

	history := []core.Turn{
		{Role: core.RoleUser, Content: "first question"},
		{Role: core.RoleAssistant, Content: "first answer"},
		{Role: "system", Content: "not a conversation role"},
		{Role: core.RoleUser, Content: "   "},
	}
	p, err := a.Build(Request{
		Question:   "what about {braces}?",
		Candidates: []core.Candidate{candidate(1, "", "alpha"), candidate(2, "", "beta")},
		History:    history,
		Language:   "es",
	})
	require.NoError(t, err)

	require.Len(t, p.Messages, 4)
	assert.Equal(t, ai.RoleSystem, p.Messages[0].Role)
	assert.Equal(t, "Answer in Spanish.\nContext:\nalpha\n\nbeta", p.Messages[0].Content)
	assert.Equal(t, ai.UserMessage("first question"), p.Messages[1])
	assert.Equal(t, ai.AssistantMessage("first answer"), p.Messages[2])
	assert.Equal(t, ai.UserMessage("Q: what about {braces}?"), p.Messages[3])
	assert.Equal(t, "t", p.Version)
	assert.Len(t, p.History, 2)
	assert.Len(t, p.Candidates, 2)
}

func TestAssemblerHistoryLimit(t *testing.T) {
	var history []core.Turn
	for i := range 6 {
		role := core.RoleUser
		if i%2 == 1 {
			role = core.RoleAssistant
		}
		history = append(history, core.Turn{Role: role, Content: string(rune('a' + i))})
	}

	t.Run("keeps most recent", func(t *testing.T) {
		a, err := NewAssembler(testTemplate(), WithHistoryLimit(2))
		require.NoError(t, err)
		p, err := a.Build(Request{Question: "q", History: history})
		require.NoError(t, err)
		require.Len(t, p.History, 2)
		assert.Equal(t, "e", p.History[0].Content)
		assert.Equal(t, "f", p.History[1].Content)
	})

	t.Run("zero omits history", func(t *testing.T) {
		a, err := NewAssembler(testTemplate(), WithHistoryLimit(0))
		require.NoError(t, err)
		p, err := a.Build(Request{Question: "q", History: history})
		require.NoError(t, err)
		assert.Empty(t, p.History)
		assert.Len(t, p.Messages, 2)
	})
}

func TestAssemblerTitles(t *testing.T) {
	a, err := NewAssembler(testTemplate(), WithSourceTitles(true))
	require.NoError(t, err)
	p, err := a.Build(Request{
		Question:   "q",
		Candidates: []core.Candidate{candidate(1, "Episode 12", "alpha"), candidate(2, "", "beta")},
	})
	require.NoError(t, err)
	assert.Contains(t, p.Messages[0].Content, "From 'Episode 12':\nalpha\n\nbeta")
}

func TestAssemblerDefaultLanguage(t *testing.T) {
	a, err := NewAssembler(testTemplate())
	require.NoError(t, err)
	p, err := a.Build(Request{Question: "q"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p.Messages[0].Content, "Answer in English."))
}

func TestAssemblerTokenBudget(t *testing.T) {
	words := TokenCounterFunc(func(s string) int { return len(strings.Fields(s)) })
	frags := []core.Candidate{
		candidate(1, "", "one two three"),
		candidate(2, "", "four five six"),
		candidate(3, "", "seven eight nine"),
	}
	history := []core.Turn{
		{Role: core.RoleUser, Content: "h1 h1"},
		{Role: core.RoleAssistant, Content: "h2 h2"},
	}

	tests := []struct {
		name      string
		budget    int
		fragments int
		turns     int
	}{
		{"fits", 13, 3, 2},
		{"drops tail fragment", 10, 2, 2},
		{"keeps one fragment then drops oldest turn", 6, 1, 1},
		{"everything else dropped", 1, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAssembler(testTemplate(), WithTokenBudget(tt.budget, words))
			require.NoError(t, err)
			p, err := a.Build(Request{Question: "q", Candidates: frags, History: history})
			require.NoError(t, err)
			assert.Len(t, p.Candidates, tt.fragments)
			assert.Len(t, p.History, tt.turns)
			if tt.turns == 1 {
				assert.Equal(t, "h2 h2", p.History[0].Content)
			}
			assert.Equal(t, core.ID(1), p.Candidates[0].Fragment.ID)
		})
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 2, EstimateTokens("abcdefgh"))
	assert.Equal(t, 1, EstimateTokens("日本語"))
}

package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecideKeywordRouting(t *testing.T) {
	cases := []struct {
		name  string
		query string
		want  Strategy
	}{
		{"summary cue", "Give me an executive summary of the report", StrategySummarize},
		{"quiz cue", "Make a quiz about this filing", StrategyQuiz},
		{"no cue defaults to answer", "What was Q3 revenue?", StrategyAnswer},
		{"case insensitive", "SUMMARIZE the annual report", StrategySummarize},
		{"substring match", "I need the highlights please", StrategySummarize},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := Decide(QueryContext{Query: tc.query})
			assert.Equal(t, tc.want, decision.Strategy)
		})
	}
}

func TestDecideSummaryWinsOverQuiz(t *testing.T) {
	// Query carries cues for both strategies; summarization is checked
	// first and must win.
	decision := Decide(QueryContext{Query: "summarize this into practice questions"})
	assert.Equal(t, StrategySummarize, decision.Strategy)
	assert.Equal(t, ReasonKeyword, decision.Reason)
}

func TestDecideOverrideWins(t *testing.T) {
	decision := Decide(QueryContext{
		Query:    "summarize the report",
		Override: StrategyQuiz,
	})
	assert.Equal(t, StrategyQuiz, decision.Strategy)
	assert.Equal(t, ReasonOverride, decision.Reason)
}

func TestDecideInvalidOverrideRoutesToError(t *testing.T) {
	decision := Decide(QueryContext{Query: "hello", Override: Strategy("translate")})
	assert.Equal(t, StrategyError, decision.Strategy)
	assert.Equal(t, ReasonOverride, decision.Reason)
}

func TestDecideDefaultReason(t *testing.T) {
	decision := Decide(QueryContext{Query: "walk me through the balance sheet"})
	assert.Equal(t, StrategyAnswer, decision.Strategy)
	assert.Equal(t, ReasonDefault, decision.Reason)
}

func TestQueryComplexity(t *testing.T) {
	assert.Equal(t, "simple", queryComplexity("What is EBITDA?"))
	assert.Equal(t, "complex", queryComplexity("Give a detailed comparison, pros and cons"))
	assert.Equal(t, "moderate", queryComplexity("How did margins change year over year?"))
	// Simple cues are checked before complex cues.
	assert.Equal(t, "simple", queryComplexity("define the methodology"))
}

func TestIsAnalyticsQuery(t *testing.T) {
	assert.True(t, isAnalyticsQuery("show revenue trends"))
	assert.True(t, isAnalyticsQuery("any anomalies in the KPI data?"))
	assert.False(t, isAnalyticsQuery("who signed the audit letter?"))
}

package chat

import "strings"

// route binds a strategy to its trigger predicate. Routes are evaluated in
// slice order; the documented contract is summarization cues before quiz
// cues.
type route struct {
	strategy Strategy
	match    func(string) bool
}

var routes = []route{
	{StrategySummarize, containsAny(summaryCues)},
	{StrategyQuiz, containsAny(quizCues)},
}

var summaryCues = []string{
	"summarize", "summary", "executive summary", "key points",
	"overview", "brief", "synopsis", "recap", "highlights",
}

var quizCues = []string{
	"quiz", "test", "questions", "mcq", "multiple choice",
	"examination", "assessment", "practice",
}

var simpleCues = []string{
	"what is", "define", "explain briefly", "quick", "simple", "basic",
}

var complexCues = []string{
	"comprehensive", "detailed", "thorough", "complete analysis",
	"compare and contrast", "pros and cons", "advantages and disadvantages",
	"step by step", "how to", "process", "methodology", "strategy",
}

var analyticsCues = []string{
	"kpi", "trends", "analytics", "insights", "anomalies", "analysis",
	"calculate", "computation", "statistics", "metrics", "performance",
	"revenue", "profit", "margin", "growth", "decline", "correlation",
	"pattern", "forecast", "prediction", "comparison", "ratio",
}

// Decide selects the strategy for a query. An explicit override always
// wins; otherwise the first matching route in the fixed evaluation order;
// otherwise answering.
func Decide(q QueryContext) RoutingDecision {
	if q.Override != "" {
		switch q.Override {
		case StrategyAnswer, StrategySummarize, StrategyQuiz:
			return RoutingDecision{Strategy: q.Override, Reason: ReasonOverride}
		default:
			return RoutingDecision{Strategy: StrategyError, Reason: ReasonOverride}
		}
	}

	lowered := strings.ToLower(q.Query)
	for _, r := range routes {
		if r.match(lowered) {
			return RoutingDecision{Strategy: r.strategy, Reason: ReasonKeyword}
		}
	}
	return RoutingDecision{Strategy: StrategyAnswer, Reason: ReasonDefault}
}

// queryComplexity classifies a query as simple, moderate, or complex. The
// result only shapes synthesis instructions, never retrieval.
func queryComplexity(query string) string {
	lowered := strings.ToLower(query)
	for _, cue := range simpleCues {
		if strings.Contains(lowered, cue) {
			return "simple"
		}
	}
	for _, cue := range complexCues {
		if strings.Contains(lowered, cue) {
			return "complex"
		}
	}
	return "moderate"
}

// isAnalyticsQuery reports whether the query reads like an analytics
// request. Metadata only.
func isAnalyticsQuery(query string) bool {
	return containsAny(analyticsCues)(strings.ToLower(query))
}

func containsAny(cues []string) func(string) bool {
	return func(lowered string) bool {
		for _, cue := range cues {
			if strings.Contains(lowered, cue) {
				return true
			}
		}
		return false
	}
}

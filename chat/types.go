// Package chat routes incoming queries to one of the fixed response
// strategies and assembles retrieval-grounded responses.
package chat

// Strategy is one of the fixed response modes.
type Strategy string

const (
	StrategyAnswer    Strategy = "answer"
	StrategySummarize Strategy = "summarize"
	StrategyQuiz      Strategy = "quiz"
	StrategyError     Strategy = "error"
)

// Reason records why a strategy was selected.
type Reason string

const (
	ReasonOverride Reason = "override"
	ReasonKeyword  Reason = "keyword"
	ReasonDefault  Reason = "default"
)

// RoutingDecision is the selected strategy plus the reason it won.
// Derived per request, never persisted.
type RoutingDecision struct {
	Strategy Strategy
	Reason   Reason
}

// Turn is one prior conversation exchange, most-recent-last in history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// QueryContext is the ephemeral per-request input to the router.
type QueryContext struct {
	Query      string
	SessionID  string
	DocumentID string
	Override   Strategy // explicit strategy override, wins when set
	History    []Turn
}

// Source is the provenance of one piece of grounding used in a response.
type Source struct {
	Content   string            `json:"content,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Relevance float64           `json:"relevance_score,omitempty"`
	Type      string            `json:"type,omitempty"`
}

// Response is the router's output. The router always produces one, even on
// failure: errors surface as an apologetic message plus an "error" metadata
// field, never as a returned error.
type Response struct {
	Text     string            `json:"response"`
	Strategy Strategy          `json:"strategy"`
	Sources  []Source          `json:"sources"`
	Metadata map[string]string `json:"metadata"`
}

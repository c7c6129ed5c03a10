package chat

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/finchat/finchat/knowledge"
	"github.com/finchat/finchat/llm"
	"github.com/finchat/finchat/store"
)

// Knowledge is the retrieval capability the router consumes.
type Knowledge interface {
	Search(ctx context.Context, query string, scope knowledge.Scope, topK int) (knowledge.Results, error)
	Chunks(ctx context.Context, scope knowledge.Scope) ([]store.Chunk, error)
}

// Fixed responses for the short-circuit paths.
const (
	noAnswerMessage  = "I couldn't find relevant financial information in the uploaded documents to answer your question."
	noSummaryMessage = "No document content found for summarization. Please upload a document first."
	noQuizMessage    = "No document content found for quiz generation. Please upload a document first."
)

const (
	sourceExcerptBudget = 200
	defaultTimeout      = 60 * time.Second
)

// Config holds the router's response-shaping settings.
type Config struct {
	TopK             int
	SummaryMaxLength int
	MCQNumQuestions  int
	HistoryTurns     int
	Timeout          time.Duration
}

// Router drives one request through the strategy state machine:
// routing -> {answering, summarizing, quizzing, error} -> done. All
// post-routing states are terminal; there are no loops or re-entry.
type Router struct {
	knowledge Knowledge
	llm       llm.Client
	cfg       Config
	logger    *zap.Logger
}

// NewRouter builds a router over the given capabilities.
func NewRouter(kb Knowledge, client llm.Client, cfg Config, logger *zap.Logger) *Router {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.SummaryMaxLength <= 0 {
		cfg.SummaryMaxLength = 500
	}
	if cfg.MCQNumQuestions <= 0 {
		cfg.MCQNumQuestions = 5
	}
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{knowledge: kb, llm: client, cfg: cfg, logger: logger}
}

// Route classifies the query, runs the selected state behavior, and always
// returns a response: any failure inside a state behavior is caught, logged,
// and converted into a best-effort message with an "error" metadata field.
func (r *Router) Route(ctx context.Context, q QueryContext) (resp Response) {
	decision := Decide(q)
	r.logger.Info("routed query",
		zap.String("strategy", string(decision.Strategy)),
		zap.String("reason", string(decision.Reason)))

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic in state behavior", zap.Any("panic", rec))
			resp = r.errorResponse(fmt.Sprintf("%v", rec))
		}
	}()

	var err error
	switch decision.Strategy {
	case StrategySummarize:
		resp, err = r.summarize(ctx, q, decision)
	case StrategyQuiz:
		resp, err = r.quiz(ctx, q, decision)
	case StrategyError:
		resp = r.errorResponse("invalid strategy override")
	default:
		resp, err = r.answer(ctx, q, decision)
	}
	if err != nil {
		r.logger.Error("state behavior failed",
			zap.String("strategy", string(decision.Strategy)),
			zap.Error(err))
		resp = r.errorResponse(err.Error())
	}
	return resp
}

func (r *Router) answer(ctx context.Context, q QueryContext, decision RoutingDecision) (Response, error) {
	complexity := queryComplexity(q.Query)
	analytics := isAnalyticsQuery(q.Query)

	scope := knowledge.Scope{SessionID: q.SessionID, DocumentID: q.DocumentID}
	results, err := r.search(ctx, q.Query, scope)
	if err != nil {
		return Response{}, err
	}

	metadata := map[string]string{
		"reason":               string(decision.Reason),
		"query_complexity":     complexity,
		"is_analytics_query":   strconv.FormatBool(analytics),
		"context_chunks_found": strconv.Itoa(results.Total()),
	}

	if results.Total() == 0 {
		return Response{
			Text:     noAnswerMessage,
			Strategy: StrategyAnswer,
			Sources:  []Source{},
			Metadata: metadata,
		}, nil
	}

	prompt := answerPrompt(
		AssembleContext(results),
		historyContext(q.History, r.cfg.HistoryTurns),
		q.Query,
		complexity,
	)
	text, err := r.complete(ctx, prompt)
	if err != nil {
		return Response{}, err
	}

	sources := make([]Source, 0, results.Total())
	for _, f := range results.Permanent {
		sources = append(sources, fragmentSource(f, "permanent"))
	}
	for _, f := range results.Session {
		sources = append(sources, fragmentSource(f, "session"))
	}

	return Response{
		Text:     strings.TrimSpace(text),
		Strategy: StrategyAnswer,
		Sources:  sources,
		Metadata: metadata,
	}, nil
}

func (r *Router) summarize(ctx context.Context, q QueryContext, decision RoutingDecision) (Response, error) {
	scope := knowledge.Scope{SessionID: q.SessionID, DocumentID: q.DocumentID}
	chunks, err := r.knowledge.Chunks(ctx, scope)
	if err != nil {
		return Response{}, err
	}

	metadata := map[string]string{"reason": string(decision.Reason)}
	if len(chunks) == 0 {
		return Response{
			Text:     noSummaryMessage,
			Strategy: StrategySummarize,
			Sources:  []Source{},
			Metadata: metadata,
		}, nil
	}

	content := joinChunks(chunks)
	prompt := summaryPrompt(content, historyContext(q.History, 3), r.cfg.SummaryMaxLength)
	text, err := r.complete(ctx, prompt)
	if err != nil {
		return Response{}, err
	}

	metadata["word_count"] = strconv.Itoa(len(strings.Fields(content)))
	return Response{
		Text:     strings.TrimSpace(text),
		Strategy: StrategySummarize,
		Sources:  []Source{{Type: "summary"}},
		Metadata: metadata,
	}, nil
}

func (r *Router) quiz(ctx context.Context, q QueryContext, decision RoutingDecision) (Response, error) {
	scope := knowledge.Scope{SessionID: q.SessionID, DocumentID: q.DocumentID}
	chunks, err := r.knowledge.Chunks(ctx, scope)
	if err != nil {
		return Response{}, err
	}

	metadata := map[string]string{"reason": string(decision.Reason)}
	if len(chunks) == 0 {
		return Response{
			Text:     noQuizMessage,
			Strategy: StrategyQuiz,
			Sources:  []Source{},
			Metadata: metadata,
		}, nil
	}

	prompt := quizPrompt(joinChunks(chunks), historyContext(q.History, 3), r.cfg.MCQNumQuestions)
	text, err := r.complete(ctx, prompt)
	if err != nil {
		return Response{}, err
	}

	metadata["num_questions"] = strconv.Itoa(r.cfg.MCQNumQuestions)
	return Response{
		Text:     strings.TrimSpace(text),
		Strategy: StrategyQuiz,
		Sources:  []Source{{Type: "mcq"}},
		Metadata: metadata,
	}, nil
}

// errorResponse is the terminal error state: deterministic assembly from
// the recorded message, never failing itself.
func (r *Router) errorResponse(message string) Response {
	return Response{
		Text:     fmt.Sprintf("I encountered an error while processing your request: %s. Please try again.", message),
		Strategy: StrategyError,
		Sources:  []Source{},
		Metadata: map[string]string{"error": message},
	}
}

// search runs retrieval under the configured timeout. A timeout is a
// retrieval failure and flows through the same failure boundary.
func (r *Router) search(ctx context.Context, query string, scope knowledge.Scope) (knowledge.Results, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	return r.knowledge.Search(ctx, query, scope, r.cfg.TopK)
}

// complete runs synthesis under the configured timeout.
func (r *Router) complete(ctx context.Context, prompt string) (string, error) {
	if r.llm == nil {
		return "", fmt.Errorf("llm client is not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	text, err := r.llm.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("synthesis: %w", err)
	}
	return text, nil
}

func fragmentSource(f store.Fragment, provenance string) Source {
	return Source{
		Content:   truncate(f.Content, sourceExcerptBudget),
		Metadata:  f.Metadata,
		Relevance: 1 - f.Distance,
		Type:      provenance,
	}
}

func joinChunks(chunks []store.Chunk) string {
	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = chunk.Content
	}
	return strings.Join(parts, "\n\n")
}

// Package orchestrator is the engine's top-level query pipeline: classify,
// select a processing strategy, run the needed retrievers (serially for
// simple queries, as a pooled parallel fan-out for complex ones), and
// format a unified response.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/guidestone/guidestone/core/classifier"
	"github.com/guidestone/guidestone/core/retrieval"
	"github.com/guidestone/guidestone/helper"
	"github.com/guidestone/guidestone/model"
	"github.com/guidestone/guidestone/store"
	"github.com/panjf2000/ants/v2"
)

// State is one stage of the query processing state machine.
type State string

const (
	StateReceived   State = "RECEIVED"
	StateClassified State = "CLASSIFIED"
	StateFormatted  State = "FORMATTED"
	StateReturned   State = "RETURNED"
	StateFailed     State = "FAILED"
)

const lowConfidence = 0.2

// Orchestrator coordinates classification, retrieval, and synthesis.
type Orchestrator struct {
	classifier  *classifier.Classifier
	vector      *retrieval.VectorRetriever
	graph       *retrieval.GraphRetriever
	decision    *retrieval.DecisionRetriever
	matrix      *retrieval.MatrixRetriever
	synthesizer *retrieval.Synthesizer

	config model.QueryConfig
	pool   *ants.Pool
	logger *slog.Logger
}

// New creates an orchestrator with a worker pool sized for the concurrent
// mode fan-out.
func New(
	queryClassifier *classifier.Classifier,
	vector *retrieval.VectorRetriever,
	graph *retrieval.GraphRetriever,
	decision *retrieval.DecisionRetriever,
	matrix *retrieval.MatrixRetriever,
	synthesizer *retrieval.Synthesizer,
	config model.QueryConfig,
	logger *slog.Logger,
) (*Orchestrator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := ants.NewPool(8, ants.WithNonblocking(false))
	if err != nil {
		return nil, helper.NewError("create worker pool", err)
	}
	return &Orchestrator{
		classifier:  queryClassifier,
		vector:      vector,
		graph:       graph,
		decision:    decision,
		matrix:      matrix,
		synthesizer: synthesizer,
		config:      config,
		pool:        pool,
		logger:      logger,
	}, nil
}

// Close releases the worker pool.
func (o *Orchestrator) Close() {
	o.pool.Release()
}

// Process runs one query through the full state machine. Only upstream
// store unavailability is returned as an error; everything else degrades to
// a low-confidence answer.
func (o *Orchestrator) Process(ctx context.Context, req model.QueryRequest) (*model.QueryResponse, error) {
	start := time.Now()
	state := StateReceived

	classification := o.classifier.Classify(req.Query, req.ContextParams)
	state = StateClassified

	config := o.config
	if req.PackageContext != "" {
		config.PackageContext = req.PackageContext
	}

	strategy := selectStrategy(classification)
	o.logger.Info("processing query",
		slog.String("state", string(state)),
		slog.String("intent", string(classification.Intent)),
		slog.String("strategy", string(strategy)),
		slog.Float64("complexity", classification.Complexity),
	)

	var answer *model.SynthesizedAnswer
	var err error
	switch strategy {
	case model.StrategySimpleVector:
		answer, err = o.runSimpleVector(ctx, req.Query, classification, &config)
	case model.StrategyGraphNavigation:
		answer, err = o.runGraphNavigation(ctx, req.Query, classification, &config)
	case model.StrategyDecisionEvaluation:
		answer, err = o.runDecisionEvaluation(ctx, req.Query, classification, &config)
	case model.StrategyMatrixLookup:
		answer, err = o.runMatrixLookup(ctx, req.Query, classification, &config)
	default:
		answer, err = o.runHybridReasoning(ctx, req.Query, classification, &config)
	}
	if err != nil {
		o.logger.Error("query failed",
			slog.String("state", string(StateFailed)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	state = StateFormatted

	response := &model.QueryResponse{
		Query:            req.Query,
		StrategyUsed:     strategy,
		Result:           answer,
		Confidence:       answer.ConfidenceLevel,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}
	state = StateReturned
	o.logger.Info("query complete",
		slog.String("state", string(state)),
		slog.Float64("confidence", response.Confidence),
		slog.Int64("processing_ms", response.ProcessingTimeMS),
	)
	return response, nil
}

// selectStrategy is deterministic, first match wins. Parameter-bearing
// rules are checked before the low-complexity graph fallback so a
// qualification query with case parameters always reaches decision
// evaluation.
func selectStrategy(classification model.QueryClassification) model.Strategy {
	switch {
	case classification.Complexity < 0.3 &&
		(classification.Intent == model.IntentDocumentationInquiry || classification.Intent == model.IntentPolicyLookup):
		return model.StrategySimpleVector
	case classification.Intent == model.IntentQualificationCheck && len(classification.Parameters) > 0:
		return model.StrategyDecisionEvaluation
	case classification.Intent == model.IntentCalculationRequest && len(classification.NumericParameters()) > 0:
		return model.StrategyMatrixLookup
	case classification.Intent == model.IntentProcessNavigation || classification.Complexity < 0.5:
		return model.StrategyGraphNavigation
	default:
		return model.StrategyHybridReasoning
	}
}

// Serial strategies invoke exactly one retriever and format the result
// directly, keeping simple queries off the language model.

func (o *Orchestrator) runSimpleVector(ctx context.Context, query string, classification model.QueryClassification, config *model.QueryConfig) (*model.SynthesizedAnswer, error) {
	result := o.runMode(ctx, model.ModeVectorSimilarity, query, classification, config)
	if err := serialFailure(result); err != nil {
		return nil, err
	}
	return formatChunkAnswer(result), nil
}

func (o *Orchestrator) runGraphNavigation(ctx context.Context, query string, classification model.QueryClassification, config *model.QueryConfig) (*model.SynthesizedAnswer, error) {
	result := o.runMode(ctx, model.ModeGraphTraversal, query, classification, config)
	if err := serialFailure(result); err != nil {
		return nil, err
	}
	return formatPathAnswer(result), nil
}

func (o *Orchestrator) runDecisionEvaluation(ctx context.Context, query string, classification model.QueryClassification, config *model.QueryConfig) (*model.SynthesizedAnswer, error) {
	result := o.runMode(ctx, model.ModeDecisionPath, query, classification, config)
	if err := serialFailure(result); err != nil {
		return nil, err
	}
	return formatDecisionAnswer(result), nil
}

func (o *Orchestrator) runMatrixLookup(ctx context.Context, query string, classification model.QueryClassification, config *model.QueryConfig) (*model.SynthesizedAnswer, error) {
	result := o.runMode(ctx, model.ModeMatrixIntersection, query, classification, config)
	if err := serialFailure(result); err != nil {
		return nil, err
	}
	return formatMatrixAnswer(result), nil
}

// serialFailure maps a failed serial-path result: store unavailability is
// fatal for the request, anything else degrades to insufficient
// information further up.
func serialFailure(result *model.RetrievalResult) error {
	if result.Failed && errors.Is(result.Err, store.ErrUnavailable) {
		return fmt.Errorf("graph store unavailable: %w", result.Err)
	}
	return nil
}

// runHybridReasoning fans the selected modes out over the worker pool, each
// under its own timeout, then synthesizes. The request fails only when
// every mode failed and at least one failure was store unavailability.
func (o *Orchestrator) runHybridReasoning(ctx context.Context, query string, classification model.QueryClassification, config *model.QueryConfig) (*model.SynthesizedAnswer, error) {
	modes := classification.Modes
	results := make([]*model.RetrievalResult, len(modes))

	var wg sync.WaitGroup
	for i, weighted := range modes {
		i, mode := i, weighted.Mode
		wg.Add(1)
		submit := func() {
			defer wg.Done()
			results[i] = o.runMode(ctx, mode, query, classification, config)
		}
		if err := o.pool.Submit(submit); err != nil {
			// Pool saturation degrades to inline execution.
			submit()
		}
	}
	wg.Wait()

	failed := 0
	var unavailable error
	for _, result := range results {
		if result.Failed {
			failed++
			if errors.Is(result.Err, store.ErrUnavailable) {
				unavailable = result.Err
			}
		}
	}
	if failed == len(results) {
		if unavailable != nil {
			return nil, fmt.Errorf("graph store unavailable: %w", unavailable)
		}
		return insufficientAnswer("all retrieval strategies timed out or failed"), nil
	}

	synthCtx, cancel := context.WithTimeout(ctx, config.SynthesisTimeout)
	defer cancel()
	answer, err := o.synthesizer.Synthesize(synthCtx, query, results, classification)
	if err != nil {
		o.logger.Warn("synthesis failed, falling back to direct formatting",
			slog.String("error", err.Error()),
		)
		return fallbackAnswer(results), nil
	}
	if failed > 0 {
		answer.Limitations = append(answer.Limitations,
			fmt.Sprintf("%d of %d retrieval strategies failed or timed out", failed, len(results)))
	}
	return answer, nil
}

// runMode executes one retrieval mode under its configured timeout and
// recovers any failure as an empty zero-confidence result.
func (o *Orchestrator) runMode(ctx context.Context, mode model.RetrievalMode, query string, classification model.QueryClassification, config *model.QueryConfig) *model.RetrievalResult {
	modeCtx, cancel := context.WithTimeout(ctx, config.TimeoutFor(mode))
	defer cancel()

	params := classification.Parameters
	result := &model.RetrievalResult{Mode: mode}
	var err error
	switch mode {
	case model.ModeVectorSimilarity:
		result.Chunks, err = o.vector.Retrieve(modeCtx, query, classification, config)
		result.Score = chunkConfidence(result.Chunks)
	case model.ModeGraphTraversal:
		result.Paths, err = o.graph.Traverse(modeCtx, query, classification, config)
		result.Score = pathConfidence(result.Paths)
	case model.ModeDecisionPath:
		result.Decision, err = o.decision.Evaluate(modeCtx, query, params, classification, config)
		result.Score = decisionConfidence(result.Decision)
	case model.ModeMatrixIntersection:
		result.Matrix, err = o.matrix.Lookup(modeCtx, query, params, classification, config)
		result.Score = matrixConfidence(result.Matrix)
	case model.ModeHybridReasoning:
		// Within a fan-out the hybrid mode contributes a broader vector
		// sweep; synthesis itself happens once, after the join.
		broad := *config
		broad.TopK = 2 * config.TopK
		result.Chunks, err = o.vector.Retrieve(modeCtx, query, classification, &broad)
		result.Score = chunkConfidence(result.Chunks)
	}
	if err != nil {
		o.logger.Warn("retrieval mode failed",
			slog.String("mode", string(mode)),
			slog.String("error", err.Error()),
		)
		return model.FailedResult(mode, err)
	}
	return result
}

// chunkConfidence reports the best raw similarity across the result set.
// Results arrive ordered by composite score, which re-ranks on more than
// similarity alone, so the maximum has to be searched for.
func chunkConfidence(chunks []*model.ChunkResult) float64 {
	top := 0.0
	for _, c := range chunks {
		if c.Similarity > top {
			top = c.Similarity
		}
	}
	if top > 1 {
		return 1
	}
	return top
}

func pathConfidence(paths []*model.GraphPath) float64 {
	if len(paths) == 0 {
		return 0
	}
	top := paths[0].Relevance
	if top > 1 {
		return 1
	}
	return top
}

func decisionConfidence(decision *model.DecisionPathResult) float64 {
	if decision == nil || len(decision.Evaluations) == 0 {
		return 0
	}
	best := 0.0
	sawOutcome := false
	for _, eval := range decision.Evaluations {
		if eval.Outcome == nil {
			continue
		}
		sawOutcome = true
		confidence := eval.Outcome.Confidence
		if confidence == 0 {
			confidence = 0.8
		}
		if confidence > best {
			best = confidence
		}
	}
	if !sawOutcome {
		return 0.3
	}
	return best
}

func matrixConfidence(matrix *model.MatrixLookupResult) float64 {
	if matrix == nil || len(matrix.Matches) == 0 {
		return 0
	}
	for _, match := range matrix.Matches {
		if match.Exact {
			return 0.9
		}
	}
	return 0.6
}

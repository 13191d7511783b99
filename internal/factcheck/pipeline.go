package factcheck

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yegors/live-facts/pkg/logger"
)

// TypeClassifier decides whether a statement can be fact-checked
type TypeClassifier interface {
	ClassifyCheckable(ctx context.Context, statement, context string) (CheckableType, error)
}

// EvidenceRetriever fetches a short web-grounded note about a statement
type EvidenceRetriever interface {
	RetrieveEvidence(ctx context.Context, statement, context string) (string, error)
}

// VerdictClassifier produces the final accuracy verdict
type VerdictClassifier interface {
	ClassifyVerdict(ctx context.Context, statement, context, additionalInfo string) (Verdict, error)
}

// Checker is what callers of the pipeline depend on
type Checker interface {
	Check(ctx context.Context, req Request) (*Result, error)
}

// Pipeline runs the three-stage classification of one statement
type Pipeline struct {
	classifier TypeClassifier
	retriever  EvidenceRetriever
	verdicts   VerdictClassifier
	timeout    time.Duration
	logger     *logger.Logger
}

// NewPipeline creates a pipeline. timeout bounds each collaborator call; zero
// leaves the caller's context alone.
func NewPipeline(classifier TypeClassifier, retriever EvidenceRetriever, verdicts VerdictClassifier, timeout time.Duration, log *logger.Logger) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		retriever:  retriever,
		verdicts:   verdicts,
		timeout:    timeout,
		logger:     log.Named("factcheck"),
	}
}

// Check classifies one statement. A failed collaborator call aborts the run
// with an *UpstreamError; nothing is retried.
func (p *Pipeline) Check(ctx context.Context, req Request) (*Result, error) {
	statement := strings.TrimSpace(req.Statement)
	if statement == "" {
		return nil, ErrEmptyStatement
	}
	req.Statement = statement
	convo := ContextFor(req)

	start := time.Now()
	log := p.logger.With(logger.String("statement", statement))
	log.Debug("Checking statement", logger.Bool("with_context", convo != ""))

	var checkable CheckableType
	err := p.call(ctx, StageCheckableType, func(ctx context.Context) (err error) {
		checkable, err = p.classifier.ClassifyCheckable(ctx, statement, convo)
		if err == nil && !checkable.Valid() {
			err = fmt.Errorf("unknown checkable type %q", checkable)
		}
		return err
	})
	if err != nil {
		log.Warn("Checkable-type classification failed", logger.Error(err))
		return nil, err
	}

	if checkable == NotCheckable {
		log.Debug("Statement is not checkable")
		return &Result{Type: NonCheckable, Reasoning: NotCheckableReasoning}, nil
	}

	var additionalInfo string
	if checkable == NeedsMoreInfo {
		err := p.call(ctx, StageEvidence, func(ctx context.Context) (err error) {
			additionalInfo, err = p.retriever.RetrieveEvidence(ctx, statement, convo)
			return err
		})
		if err != nil {
			log.Warn("Evidence retrieval failed", logger.Error(err))
			return nil, err
		}
	}

	var verdict Verdict
	err = p.call(ctx, StageVerdict, func(ctx context.Context) (err error) {
		verdict, err = p.verdicts.ClassifyVerdict(ctx, statement, convo, additionalInfo)
		if err == nil {
			switch {
			case !verdict.Accuracy.Valid():
				err = fmt.Errorf("unknown accuracy %q", verdict.Accuracy)
			case strings.TrimSpace(verdict.Reasoning) == "":
				err = fmt.Errorf("verdict has no reasoning")
			}
		}
		return err
	})
	if err != nil {
		log.Warn("Verdict classification failed", logger.Error(err))
		return nil, err
	}

	log.Info("Statement checked",
		logger.String("checkable_type", string(checkable)),
		logger.String("accuracy", string(verdict.Accuracy)),
		logger.Duration("took", time.Since(start)))

	return &Result{
		Type:      Checkable,
		Accuracy:  verdict.Accuracy,
		Reasoning: strings.TrimSpace(verdict.Reasoning),
	}, nil
}

func (p *Pipeline) call(ctx context.Context, stage Stage, fn func(ctx context.Context) error) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := fn(ctx); err != nil {
		return &UpstreamError{Stage: stage, Err: err}
	}
	return nil
}

package factcheck

// CheckableType is the preliminary classification of a statement
type CheckableType string

const (
	NotCheckable         CheckableType = "not-checkable"
	ImmediatelyCheckable CheckableType = "immediately-checkable"
	NeedsMoreInfo        CheckableType = "needs-more-info"
)

// Valid reports whether t is one of the known checkable types
func (t CheckableType) Valid() bool {
	switch t {
	case NotCheckable, ImmediatelyCheckable, NeedsMoreInfo:
		return true
	}
	return false
}

// ResultType says whether a statement was fact-checked at all
type ResultType string

const (
	Checkable    ResultType = "checkable"
	NonCheckable ResultType = "non-checkable"
)

// Accuracy is the final verdict on a checkable statement
type Accuracy string

const (
	AccuracyTrue          Accuracy = "true"
	AccuracyDubious       Accuracy = "dubious"
	AccuracyObviouslyFake Accuracy = "obviously-fake"
)

// Valid reports whether a is one of the known verdicts
func (a Accuracy) Valid() bool {
	switch a {
	case AccuracyTrue, AccuracyDubious, AccuracyObviouslyFake:
		return true
	}
	return false
}

// NotCheckableReasoning is attached to every non-checkable result
const NotCheckableReasoning = "This statement is not a checkable claim"

// Result is the outcome of the classification pipeline for one statement.
// Accuracy is empty exactly when Type is NonCheckable.
type Result struct {
	Type      ResultType `json:"type"`
	Accuracy  Accuracy   `json:"accuracy,omitempty"`
	Reasoning string     `json:"reasoning,omitempty"`
}

// Alert reports whether the result should raise the fake-statement alert
func (r Result) Alert() bool {
	return r.Type == Checkable && r.Accuracy == AccuracyObviouslyFake
}

// Verdict is the reply of the final verdict collaborator
type Verdict struct {
	Accuracy  Accuracy `json:"accuracy"`
	Reasoning string   `json:"reasoning"`
}

// Request asks the pipeline to check one statement. Transcript holds the
// previously finalized statements joined in index order and may be empty.
type Request struct {
	Statement  string `json:"statement"`
	Transcript string `json:"transcript,omitempty"`
}

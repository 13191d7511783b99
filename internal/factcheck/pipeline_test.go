package factcheck

import (
	"context"
	"errors"
	"testing"

	"github.com/yegors/live-facts/pkg/logger"
)

type fakeCollaborators struct {
	checkable    CheckableType
	checkableErr error
	evidence     string
	evidenceErr  error
	verdict      Verdict
	verdictErr   error

	classifyCalls int
	evidenceCalls int
	verdictCalls  int

	gotContext        string
	gotAdditionalInfo string
}

func (f *fakeCollaborators) ClassifyCheckable(_ context.Context, _ string, convo string) (CheckableType, error) {
	f.classifyCalls++
	f.gotContext = convo
	return f.checkable, f.checkableErr
}

func (f *fakeCollaborators) RetrieveEvidence(_ context.Context, _ string, _ string) (string, error) {
	f.evidenceCalls++
	return f.evidence, f.evidenceErr
}

func (f *fakeCollaborators) ClassifyVerdict(_ context.Context, _ string, _ string, info string) (Verdict, error) {
	f.verdictCalls++
	f.gotAdditionalInfo = info
	return f.verdict, f.verdictErr
}

func newTestPipeline(f *fakeCollaborators) *Pipeline {
	return NewPipeline(f, f, f, 0, logger.NewNop())
}

func TestCheck_EarthIsFlat(t *testing.T) {
	f := &fakeCollaborators{
		checkable: ImmediatelyCheckable,
		verdict:   Verdict{Accuracy: AccuracyObviouslyFake, Reasoning: "The Earth is an oblate spheroid."},
	}

	got, err := newTestPipeline(f).Check(context.Background(), Request{Statement: "the earth is flat."})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if got.Type != Checkable || got.Accuracy != AccuracyObviouslyFake {
		t.Errorf("Check() = %+v, want checkable/obviously-fake", got)
	}
	if !got.Alert() {
		t.Error("Alert() = false, want true")
	}
	if f.evidenceCalls != 0 {
		t.Errorf("evidence calls = %d, want 0 for immediately-checkable", f.evidenceCalls)
	}
}

func TestCheck_NotCheckableShortCircuits(t *testing.T) {
	f := &fakeCollaborators{checkable: NotCheckable}

	got, err := newTestPipeline(f).Check(context.Background(), Request{Statement: "How are you?"})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	want := Result{Type: NonCheckable, Reasoning: NotCheckableReasoning}
	if *got != want {
		t.Errorf("Check() = %+v, want %+v", *got, want)
	}
	if f.evidenceCalls != 0 || f.verdictCalls != 0 {
		t.Errorf("downstream calls = %d/%d, want none", f.evidenceCalls, f.verdictCalls)
	}
	if got.Alert() {
		t.Error("Alert() = true for non-checkable result")
	}
}

func TestCheck_NeedsMoreInfoPassesEvidence(t *testing.T) {
	f := &fakeCollaborators{
		checkable: NeedsMoreInfo,
		evidence:  "The statement is true because the filing lists him as an employee.",
		verdict:   Verdict{Accuracy: AccuracyTrue, Reasoning: "Public records confirm it."},
	}

	got, err := newTestPipeline(f).Check(context.Background(), Request{
		Statement:  "He works at Google.",
		Transcript: "My brother Sam is an engineer.",
	})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if got.Accuracy != AccuracyTrue {
		t.Errorf("Accuracy = %q, want %q", got.Accuracy, AccuracyTrue)
	}
	if f.evidenceCalls != 1 {
		t.Errorf("evidence calls = %d, want 1", f.evidenceCalls)
	}
	if f.gotAdditionalInfo != f.evidence {
		t.Errorf("additionalInfo = %q, want %q", f.gotAdditionalInfo, f.evidence)
	}
	if want := "My brother Sam is an engineer. He works at Google."; f.gotContext != want {
		t.Errorf("context = %q, want %q", f.gotContext, want)
	}
}

func TestCheck_SelfContainedStatementGetsNoContext(t *testing.T) {
	f := &fakeCollaborators{
		checkable: ImmediatelyCheckable,
		verdict:   Verdict{Accuracy: AccuracyTrue, Reasoning: "At sea level, yes."},
	}

	_, err := newTestPipeline(f).Check(context.Background(), Request{
		Statement:  "Water freezes at 0°C",
		Transcript: "Some earlier talk.",
	})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if f.gotContext != "" {
		t.Errorf("context = %q, want empty", f.gotContext)
	}
}

func TestCheck_EmptyStatement(t *testing.T) {
	f := &fakeCollaborators{}

	for _, s := range []string{"", "   "} {
		_, err := newTestPipeline(f).Check(context.Background(), Request{Statement: s})
		if !errors.Is(err, ErrEmptyStatement) {
			t.Errorf("Check(%q) error = %v, want ErrEmptyStatement", s, err)
		}
	}
	if f.classifyCalls != 0 {
		t.Errorf("classify calls = %d, want 0", f.classifyCalls)
	}
}

func TestCheck_UpstreamErrors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name  string
		f     *fakeCollaborators
		stage Stage
	}{
		{
			name:  "classifier fails",
			f:     &fakeCollaborators{checkableErr: boom},
			stage: StageCheckableType,
		},
		{
			name:  "classifier returns unknown type",
			f:     &fakeCollaborators{checkable: "maybe"},
			stage: StageCheckableType,
		},
		{
			name:  "evidence fails",
			f:     &fakeCollaborators{checkable: NeedsMoreInfo, evidenceErr: boom},
			stage: StageEvidence,
		},
		{
			name:  "verdict fails",
			f:     &fakeCollaborators{checkable: ImmediatelyCheckable, verdictErr: boom},
			stage: StageVerdict,
		},
		{
			name:  "verdict missing reasoning",
			f:     &fakeCollaborators{checkable: ImmediatelyCheckable, verdict: Verdict{Accuracy: AccuracyTrue}},
			stage: StageVerdict,
		},
		{
			name:  "verdict unknown accuracy",
			f:     &fakeCollaborators{checkable: ImmediatelyCheckable, verdict: Verdict{Accuracy: "sure", Reasoning: "r"}},
			stage: StageVerdict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newTestPipeline(tt.f).Check(context.Background(), Request{Statement: "Paris is in France."})
			if got != nil {
				t.Errorf("Check() result = %+v, want nil", got)
			}
			var upstream *UpstreamError
			if !errors.As(err, &upstream) {
				t.Fatalf("Check() error = %v, want *UpstreamError", err)
			}
			if upstream.Stage != tt.stage {
				t.Errorf("Stage = %q, want %q", upstream.Stage, tt.stage)
			}
		})
	}
}

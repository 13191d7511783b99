package segmenter

import (
	"testing"
	"time"

	"github.com/yegors/live-facts/internal/clock"
	"github.com/yegors/live-facts/pkg/logger"
)

type recorder struct {
	statements []Statement
	speaking   []bool
}

func (r *recorder) StatementFinalized(st Statement) {
	r.statements = append(r.statements, st)
}

func (r *recorder) SpeakingChanged(speaking bool, phrase string) {
	r.speaking = append(r.speaking, speaking)
}

func (r *recorder) texts() []string {
	out := make([]string, len(r.statements))
	for i, st := range r.statements {
		out[i] = st.Text
	}
	return out
}

func newTestSegmenter() (*Segmenter, *recorder, *clock.Fake) {
	clk := clock.NewFake(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	rec := &recorder{}
	seg := New(Config{QuietInterval: DefaultQuietInterval}, clk, nil, rec, logger.NewNop())
	return seg, rec, clk
}

func TestSegmenter_InterimThenFinal(t *testing.T) {
	seg, rec, _ := newTestSegmenter()

	seg.OnFragment(Fragment{Text: "the earth", IsFinal: false})
	if len(rec.statements) != 0 {
		t.Fatalf("interim fragment created %d statements", len(rec.statements))
	}
	if seg.Buffer() != "" {
		t.Fatalf("interim fragment touched buffer: %q", seg.Buffer())
	}
	if !seg.Speaking() {
		t.Error("expected speaking after interim fragment")
	}

	seg.OnFragment(Fragment{Text: "the earth is flat.", IsFinal: true})

	if len(rec.statements) != 1 {
		t.Fatalf("got %d statements, want 1", len(rec.statements))
	}
	got := rec.statements[0]
	if got.Index != 0 || got.Text != "the earth is flat." {
		t.Errorf("statement = %+v, want index 0 text %q", got, "the earth is flat.")
	}
	if seg.Buffer() != "" {
		t.Errorf("buffer = %q, want empty", seg.Buffer())
	}
	if seg.Speaking() {
		t.Error("expected speaking cleared after final fragment")
	}
}

func TestSegmenter_AccumulatesAcrossFinals(t *testing.T) {
	seg, rec, _ := newTestSegmenter()

	seg.OnFragment(Fragment{Text: "Paris is", IsFinal: true})
	seg.OnFragment(Fragment{Text: "the capital of France. And Berlin", IsFinal: true})
	seg.OnFragment(Fragment{Text: "is in Germany. Also", IsFinal: true})

	want := []string{"Paris is the capital of France.", "And Berlin is in Germany."}
	got := rec.texts()
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("statement %d = %q, want %q", i, got[i], want[i])
		}
	}
	if seg.Buffer() != "Also" {
		t.Errorf("buffer = %q, want %q", seg.Buffer(), "Also")
	}
}

func TestSegmenter_IndicesStrictlyIncrease(t *testing.T) {
	seg, rec, clk := newTestSegmenter()

	seg.OnFragment(Fragment{Text: "One. Two. Three", IsFinal: true})
	clk.Advance(DefaultQuietInterval)
	seg.OnFragment(Fragment{Text: "Four! Five?", IsFinal: true})
	seg.Stop()

	if len(rec.statements) != 5 {
		t.Fatalf("got %d statements, want 5: %q", len(rec.statements), rec.texts())
	}
	for i, st := range rec.statements {
		if st.Index != uint64(i) {
			t.Errorf("statement %d has index %d", i, st.Index)
		}
	}
	if seg.NextIndex() != 5 {
		t.Errorf("NextIndex = %d, want 5", seg.NextIndex())
	}
}

func TestSegmenter_SilenceFlush(t *testing.T) {
	seg, rec, clk := newTestSegmenter()

	seg.OnFragment(Fragment{Text: "the moon is made of cheese", IsFinal: true})

	clk.Advance(2999 * time.Millisecond)
	if len(rec.statements) != 0 {
		t.Fatalf("flushed before quiet interval elapsed")
	}

	clk.Advance(time.Millisecond)
	if len(rec.statements) != 1 {
		t.Fatalf("got %d statements after silence, want 1", len(rec.statements))
	}
	if got := rec.statements[0].Text; got != "the moon is made of cheese." {
		t.Errorf("flushed text = %q", got)
	}
	if seg.Buffer() != "" {
		t.Errorf("buffer not cleared: %q", seg.Buffer())
	}
}

func TestSegmenter_FragmentResetsSilenceTimer(t *testing.T) {
	seg, rec, clk := newTestSegmenter()

	seg.OnFragment(Fragment{Text: "I was saying", IsFinal: true})
	clk.Advance(2 * time.Second)
	seg.OnFragment(Fragment{Text: "that", IsFinal: false})
	clk.Advance(2 * time.Second)

	if len(rec.statements) != 0 {
		t.Fatalf("flushed although an interim fragment reset the timer")
	}
	if clk.Pending() != 1 {
		t.Errorf("pending timers = %d, want exactly 1", clk.Pending())
	}

	clk.Advance(time.Second)
	if len(rec.statements) != 1 || rec.statements[0].Text != "I was saying." {
		t.Fatalf("statements = %q", rec.texts())
	}
}

func TestSegmenter_SilenceWithEmptyBufferDoesNothing(t *testing.T) {
	seg, rec, clk := newTestSegmenter()

	seg.OnFragment(Fragment{Text: "Complete sentence.", IsFinal: true})
	clk.Advance(5 * time.Second)

	if len(rec.statements) != 1 {
		t.Fatalf("got %d statements, want 1", len(rec.statements))
	}
	_ = seg
}

func TestSegmenter_StopFlushesOnceAndRejectsLater(t *testing.T) {
	seg, rec, clk := newTestSegmenter()

	seg.OnFragment(Fragment{Text: "unfinished thought", IsFinal: true})
	seg.Stop()
	seg.Stop()
	seg.OnFragment(Fragment{Text: "more words.", IsFinal: true})
	clk.Advance(10 * time.Second)

	if len(rec.statements) != 1 {
		t.Fatalf("got %q, want exactly one flushed statement", rec.texts())
	}
	if rec.statements[0].Text != "unfinished thought." {
		t.Errorf("flushed text = %q", rec.statements[0].Text)
	}
}

func TestSegmenter_PauseKeepsBufferAndResumeRearms(t *testing.T) {
	seg, rec, clk := newTestSegmenter()

	seg.OnFragment(Fragment{Text: "half a", IsFinal: true})
	seg.Pause()
	clk.Advance(10 * time.Second)

	if len(rec.statements) != 0 {
		t.Fatalf("paused segmenter flushed: %q", rec.texts())
	}
	if seg.Buffer() != "half a" {
		t.Fatalf("buffer = %q, want %q", seg.Buffer(), "half a")
	}

	seg.Resume()
	clk.Advance(DefaultQuietInterval)
	if len(rec.statements) != 1 || rec.statements[0].Text != "half a." {
		t.Fatalf("statements after resume = %q", rec.texts())
	}
}

func TestSegmenter_EmptyFragmentDropped(t *testing.T) {
	seg, rec, clk := newTestSegmenter()

	seg.OnFragment(Fragment{Text: "   ", IsFinal: true})
	if clk.Pending() != 0 {
		t.Errorf("empty fragment armed a timer")
	}
	if len(rec.statements) != 0 || seg.Buffer() != "" {
		t.Errorf("empty fragment changed state")
	}
}

package commands

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/yegors/live-facts/internal/clock"
	"github.com/yegors/live-facts/internal/segmenter"
	"github.com/yegors/live-facts/internal/session"
	"github.com/yegors/live-facts/pkg/logger"
)

// timedFragment is a transcript fragment at an offset from the session start
type timedFragment struct {
	segmenter.Fragment
	At time.Duration
}

// replayLine is the JSON form of one replay input line
type replayLine struct {
	Text    string `json:"text"`
	IsFinal *bool  `json:"is_final"`
	AtMs    *int64 `json:"at_ms"`
}

// NewReplayCmd creates the replay command
func NewReplayCmd() *cobra.Command {
	var (
		gap       time.Duration
		splitOnly bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "replay <file|->",
		Short: "Replay a recorded transcript through a session",
		Long: `Replay a recorded transcript through a session on a simulated clock.

Each input line is one fragment. Plain text lines are final fragments spaced
--gap apart. JSON lines may set "is_final" and "at_ms" (offset from the
session start) to reproduce interim results and silences exactly. Silence
flushes and the recording limit apply just as in a live session.`,
		Example: `  # Segment and fact-check a transcript
  livefacts replay debate.txt

  # Only show how the transcript is cut into statements
  livefacts replay debate.txt --split-only --gap 4s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read transcript: %w", err)
			}
			fragments, err := parseFragments(data, gap)
			if err != nil {
				return err
			}

			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			if splitOnly {
				return replaySplit(cmd.OutOrStdout(), fragments, cfg.QuietInterval(), log)
			}

			checker, err := newChecker(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}

			clk := clock.NewFake(time.Now())
			manager := session.NewManager(cmd.Context(), session.Config{
				QuietInterval:     cfg.QuietInterval(),
				HardCap:           cfg.HardCap(),
				KeepAliveInterval: cfg.KeepAliveInterval(),
				CheckTimeout:      cfg.CheckTimeout(),
			}, session.Deps{Clock: clk, Checker: checker}, nil, log)
			defer manager.Close()

			c, err := manager.Start()
			if err != nil {
				return err
			}
			if err := replaySession(c, clk, fragments, cfg.QuietInterval()); err != nil {
				return err
			}
			c.Wait()

			return printStatements(cmd.OutOrStdout(), c.Statements(), asJSON)
		},
	}

	cmd.Flags().DurationVar(&gap, "gap", 500*time.Millisecond, "Time between plain text fragments")
	cmd.Flags().BoolVar(&splitOnly, "split-only", false, "Only segment the transcript, without fact-checking")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print statements as JSON")

	return cmd
}

// parseFragments reads one fragment per non-empty line
func parseFragments(data []byte, gap time.Duration) ([]timedFragment, error) {
	var fragments []timedFragment
	var at time.Duration

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		f := timedFragment{At: at}
		if strings.HasPrefix(line, "{") {
			var parsed replayLine
			if err := json.Unmarshal([]byte(line), &parsed); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			f.Text = parsed.Text
			f.IsFinal = parsed.IsFinal == nil || *parsed.IsFinal
			if parsed.AtMs != nil {
				f.At = time.Duration(*parsed.AtMs) * time.Millisecond
			}
		} else {
			f.Text = line
			f.IsFinal = true
		}

		if f.At < at {
			return nil, fmt.Errorf("line %d: at_ms goes backwards", lineNo)
		}
		fragments = append(fragments, f)
		at = f.At + gap
	}

	return fragments, scanner.Err()
}

// replaySession feeds fragments into c on the fake clock, then lets the
// transcript go quiet and stops the session
func replaySession(c *session.Controller, clk *clock.Fake, fragments []timedFragment, quiet time.Duration) error {
	var elapsed time.Duration
	for _, f := range fragments {
		clk.Advance(f.At - elapsed)
		elapsed = f.At

		if err := c.Fragment(f.Fragment); err != nil {
			if errors.Is(err, session.ErrSessionEnded) {
				break
			}
			return err
		}
	}

	clk.Advance(quiet)
	return c.Stop()
}

// replaySplit runs the segmenter alone and prints each statement
func replaySplit(w io.Writer, fragments []timedFragment, quiet time.Duration, log *logger.Logger) error {
	clk := clock.NewFake(time.Now())
	printer := &statementPrinter{w: w}
	seg := segmenter.New(segmenter.Config{QuietInterval: quiet}, clk, nil, printer, log)

	var elapsed time.Duration
	for _, f := range fragments {
		clk.Advance(f.At - elapsed)
		elapsed = f.At
		seg.OnFragment(f.Fragment)
	}
	clk.Advance(quiet)
	seg.Stop()

	return printer.err
}

type statementPrinter struct {
	w   io.Writer
	err error
}

func (p *statementPrinter) StatementFinalized(st segmenter.Statement) {
	if p.err == nil {
		_, p.err = fmt.Fprintf(p.w, "[%d] %s\n", st.Index, st.Text)
	}
}

func (p *statementPrinter) SpeakingChanged(bool, string) {}

func printStatements(w io.Writer, statements []session.Statement, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(statements)
	}

	for _, st := range statements {
		if _, err := fmt.Fprintf(w, "[%d] %s\n", st.Index, formatResult(st.Text, st.Result)); err != nil {
			return err
		}
	}
	return nil
}

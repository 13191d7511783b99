package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yegors/live-facts/internal/factcheck"
)

// NewCheckCmd creates the check command
func NewCheckCmd() *cobra.Command {
	var (
		transcript string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "check <statement>",
		Short: "Fact-check a single statement",
		Long: `Fact-check a single statement and print the result.

The statement goes through the same pipeline a live session uses: a
checkable-type call, optional web-grounded evidence retrieval, then a verdict.`,
		Example: `  livefacts check "The earth is flat."
  livefacts check "He works at Google." --transcript "Let me introduce Sundar Pichai."`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			checker, err := newChecker(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}

			req := factcheck.Request{
				Statement:  strings.Join(args, " "),
				Transcript: transcript,
			}
			result, err := checker.Check(cmd.Context(), req)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"statement": req.Statement,
					"type":      result.Type,
					"accuracy":  result.Accuracy,
					"reasoning": result.Reasoning,
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), formatResult(req.Statement, result))
			return nil
		},
	}

	cmd.Flags().StringVarP(&transcript, "transcript", "t", "", "Preceding transcript, used to resolve pronouns")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

// formatResult renders one statement and its result on a line
func formatResult(statement string, result *factcheck.Result) string {
	if result == nil {
		return fmt.Sprintf("%s\n  pending", statement)
	}
	if result.Type == factcheck.NonCheckable {
		return fmt.Sprintf("%s\n  not checkable", statement)
	}

	marker := ""
	if result.Alert() {
		marker = " [ALERT]"
	}
	return fmt.Sprintf("%s\n  %s%s: %s", statement, result.Accuracy, marker, result.Reasoning)
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/Reflex-Gravity/BarqAdl/internal/pipeline"
)

var (
	showProgress bool
	rawOutput    bool
	wordWrap     int
)

var askCmd = &cobra.Command{
	Use:   "ask <query>",
	Short: "Answer a legal question",
	Long: `Run a query through classification, generation, judging and formatting.

The formatted answer is rendered as markdown, followed by the judge's scores.
Learning signals are persisted exactly as for API requests.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVarP(&showProgress, "progress", "p", false, "Print pipeline progress to stderr")
	askCmd.Flags().BoolVar(&rawOutput, "raw", false, "Print the answer without markdown rendering")
	askCmd.Flags().IntVar(&wordWrap, "wrap", 100, "Word wrap width for rendered output")
}

func runAsk(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	return withSession(cmd, func(ctx context.Context, s *session) error {
		var opts []pipeline.Option
		if showProgress {
			opts = append(opts, pipeline.WithProgress(func(ev pipeline.Event) {
				fmt.Fprintf(os.Stderr, "[%s] %s\n", ev.Stage, ev.Message)
			}))
		}

		res, err := s.domain.Pipeline.Run(ctx, pipeline.Request{Query: query}, opts...)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, render(res.Answer))
		fmt.Fprintln(out, evaluationLine(res))
		return nil
	})
}

func render(markdown string) string {
	if rawOutput {
		return markdown
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}

func evaluationLine(res *pipeline.Result) string {
	sc := res.Evaluation.Scores
	status := "pass"
	if !res.Evaluation.Pass {
		status = "below threshold"
	}
	return fmt.Sprintf(
		"score %d/40 (%s) accuracy=%d completeness=%d actionability=%d citations=%d retries=%d agents=%s trace=%s",
		sc.Total, status, sc.LegalAccuracy, sc.Completeness, sc.Actionability, sc.CitationQuality,
		res.Evaluation.RetryCount, strings.Join(res.DomainsUsed, ","), res.TraceID,
	)
}

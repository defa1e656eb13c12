package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Reflex-Gravity/BarqAdl/internal/registry"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List spawned domain agents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			listing := registry.Status(s.domain.Registry.List())

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DOMAIN\tSKILLS\tAVG SCORE\tQUERIES\tCREATED")
			for _, a := range listing.Agents {
				fmt.Fprintf(w, "%s\t%d\t%.2f\t%d\t%s\n",
					a.Domain, a.SkillCount, a.AvgScore, a.QueryCount, a.CreatedAt.Format("2006-01-02 15:04"))
			}
			fmt.Fprintf(w, "\n%d agents\n", listing.TotalAgents)
			return w.Flush()
		})
	},
}

var strategiesCmd = &cobra.Command{
	Use:   "strategies [domain]",
	Short: "Show strategy version histories",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			if len(args) == 1 {
				h, err := s.domain.Strategies.Get(args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), h)
			}
			return printJSON(cmd.OutOrStdout(), s.domain.Strategies.All())
		})
	},
}

var timelineFlag bool

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show improvement metrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			if timelineFlag {
				t, err := s.domain.Metrics.Timeline(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), t)
			}
			r, err := s.domain.Metrics.Report(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), r)
		})
	},
}

func init() {
	metricsCmd.Flags().BoolVar(&timelineFlag, "timeline", false, "Show the learning timeline instead of the summary report")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/bizrank/review-service/internal/types"
)

var (
	rankCategory string
	rankCity     string
	rankLimit    int
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Calculate and inspect rankings",
}

var rankCalcCmd = &cobra.Command{
	Use:   "calc <business-id>",
	Short: "Recalculate one business and detect its achievements",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		r, err := svc.Rankings.CalculateRanking(ctx, args[0])
		if err != nil {
			return err
		}
		detection, err := svc.Achievements.Detect(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{"ranking": r, "achievements": detection})
	},
}

var rankRerankCmd = &cobra.Command{
	Use:   "rerank",
	Short: "Reassign positions in one cohort, or in every cohort",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if rankCategory != "" && rankCity != "" {
			rows, err := svc.Rankings.RerankCohort(ctx, rankCategory, rankCity)
			if err != nil {
				return err
			}
			return printJSON(cmd, rows)
		}
		n, err := svc.Rankings.RerankAll(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]int{"cohorts": n})
	},
}

var rankListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rankings, best first",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := svc.Rankings.List(cmd.Context(), types.RankingFilter{
			CategoryID: rankCategory,
			City:       rankCity,
			Limit:      rankLimit,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, rows)
	},
}

func init() {
	for _, c := range []*cobra.Command{rankRerankCmd, rankListCmd} {
		c.Flags().StringVar(&rankCategory, "category", "", "category id")
		c.Flags().StringVar(&rankCity, "city", "", "city")
	}
	rankListCmd.Flags().IntVar(&rankLimit, "limit", 50, "maximum rows")

	rankCmd.AddCommand(rankCalcCmd, rankRerankCmd, rankListCmd)
}

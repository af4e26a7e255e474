package main

import (
	"github.com/spf13/cobra"
)

var queueDrain bool

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and drain the processing queue",
}

var queueStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show task counts per lane and status",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := svc.Tasks.Stats(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, stats)
	},
}

var queueProcessCmd = &cobra.Command{
	Use:   "process",
	Short: "Poll every lane once, or until empty with --drain",
	RunE: func(cmd *cobra.Command, args []string) error {
		total := 0
		for {
			ran, err := svc.Worker.ProcessOnce(cmd.Context())
			total += ran
			if err != nil {
				return err
			}
			if !queueDrain || ran == 0 {
				break
			}
		}
		logger.Info().Int("tasks", total).Msg("Queue processed")
		return printJSON(cmd, map[string]int{"processed": total})
	},
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List or run scheduled jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd, svc.Scheduler.Status())
	},
}

var jobsRunCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Run a job now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.Scheduler.Run(cmd.Context(), args[0])
		if res != nil {
			if perr := printJSON(cmd, res); perr != nil {
				return perr
			}
		}
		return err
	},
}

func init() {
	queueProcessCmd.Flags().BoolVar(&queueDrain, "drain", false, "repeat until no lane has work")

	queueCmd.AddCommand(queueStatsCmd, queueProcessCmd)
	jobsCmd.AddCommand(jobsListCmd, jobsRunCmd)
}

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/kudibooks/kudibooks/jobs"
)

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Trigger and inspect background jobs",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:       "trigger <name>",
			Short:     "Enqueue a job with its default payload",
			Args:      cobra.ExactArgs(1),
			ValidArgs: jobs.Triggerable(),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, logger, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				client := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, logger)
				defer func() { _ = client.Close() }()

				info, err := client.Trigger(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
				return nil
			},
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Show queue depth per queue",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, _, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
				defer func() { _ = inspector.Close() }()

				names, err := inspector.Queues()
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tARCHIVED")
				for _, name := range names {
					info, err := inspector.GetQueueInfo(name)
					if err != nil {
						return err
					}
					fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n", info.Queue, info.Pending, info.Active, info.Scheduled, info.Retry, info.Archived)
				}
				return w.Flush()
			},
		},
	)
	return cmd
}

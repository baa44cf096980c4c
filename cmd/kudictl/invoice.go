package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newInvoiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Invoice maintenance",
	}
	var (
		id    int64
		async bool
	)
	recompute := &cobra.Command{
		Use:   "recompute",
		Short: "Re-derive stored totals, dues and statuses",
		Long:  "Re-derive stored totals, dues and statuses of one invoice (--id) or all of them. Invoices whose figures already match are left untouched.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if id < 0 {
				return errors.New("--id must not be negative")
			}
			rt, err := openRuntime(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer rt.Close()
			out := cmd.OutOrStdout()

			if async {
				info, err := rt.jobs.EnqueueRecompute(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "enqueued %s as %s\n", info.Type, info.ID)
				return nil
			}
			if id > 0 {
				changed, err := rt.services.Invoices.Recalculate(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "invoice %d: changed=%t\n", id, changed)
				return nil
			}
			checked, changed, err := rt.services.Invoices.RecalculateAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "checked %d invoices, repaired %d\n", checked, changed)
			return nil
		},
	}
	recompute.Flags().Int64Var(&id, "id", 0, "recompute only this invoice")
	recompute.Flags().BoolVar(&async, "async", false, "enqueue the work for the worker instead of running it here")
	cmd.AddCommand(recompute)
	return cmd
}

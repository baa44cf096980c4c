package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kudibooks/kudibooks/internal/sequence"
)

func newCodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "code",
		Short: "Inspect document code sequences",
	}
	next := &cobra.Command{
		Use:       "next <customer|product|invoice|expense>",
		Short:     "Allocate and print the next code of a kind",
		Long:      "Allocate and print the next code of a kind. The counter advances even if the code is never used.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: kindNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := sequence.ParseKind(args[0])
			if err != nil {
				return err
			}
			rt, err := openRuntime(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			scope, err := rt.services.Scope(cmd.Context(), kind)
			if err != nil {
				return err
			}
			code, err := rt.services.Codes.Generate(cmd.Context(), scope)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), code)
			return nil
		},
	}
	cmd.AddCommand(next)
	return cmd
}

func kindNames() []string {
	kinds := sequence.Kinds()
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, string(k))
	}
	return out
}

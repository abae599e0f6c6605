// Command oracled operates a pool of flight status oracles against an
// in-process ledger and reports how the requests were settled.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:           "oracled",
		Short:         "Runs a pool of flight status oracles",
		Args:          cobra.NoArgs,
		RunE:          runFunc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	AddFlags(c.Flags())
	return c
}

func runFunc(c *cobra.Command, args []string) error {
	config, err := ParseFlags(c.Flags(), args)
	if err != nil {
		return err
	}
	return run(c.Context(), config, c.OutOrStdout())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Command().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "oracled: %v\n", err)
		stop()
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <text>",
	Short: "Replace [mentions] with entity identifiers",
	Example: `  gosquit resolve "ASK { [Barack Obama] wdt:P26 ?end . }"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	engine, err := openEngine(cmd, nil)
	if err != nil {
		return err
	}
	defer engine.Close()

	text, failed := engine.ResolveText(strings.Join(args, " "))
	fmt.Fprintln(cmd.OutOrStdout(), text)
	for _, u := range failed {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: [%s] not resolved: %s\n", u.Mention, u.Reason)
	}
	return nil
}

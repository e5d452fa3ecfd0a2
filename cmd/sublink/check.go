package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/provolone8305/sublink-worker/internal/compiler"
	"github.com/provolone8305/sublink-worker/internal/document"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE",
		Short: "Verify the references of a generated Clash configuration",
		Long: `check decodes a Clash configuration (rules and rule providers included)
and verifies that every group member, rule target and RULE-SET provider it
references exists, that groups do not reference each other in a cycle, and
that a single MATCH rule closes the rule list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			doc, err := document.Decode(text)
			if err != nil {
				return err
			}
			if err := compiler.Verify(doc, compiler.Expect{}); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "ok: %d proxies, %d groups, %d rules\n",
				len(doc.Proxies), len(doc.Groups), len(doc.Rules))
			return err
		},
	}
}

// This file implements the tools listing command: show the tool
// catalogue as seen from a given subscription tier.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chatnerd/internal/tier"
	"chatnerd/internal/tools"
)

func toolsCmd() *cobra.Command {
	var tierName string
	var all bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tool catalogue visible to a tier",
		Long: `List the built-in tools a user on the given tier may invoke.

With --all the full catalogue is shown, marking tools the tier cannot
access instead of hiding them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, ok := tier.Parse(tierName)
			if !ok {
				return fmt.Errorf("unknown tier %q (want free or plus)", tierName)
			}

			registry, err := tools.NewRegistry(tools.BuiltinCatalogue()...)
			if err != nil {
				return err
			}

			var list []tools.Descriptor
			if all {
				list = registry.Available(tier.Plus)
			} else {
				list = registry.Available(t)
			}

			fmt.Printf("Tools for tier %q\n", t)
			fmt.Println(strings.Repeat("─", 50))
			for _, d := range list {
				marker := "  "
				if !t.AtLeast(d.MinTier) {
					marker = "✗ "
				}
				fmt.Printf("%s%-14s %s (min tier: %s)\n", marker, d.ID, d.Description, d.MinTier)
			}
			fmt.Println(strings.Repeat("─", 50))
			fmt.Printf("Total: %d tools\n", len(list))
			return nil
		},
	}

	cmd.Flags().StringVar(&tierName, "tier", "free", "subscription tier to view the catalogue as")
	cmd.Flags().BoolVar(&all, "all", false, "show tools above the tier instead of hiding them")
	return cmd
}

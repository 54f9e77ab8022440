// This file implements the usage command: show a user's sandbox quota
// consumption for the current UTC day.
package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"chatnerd/internal/tier"
)

func usageCmd() *cobra.Command {
	var userID string
	var tierName string

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show a user's sandbox usage for today",
		Long: `Show how many sandbox execution units a user has consumed today,
how many remain, and when the daily counter resets (UTC midnight).

Without a Redis address in the config this reads the in-memory store,
which is empty in a fresh process; point it at the shared Redis to see
real numbers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, ok := tier.Parse(tierName)
			if !ok {
				return fmt.Errorf("unknown tier %q (want free or plus)", tierName)
			}

			c, err := buildCore(cfg, t)
			if err != nil {
				return err
			}

			stats, err := c.quota.Stats(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("failed to read usage: %w", err)
			}

			fmt.Printf("Sandbox usage for %q\n", userID)
			fmt.Println(strings.Repeat("─", 50))
			fmt.Printf("  Used today:  %d\n", stats.TodayUsage)
			fmt.Printf("  Daily limit: %d\n", stats.DailyLimit)
			fmt.Printf("  Remaining:   %d\n", stats.RemainingToday)
			fmt.Printf("  Resets at:   %s (in %s)\n",
				stats.ResetsAt.Format(time.RFC3339),
				time.Until(stats.ResetsAt).Round(time.Minute))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "local", "user ID to inspect")
	cmd.Flags().StringVar(&tierName, "tier", "free", "subscription tier of the user")
	return cmd
}

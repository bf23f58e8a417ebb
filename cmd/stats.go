package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/visita/internal/output"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show collection counts and weekly visit activity",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := newClient().GetStats(cmd.Context())
		if err != nil {
			return err
		}
		if statsJSON {
			return output.JSON(stats)
		}
		fmt.Printf("Stores:            %d\n", stats.Stores)
		fmt.Printf("Regions:           %d\n", stats.Regions)
		fmt.Printf("Products:          %d\n", stats.Products)
		fmt.Printf("Orders:            %d\n", stats.Orders)
		fmt.Printf("Pending visits:    %d\n", stats.PendingVisits)
		fmt.Printf("Visit logs:        %d\n", stats.VisitLogs)
		fmt.Printf("Visited this week: %d\n", stats.VisitedThisWeek)
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output JSON")
	rootCmd.AddCommand(statsCmd)
}

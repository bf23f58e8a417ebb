package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marcus/visita/internal/models"
	"github.com/marcus/visita/internal/output"
)

var visitPhone bool

var visitCmd = &cobra.Command{
	Use:     "visit",
	Short:   "Record and clear store visits",
	GroupID: "stores",
}

var visitLogCmd = &cobra.Command{
	Use:   "log <store-id>",
	Short: "Mark a store visited now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid store id %q", args[0])
		}
		log, err := newClient().LogVisit(cmd.Context(), id, visitTypeFlag())
		if err != nil {
			return err
		}
		output.Success("logged %s visit to store #%d at %s", log.VisitType, id, log.VisitedAt.Format("15:04"))
		return nil
	},
}

var visitClearCmd = &cobra.Command{
	Use:   "clear <store-id>",
	Short: "Revert a store to unvisited",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid store id %q", args[0])
		}
		if err := newClient().ClearVisit(cmd.Context(), id, visitTypeFlag()); err != nil {
			return err
		}
		output.Success("cleared visit on store #%d", id)
		return nil
	},
}

var visitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the visited flag on every store",
	Long: `Clears the daily visited flag on all stores, typically at the start of a
new field day. Visit history is kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().ResetVisited(cmd.Context()); err != nil {
			return err
		}
		output.Success("visited flags reset")
		return nil
	},
}

func visitTypeFlag() models.VisitType {
	if visitPhone {
		return models.VisitPhone
	}
	return models.VisitPhysical
}

func init() {
	visitLogCmd.Flags().BoolVar(&visitPhone, "phone", false, "record a phone contact instead of a physical visit")
	visitClearCmd.Flags().BoolVar(&visitPhone, "phone", false, "clear a phone contact instead of a physical visit")

	visitCmd.AddCommand(visitLogCmd, visitClearCmd, visitResetCmd)
	rootCmd.AddCommand(visitCmd)
}

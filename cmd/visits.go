package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marcus/visita/internal/models"
	"github.com/marcus/visita/internal/output"
)

var (
	visitsJSON bool
	visitTime  string
	visitNote  string
	visitStore int64
)

var visitsCmd = &cobra.Command{
	Use:     "visits",
	Short:   "Manage scheduled appointments",
	GroupID: "planning",
}

var visitsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled appointments",
	RunE: func(cmd *cobra.Command, args []string) error {
		visits, err := newClient().ListVisits(cmd.Context())
		if err != nil {
			return err
		}
		if visitsJSON {
			return output.JSON(visits)
		}
		if len(visits) == 0 {
			output.Info("no appointments scheduled")
			return nil
		}
		for i := range visits {
			fmt.Println(output.FormatVisit(&visits[i]))
		}
		return nil
	},
}

var visitsAddCmd = &cobra.Command{
	Use:   "add <date>",
	Short: "Schedule an appointment (date as YYYY-MM-DD)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if visitStore == 0 {
			return fmt.Errorf("--store is required")
		}
		visit := models.Visit{
			StoreID:   visitStore,
			VisitDate: args[0],
			VisitTime: visitTime,
			Note:      visitNote,
			Status:    models.VisitPending,
		}
		saved, err := newClient().UpsertVisit(cmd.Context(), visit)
		if err != nil {
			return err
		}
		output.Success("scheduled visit #%d for %s", saved.ID, saved.VisitDate)
		return nil
	},
}

var visitsDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark an appointment done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid visit id %q", args[0])
		}
		if err := newClient().UpdateVisitStatus(cmd.Context(), id, models.VisitDone); err != nil {
			return err
		}
		output.Success("visit #%d done", id)
		return nil
	},
}

var visitsRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete an appointment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid visit id %q", args[0])
		}
		if err := newClient().DeleteVisit(cmd.Context(), id); err != nil {
			return err
		}
		output.Success("deleted visit #%d", id)
		return nil
	},
}

func init() {
	visitsListCmd.Flags().BoolVar(&visitsJSON, "json", false, "output JSON")

	visitsAddCmd.Flags().Int64Var(&visitStore, "store", 0, "store id (required)")
	visitsAddCmd.Flags().StringVar(&visitTime, "time", "", "time of day, e.g. 14:30")
	visitsAddCmd.Flags().StringVar(&visitNote, "note", "", "free-form note")

	visitsCmd.AddCommand(visitsListCmd, visitsAddCmd, visitsDoneCmd, visitsRmCmd)
	rootCmd.AddCommand(visitsCmd)
}

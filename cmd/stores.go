package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus/visita/internal/config"
	"github.com/marcus/visita/internal/models"
	"github.com/marcus/visita/internal/output"
	"github.com/marcus/visita/internal/storelist"
)

var (
	storesRegion      string
	storesProb        string
	storesVisitStatus string
	storesWeekday     string
	storesAll         bool
	storesJSON        bool
	storesPageSize    int
)

var storesCmd = &cobra.Command{
	Use:     "stores",
	Short:   "Manage sales-target stores",
	GroupID: "stores",
}

var storesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stores page by page",
	RunE: func(cmd *cobra.Command, args []string) error {
		filters := models.StoreFilters{
			Region:       storesRegion,
			PurchaseProb: storesProb,
			VisitStatus:  storesVisitStatus,
			Weekday:      storesWeekday,
		}

		pageSize := storesPageSize
		if pageSize <= 0 {
			pageSize = config.PageSize()
		}

		list := storelist.New(newClient(), pageSize)
		ctx := cmd.Context()

		for {
			n, err := list.LoadNextPage(ctx, filters)
			if err != nil {
				return err
			}
			if n == 0 && list.Len() == 0 {
				output.Info("no stores found")
				return nil
			}
			if !storesAll || !list.HasMore() {
				break
			}
		}

		stores := list.Stores()
		if storesJSON {
			return output.JSON(stores)
		}

		now := time.Now()
		for i := range stores {
			fmt.Println(output.FormatStoreShort(&stores[i], now))
		}
		if list.HasMore() {
			output.Info("")
			output.Info("%d shown, more available (use --all or a larger --page-size)", list.Len())
		}
		return nil
	},
}

var storesSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search stores by name, seller, phone or address",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		list := storelist.New(newClient(), config.PageSize())
		n, err := list.Search(cmd.Context(), query, models.StoreFilters{})
		if err != nil {
			return err
		}
		if n == 0 {
			output.Info("no stores match %q", query)
			return nil
		}

		stores := list.Stores()
		if storesJSON {
			return output.JSON(stores)
		}
		now := time.Now()
		for i := range stores {
			fmt.Println(output.FormatStoreShort(&stores[i], now))
		}
		return nil
	},
}

var storesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one store with orders and visit history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid store id %q", args[0])
		}
		store, err := newClient().GetStore(cmd.Context(), id)
		if err != nil {
			return err
		}
		if storesJSON {
			return output.JSON(store)
		}
		fmt.Println(output.FormatStoreLong(store, time.Now(), output.TerminalWidth(80)))
		return nil
	},
}

var (
	storeName        string
	storeSeller      string
	storeAddress     string
	storePhone       string
	storeDescription string
	storeIdealTime   string
	storeVisitDays   []int
)

var storesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create or update a store",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := models.Store{
			Name:         strings.Join(args, " "),
			Region:       storesRegion,
			SellerName:   storeSeller,
			Address:      storeAddress,
			Phone:        storePhone,
			Description:  storeDescription,
			VisitDays:    storeVisitDays,
			IdealTime:    models.ParseIdealTime(storeIdealTime),
			PurchaseProb: models.ParsePurchaseProb(storesProb),
		}
		saved, err := newClient().UpsertStore(cmd.Context(), store)
		if err != nil {
			return err
		}
		output.Success("created store #%d %s", saved.ID, saved.Name)
		return nil
	},
}

var storesRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a store and its orders and visit history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid store id %q", args[0])
		}
		if err := newClient().DeleteStore(cmd.Context(), id); err != nil {
			return err
		}
		output.Success("deleted store #%d", id)
		return nil
	},
}

func init() {
	storesListCmd.Flags().StringVar(&storesRegion, "region", "", "filter by region (or \"all\")")
	storesListCmd.Flags().StringVar(&storesProb, "prob", "", "filter by purchase probability: high|low")
	storesListCmd.Flags().StringVar(&storesVisitStatus, "visit-status", "", "filter: visited|not_visited (last 7 days)")
	storesListCmd.Flags().StringVar(&storesWeekday, "weekday", "", "filter by visit day: 0-6 or \"today\"")
	storesListCmd.Flags().BoolVar(&storesAll, "all", false, "load every page")
	storesListCmd.Flags().IntVar(&storesPageSize, "page-size", 0, "stores per page")
	storesListCmd.Flags().BoolVar(&storesJSON, "json", false, "output JSON")

	storesSearchCmd.Flags().BoolVar(&storesJSON, "json", false, "output JSON")
	storesShowCmd.Flags().BoolVar(&storesJSON, "json", false, "output JSON")

	storesAddCmd.Flags().StringVar(&storesRegion, "region", "", "region name")
	storesAddCmd.Flags().StringVar(&storeSeller, "seller", "", "seller name")
	storesAddCmd.Flags().StringVar(&storeAddress, "address", "", "street address")
	storesAddCmd.Flags().StringVar(&storePhone, "phone", "", "phone number")
	storesAddCmd.Flags().StringVar(&storeDescription, "notes", "", "free-form notes")
	storesAddCmd.Flags().StringVar(&storeIdealTime, "ideal-time", "morning", "ideal visit time: morning|noon|night")
	storesAddCmd.Flags().StringVar(&storesProb, "prob", "low", "purchase probability: high|low")
	storesAddCmd.Flags().IntSliceVar(&storeVisitDays, "days", nil, "visit weekdays, 0=Sunday")

	storesCmd.AddCommand(storesListCmd, storesSearchCmd, storesShowCmd, storesAddCmd, storesRmCmd)
	rootCmd.AddCommand(storesCmd)
}

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marcus/visita/internal/models"
	"github.com/marcus/visita/internal/output"
)

var catalogJSON bool

var regionsCmd = &cobra.Command{
	Use:     "regions",
	Short:   "Manage the region catalog",
	GroupID: "planning",
}

var regionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List regions",
	RunE: func(cmd *cobra.Command, args []string) error {
		regions, err := newClient().ListRegions(cmd.Context())
		if err != nil {
			return err
		}
		if catalogJSON {
			return output.JSON(regions)
		}
		for _, r := range regions {
			fmt.Printf("#%d  %s\n", r.ID, r.Name)
		}
		return nil
	},
}

var regionsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a region",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		saved, err := newClient().UpsertRegion(cmd.Context(), models.Region{Name: strings.Join(args, " ")})
		if err != nil {
			return err
		}
		output.Success("added region #%d %s", saved.ID, saved.Name)
		return nil
	},
}

var regionsRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a region",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid region id %q", args[0])
		}
		if err := newClient().DeleteRegion(cmd.Context(), id); err != nil {
			return err
		}
		output.Success("deleted region #%d", id)
		return nil
	},
}

var productsCmd = &cobra.Command{
	Use:     "products",
	Short:   "Manage the product catalog",
	GroupID: "planning",
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products",
	RunE: func(cmd *cobra.Command, args []string) error {
		products, err := newClient().ListProducts(cmd.Context())
		if err != nil {
			return err
		}
		if catalogJSON {
			return output.JSON(products)
		}
		for _, p := range products {
			fmt.Printf("#%d  %s\n", p.ID, p.Name)
		}
		return nil
	},
}

var productsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a product",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		saved, err := newClient().UpsertProduct(cmd.Context(), models.Product{Name: strings.Join(args, " ")})
		if err != nil {
			return err
		}
		output.Success("added product #%d %s", saved.ID, saved.Name)
		return nil
	},
}

var productsRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid product id %q", args[0])
		}
		if err := newClient().DeleteProduct(cmd.Context(), id); err != nil {
			return err
		}
		output.Success("deleted product #%d", id)
		return nil
	},
}

func init() {
	regionsListCmd.Flags().BoolVar(&catalogJSON, "json", false, "output JSON")
	productsListCmd.Flags().BoolVar(&catalogJSON, "json", false, "output JSON")

	regionsCmd.AddCommand(regionsListCmd, regionsAddCmd, regionsRmCmd)
	productsCmd.AddCommand(productsListCmd, productsAddCmd, productsRmCmd)
	rootCmd.AddCommand(regionsCmd, productsCmd)
}

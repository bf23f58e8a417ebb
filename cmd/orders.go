package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus/visita/internal/models"
	"github.com/marcus/visita/internal/output"
)

var (
	ordersJSON bool
	orderStore int64
	orderText  string
	orderItems []string
)

var ordersCmd = &cobra.Command{
	Use:     "orders",
	Short:   "Manage store orders",
	GroupID: "planning",
}

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List orders, optionally for one store",
	RunE: func(cmd *cobra.Command, args []string) error {
		orders, err := newClient().ListOrders(cmd.Context())
		if err != nil {
			return err
		}
		if orderStore != 0 {
			filtered := orders[:0]
			for _, o := range orders {
				if o.StoreID == orderStore {
					filtered = append(filtered, o)
				}
			}
			orders = filtered
		}
		if ordersJSON {
			return output.JSON(orders)
		}
		if len(orders) == 0 {
			output.Info("no orders")
			return nil
		}
		for _, o := range orders {
			line := fmt.Sprintf("#%d  store #%d  [%s]", o.ID, o.StoreID, o.Date)
			for _, item := range o.Items {
				line += fmt.Sprintf("  %s x%d", item.ProductName, item.Count)
			}
			if o.Text != "" {
				line += "  " + o.Text
			}
			fmt.Println(line)
		}
		return nil
	},
}

var ordersAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record an order against a store",
	Long: `Records an order. Items are given as product:count pairs, matched against
the product catalog by name:

  visita orders add --store 3 --item "Espresso Blend:12" --item "Filter Roast:6"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if orderStore == 0 {
			return fmt.Errorf("--store is required")
		}
		client := newClient()

		var items []models.OrderItem
		if len(orderItems) > 0 {
			products, err := client.ListProducts(cmd.Context())
			if err != nil {
				return err
			}
			byName := make(map[string]models.Product, len(products))
			for _, p := range products {
				byName[strings.ToLower(p.Name)] = p
			}
			for _, spec := range orderItems {
				item, err := parseOrderItem(spec, byName)
				if err != nil {
					return err
				}
				items = append(items, item)
			}
		}

		order := models.Order{
			StoreID: orderStore,
			Date:    time.Now().Format("2006-01-02"),
			Text:    orderText,
			Items:   items,
		}
		saved, err := client.UpsertOrder(cmd.Context(), order)
		if err != nil {
			return err
		}
		output.Success("recorded order #%d for store #%d", saved.ID, saved.StoreID)
		return nil
	},
}

// parseOrderItem parses "product name:count" against the catalog. The
// product name is denormalized into the item so the order stays readable
// after catalog edits.
func parseOrderItem(spec string, byName map[string]models.Product) (models.OrderItem, error) {
	idx := strings.LastIndex(spec, ":")
	if idx <= 0 {
		return models.OrderItem{}, fmt.Errorf("invalid item %q, want product:count", spec)
	}
	name := strings.TrimSpace(spec[:idx])
	count, err := strconv.Atoi(strings.TrimSpace(spec[idx+1:]))
	if err != nil || count <= 0 {
		return models.OrderItem{}, fmt.Errorf("invalid count in item %q", spec)
	}
	product, ok := byName[strings.ToLower(name)]
	if !ok {
		return models.OrderItem{}, fmt.Errorf("unknown product %q", name)
	}
	return models.OrderItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Count:       count,
	}, nil
}

var ordersRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete an order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid order id %q", args[0])
		}
		if err := newClient().DeleteOrder(cmd.Context(), id); err != nil {
			return err
		}
		output.Success("deleted order #%d", id)
		return nil
	},
}

func init() {
	ordersListCmd.Flags().BoolVar(&ordersJSON, "json", false, "output JSON")
	ordersListCmd.Flags().Int64Var(&orderStore, "store", 0, "only orders for this store")

	ordersAddCmd.Flags().Int64Var(&orderStore, "store", 0, "store id (required)")
	ordersAddCmd.Flags().StringVar(&orderText, "note", "", "free-form order note")
	ordersAddCmd.Flags().StringArrayVar(&orderItems, "item", nil, "order line as product:count, repeatable")

	ordersCmd.AddCommand(ordersListCmd, ordersAddCmd, ordersRmCmd)
	rootCmd.AddCommand(ordersCmd)
}

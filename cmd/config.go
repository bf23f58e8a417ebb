package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marcus/visita/internal/config"
	"github.com/marcus/visita/internal/output"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Show and change CLI settings",
	GroupID: "system",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("server-url: %s\n", config.ServerURL())
		if config.APIKey() != "" {
			fmt.Println("api-key:    (set)")
		} else {
			fmt.Println("api-key:    (not set)")
		}
		fmt.Printf("page-size:  %d\n", config.PageSize())
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set server-url, api-key or page-size",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		key, value := args[0], args[1]
		switch key {
		case "server-url":
			cfg.ServerURL = value
		case "api-key":
			cfg.APIKey = value
		case "page-size":
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				return fmt.Errorf("page-size must be a positive integer")
			}
			cfg.PageSize = n
		default:
			return fmt.Errorf("unknown key %q, want server-url, api-key or page-size", key)
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		output.Success("%s updated", key)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Check server reachability",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient().HealthCheck(cmd.Context())
		if err != nil {
			output.Error("server unreachable: %v", err)
			return err
		}
		output.Success("server %s: %s", config.ServerURL(), resp.Status)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
	rootCmd.AddCommand(configCmd, statusCmd)
}

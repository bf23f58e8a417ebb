package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/marcus/visita/internal/apiclient"
	"github.com/marcus/visita/internal/config"
)

var version string

// SetVersion sets the version string
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

var rootCmd = &cobra.Command{
	Use:   "visita",
	Short: "Field sales visit management CLI",
	Long: `visita - manage sales-target stores, visits and orders against a shared server.

Stores are listed page by page with filters for region, purchase probability,
visit status and weekday. Visit toggles apply optimistically and revert if the
server rejects them.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newClient builds an API client from the global config and environment.
func newClient() *apiclient.Client {
	return apiclient.New(config.ServerURL(), config.APIKey())
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "stores", Title: "Store Commands:"},
		&cobra.Group{ID: "planning", Title: "Planning Commands:"},
		&cobra.Group{ID: "data", Title: "Data Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)
	rootCmd.SetHelpCommandGroupID("system")
	rootCmd.SetCompletionCommandGroupID("system")
}

// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gostudio-admin",
	Short: "GoStudio-Admin is a web-based management console for a studio storefront",
	Long: `GoStudio-Admin is a web-based management console for a studio storefront
that provides an easy-to-use interface for managing products, appointments,
customers, content pages, testimonials and the users who administer them.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

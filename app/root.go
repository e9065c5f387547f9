// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/guardpost/guardpost/internal/config"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "guardpost",
	Short: "Guardpost is a multi-tenant identity and authorization service",
	Long: `Guardpost is a multi-tenant identity and authorization service.
It manages users, groups, and role assignments across pluggable user
directories (database-backed or LDAP) and exposes them through a REST API.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

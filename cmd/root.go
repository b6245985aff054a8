package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	httpcmd "github.com/ataa-platform/ataa_backend/cmd/http"
	systemcmd "github.com/ataa-platform/ataa_backend/cmd/system"
)

var (
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "ataa",
	Short: "Ataa aid distribution and case management platform.",
	Long: `Ataa is a case management platform for humanitarian aid distribution.
It tracks beneficiaries, partner organizations and aid deliveries, and guards
edits to sensitive beneficiary fields behind OTP verification and supervisor
approval.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global config flag, available for all commands.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	// Attach top-level command trees.
	rootCmd.AddCommand(systemcmd.NewSystemCommand())
	rootCmd.AddCommand(httpcmd.NewHTTPCommand())
}

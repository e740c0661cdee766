package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhabedank/fin-advisor/cmd"
	"github.com/dhabedank/fin-advisor/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "fin-advisor",
		Short:   "Personalized financial advisor chat backend",
		Version: version.Version,
		PersistentPreRun: func(c *cobra.Command, args []string) {
			if c.Name() == cmd.SetupCmd.Name() {
				return
			}
			home, err := os.UserHomeDir()
			if err != nil || !version.IsFirstRun(home) {
				return
			}
			version.PrintFirstRunNotice(os.Stderr)
			_ = version.MarkInitialized(home)
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cmd.ServeCmd)
	rootCmd.AddCommand(cmd.PromptCmd)
	rootCmd.AddCommand(cmd.ImportCmd)
	rootCmd.AddCommand(cmd.SetupCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "threadctl",
		Short: "Maintenance tool for reply threads",
		Long: `Maintenance tool for reply threads.

Reads DATABASE_URL from the environment or a .env file unless
--database-url is given.`,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			_ = godotenv.Load()
		},
	}
	root.AddCommand(newVerifyCmd())
	return root
}

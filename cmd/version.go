package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	BuildVersion = "dev"
	BuildCommit  = "none"
	BuildDate    = "unknown"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var (
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Display tool version",
		Long:  "Display tool version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("aws-login %s, commit %s, built at %s\n", BuildVersion, BuildCommit, BuildDate)
			os.Exit(0)
		},
	}
)

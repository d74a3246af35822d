package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/spf13/cobra"

	login "github.com/ecpauth/aws-login/lib"
)

func init() {
	rootCmd.PersistentFlags().StringP(login.FlagProfile, "p", "", "The login profile to use.")
	rootCmd.PersistentFlags().CountP(login.FlagVerbose, "v", "Report additional information while executing. Repeat for more detail.")
}

var (
	logConfig = login.LogConfig{}

	rootCmd = &cobra.Command{
		Use:   "aws-login",
		Short: "aws-login manages AWS sessions through a SAML identity provider",
		Long:  "aws-login logs into AWS through the SAML ECP endpoint of an identity provider and keeps the issued STS credentials refreshed.",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Usage()
		},

		PersistentPreRun: func(command *cobra.Command, args []string) {
			logConfig.Verbose, _ = command.Flags().GetCount(login.FlagVerbose)
			logConfig.ConfigureConsole()
		},
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Command execution failed: %v", err)
	}
}

// exit reports err on stderr and terminates with its stable exit code.
func exit(err error) {
	log.Error(err)
	os.Exit(login.ExitCode(err))
}

func profileName(cmd *cobra.Command) string {
	name, _ := cmd.Flags().GetString(login.FlagProfile)
	return name
}

package cmd

import (
	"github.com/spf13/cobra"

	login "github.com/ecpauth/aws-login/lib"
)

func init() {
	rootCmd.AddCommand(configureCmd)
}

var (
	configureCmd = &cobra.Command{
		Use:   "configure",
		Short: "Configure a login profile",
		Long:  "Interactively update the profile's section of the configuration file.",
		Run: func(cmd *cobra.Command, args []string) {
			profile, err := login.LoadProfile(profileName(cmd), cmd.Flags(), false)
			if err != nil {
				exit(err)
			}

			if err := login.Configure(profile); err != nil {
				exit(err)
			}
		},
	}
)

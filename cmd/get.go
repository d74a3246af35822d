package cmd

import (
	"github.com/spf13/cobra"

	login "github.com/ecpauth/aws-login/lib"
)

func init() {
	rootCmd.AddCommand(getCmd)
}

var (
	getCmd = &cobra.Command{
		Use:   "get",
		Short: "Print credentials for the AWS CLI",
		Long:  "Print the stored credentials in the credential_process format expected by the AWS CLI.",
		Run: func(cmd *cobra.Command, args []string) {
			profile, err := login.LoadProfile(profileName(cmd), cmd.Flags(), true)
			if err != nil {
				exit(err)
			}

			if err := login.PrintCredentials(profile); err != nil {
				exit(err)
			}
		},
	}
)

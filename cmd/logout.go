package cmd

import (
	"github.com/spf13/cobra"

	login "github.com/ecpauth/aws-login/lib"
)

func init() {
	rootCmd.AddCommand(logoutCmd)

	logoutCmd.Flags().Bool(login.FlagAll, false, login.FlagDescAll)
}

var (
	logoutCmd = &cobra.Command{
		Use:   "logout",
		Short: "Log out of AWS",
		Long:  "Stop the refresh process and remove the stored credentials for the profile.",
		Run: func(cmd *cobra.Command, args []string) {
			profile, err := login.LoadProfile(profileName(cmd), cmd.Flags(), false)
			if err != nil {
				exit(err)
			}

			all, _ := cmd.Flags().GetBool(login.FlagAll)

			if err := login.Logout(profile, all); err != nil {
				exit(err)
			}
		},
	}
)

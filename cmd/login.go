package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	login "github.com/ecpauth/aws-login/lib"
)

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().String(login.FlagEcpEndpointURL, "", login.FlagDescEcpEndpointURL)
	loginCmd.Flags().String(login.FlagUsername, "", login.FlagDescUsername)
	loginCmd.Flags().String(login.FlagPassword, "", login.FlagDescPassword)
	loginCmd.Flags().String(login.FlagFactor, "", login.FlagDescFactor)
	loginCmd.Flags().String(login.FlagPasscode, "", login.FlagDescPasscode)
	loginCmd.Flags().String(login.FlagRoleArn, "", login.FlagDescRoleArn)
	loginCmd.Flags().Int64(login.FlagDuration, 0, login.FlagDescDuration)
	loginCmd.Flags().String(login.FlagHTTPHeaderFactor, "", login.FlagDescHTTPHeaderFactor)
	loginCmd.Flags().String(login.FlagHTTPHeaderPasscode, "", login.FlagDescHTTPHeaderPasscode)
	loginCmd.Flags().Bool(login.FlagVerifySSL, true, login.FlagDescVerifySSL)
	loginCmd.Flags().Bool(login.FlagEnableKeyring, false, login.FlagDescEnableKeyring)
	loginCmd.Flags().Int64(login.FlagRefresh, 0, login.FlagDescRefresh)

	loginCmd.Flags().Bool(login.FlagAskPassword, false, login.FlagDescAskPassword)
	loginCmd.Flags().Bool(login.FlagForceRefresh, false, login.FlagDescForceRefresh)
	loginCmd.Flags().Bool(login.FlagNoRefresh, false, login.FlagDescNoRefresh)

	// internal handoff between the foreground login and the detached
	// refresh process
	loginCmd.Flags().String(login.FlagWorker, "", "")
	_ = loginCmd.Flags().MarkHidden(login.FlagWorker)
}

var (
	loginCmd = &cobra.Command{
		Use:   "login",
		Short: "Log into AWS",
		Long:  "Log into AWS through the profile's SAML ECP endpoint.",
		Run: func(cmd *cobra.Command, args []string) {
			if handoff, _ := cmd.Flags().GetString(login.FlagWorker); len(handoff) > 0 {
				if err := login.RunWorker(handoff); err != nil {
					exit(err)
				}
				return
			}

			profile, err := login.LoadProfile(profileName(cmd), cmd.Flags(), true)
			if err != nil {
				exit(err)
			}

			log.Debugf("Logging into profile %s", profile.Name)

			if err := login.Login(profile); err != nil {
				exit(err)
			}
		},
	}
)

package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/ecpauth/aws-login/cmd"
)

func init() {
	log.SetFormatter(&log.TextFormatter{
		DisableTimestamp:          true,
		DisableQuote:              true,
		EnvironmentOverrideColors: true,
		DisableLevelTruncation:    true,
	})
}

func main() {
	// ensure that no ambient AWS configuration is picked up.
	_ = os.Setenv("AWS_SDK_LOAD_CONFIG", "0")

	cmd.Execute()
}

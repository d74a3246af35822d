package login

import (
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sts"
	log "github.com/sirupsen/logrus"
)

type stsAPI interface {
	AssumeRoleWithSAML(input *sts.AssumeRoleWithSAMLInput) (*sts.AssumeRoleWithSAMLOutput, error)
}

// stsClient is replaced by tests; production code lazily builds the real
// client on first use.
var stsClient stsAPI

func stsService() (stsAPI, error) {
	if stsClient != nil {
		return stsClient, nil
	}

	awsConfig := aws.NewConfig().WithCredentialsChainVerboseErrors(true)
	awsSession, err := session.NewSessionWithOptions(session.Options{
		Config:            *awsConfig,
		SharedConfigState: session.SharedConfigDisable,
	})
	if err != nil {
		return nil, err
	}

	stsClient = sts.New(awsSession)
	return stsClient, nil
}

// AssumeRole exchanges the SAML assertion for a temporary credential and
// persists it as the profile's credential record. The returned expiration
// schedules the next refresh.
//
// A failed exchange must not be retried with the same assertion; a stale
// assertion needs re-authentication, not resubmission.
func AssumeRole(profile *Profile, assertion string, role *Role, duration int64) (time.Time, error) {
	client, err := stsService()
	if err != nil {
		return time.Time{}, err
	}

	input := &sts.AssumeRoleWithSAMLInput{}
	input.SetPrincipalArn(role.PrincipalArn).
		SetRoleArn(role.RoleArn).
		SetSAMLAssertion(assertion)

	// duration is optional and the role may carry its own maximum, so a
	// zero value is omitted entirely rather than sent
	if duration > 0 {
		input.SetDurationSeconds(duration)
	}

	if err := input.Validate(); err != nil {
		return time.Time{}, err
	}

	result, err := client.AssumeRoleWithSAML(input)
	if err != nil {
		return time.Time{}, err
	}

	log.Infof("Retrieved temporary Amazon credentials for role: %s", role.RoleArn)

	creds := result.Credentials
	expiration := aws.TimeValue(creds.Expiration)

	record := &CredentialRecord{
		AccessKeyID:     aws.StringValue(creds.AccessKeyId),
		SecretAccessKey: aws.StringValue(creds.SecretAccessKey),
		SessionToken:    aws.StringValue(creds.SessionToken),
		PrincipalArn:    role.PrincipalArn,
		RoleArn:         role.RoleArn,
		Expiration:      expiration,
		Username:        profile.Username,
	}

	if err := saveCredentials(profile.Name, record); err != nil {
		return time.Time{}, err
	}

	return expiration, nil
}

package login

import (
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/arn"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/iam"
	"github.com/pelletier/go-toml"
	log "github.com/sirupsen/logrus"
)

// Account aliases make the role selection menu readable when roles span
// multiple accounts. Aliases are looked up once per account with the newly
// issued credential and cached on disk; every failure here is non-fatal and
// falls back to the bare account id.

type iamAPI interface {
	ListAccountAliases(input *iam.ListAccountAliasesInput) (*iam.ListAccountAliasesOutput, error)
}

// replaced by tests
var newIamClient = func(record *CredentialRecord) (iamAPI, error) {
	awsSession, err := session.NewSessionWithOptions(session.Options{
		Config: aws.Config{
			Credentials: credentials.NewStaticCredentials(
				record.AccessKeyID, record.SecretAccessKey, record.SessionToken),
		},
		SharedConfigState: session.SharedConfigDisable,
	})
	if err != nil {
		return nil, err
	}
	return iam.New(awsSession), nil
}

func accountCacheFile() (string, error) {
	dir, err := loginDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, accountCacheName), nil
}

func loadAccountCache() (*toml.Tree, error) {
	filename, err := accountCacheFile()
	if err != nil {
		return nil, err
	}

	tree, err := toml.LoadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return toml.Load("")
		}
		return nil, err
	}
	return tree, nil
}

func storeAccountCache(tree *toml.Tree) error {
	filename, err := accountCacheFile()
	if err != nil {
		return err
	}

	return storeFile(filename, func(name string) error {
		file, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = tree.WriteTo(file)
		return err
	})
}

// cachedAccountAliases returns whatever aliases are already known on disk.
func cachedAccountAliases() map[string]string {
	aliases := map[string]string{}

	tree, err := loadAccountCache()
	if err != nil {
		log.Debugf("Could not load account cache: %v", err)
		return aliases
	}

	for _, key := range tree.Keys() {
		if alias, ok := tree.Get(key).(string); ok {
			aliases[key] = alias
		}
	}
	return aliases
}

// rememberAccountAlias resolves and caches the alias of the account the
// record's role lives in.
func rememberAccountAlias(record *CredentialRecord) {
	roleArn, err := arn.Parse(record.RoleArn)
	if err != nil {
		log.Debugf("Could not parse role ARN %s: %v", record.RoleArn, err)
		return
	}

	tree, err := loadAccountCache()
	if err != nil {
		log.Debugf("Could not load account cache: %v", err)
		return
	}
	if tree.Has(roleArn.AccountID) {
		return
	}

	client, err := newIamClient(record)
	if err != nil {
		log.Debugf("Could not create IAM client: %v", err)
		return
	}

	result, err := client.ListAccountAliases(&iam.ListAccountAliasesInput{})
	if err != nil {
		log.Debugf("Could not list account aliases: %v", err)
		return
	}
	if len(result.AccountAliases) == 0 {
		return
	}

	tree.Set(roleArn.AccountID, aws.StringValue(result.AccountAliases[0]))
	if err := storeAccountCache(tree); err != nil {
		log.Debugf("Could not store account cache: %v", err)
	}
}

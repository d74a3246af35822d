package login

import (
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/iam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIAM struct {
	aliases []string
	err     error
	calls   int
}

func (f *fakeIAM) ListAccountAliases(input *iam.ListAccountAliasesInput) (*iam.ListAccountAliasesOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &iam.ListAccountAliasesOutput{
		AccountAliases: aws.StringSlice(f.aliases),
	}, nil
}

func withFakeIAM(t *testing.T, fake *fakeIAM) {
	t.Helper()

	old := newIamClient
	newIamClient = func(record *CredentialRecord) (iamAPI, error) {
		return fake, nil
	}
	t.Cleanup(func() { newIamClient = old })
}

func TestRememberAccountAlias(t *testing.T) {
	setupLoginDir(t)

	fake := &fakeIAM{aliases: []string{"acme-prod"}}
	withFakeIAM(t, fake)

	record := testRecord(time.Now().Add(time.Hour))
	rememberAccountAlias(record)

	aliases := cachedAccountAliases()
	assert.Equal(t, "acme-prod", aliases["123456789012"])
}

func TestRememberAccountAliasCached(t *testing.T) {
	setupLoginDir(t)

	fake := &fakeIAM{aliases: []string{"acme-prod"}}
	withFakeIAM(t, fake)

	record := testRecord(time.Now().Add(time.Hour))
	rememberAccountAlias(record)
	rememberAccountAlias(record)

	// the second call is answered from the cache
	assert.Equal(t, 1, fake.calls)
}

func TestRememberAccountAliasFailuresAreSilent(t *testing.T) {
	setupLoginDir(t)

	fake := &fakeIAM{err: errors.New("AccessDenied")}
	withFakeIAM(t, fake)

	record := testRecord(time.Now().Add(time.Hour))
	rememberAccountAlias(record)

	assert.Empty(t, cachedAccountAliases())
}

func TestRememberAccountAliasBadArn(t *testing.T) {
	setupLoginDir(t)

	fake := &fakeIAM{aliases: []string{"acme-prod"}}
	withFakeIAM(t, fake)

	record := testRecord(time.Now().Add(time.Hour))
	record.RoleArn = "not-an-arn"
	rememberAccountAlias(record)

	assert.Equal(t, 0, fake.calls)
	assert.Empty(t, cachedAccountAliases())
}

func TestCachedAccountAliasesEmpty(t *testing.T) {
	setupLoginDir(t)
	require.Empty(t, cachedAccountAliases())
}

func TestAccountAliasNoAliasConfigured(t *testing.T) {
	setupLoginDir(t)

	fake := &fakeIAM{}
	withFakeIAM(t, fake)

	record := testRecord(time.Now().Add(time.Hour))
	rememberAccountAlias(record)

	assert.Equal(t, 1, fake.calls)
	assert.Empty(t, cachedAccountAliases())
}

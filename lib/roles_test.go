package login

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoles() []Role {
	return []Role{
		{PrincipalArn: "arn:aws:iam::222222222222:saml-provider/the-idp", RoleArn: "arn:aws:iam::222222222222:role/Ops"},
		{PrincipalArn: "arn:aws:iam::111111111111:saml-provider/the-idp", RoleArn: "arn:aws:iam::111111111111:role/ReadOnly"},
		{PrincipalArn: "arn:aws:iam::111111111111:saml-provider/the-idp", RoleArn: "arn:aws:iam::111111111111:role/Admin"},
	}
}

func TestRoleAccount(t *testing.T) {
	assert.Equal(t, "123456789012", roleAccount("arn:aws:iam::123456789012:role/Admin"))
	assert.Equal(t, "", roleAccount("not-an-arn"))
}

func TestRoleName(t *testing.T) {
	assert.Equal(t, "Admin", roleName("arn:aws:iam::123456789012:role/Admin"))
	assert.Equal(t, "Admin", roleName("arn:aws:iam::123456789012:role/path/to/Admin"))
	assert.Equal(t, "not-an-arn", roleName("not-an-arn"))
}

func TestSortRoles(t *testing.T) {
	sorted := sortRoles(testRoles())

	require.Len(t, sorted, 2)

	assert.Equal(t, "111111111111", sorted[0].Account)
	require.Len(t, sorted[0].Roles, 2)
	assert.Equal(t, "Admin", sorted[0].Roles[0].Name)
	assert.Equal(t, 2, sorted[0].Roles[0].Index)
	assert.Equal(t, "ReadOnly", sorted[0].Roles[1].Name)
	assert.Equal(t, 1, sorted[0].Roles[1].Index)

	assert.Equal(t, "222222222222", sorted[1].Account)
	require.Len(t, sorted[1].Roles, 1)
	assert.Equal(t, "Ops", sorted[1].Roles[0].Name)
	assert.Equal(t, 0, sorted[1].Roles[0].Index)
}

func TestGetSelection(t *testing.T) {
	roles := testRoles()

	t.Run("pinned role wins", func(t *testing.T) {
		role, err := getSelection(roles, "arn:aws:iam::111111111111:role/Admin", false, nil)
		require.NoError(t, err)
		assert.Equal(t, "arn:aws:iam::111111111111:role/Admin", role.RoleArn)
	})

	t.Run("pinned role not offered", func(t *testing.T) {
		_, err := getSelection(roles, "arn:aws:iam::999999999999:role/Nope", false, nil)
		require.Error(t, err)
		assert.Equal(t, ErrorUnknown, ExitCode(err))
	})

	t.Run("no roles", func(t *testing.T) {
		_, err := getSelection(nil, "", false, nil)
		require.Error(t, err)
	})

	t.Run("single role autoselected", func(t *testing.T) {
		role, err := getSelection(roles[:1], "", false, nil)
		require.NoError(t, err)
		assert.Equal(t, "arn:aws:iam::222222222222:role/Ops", role.RoleArn)
	})

	t.Run("multiple roles need a terminal", func(t *testing.T) {
		_, err := getSelection(roles, "", false, nil)
		require.Error(t, err)
		assert.Equal(t, CodeInvalidSelection, ExitCode(err))
	})
}

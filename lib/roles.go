package login

import (
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

type indexedRole struct {
	// Index points back into the original role list. Selection must return
	// the original tuple, never the sorted position.
	Index int
	Name  string
}

type accountRoles struct {
	Account string
	Roles   []indexedRole
}

func roleAccount(arn string) string {
	parts := strings.Split(arn, ":")
	if len(parts) < 6 {
		return ""
	}
	return parts[4]
}

func roleName(arn string) string {
	parts := strings.Split(arn, ":")
	resource := arn
	if len(parts) >= 6 {
		resource = parts[5]
	}
	if i := strings.LastIndex(resource, "/"); i >= 0 {
		return resource[i+1:]
	}
	return resource
}

// sortRoles groups roles by account id, accounts ascending, role names
// ascending within each account.
func sortRoles(roles []Role) []accountRoles {
	accounts := map[string][]indexedRole{}

	for i, role := range roles {
		acct := roleAccount(role.RoleArn)
		accounts[acct] = append(accounts[acct], indexedRole{Index: i, Name: roleName(role.RoleArn)})
	}

	keys := make([]string, 0, len(accounts))
	for acct := range accounts {
		keys = append(keys, acct)
	}
	sort.Strings(keys)

	sorted := make([]accountRoles, 0, len(keys))
	for _, acct := range keys {
		list := accounts[acct]
		sort.Slice(list, func(i, j int) bool {
			return list[i].Name < list[j].Name
		})
		sorted = append(sorted, accountRoles{Account: acct, Roles: list})
	}

	return sorted
}

// getSelection resolves the role to assume. A pinned role ARN short-circuits
// any prompting; a single role is autoselected; multiple roles are offered
// as a numbered menu grouped by account. aliases maps account ids to
// human-readable account names and may be nil.
func getSelection(roles []Role, pinnedRoleArn string, interactive bool, aliases map[string]string) (*Role, error) {
	if len(pinnedRoleArn) > 0 {
		for i := range roles {
			if roles[i].RoleArn == pinnedRoleArn {
				return &roles[i], nil
			}
		}

		if !interactive {
			return nil, newConfigError("Profile role is invalid: %s", pinnedRoleArn)
		}
		log.Errorf("Profile role is invalid: %s", pinnedRoleArn)
	}

	switch len(roles) {
	case 0:
		return nil, newSamlError("No roles returned!")
	case 1:
		return &roles[0], nil
	}

	if !interactive {
		return nil, errInvalidSelection()
	}

	printf("Please choose the role you would like to assume:\n")

	choice := 0
	selection := map[int]int{}
	for _, acct := range sortRoles(roles) {
		label := acct.Account
		if alias, ok := aliases[acct.Account]; ok {
			label = alias
		}
		printf("     Account: %s\n", label)

		for _, role := range acct.Roles {
			printf("         [ %d ]: %s\n", choice, role.Name)
			selection[choice] = role.Index
			choice++
		}
	}

	answer, err := textInput(promptSelection, "", false, validateNumber)
	if err != nil {
		return nil, errInvalidSelection()
	}

	n, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil {
		return nil, errInvalidSelection()
	}

	index, ok := selection[n]
	if !ok {
		return nil, errInvalidSelection()
	}

	return &roles[index], nil
}

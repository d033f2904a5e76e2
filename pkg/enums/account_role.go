package enums

import "fmt"

// AccountRole identifies what an authenticated caller may do. Back-office
// roles form an ordered hierarchy; Level gives the comparison point.
type AccountRole string

const (
	AccountRoleCustomer   AccountRole = "customer"
	AccountRoleFinance    AccountRole = "finance"
	AccountRoleSupport    AccountRole = "support"
	AccountRoleEditor     AccountRole = "editor"
	AccountRoleAdmin      AccountRole = "admin"
	AccountRoleOwner      AccountRole = "owner"
	AccountRoleSuperAdmin AccountRole = "super_admin"
)

var accountRoleLevels = map[AccountRole]int{
	AccountRoleCustomer:   0,
	AccountRoleFinance:    1,
	AccountRoleSupport:    2,
	AccountRoleEditor:     3,
	AccountRoleAdmin:      4,
	AccountRoleOwner:      5,
	AccountRoleSuperAdmin: 6,
}

// String implements fmt.Stringer.
func (a AccountRole) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AccountRole.
func (a AccountRole) IsValid() bool {
	_, ok := accountRoleLevels[a]
	return ok
}

// Level returns the role's position in the admin hierarchy (customer is 0).
func (a AccountRole) Level() int {
	return accountRoleLevels[a]
}

// AtLeast reports whether the role carries at least the power of other.
func (a AccountRole) AtLeast(other AccountRole) bool {
	return a.Level() >= other.Level()
}

// ParseAccountRole converts raw input into an AccountRole.
func ParseAccountRole(value string) (AccountRole, error) {
	candidate := AccountRole(value)
	if candidate.IsValid() {
		return candidate, nil
	}
	return "", fmt.Errorf("invalid account role %q", value)
}

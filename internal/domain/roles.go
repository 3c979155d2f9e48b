package domain

type Role string

const (
	// Buyer browses and purchases listings.
	RoleBuyer Role = "buyer"
	// Seller manages their own listings.
	RoleSeller Role = "seller"
)

func IsValidRole(r string) bool {
	return r == string(RoleBuyer) || r == string(RoleSeller)
}

// RoleIn reports whether r is one of allowed.
func RoleIn(r string, allowed ...Role) bool {
	for _, a := range allowed {
		if r == string(a) {
			return true
		}
	}
	return false
}

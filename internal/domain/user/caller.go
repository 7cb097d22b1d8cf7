package user

const (
	RoleAdmin = "admin"
	RoleBuyer = "buyer"
)

// Caller is the authenticated identity behind a request.
type Caller struct {
	ID   string
	Role string
}

func (c *Caller) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

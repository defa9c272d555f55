package org

// Role of an identity in a tenant hierarchy.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleHR       Role = "hr"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// Identity is the verified caller tuple supplied by the identity provider.
type Identity struct {
	ID          string `json:"id"`
	Role        Role   `json:"role"`
	CreatedBy   string `json:"createdBy,omitempty"`
	IsMainAdmin bool   `json:"isMainAdmin"`
}

// IsSubAdmin reports whether the identity is an hr/manager node.
func (i Identity) IsSubAdmin() bool {
	return !i.IsMainAdmin && (i.Role == RoleHR || i.Role == RoleManager)
}

// IsOrgNode reports whether the identity is a hierarchy node rather than an
// employee.
func (i Identity) IsOrgNode() bool {
	return i.IsMainAdmin || i.IsSubAdmin()
}

// CanManageTenant reports whether the identity may change tenant-wide
// configuration.
func (i Identity) CanManageTenant() bool {
	return i.IsMainAdmin || (i.IsSubAdmin() && i.Role == RoleHR)
}

// Node is a tenant hierarchy participant.
type Node struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        Role   `json:"role"`
	IsMainAdmin bool   `json:"isMainAdmin"`
	CreatedBy   string `json:"createdBy,omitempty"`
}

// Root returns the main-admin id owning the node.
func (n Node) Root() string {
	if n.IsMainAdmin || n.CreatedBy == "" {
		return n.ID
	}
	return n.CreatedBy
}

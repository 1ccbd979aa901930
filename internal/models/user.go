package models

// AuthUser is the identity extracted from a verified ID token.
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

func (u AuthUser) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return "Anon"
}

package user

type CreateRequest struct {
	FullName string `json:"nama_lengkap" minLength:"1" maxLength:"100"`
	Email    string `json:"email" format:"email"`
	Role     Role   `json:"role,omitempty" enum:"admin,member"`
}

type UpdateRequest struct {
	FullName *string `json:"nama_lengkap,omitempty"`
	Email    *string `json:"email,omitempty"`
	Role     *Role   `json:"role,omitempty" enum:"admin,member"`
}

// Lookup identifies the kiosk user by recognized name or by email. Email wins when both are set.
type Lookup struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func (l Lookup) Empty() bool {
	return l.Name == "" && l.Email == ""
}

package user

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

type User struct {
	ID           int64     `json:"id"`
	RemoteID     *int64    `json:"remote_id,omitempty"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	FaceImageRef string    `json:"face_image_ref,omitempty"`
	Synced       bool      `json:"synced"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) HasFaceImage() bool {
	return u.FaceImageRef != ""
}

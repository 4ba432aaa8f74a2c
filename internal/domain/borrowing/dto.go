package borrowing

import (
	"libkiosk/internal/domain/book"
	"libkiosk/internal/domain/user"
)

type LendRequest struct {
	UserName string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	RFIDTag  string `json:"rfid_id,omitempty"`
}

func (r LendRequest) Lookup() user.Lookup {
	return user.Lookup{Name: r.UserName, Email: r.Email}
}

type ReturnRequest struct {
	UserName string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

func (r ReturnRequest) Lookup() user.Lookup {
	return user.Lookup{Name: r.UserName, Email: r.Email}
}

// BookStatus is what the kiosk shows after a tag is scanned.
type BookStatus struct {
	Book      book.Book `json:"book"`
	Available bool      `json:"available"`
}

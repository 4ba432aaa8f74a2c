package user

import (
	"libkiosk/internal/app/server/api/http/reply"
	"libkiosk/internal/domain/user"
)

type createInput struct {
	Body user.CreateRequest
}

type updateInput struct {
	ID   int64 `path:"id" minimum:"1"`
	Body user.UpdateRequest
}

type idInput struct {
	ID int64 `path:"id" minimum:"1"`
}

type userOutput struct {
	Status int
	Body   UserResponse
}

type UserResponse struct {
	reply.Envelope
	Data *user.User `json:"data,omitempty"`
}

type listOutput struct {
	Status int
	Body   UserListResponse
}

type UserListResponse struct {
	reply.Envelope
	Data []user.User `json:"data"`
}

type deleteOutput struct {
	Status int
	Body   DeleteResponse
}

type DeleteResponse struct {
	reply.Envelope
	Message string `json:"message,omitempty"`
}

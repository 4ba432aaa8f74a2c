package borrowing

import (
	"libkiosk/internal/app/server/api/http/reply"
	"libkiosk/internal/domain/borrowing"
)

type lendInput struct {
	Body borrowing.LendRequest
}

type returnInput struct {
	Body borrowing.ReturnRequest
}

type detailOutput struct {
	Status int
	Body   DetailResponse
}

type DetailResponse struct {
	reply.Envelope
	Data *borrowing.Detail `json:"data,omitempty"`
}

type getInput struct {
	ID int64 `path:"id" minimum:"1"`
}

type listInput struct {
	UserID int64  `query:"user_id" minimum:"0"`
	Status string `query:"status" enum:"active,returned"`
	Limit  int    `query:"limit" minimum:"0" maximum:"1000" default:"100"`
}

type listOutput struct {
	Status int
	Body   BorrowingListResponse
}

type BorrowingListResponse struct {
	reply.Envelope
	Data []borrowing.Detail `json:"data"`
}

type bookStatusInput struct {
	RFID string `path:"rfid"`
}

type bookStatusOutput struct {
	Status int
	Body   BookStatusResponse
}

type BookStatusResponse struct {
	reply.Envelope
	Data *borrowing.BookStatus `json:"data,omitempty"`
}

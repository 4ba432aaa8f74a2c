package kiosk

import (
	"context"
	"errors"
	"strings"
	"time"

	"libkiosk/internal/domain/apperr"
	"libkiosk/internal/domain/book"
	"libkiosk/internal/domain/event"
	"libkiosk/internal/domain/guard"
)

var ErrInvalidReport = apperr.New(apperr.KindValidation, "INVALID_SCAN_REPORT", "scan report needs rfid_id or status timeout")

// StartScan asks the reader for one tag. The command stays visible to CheckScanCommand until
// the reader reports or the scan budget runs out.
func (s *Service) StartScan() (Command, error) {
	// the ticket is stored under the same lock so an older start cannot overwrite a newer one
	s.mu.Lock()
	ticket, err := s.scan.Start()
	if err != nil {
		s.mu.Unlock()
		return Command{}, err
	}
	now := s.now()
	s.scanTicket = ticket
	s.issuedAt = now
	s.mu.Unlock()

	s.log.Debug("scan requested", "ticket", ticket)
	return Command{Status: CommandScan, IssuedAt: &now}, nil
}

func (s *Service) CheckScanCommand() Command {
	s.mu.Lock()
	ticket, issued := s.scanTicket, s.issuedAt
	s.mu.Unlock()

	if ticket == 0 || !s.scan.Running(ticket) {
		return Command{Status: CommandIdle}
	}
	return Command{Status: CommandScan, IssuedAt: &issued}
}

// ReportScan records what the reader saw. Reads arriving with no scan requested still update
// the last scanned book.
func (s *Service) ReportScan(ctx context.Context, r ScanReport) (*ScanOutcome, error) {
	s.mu.Lock()
	ticket := s.scanTicket
	s.mu.Unlock()

	if strings.EqualFold(strings.TrimSpace(r.Status), string(ScanTimeout)) {
		out := ScanOutcome{Status: ScanTimeout, Message: "no tag detected"}
		s.scan.Finish(ticket, out)
		s.log.Info("scan timed out on the reader")
		s.events.Publish(event.New(event.TypeScan, out))
		return &out, nil
	}

	rfid := strings.TrimSpace(r.RFID)
	if rfid == "" {
		return nil, ErrInvalidReport
	}

	out := ScanOutcome{Status: ScanSuccess, RFID: rfid}
	status, err := s.borrowings.BookStatus(ctx, rfid)
	switch {
	case errors.Is(err, book.ErrNotFound):
		out.Message = "unknown tag"
	case err != nil:
		return nil, err
	default:
		out.Book = status
		if !status.Available {
			out.Message = "book is out of stock"
		}
		s.mu.Lock()
		s.last = &LastScan{RFID: rfid, Book: status, ScannedAt: s.now()}
		s.mu.Unlock()
	}

	solicited := s.scan.Finish(ticket, out)
	s.log.Info("tag scanned", "rfid", rfid, "known", out.Book != nil, "solicited", solicited)
	s.events.Publish(event.New(event.TypeScan, out))
	return &out, nil
}

func (s *Service) ScanResult() guard.Snapshot[ScanOutcome] {
	return s.scan.Snapshot()
}

// ResetScan drops the pending command and result. The last scanned book is kept.
func (s *Service) ResetScan() {
	s.mu.Lock()
	s.scan.Reset()
	s.scanTicket = 0
	s.issuedAt = time.Time{}
	s.mu.Unlock()
}

func (s *Service) LastScan() (*LastScan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last == nil {
		return nil, ErrNoScan
	}
	last := *s.last
	return &last, nil
}

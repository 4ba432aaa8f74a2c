package kiosk

import (
	"context"
	"errors"
	"fmt"

	"libkiosk/internal/domain/event"
	"libkiosk/internal/domain/guard"
	"libkiosk/internal/domain/identity"
	"libkiosk/internal/domain/user"
)

// StartRecognition captures a frame and identifies the person in front of the kiosk in the
// background. It fails with guard.ErrBusy while a previous run is still in flight.
func (s *Service) StartRecognition(ctx context.Context) error {
	ticket, err := s.recognition.Start()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.recognition.Timeout())
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.recognize(runCtx, ticket)
	}()

	s.log.Debug("recognition started", "ticket", ticket)
	return nil
}

func (s *Service) recognize(ctx context.Context, ticket guard.Ticket) {
	res := s.identify(ctx)

	if !s.recognition.Finish(ticket, res) {
		s.log.Warn("recognition finished after its deadline", "status", res.Status)
		return
	}

	s.log.Info("recognition finished", "status", res.Status, "label", res.Label, "distance", res.Distance)
	s.events.Publish(event.New(event.TypeRecognition, res))
}

func (s *Service) identify(ctx context.Context) Recognition {
	img, err := s.camera.CaptureJPEG(ctx)
	if err != nil {
		s.log.Warn("capture failed", "error", err)
		return Recognition{Status: StatusCameraUnavailable, Message: "camera is unavailable"}
	}

	match, err := s.faces.Recognize(ctx, img)
	if err != nil {
		s.log.Error("recognize failed", "error", err)
		return Recognition{Status: StatusFailed, Message: "face recognition failed"}
	}

	res := Recognition{Status: match.Status, Label: match.Label, Distance: match.Distance}
	switch match.Status {
	case identity.StatusNoFace:
		res.Message = "no face detected"
		return res
	case identity.StatusInvalidImage:
		res.Message = "camera frame could not be decoded"
		return res
	case identity.StatusUnmatched:
		res.Message = "face not recognized"
		return res
	}

	u, err := s.users.Resolve(ctx, user.Lookup{Name: match.Label})
	switch {
	case errors.Is(err, user.ErrNotFound):
		res.Status = StatusUnknownUser
		res.Message = fmt.Sprintf("%s is not a registered member", match.Label)
		return res
	case err != nil:
		s.log.Error("resolve recognized user", "label", match.Label, "error", err)
		res.Status = StatusFailed
		res.Message = "user lookup failed"
		return res
	}

	res.User = u
	res.Message = "welcome " + u.FullName
	return res
}

// RecognitionResult reports the current run, or the last finished one.
func (s *Service) RecognitionResult() guard.Snapshot[Recognition] {
	return s.recognition.Snapshot()
}

func (s *Service) ResetRecognition() {
	s.recognition.Reset()
}

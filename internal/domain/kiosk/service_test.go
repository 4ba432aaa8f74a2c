package kiosk

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"libkiosk/internal/domain/apperr"
	"libkiosk/internal/domain/book"
	"libkiosk/internal/domain/borrowing"
	"libkiosk/internal/domain/event"
	"libkiosk/internal/domain/guard"
	"libkiosk/internal/domain/identity"
	"libkiosk/internal/domain/user"
	"libkiosk/internal/utils/logger"
)

var frame = []byte{0xFF, 0xD8, 0xFF, 0xD9}

type fixture struct {
	svc        *Service
	faces      *MockFaces
	users      *MockUsers
	borrowings *MockBorrowings
	events     *recorder
	clock      *fakeClock
}

func newFixture(t *testing.T, camera Camera) *fixture {
	t.Helper()

	f := &fixture{
		faces:      new(MockFaces),
		users:      new(MockUsers),
		borrowings: new(MockBorrowings),
		events:     &recorder{},
		clock:      newFakeClock(),
	}
	if camera == nil {
		camera = cameraFunc(func(context.Context) ([]byte, error) { return frame, nil })
	}
	f.svc = NewService(camera, f.faces, f.users, f.borrowings, Config{}, logger.Discard(),
		WithClock(f.clock.Now), WithPublisher(f.events))

	t.Cleanup(func() {
		f.svc.Wait()
		f.faces.AssertExpectations(t)
		f.users.AssertExpectations(t)
		f.borrowings.AssertExpectations(t)
	})
	return f
}

var alice = &user.User{ID: 1, FullName: "Alice", Email: "alice@example.com", Role: user.RoleMember}

func TestStartRecognition_Matched(t *testing.T) {
	f := newFixture(t, nil)
	f.faces.On("Recognize", mock.Anything, frame).
		Return(identity.Result{Status: identity.StatusMatched, Label: "Alice", Distance: 0.31}, nil).Once()
	f.users.On("Resolve", mock.Anything, user.Lookup{Name: "Alice"}).Return(alice, nil).Once()

	require.NoError(t, f.svc.StartRecognition(context.Background()))
	f.svc.Wait()

	snap := f.svc.RecognitionResult()
	assert.Equal(t, guard.PhaseDone, snap.Phase)
	require.NotNil(t, snap.Result)
	assert.True(t, snap.Result.Matched())
	assert.Equal(t, "welcome Alice", snap.Result.Message)
	assert.InDelta(t, 0.31, snap.Result.Distance, 1e-9)
	assert.Equal(t, []event.Type{event.TypeRecognition}, f.events.types())
}

func TestStartRecognition_Busy(t *testing.T) {
	release := make(chan struct{})
	camera := cameraFunc(func(ctx context.Context) ([]byte, error) {
		select {
		case <-release:
			return frame, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	f := newFixture(t, camera)
	f.faces.On("Recognize", mock.Anything, frame).
		Return(identity.Result{Status: identity.StatusNoFace}, nil)

	require.NoError(t, f.svc.StartRecognition(context.Background()))

	err := f.svc.StartRecognition(context.Background())
	require.ErrorIs(t, err, guard.ErrBusy)
	assert.Equal(t, "BUSY", apperr.CodeOf(err))
	assert.Equal(t, guard.PhaseRunning, f.svc.RecognitionResult().Phase)

	close(release)
	f.svc.Wait()

	snap := f.svc.RecognitionResult()
	assert.Equal(t, guard.PhaseDone, snap.Phase)
	require.NotNil(t, snap.Result)
	assert.Equal(t, identity.StatusNoFace, snap.Result.Status)

	assert.NoError(t, f.svc.StartRecognition(context.Background()), "finished run releases the flag")
}

func TestStartRecognition_Timeout(t *testing.T) {
	var f *fixture
	camera := cameraFunc(func(context.Context) ([]byte, error) {
		f.clock.Advance(DefaultRecognitionTimeout + time.Second)
		return frame, nil
	})
	f = newFixture(t, camera)
	f.faces.On("Recognize", mock.Anything, frame).
		Return(identity.Result{Status: identity.StatusUnmatched}, nil)

	require.NoError(t, f.svc.StartRecognition(context.Background()))
	f.svc.Wait()

	snap := f.svc.RecognitionResult()
	assert.Equal(t, guard.PhaseTimeout, snap.Phase)
	assert.Nil(t, snap.Result)
	assert.Empty(t, f.events.types(), "late results are not published")

	assert.NoError(t, f.svc.StartRecognition(context.Background()))
}

func TestStartRecognition_Outcomes(t *testing.T) {
	tests := []struct {
		name       string
		camera     Camera
		result     identity.Result
		recognize  error
		resolve    error
		wantStatus identity.Status
	}{
		{
			name:       "camera down",
			camera:     cameraFunc(func(context.Context) ([]byte, error) { return nil, errors.New("refused") }),
			wantStatus: StatusCameraUnavailable,
		},
		{
			name:       "no face",
			result:     identity.Result{Status: identity.StatusNoFace},
			wantStatus: identity.StatusNoFace,
		},
		{
			name:       "stranger",
			result:     identity.Result{Status: identity.StatusUnmatched, Distance: 0.8},
			wantStatus: identity.StatusUnmatched,
		},
		{
			name:       "detector down",
			recognize:  apperr.Transient(errors.New("sidecar down")),
			wantStatus: StatusFailed,
		},
		{
			name:       "enrolled face without account",
			result:     identity.Result{Status: identity.StatusMatched, Label: "Bob"},
			resolve:    user.ErrNotFound,
			wantStatus: StatusUnknownUser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.camera)
			if tt.camera == nil {
				f.faces.On("Recognize", mock.Anything, frame).Return(tt.result, tt.recognize).Once()
			}
			if tt.resolve != nil {
				f.users.On("Resolve", mock.Anything, user.Lookup{Name: tt.result.Label}).Return(nil, tt.resolve).Once()
			}

			require.NoError(t, f.svc.StartRecognition(context.Background()))
			f.svc.Wait()

			snap := f.svc.RecognitionResult()
			require.NotNil(t, snap.Result)
			assert.Equal(t, tt.wantStatus, snap.Result.Status)
			assert.Nil(t, snap.Result.User)
			assert.NotEmpty(t, snap.Result.Message)
		})
	}
}

func TestResetRecognition(t *testing.T) {
	f := newFixture(t, nil)
	f.faces.On("Recognize", mock.Anything, frame).
		Return(identity.Result{Status: identity.StatusNoFace}, nil).Once()

	require.NoError(t, f.svc.StartRecognition(context.Background()))
	f.svc.Wait()
	f.svc.ResetRecognition()

	snap := f.svc.RecognitionResult()
	assert.Equal(t, guard.PhaseIdle, snap.Phase)
	assert.Nil(t, snap.Result)
}

func available(rfid string, stock int) *borrowing.BookStatus {
	return &borrowing.BookStatus{
		Book:      book.Book{ID: 3, Title: "Laskar Pelangi", RFIDTag: rfid, Stock: stock},
		Available: stock > 0,
	}
}

func TestScan_Protocol(t *testing.T) {
	f := newFixture(t, nil)
	f.borrowings.On("BookStatus", mock.Anything, "53A0A434").Return(available("53A0A434", 2), nil).Once()

	assert.Equal(t, CommandIdle, f.svc.CheckScanCommand().Status)

	cmd, err := f.svc.StartScan()
	require.NoError(t, err)
	assert.Equal(t, CommandScan, cmd.Status)
	require.NotNil(t, cmd.IssuedAt)

	polled := f.svc.CheckScanCommand()
	assert.Equal(t, CommandScan, polled.Status)
	assert.True(t, cmd.IssuedAt.Equal(*polled.IssuedAt))

	_, err = f.svc.StartScan()
	assert.ErrorIs(t, err, guard.ErrBusy)

	out, err := f.svc.ReportScan(context.Background(), ScanReport{RFID: " 53A0A434 "})
	require.NoError(t, err)
	assert.Equal(t, ScanSuccess, out.Status)
	assert.Equal(t, "53A0A434", out.RFID)
	require.NotNil(t, out.Book)
	assert.True(t, out.Book.Available)

	snap := f.svc.ScanResult()
	assert.Equal(t, guard.PhaseDone, snap.Phase)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "53A0A434", snap.Result.RFID)
	assert.Equal(t, CommandIdle, f.svc.CheckScanCommand().Status)

	last, err := f.svc.LastScan()
	require.NoError(t, err)
	assert.Equal(t, "53A0A434", last.RFID)
	assert.Equal(t, []event.Type{event.TypeScan}, f.events.types())
}

func TestScan_ReaderTimeout(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.StartScan()
	require.NoError(t, err)

	out, err := f.svc.ReportScan(context.Background(), ScanReport{Status: "timeout"})
	require.NoError(t, err)
	assert.Equal(t, ScanTimeout, out.Status)

	snap := f.svc.ScanResult()
	assert.Equal(t, guard.PhaseDone, snap.Phase)
	assert.Equal(t, ScanTimeout, snap.Result.Status)

	_, err = f.svc.LastScan()
	assert.ErrorIs(t, err, ErrNoScan)

	_, err = f.svc.StartScan()
	assert.NoError(t, err)
}

func TestScan_BudgetExpires(t *testing.T) {
	f := newFixture(t, nil)
	f.borrowings.On("BookStatus", mock.Anything, "43991C03").Return(available("43991C03", 1), nil).Once()

	_, err := f.svc.StartScan()
	require.NoError(t, err)

	f.clock.Advance(DefaultScanTimeout + time.Second)
	assert.Equal(t, CommandIdle, f.svc.CheckScanCommand().Status)
	assert.Equal(t, guard.PhaseTimeout, f.svc.ScanResult().Phase)

	_, err = f.svc.ReportScan(context.Background(), ScanReport{RFID: "43991C03"})
	require.NoError(t, err)
	assert.Equal(t, guard.PhaseTimeout, f.svc.ScanResult().Phase, "late read does not revive the scan")

	last, err := f.svc.LastScan()
	require.NoError(t, err)
	assert.Equal(t, "43991C03", last.RFID)
}

func TestScan_UnknownTagAndBadReport(t *testing.T) {
	f := newFixture(t, nil)
	f.borrowings.On("BookStatus", mock.Anything, "DEADBEEF").Return(nil, book.ErrNotFound).Once()

	out, err := f.svc.ReportScan(context.Background(), ScanReport{RFID: "DEADBEEF"})
	require.NoError(t, err)
	assert.Nil(t, out.Book)
	assert.Equal(t, "unknown tag", out.Message)

	_, err = f.svc.LastScan()
	assert.ErrorIs(t, err, ErrNoScan)

	_, err = f.svc.ReportScan(context.Background(), ScanReport{})
	require.ErrorIs(t, err, ErrInvalidReport)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestScan_ConcurrentStartsKeepNewestTicket(t *testing.T) {
	f := newFixture(t, nil)

	for i := 0; i < 200; i++ {
		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, _ = f.svc.StartScan()
			}()
			go func() {
				defer wg.Done()
				f.clock.Advance(DefaultScanTimeout + time.Second)
			}()
		}
		wg.Wait()

		running := f.svc.ScanResult().Phase == guard.PhaseRunning
		commanded := f.svc.CheckScanCommand().Status == CommandScan
		require.Equal(t, running, commanded, "iteration %d", i)
	}
}

func TestResetScan(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.StartScan()
	require.NoError(t, err)

	f.svc.ResetScan()
	assert.Equal(t, CommandIdle, f.svc.CheckScanCommand().Status)
	assert.Equal(t, guard.PhaseIdle, f.svc.ScanResult().Phase)

	_, err = f.svc.StartScan()
	assert.NoError(t, err)
}

func TestLend_ConsumesLastScan(t *testing.T) {
	f := newFixture(t, nil)
	f.borrowings.On("BookStatus", mock.Anything, "53A0A434").Return(available("53A0A434", 1), nil).Once()
	detail := &borrowing.Detail{Borrowing: borrowing.Borrowing{ID: 10, Status: borrowing.StatusActive}}
	f.borrowings.On("Lend", mock.Anything, borrowing.LendRequest{UserName: "Alice", RFIDTag: "53A0A434"}).
		Return(detail, nil).Once()

	_, err := f.svc.ReportScan(context.Background(), ScanReport{RFID: "53A0A434"})
	require.NoError(t, err)

	got, err := f.svc.Lend(context.Background(), borrowing.LendRequest{UserName: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.ID)

	_, err = f.svc.LastScan()
	assert.ErrorIs(t, err, ErrNoScan)
	assert.Equal(t, []event.Type{event.TypeScan, event.TypeBorrowing}, f.events.types())
}

func TestLend_RejectionKeepsLastScan(t *testing.T) {
	f := newFixture(t, nil)
	f.borrowings.On("BookStatus", mock.Anything, "53A0A434").Return(available("53A0A434", 1), nil).Once()
	f.borrowings.On("Lend", mock.Anything, mock.Anything).Return(nil, borrowing.ErrUserHasActiveBorrowing).Once()

	_, err := f.svc.ReportScan(context.Background(), ScanReport{RFID: "53A0A434"})
	require.NoError(t, err)

	_, err = f.svc.Lend(context.Background(), borrowing.LendRequest{UserName: "Alice"})
	require.ErrorIs(t, err, borrowing.ErrUserHasActiveBorrowing)

	_, err = f.svc.LastScan()
	assert.NoError(t, err)
}

func TestReturn(t *testing.T) {
	f := newFixture(t, nil)
	f.borrowings.On("Return", mock.Anything, borrowing.ReturnRequest{UserName: "Alice"}).
		Return(nil, borrowing.ErrNoActiveBorrowing).Once()

	_, err := f.svc.Return(context.Background(), borrowing.ReturnRequest{UserName: "Alice"})
	assert.ErrorIs(t, err, borrowing.ErrNoActiveBorrowing)
	assert.Empty(t, f.events.types())
}

func TestEnrollFace(t *testing.T) {
	f := newFixture(t, nil)
	enrolled := &identity.Enrollment{Label: "Alice", ImageRef: "known_faces/alice_20260302_093000.jpg"}
	linked := *alice
	linked.FaceImageRef = enrolled.ImageRef

	f.users.On("Get", mock.Anything, int64(1)).Return(alice, nil).Once()
	f.faces.On("Enroll", mock.Anything, frame, "Alice").Return(enrolled, nil).Once()
	f.users.On("AttachFace", mock.Anything, int64(1), enrolled.ImageRef).Return(&linked, nil).Once()

	u, err := f.svc.EnrollFace(context.Background(), 1, frame)
	require.NoError(t, err)
	assert.True(t, u.HasFaceImage())
}

func TestEnrollFace_Rejected(t *testing.T) {
	f := newFixture(t, nil)
	f.users.On("Get", mock.Anything, int64(1)).Return(alice, nil).Once()
	f.faces.On("Enroll", mock.Anything, frame, "Alice").Return(nil, identity.ErrAlreadyKnown).Once()

	_, err := f.svc.EnrollFace(context.Background(), 1, frame)
	assert.ErrorIs(t, err, identity.ErrAlreadyKnown)
}

func TestReloadFaces(t *testing.T) {
	f := newFixture(t, nil)
	f.faces.On("Reload").Return(4, nil).Once()

	n, err := f.svc.ReloadFaces()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

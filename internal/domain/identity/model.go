package identity

import (
	"context"
	"time"
)

// Box is a face bounding box in pixels.
type Box struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

func (b Box) Area() int {
	w, h := b.Right-b.Left, b.Bottom-b.Top
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

type Face struct {
	Box       Box       `json:"box"`
	Embedding []float64 `json:"embedding"`
}

// Detector finds faces and computes their embeddings. Implementations return ErrInvalidImage
// for images they cannot decode.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]Face, error)
}

type Status string

const (
	StatusMatched      Status = "matched"
	StatusUnmatched    Status = "unmatched"
	StatusNoFace       Status = "no_face"
	StatusInvalidImage Status = "invalid_image"
)

type Result struct {
	Status   Status  `json:"status"`
	Label    string  `json:"label,omitempty"`
	Distance float64 `json:"distance,omitempty"`
	Box      *Box    `json:"box,omitempty"`
}

// Enrollment is one persisted known face.
type Enrollment struct {
	Label      string    `json:"label"`
	Embedding  []float64 `json:"embedding"`
	ImageRef   string    `json:"image_ref,omitempty"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

package device

import (
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
)

const streamBoundary = "frame"

// ServeMJPEG re-serves the camera to browsers as multipart/x-mixed-replace until the client
// goes away.
func (g *Gateway) ServeMJPEG(w http.ResponseWriter, r *http.Request) {
	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(streamBoundary); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+streamBoundary)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)

	for f := range g.Frames(r.Context()) {
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", "image/jpeg")
		header.Set("Content-Length", strconv.Itoa(len(f.JPEG)))

		part, err := mw.CreatePart(header)
		if err != nil {
			return
		}
		if _, err := part.Write(f.JPEG); err != nil {
			g.log.Debug("stream client gone", "error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

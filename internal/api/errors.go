package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/geoview/internal/draw"
	"github.com/joeblew999/geoview/internal/geodata"
	"github.com/joeblew999/geoview/internal/mapview"
	"github.com/joeblew999/geoview/internal/metrics"
	"github.com/joeblew999/geoview/internal/service"
)

// MaxUploadBytes caps a single GeoJSON upload.
const MaxUploadBytes = 50 << 20

// UploadField is the multipart field carrying the file.
const UploadField = "file"

// ReadUpload returns the name and contents of the first file in field.
// A missing file is geodata.ErrNoFile. An empty file is returned as is and
// fails validation as unparseable.
func ReadUpload(form *multipart.Form, field string) (string, []byte, error) {
	if form == nil || len(form.File[field]) == 0 {
		metrics.IngestTotal.WithLabelValues(metrics.ResultNoFile).Inc()
		return "", nil, geodata.ErrNoFile
	}
	fh := form.File[field][0]
	f, err := fh.Open()
	if err != nil {
		return "", nil, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
	if err != nil {
		return "", nil, fmt.Errorf("reading upload: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return "", nil, fmt.Errorf("upload %s exceeds %d bytes", fh.Filename, MaxUploadBytes)
	}
	return fh.Filename, data, nil
}

// Error maps a domain error to a Huma status error.
func Error(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, geodata.ErrNoFile):
		return huma.Error400BadRequest(Notice(err), err)
	case errors.Is(err, geodata.ErrParse),
		errors.Is(err, geodata.ErrSchema),
		errors.Is(err, draw.ErrUnknownMode),
		errors.Is(err, draw.ErrInvalidStyle),
		errors.Is(err, draw.ErrSnapshot),
		errors.Is(err, service.ErrUnknownStyle):
		return huma.Error422UnprocessableEntity(Notice(err), err)
	case errors.Is(err, mapview.ErrLayerNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, mapview.ErrClosed):
		return huma.Error503ServiceUnavailable(err.Error())
	default:
		slog.Error("request failed", "error", err)
		return huma.Error500InternalServerError("internal error")
	}
}

// NoticeFailed is shown for failures that are not the user's to fix.
const NoticeFailed = "Something went wrong, please try again."

// Notice is the message shown to the user for an error. Errors outside the
// domain are logged and replaced by NoticeFailed.
func Notice(err error) string {
	switch {
	case errors.Is(err, geodata.ErrNoFile):
		return "No file selected!"
	case errors.Is(err, geodata.ErrParse):
		return "Error parsing GeoJson file!"
	case errors.Is(err, geodata.ErrSchema):
		return "Invalid GeoJson File!"
	case errors.Is(err, mapview.ErrLayerNotFound),
		errors.Is(err, mapview.ErrClosed),
		errors.Is(err, service.ErrUnknownStyle),
		errors.Is(err, draw.ErrUnknownMode),
		errors.Is(err, draw.ErrInvalidStyle),
		errors.Is(err, draw.ErrSnapshot):
		return err.Error()
	default:
		slog.Error("request failed", "error", err)
		return NoticeFailed
	}
}

// NoticeAdded is shown after a successful upload.
const NoticeAdded = "GeoJson layer added to the map!"

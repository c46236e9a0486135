// Package dispatch delivers finished artifacts.
//
// A Dispatcher routes an artifact to one of three delivery modes: a local
// download, a viewer, or a chunked upload to a remote receiver. Upload
// outcomes are announced through a Notifier exactly once per dispatch.
package dispatch

import (
	"context"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/porticus-lab/go-screencapture/artifact"
	"github.com/porticus-lab/go-screencapture/chunk"
	cerrors "github.com/porticus-lab/go-screencapture/errors"
)

// Mode selects how an artifact is delivered.
type Mode int

const (
	DirectDownload Mode = iota
	NewTabDisplay
	RemoteUpload
)

// ParseMode maps a delivery token to a Mode. DIRECT_DOWNLOAD, NEW_TAB and
// DB_DOWNLOAD are recognized case-insensitively, as are the Go names.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "DIRECT_DOWNLOAD", "DIRECTDOWNLOAD", "DOWNLOAD":
		return DirectDownload, nil
	case "NEW_TAB", "NEWTABDISPLAY", "VIEW":
		return NewTabDisplay, nil
	case "DB_DOWNLOAD", "REMOTEUPLOAD", "UPLOAD":
		return RemoteUpload, nil
	default:
		return DirectDownload, cerrors.New(cerrors.ErrCodeInvalidInput, "unknown delivery mode %q", s)
	}
}

func (m Mode) String() string {
	switch m {
	case DirectDownload:
		return "DIRECT_DOWNLOAD"
	case NewTabDisplay:
		return "NEW_TAB"
	case RemoteUpload:
		return "DB_DOWNLOAD"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Metadata describes the delivered content.
type Metadata struct {
	FileName    string
	ContentType string
}

// Outcome reports where an artifact went.
type Outcome struct {
	Mode Mode
	// Location is the saved path, viewer target or upload reference.
	Location string
	// Chunks is the number of upload chunks; zero for local modes.
	Chunks int
	Bytes  int
}

// Saver writes a named file.
type Saver interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// Viewer displays content to the user.
type Viewer interface {
	Show(ctx context.Context, contentType string, body []byte) (string, error)
}

// UploadRequest is the chunked payload handed to an Uploader.
type UploadRequest struct {
	Chunks      []string
	ContentType string
	FileName    string
}

// Uploader sends a chunked payload to a remote receiver and returns a
// reference to what was stored.
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest) (string, error)
}

// Options configures a [Dispatcher].
type Options struct {
	Saver    Saver
	Viewer   Viewer
	Uploader Uploader
	Notifier Notifier
	// ChunkSize bounds upload chunks. Defaults to [chunk.DefaultSize].
	ChunkSize int
	Logger    *log.Logger
}

// Dispatcher delivers artifacts. It holds read-only configuration and may be
// shared between concurrent captures.
type Dispatcher struct {
	opts Options
}

// New returns a Dispatcher. Missing collaborators are only an error when a
// dispatch needs them.
func New(opts Options) *Dispatcher {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = chunk.DefaultSize
	}
	if opts.Notifier == nil {
		opts.Notifier = NotifierFunc(func(context.Context, Event) {})
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Dispatcher{opts: opts}
}

// Dispatch delivers a according to mode. Failures are DISPATCH_FAILED errors
// and are also announced as an EventError notification.
func (d *Dispatcher) Dispatch(ctx context.Context, a *artifact.Artifact, mode Mode, meta Metadata) (Outcome, error) {
	if meta.ContentType == "" {
		meta.ContentType = a.ContentType()
	}
	if meta.FileName == "" {
		meta.FileName = artifact.DefaultBaseName
	}
	d.opts.Logger.Debug("dispatching artifact", "mode", mode, "file", meta.FileName, "type", meta.ContentType, "bytes", a.Len())

	var (
		out Outcome
		err error
	)
	switch mode {
	case DirectDownload:
		out, err = d.download(ctx, a, meta)
	case NewTabDisplay:
		out, err = d.show(ctx, a, meta)
	case RemoteUpload:
		out, err = d.upload(ctx, a, meta)
	default:
		err = cerrors.New(cerrors.ErrCodeInvalidInput, "unknown delivery mode %d", int(mode))
	}
	out.Mode = mode

	if err != nil {
		if !cerrors.Is(err, cerrors.ErrCodeInvalidInput) {
			err = cerrors.Wrap(cerrors.ErrCodeDispatch, err, "%s delivery of %s", mode, meta.FileName)
		}
		d.opts.Notifier.Notify(ctx, Event{Kind: EventError, Mode: mode, FileName: meta.FileName, Err: err})
		return out, err
	}
	if mode == RemoteUpload {
		d.opts.Notifier.Notify(ctx, Event{Kind: EventSaved, Mode: mode, FileName: meta.FileName, Location: out.Location})
	}
	d.opts.Logger.Info("artifact delivered", "mode", mode, "location", out.Location)
	return out, nil
}

func (d *Dispatcher) download(ctx context.Context, a *artifact.Artifact, meta Metadata) (Outcome, error) {
	if d.opts.Saver == nil {
		return Outcome{}, fmt.Errorf("no saver configured")
	}
	loc, err := d.opts.Saver.Save(ctx, meta.FileName, a.Bytes())
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Location: loc, Bytes: a.Len()}, nil
}

func (d *Dispatcher) show(ctx context.Context, a *artifact.Artifact, meta Metadata) (Outcome, error) {
	if d.opts.Viewer == nil {
		return Outcome{}, fmt.Errorf("no viewer configured")
	}
	contentType, body := meta.ContentType, a.Bytes()
	if a.Kind() == artifact.Image {
		contentType, body = "text/html", imagePage(meta.FileName, a.DataURI())
	}
	loc, err := d.opts.Viewer.Show(ctx, contentType, body)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Location: loc, Bytes: a.Len()}, nil
}

func (d *Dispatcher) upload(ctx context.Context, a *artifact.Artifact, meta Metadata) (Outcome, error) {
	if d.opts.Uploader == nil {
		return Outcome{}, fmt.Errorf("no uploader configured")
	}
	chunks, err := chunk.Split(chunk.StripDataURIPrefix(a.DataURI()), d.opts.ChunkSize)
	if err != nil {
		return Outcome{}, err
	}
	d.opts.Logger.Debug("uploading", "chunks", len(chunks), "chunk_size", d.opts.ChunkSize)

	ref, err := d.opts.Uploader.Upload(ctx, UploadRequest{
		Chunks:      chunks,
		ContentType: meta.ContentType,
		FileName:    meta.FileName,
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Location: ref, Chunks: len(chunks), Bytes: a.Len()}, nil
}

// imagePage wraps an image data URI in a minimal HTML page.
func imagePage(title, dataURI string) []byte {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title></head><body><img src=\"")
	b.WriteString(dataURI)
	b.WriteString("\" /></body></html>\n")
	return []byte(b.String())
}

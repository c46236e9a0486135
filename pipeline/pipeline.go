// Package pipeline runs a capture from element selection to delivery.
//
// A run moves through a fixed sequence of states:
//
//	Idle -> Preparing -> Rasterizing -> Encoding -> Dispatching -> Done
//
// and to Failed from any non-terminal state. Every external effect goes
// through an interface in Deps, so the same Runner drives a headless browser
// in production and fakes in tests.
//
// # Guarantees
//
//   - The busy indicator is acquired before Preparing and released on every
//     exit path.
//   - Diagram normalization is best effort. Its failure is recorded as a
//     warning and never aborts the run. Its restore step always runs after
//     rasterization, whatever the outcome.
//   - The Completion callback fires exactly once per run.
//
// # Usage
//
//	runner := pipeline.New(pipeline.Deps{
//	    Source:     page,
//	    Normalizer: page,
//	    Layout:     engine,
//	    Builder:    document.NewBuilder(),
//	    Dispatcher: dispatch.New(dispatch.Options{Saver: dispatch.FileSaver{Dir: "out"}}),
//	})
//	res, err := runner.Run(ctx, pipeline.Request{Selector: "#report", Type: artifact.PDF}, nil)
package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/porticus-lab/go-screencapture/artifact"
	"github.com/porticus-lab/go-screencapture/bitmap"
	"github.com/porticus-lab/go-screencapture/dispatch"
	"github.com/porticus-lab/go-screencapture/document"
	"github.com/porticus-lab/go-screencapture/layout"
	"github.com/porticus-lab/go-screencapture/remote"
)

// Bounds is the size of a capture target in CSS pixels.
type Bounds struct {
	Width, Height int
}

// RasterOptions tune rasterization.
type RasterOptions struct {
	// Background is a CSS color painted behind transparent content.
	Background string
	// Width and Height of the captured area in CSS pixels.
	Width, Height int
	// LetterRendering asks for glyph-by-glyph text rendering.
	LetterRendering bool
	// AllowTaint permits cross-origin images in the output.
	AllowTaint bool
}

// Source is the document being captured.
type Source interface {
	// Bounds returns the size of the element matching selector. The
	// selector "body" means the visible viewport.
	Bounds(ctx context.Context, selector string) (Bounds, error)
	Rasterize(ctx context.Context, selector string, opts RasterOptions) (*bitmap.Bitmap, error)
	// OuterHTML returns the serialized markup of the element.
	OuterHTML(ctx context.Context, selector string) (string, error)
	// Stylesheets returns linked stylesheet URLs and the document's
	// readable inline CSS.
	Stylesheets(ctx context.Context) (links []string, inlineCSS string, err error)
}

// Normalizer prepares the document for rasterization, for example by
// replacing inline SVG with raster images. restore undoes the change and
// is non-nil whenever err is nil.
type Normalizer interface {
	Normalize(ctx context.Context, selector string) (restore func(), err error)
}

// Layout computes page geometry. [*layout.Engine] implements it.
type Layout interface {
	Compute(widthPx, heightPx int, hint string) (layout.Geometry, error)
}

// Builder assembles a PDF. [*document.Builder] implements it.
type Builder interface {
	Build(bm *bitmap.Bitmap, g layout.Geometry) (*document.Document, error)
}

// Dispatcher delivers artifacts. [*dispatch.Dispatcher] implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, a *artifact.Artifact, mode dispatch.Mode, meta dispatch.Metadata) (dispatch.Outcome, error)
}

// Release ends a busy period.
type Release func()

// Busy shows a progress indicator while a capture runs. The indicator must
// not be part of the captured output.
type Busy interface {
	Acquire(msg string) Release
}

// BusyFunc adapts a function to the Busy interface.
type BusyFunc func(msg string) Release

// Acquire calls f(msg).
func (f BusyFunc) Acquire(msg string) Release { return f(msg) }

// Deps are the collaborators of a Runner. Source, Layout, Builder and
// Dispatcher are required; Converter is required for HTML rendering.
type Deps struct {
	Source     Source
	Normalizer Normalizer
	Converter  remote.Converter
	Layout     Layout
	Builder    Builder
	Dispatcher Dispatcher
	Busy       Busy
	Observer   Observer
	// Notifier is told about failures that happen before delivery. The
	// Dispatcher announces its own outcomes.
	Notifier dispatch.Notifier
	Logger   *log.Logger
}

// Request describes one capture.
type Request struct {
	// ID identifies the run in logs. Generated when empty.
	ID       string
	Selector string
	Mode     dispatch.Mode
	Type     artifact.Type

	Background      string
	Width, Height   int // override the element's measured size when > 0
	LetterRendering bool
	AllowTaint      bool

	// LayoutHint selects the PDF layout strategy (CONT_PAGE, MULTI_PAGE_A4,
	// SINGLE_A4).
	LayoutHint string
	// JPEGQuality applies to JPEG output. Defaults to 90.
	JPEGQuality int
	// FileName is the base download name, without extension.
	FileName string

	// RenderHTML sends the element's markup to the Converter instead of
	// rasterizing it. The result is always a PDF download.
	RenderHTML bool
	// Shell configures the document built around the markup.
	Shell remote.Shell

	// Logging logs the resolved request before the run starts.
	Logging bool
}

// Result describes a finished run.
type Result struct {
	ID       string
	State    State
	FileName string
	Bounds   Bounds
	// Geometry is set for rasterized PDF output.
	Geometry *layout.Geometry
	Artifact *artifact.Artifact
	Outcome  dispatch.Outcome
	// Warnings holds soft failures that did not stop the run.
	Warnings []error
	Duration time.Duration
}

// Outcome is passed to a Completion callback.
type Outcome struct {
	ID     string
	State  State
	Err    error
	Result *Result
}

// Completion is called once when a run ends, successfully or not.
type Completion func(Outcome)

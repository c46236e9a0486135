// Package screencapture captures a region of a web page and delivers it as
// a PNG, a JPEG or a paginated PDF.
//
// The capture itself is run by [pipeline.Runner]; this package provides its
// browser-side collaborators on top of headless Chrome (Chrome DevTools
// Protocol) and wires them to configuration.
//
// # Capturing
//
// For a configured capture use [Capture]:
//
//	b, err := screencapture.NewBrowser(screencapture.WithNoSandbox())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close()
//
//	cfg, err := config.Load("capture.yaml")
//	res, err := screencapture.Capture(ctx, b, cfg, screencapture.Setup{}, nil)
//
// To drive a page yourself, open it and build a runner around it:
//
//	p, err := b.OpenURL(ctx, "https://example.com/report")
//	defer p.Close()
//
//	runner, err := screencapture.Setup{Settings: cfg.Settings, Browser: b}.Runner(p)
//	res, err := runner.Run(ctx, pipeline.Request{Selector: "#chart", Type: artifact.PDF}, nil)
//
// A [Page] measures, rasterizes and serializes elements. Before rasterizing,
// [Page.Normalize] swaps inline SVG diagrams for PNG images drawn in Go and
// puts them back afterwards.
//
// # Printing HTML
//
// A [Browser] also prints standalone HTML documents to PDF, which makes it a
// local stand-in for a remote conversion service:
//
//	pdf, err := b.PrintHTML(ctx, "<h1>Hello</h1>", &screencapture.PrintConfig{
//	    Size:        screencapture.A4,
//	    Orientation: screencapture.Landscape,
//	    Margin:      screencapture.UniformMargin(15),
//	})
//
// Chrome or Chromium must be available in PATH, or use [WithAutoDownload]:
//
//	b, err := screencapture.NewBrowser(screencapture.WithAutoDownload())
package screencapture

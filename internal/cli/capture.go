package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	screencapture "github.com/porticus-lab/go-screencapture"
	"github.com/porticus-lab/go-screencapture/config"
	"github.com/porticus-lab/go-screencapture/dispatch"
	cerrors "github.com/porticus-lab/go-screencapture/errors"
	"github.com/porticus-lab/go-screencapture/pipeline"
)

func newCaptureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture [url]",
		Short: "Capture an element of a web page",
		Long: `Capture opens the page in headless Chrome, captures the element matching
--selector and delivers the result.

Delivery modes:
  DIRECT_DOWNLOAD  write the file to the output directory (default)
  NEW_TAB          open the result in the system viewer
  DB_DOWNLOAD      upload the result in base64 chunks to --upload-url
  PDFSHIFT         convert the element's HTML to PDF and download it

PDF layouts (--type PDF):
  CONT_PAGE        one page as long as the content, up to 5080 mm
  MULTI_PAGE_A4    the content sliced across A4 pages
  SINGLE_A4        the content scaled onto one A4 page (default)`,
		Example: `  screencapture capture https://example.com
  screencapture capture https://example.com/report -s "#chart" -t PDF -l MULTI_PAGE_A4
  screencapture capture -c capture.yaml --mode DB_DOWNLOAD --upload-url http://localhost:8095/captures`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			if len(args) == 1 {
				cfg.Request.URL = args[0]
			}
			if err := applyCaptureFlags(cmd.Flags(), &cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.Request.URL == "" {
				return fmt.Errorf("no URL given: pass one as an argument or set request.url")
			}
			return runCapture(cmd, cfg)
		},
	}

	f := cmd.Flags()
	f.StringP("selector", "s", "", `CSS selector of the element to capture ("body" is the viewport)`)
	f.StringP("mode", "m", "", "delivery mode: DIRECT_DOWNLOAD, NEW_TAB, DB_DOWNLOAD or PDFSHIFT")
	f.StringP("type", "t", "", "output type: PNG, JPEG or PDF")
	f.StringP("layout", "l", "", "PDF layout: CONT_PAGE, MULTI_PAGE_A4 or SINGLE_A4")
	f.StringP("name", "n", "", "file name without extension")
	f.StringP("output-dir", "o", "", "directory for downloads")
	f.String("background", "", "CSS color behind transparent content")
	f.Int("width", 0, "capture width in CSS pixels (0 keeps the element's width)")
	f.Int("height", 0, "capture height in CSS pixels (0 keeps the element's height)")
	f.Bool("letter-rendering", false, "render text glyph by glyph")
	f.Bool("allow-taint", false, "allow cross-origin images")
	f.Bool("logging", false, "log the capture request and each step")
	f.String("upload-url", "", "receiver URL for DB_DOWNLOAD")
	f.String("upload-token", "", "bearer token for the receiver")
	f.Int("chunk-size", 0, "upload chunk size in characters")
	f.String("pdfshift-key", "", "PDFShift API key for PDFSHIFT mode (the local browser prints when empty)")
	f.String("chrome", "", "path to the Chrome or Chromium executable")
	f.Duration("timeout", 0, "timeout of each browser operation")
	f.Bool("no-sandbox", false, "disable the Chrome sandbox (needed as root)")
	f.Bool("auto-download", false, "download Chromium when none is installed")
	return cmd
}

// applyCaptureFlags copies the flags the user set onto cfg.
func applyCaptureFlags(fs *pflag.FlagSet, cfg *config.Config) error {
	var err error
	str := func(name string, dst *string) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetInt(name)
		}
	}
	flag := func(name string, dst *bool) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetBool(name)
		}
	}

	r, s := &cfg.Request, &cfg.Settings
	str("selector", &r.Selector)
	str("mode", &r.Mode)
	str("type", &r.ImageType)
	str("layout", &r.Layout)
	str("name", &r.FileName)
	str("background", &r.Background)
	num("width", &r.Width)
	num("height", &r.Height)
	flag("letter-rendering", &r.LetterRendering)
	flag("allow-taint", &r.AllowTaint)
	flag("logging", &r.Logging)
	str("output-dir", &s.OutputDir)
	str("upload-url", &s.Upload.URL)
	str("upload-token", &s.Upload.Token)
	num("chunk-size", &s.Upload.ChunkSize)
	str("pdfshift-key", &s.PDFShift.Key)
	str("chrome", &s.Browser.Path)
	flag("no-sandbox", &s.Browser.NoSandbox)
	flag("auto-download", &s.Browser.AutoDownload)
	if err == nil && fs.Changed("timeout") {
		s.Browser.Timeout.Duration, err = fs.GetDuration("timeout")
	}
	return err
}

func runCapture(cmd *cobra.Command, cfg config.Config) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	logger := loggerFromContext(ctx)
	if cfg.Request.Logging {
		logger = logger.WithPrefix("capture")
		logger.SetLevel(log.DebugLevel)
	}
	prog := newProgress(logger)

	opts := append(screencapture.BrowserOptions(cfg.Settings.Browser), screencapture.WithLogger(logger))
	b, err := screencapture.NewBrowser(opts...)
	if err != nil {
		return err
	}
	defer b.Close()

	setup := screencapture.Setup{
		Busy:   spinnerBusy(ctx, cmd.ErrOrStderr()),
		Logger: logger,
		Observer: pipeline.ObserverFunc(func(_ context.Context, from, to pipeline.State) {
			logger.Debug("state", "from", from, "to", to)
		}),
		Notifier: dispatch.NotifierFunc(func(_ context.Context, ev dispatch.Event) {
			if ev.Kind == dispatch.EventSaved {
				printInfo(out, "stored remotely as %s", StyleValue.Render(ev.Location))
			}
		}),
	}

	res, err := screencapture.Capture(ctx, b, cfg, setup, nil)
	if err != nil {
		printError(out, "capture failed: %s", cerrors.UserMessage(err))
		return err
	}
	prog.done("capture finished", "state", res.State)

	for _, w := range res.Warnings {
		printWarning(out, "%s", w)
	}
	printSuccess(out, "Captured %s %s", StyleTitle.Render(cfg.Request.Selector), StyleDim.Render("("+describe(res)+")"))
	if res.Outcome.Mode != dispatch.RemoteUpload {
		printFile(out, res.Outcome.Location)
	}
	return nil
}

// describe summarizes a result, for example "PDF · 3 pages · 812 KB".
func describe(res *pipeline.Result) string {
	parts := []string{strings.ToUpper(strings.TrimPrefix(extOf(res.FileName), "."))}
	if res.Artifact != nil && res.Artifact.Pages() > 0 {
		parts = append(parts, fmt.Sprintf("%d pages", res.Artifact.Pages()))
	}
	parts = append(parts, humanBytes(res.Outcome.Bytes))
	if res.Outcome.Chunks > 0 {
		parts = append(parts, fmt.Sprintf("%d chunks", res.Outcome.Chunks))
	}
	return strings.Join(parts, " · ")
}

func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}

func humanBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%d KB", n>>10)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

package dispatch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// FileSaver writes downloads into a directory.
type FileSaver struct {
	// Dir is created on first use. Empty means the working directory.
	Dir string
	// Perm defaults to 0o644.
	Perm os.FileMode
}

// Save writes data to Dir/name and returns the path. The name is reduced to
// its base element so it cannot escape Dir.
func (s FileSaver) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	perm := s.Perm
	if perm == 0 {
		perm = 0o644
	}
	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, data, perm); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// SystemViewer writes content to a temporary file and hands it to the
// platform's default opener.
type SystemViewer struct {
	// Dir holds the temporary files. Empty means os.TempDir().
	Dir string
	// Open overrides the opener command, for example []string{"firefox"}.
	Open []string
}

// Show writes body to a temporary file and launches the opener on it without
// waiting for it to exit. It returns the file path.
func (v SystemViewer) Show(ctx context.Context, contentType string, body []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(v.Dir, "screencapture-*"+extensionFor(contentType))
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := f.Write(body); err != nil {
		f.Close()
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	args := append(v.opener(), f.Name())
	// The viewer outlives the capture, so it is not tied to ctx.
	cmd := exec.Command(args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return f.Name(), fmt.Errorf("launching viewer: %w", err)
	}
	go cmd.Wait() //nolint:errcheck
	return f.Name(), nil
}

func (v SystemViewer) opener() []string {
	if len(v.Open) > 0 {
		return append([]string(nil), v.Open...)
	}
	switch runtime.GOOS {
	case "darwin":
		return []string{"open"}
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler"}
	default:
		return []string{"xdg-open"}
	}
}

func extensionFor(contentType string) string {
	switch contentType {
	case "application/pdf":
		return ".pdf"
	case "text/html":
		return ".html"
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	default:
		return ""
	}
}

package artifact

import "strings"

// DefaultBaseName is used when no file name is configured.
const DefaultBaseName = "screencapture"

var reserved = strings.NewReplacer(
	`\`, "_", "/", "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_",
)

// FileName builds the download name for a capture. The base is trimmed,
// defaults to [DefaultBaseName], and has path and shell reserved characters
// replaced by underscores. HTML-rendered captures are always PDFs.
func FileName(base string, t Type, renderHTML bool) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = DefaultBaseName
	}
	if renderHTML {
		t = PDF
	}
	return reserved.Replace(base) + t.Extension()
}

package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/porticus-lab/go-screencapture/document"
)

func newInspectCmd() *cobra.Command {
	var pageRange string

	cmd := &cobra.Command{
		Use:   "inspect <file.pdf>",
		Short: "Print the page sizes of a PDF",
		Example: `  screencapture inspect report.pdf
  screencapture inspect -p 1-3 report.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pages, err := document.InspectFile(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			indices, err := parsePageRange(pageRange, len(pages))
			if err != nil {
				return fmt.Errorf("invalid page range %q: %w", pageRange, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, StyleTitle.Render(args[0]))
			printKeyValue(out, "pages", strconv.Itoa(len(pages)))
			for _, i := range indices {
				p := pages[i]
				size := fmt.Sprintf("%.1f × %.1f mm", p.Width/document.PointsPerMM, p.Height/document.PointsPerMM)
				if p.Rotation != 0 {
					size += fmt.Sprintf(" (rotated %d°)", p.Rotation)
				}
				printKeyValue(out, fmt.Sprintf("page %d", i+1), size)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&pageRange, "pages", "p", "", `page range, e.g. "1", "1-5", "1,3,5" (default: all)`)
	return cmd
}

// parsePageRange converts a page range string to a slice of 0-based page indices.
// Supported formats: "" (all), "3" (single page), "1-5" (range), "1,3,5" (list).
func parsePageRange(rng string, total int) ([]int, error) {
	if rng == "" {
		indices := make([]int, total)
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}

	var indices []int
	seen := make(map[int]bool)
	add := func(p int) {
		if !seen[p] {
			indices = append(indices, p-1)
			seen[p] = true
		}
	}

	for _, part := range strings.Split(rng, ",") {
		part = strings.TrimSpace(part)
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, fmt.Errorf("invalid page number: %s", lo)
			}
			end, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, fmt.Errorf("invalid page number: %s", hi)
			}
			if start < 1 || end > total || start > end {
				return nil, fmt.Errorf("page range %d-%d out of bounds (1-%d)", start, end, total)
			}
			for p := start; p <= end; p++ {
				add(p)
			}
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid page number: %s", part)
		}
		if p < 1 || p > total {
			return nil, fmt.Errorf("page %d out of bounds (1-%d)", p, total)
		}
		add(p)
	}
	return indices, nil
}

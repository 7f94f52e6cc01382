package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/pweingar/FoenixMgr/manager"
)

// ProgressBar renders a text progress bar.
type ProgressBar struct {
	width int
}

func NewProgressBar(width int) *ProgressBar {
	return &ProgressBar{width: width}
}

func (pb *ProgressBar) Render(percentage float64) string {
	filled := int(float64(pb.width) * percentage / 100.0)
	if filled > pb.width {
		filled = pb.width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("#", filled) + strings.Repeat(".", pb.width-filled)
	return fmt.Sprintf("[%s] %5.1f%%", bar, percentage)
}

// progressPrinter returns a callback that redraws a bar on a terminal and
// prints one line per phase otherwise.
func progressPrinter(w io.Writer, tty bool) manager.ProgressCallback {
	bar := NewProgressBar(40)
	var lastPhase string

	return func(p manager.Progress) {
		changed := p.Phase != lastPhase
		if changed && tty && lastPhase == manager.PhaseUploading {
			fmt.Fprintln(w)
		}
		lastPhase = p.Phase

		switch p.Phase {
		case manager.PhaseUploading:
			switch {
			case tty && p.TotalBytes > 0:
				fmt.Fprintf(w, "\r%s %d/%d bytes", bar.Render(p.Percentage), p.BytesWritten, p.TotalBytes)
			case tty:
				fmt.Fprintf(w, "\rUploading: %d bytes", p.BytesWritten)
			case changed:
				fmt.Fprintln(w, "Uploading...")
			}
		case manager.PhaseErasing:
			if changed {
				fmt.Fprintln(w, "Erasing flash...")
			}
		case manager.PhaseProgramming:
			if changed {
				fmt.Fprintln(w, "Programming flash...")
			}
		case manager.PhaseComplete:
			fmt.Fprintf(w, "Done: %d bytes\n", p.BytesWritten)
		}
	}
}

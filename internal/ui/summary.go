package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/flacmp3/internal/shared"
	"github.com/desertthunder/flacmp3/internal/tasks"
)

// Summary renders the counts and timing of a finished run.
func Summary(r *tasks.Report) string {
	return styles.Summary(r)
}

// Summary renders r with the palette's styles.
func (p *Palette) Summary(r *tasks.Report) string {
	title := "Conversion finished"
	if r.Mode == "" {
		title = "Conversion rejected"
	}

	rows := []string{
		p.row("Converted", p.ok.Render(fmt.Sprint(r.Converted()))),
		p.row("Failed", p.failed(r.Failed())),
	}
	if skipped := len(r.ErrorsOf(shared.ErrDestinationExists)); skipped > 0 {
		rows = append(rows, p.row("Skipped", p.warn.Render(fmt.Sprintf("%d (destination exists)", skipped))))
	}
	if r.Mode != "" {
		rows = append(rows, p.row("Mode", fmt.Sprintf("%s, %d worker(s)", r.Mode, r.Workers)))
	}
	rows = append(rows,
		p.row("Elapsed", r.Elapsed().Round(time.Millisecond).String()),
		p.help.Render("run "+r.RunID),
	)

	body := lipgloss.JoinVertical(lipgloss.Left, p.title.Render(title), strings.Join(rows, "\n"))
	return p.box.Render(body)
}

func (p *Palette) failed(n int) string {
	if n == 0 {
		return p.ok.Render("0")
	}
	return p.err.Render(fmt.Sprint(n))
}

func (p *Palette) row(label, value string) string {
	return fmt.Sprintf("%-10s %s", label+":", value)
}

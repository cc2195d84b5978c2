// Package terminal renders a reign to the console and reads the monarch's
// input. It holds no game state.
package terminal

import (
	"bufio"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/talgya/evolving-kingdom/internal/config"
	"github.com/talgya/evolving-kingdom/internal/engine"
)

const width = 70

// UI implements engine.Observer and engine.Decider on a pair of streams.
type UI struct {
	out   io.Writer
	in    *bufio.Reader
	color bool
	st    styles

	cfg config.Config

	startReader sync.Once
	lines       chan line
	inErr       error
}

type line struct {
	text string
	err  error
}

var (
	_ engine.Observer = (*UI)(nil)
	_ engine.Decider  = (*UI)(nil)
)

// New creates a UI. Colour is used only when out is a terminal and NO_COLOR
// is unset.
func New(in io.Reader, out io.Writer, cfg config.Config) *UI {
	color := isTerminal(out) && os.Getenv("NO_COLOR") == ""

	r := lipgloss.NewRenderer(out)
	if color {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}

	return &UI{
		out:   out,
		in:    bufio.NewReader(in),
		color: color,
		st:    newStyles(r),
		cfg:   cfg,
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type styles struct {
	r *lipgloss.Renderer

	header  lipgloss.Style
	rule    lipgloss.Style
	info    lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	fail    lipgloss.Style
	muted   lipgloss.Style
	card    lipgloss.Style
	panel   lipgloss.Style
	quote   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	magenta := lipgloss.Color("13")
	cyan := lipgloss.Color("14")
	green := lipgloss.Color("10")
	yellow := lipgloss.Color("11")
	red := lipgloss.Color("9")

	return styles{
		r:       r,
		header:  r.NewStyle().Bold(true).Foreground(magenta),
		rule:    r.NewStyle().Foreground(lipgloss.Color("8")),
		info:    r.NewStyle().Foreground(cyan),
		success: r.NewStyle().Foreground(green),
		warning: r.NewStyle().Foreground(yellow),
		fail:    r.NewStyle().Foreground(red),
		muted:   r.NewStyle().Faint(true),
		card: r.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			PaddingLeft(1).
			PaddingRight(1).
			Width(width - 2),
		panel: r.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderBottom(true).
			BorderForeground(magenta).
			Width(width),
		quote: r.NewStyle().Italic(true).Width(width - 4).PaddingLeft(2),
	}
}

// faction returns the style of a faction's name.
func (s styles) faction(spec config.FactionSpec) lipgloss.Style {
	return s.r.NewStyle().Bold(true).Foreground(lipgloss.Color(spec.Color))
}

package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	colorReset    = "\033[0m"
	colorBold     = "\033[1m"
	colorNeonCyan = "\033[96m"
	colorNeonMag  = "\033[95m"
	colorPurple   = "\033[35m"
)

// Summary is what the operator sees after each iteration.
type Summary struct {
	Round    int
	Total    int
	Written  []string
	Critique string
}

// Console prints the banner and iteration summaries for the operator.
type Console struct {
	Out   io.Writer
	Color bool
	Width int
}

// NewConsole writes to f, enabling colour and sizing only when f is a terminal.
func NewConsole(f *os.File) *Console {
	c := &Console{Out: f, Width: 80}
	fd := int(f.Fd())
	if term.IsTerminal(fd) {
		c.Color = true
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			c.Width = w
		}
	}
	return c
}

func (c *Console) paint(color, s string) string {
	if !c.Color {
		return s
	}
	return color + s + colorReset
}

func (c *Console) rule() string {
	w := c.Width
	if w > 60 {
		w = 60
	}
	if w < 10 {
		w = 10
	}
	return strings.Repeat("─", w)
}

// PrintBanner announces a run.
func (c *Console) PrintBanner(goal, workspace string, iterations int) {
	fmt.Fprintln(c.Out, c.paint(colorPurple, c.rule()))
	fmt.Fprintln(c.Out, c.paint(colorBold+colorNeonCyan, ">> CREATOR")+" "+goal)
	fmt.Fprintf(c.Out, "Workspace: %s\nIterations: %d\n", workspace, iterations)
	fmt.Fprintln(c.Out, c.paint(colorPurple, c.rule()))
}

// Report prints one iteration summary.
func (c *Console) Report(ctx context.Context, s Summary) error {
	files := "none"
	if len(s.Written) > 0 {
		files = strings.Join(s.Written, ", ")
	}

	_, err := fmt.Fprintf(c.Out, "\n%s\nWrote files: %s\nCritique: %s\n",
		c.paint(colorNeonCyan, fmt.Sprintf("Iteration %d/%d", s.Round, s.Total)),
		files,
		c.paint(colorNeonMag, s.Critique),
	)
	return err
}

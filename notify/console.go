package notify

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Console prints notifications to a terminal. Colors are used only when the
// output is a terminal.
type Console struct {
	mu   sync.Mutex
	out  io.Writer
	open map[TicketID]Content

	pending *color.Color
	success *color.Color
	failure *color.Color
	faint   *color.Color
}

// NewConsole creates a console notifier on stderr.
func NewConsole() *Console {
	useColor := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	return NewConsoleWriter(colorable.NewColorableStderr(), useColor)
}

// NewConsoleWriter creates a console notifier on an arbitrary writer.
func NewConsoleWriter(out io.Writer, useColor bool) *Console {
	c := &Console{
		out:     out,
		open:    make(map[TicketID]Content),
		pending: color.New(color.FgYellow),
		success: color.New(color.FgGreen, color.Bold),
		failure: color.New(color.FgRed, color.Bold),
		faint:   color.New(color.Faint),
	}
	for _, col := range []*color.Color{c.pending, c.success, c.failure, c.faint} {
		if useColor {
			col.EnableColor()
		} else {
			col.DisableColor()
		}
	}
	return c
}

func (c *Console) Loading(content Content) TicketID {
	id := NewTicketID()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open[id] = content
	c.pending.Fprint(c.out, "... ")
	c.line(content)
	return id
}

func (c *Console) Success(content Content, opts Options) {
	c.mu.Lock()
	defer c.mu.Unlock()
	icon := opts.Icon
	if icon == "" {
		icon = "ok"
	}
	c.success.Fprintf(c.out, "%s ", icon)
	c.line(content)
}

func (c *Console) Error(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failure.Fprint(c.out, "error ")
	fmt.Fprintln(c.out, message)
}

func (c *Console) Remove(id TicketID) {
	c.mu.Lock()
	delete(c.open, id)
	c.mu.Unlock()
}

// Pending returns the number of loading notifications still open.
func (c *Console) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.open)
}

func (c *Console) line(content Content) {
	fmt.Fprint(c.out, content.Message)
	if content.Link != "" {
		fmt.Fprint(c.out, " ")
		c.faint.Fprint(c.out, content.Link)
	}
	fmt.Fprintln(c.out)
}

// Package notify delivers human-readable messages to the operator.
//
// Components report through a Notifier with a catalog Key and an optional
// backend-supplied text. When the text is empty the Notifier renders the
// catalog entry for its configured language, so callers never format
// user-facing strings themselves and tests can assert on keys.
package notify

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/text/language"
)

// Level is the severity of a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notifier shows messages to the operator.
type Notifier interface {
	// Notify shows text, or the catalog entry for key when text is empty.
	Notify(level Level, key Key, text string)
}

// Error reports an error-level notification.
func Error(n Notifier, key Key, text string) {
	if n != nil {
		n.Notify(LevelError, key, text)
	}
}

// Success reports a success-level notification.
func Success(n Notifier, key Key, text string) {
	if n != nil {
		n.Notify(LevelSuccess, key, text)
	}
}

// Console writes colored notifications to a terminal stream.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	catalog *Catalog
	err     *color.Color
	ok      *color.Color
	info    *color.Color
}

var _ Notifier = (*Console)(nil)

// NewConsole returns a Console writing to out (os.Stderr when nil) in the
// given language.
func NewConsole(out io.Writer, lang language.Tag) *Console {
	if out == nil {
		out = os.Stderr
	}
	return &Console{
		out:     out,
		catalog: NewCatalog(lang),
		err:     color.New(color.FgRed, color.Bold),
		ok:      color.New(color.FgGreen),
		info:    color.New(color.FgCyan),
	}
}

// Catalog exposes the console's message catalog.
func (c *Console) Catalog() *Catalog {
	return c.catalog
}

func (c *Console) Notify(level Level, key Key, text string) {
	if text == "" {
		text = c.catalog.Text(key)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch level {
	case LevelError:
		c.err.Fprint(c.out, "✗ ")
	case LevelSuccess:
		c.ok.Fprint(c.out, "✓ ")
	default:
		c.info.Fprint(c.out, "• ")
	}
	fmt.Fprintln(c.out, text)
}

// Entry is one recorded notification.
type Entry struct {
	Level Level
	Key   Key
	Text  string
}

// Recorder keeps notifications in memory. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

var _ Notifier = (*Recorder)(nil)

func (r *Recorder) Notify(level Level, key Key, text string) {
	r.mu.Lock()
	r.entries = append(r.entries, Entry{Level: level, Key: key, Text: text})
	r.mu.Unlock()
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Count returns how many notifications carried key.
func (r *Recorder) Count(key Key) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.Key == key {
			n++
		}
	}
	return n
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(Level, Key, string) {}

// Package catalog renders every user-facing text from named templates. The
// built-in set can be overridden per key by a YAML file, which is reloaded
// when it changes on disk.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/nudge/internal/task"
)

//go:embed default.yaml
var defaultYAML []byte

type Key string

const (
	KeyInitial    Key = "initial"
	KeyEscalation Key = "escalation"
	KeyAdded      Key = "added"
	KeyCompleted  Key = "completed"
	KeyNotFound   Key = "not_found"
	KeyListEmpty  Key = "list_empty"
	KeyList       Key = "list"
	KeyCleared    Key = "cleared"
	KeyClearEmpty Key = "clear_empty"
	KeyTime       Key = "time"
	KeyHelp       Key = "help"
	KeyUnknown    Key = "unknown"
	KeyParseError Key = "parse_error"
	KeyPastDue    Key = "past_due"
	KeyUsageAdd   Key = "usage_add"
	KeyUsageDone  Key = "usage_done"
	KeyError      Key = "error"
)

const timeLayout = "Mon 02/01/2006 15:04"

type Catalog struct {
	loc      *time.Location
	path     string
	defaults map[Key]string
	current  atomic.Pointer[template.Template]
}

// New returns a catalog with the built-in messages only.
func New(loc *time.Location) (*Catalog, error) {
	return Load("", loc)
}

// Load builds a catalog whose messages are overridden by the YAML file at
// path. An empty path means no overrides.
func Load(path string, loc *time.Location) (*Catalog, error) {
	if loc == nil {
		loc = time.UTC
	}
	var defaults map[Key]string
	if err := yaml.Unmarshal(defaultYAML, &defaults); err != nil {
		return nil, fmt.Errorf("failed to parse built-in messages: %w", err)
	}
	c := &Catalog{loc: loc, path: path, defaults: defaults}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the override file. On error the previous messages stay in
// effect.
func (c *Catalog) Reload() error {
	texts := make(map[Key]string, len(c.defaults))
	for k, v := range c.defaults {
		texts[k] = v
	}
	if c.path != "" {
		data, err := os.ReadFile(c.path)
		if err != nil {
			return fmt.Errorf("failed to read messages file: %w", err)
		}
		var overrides map[Key]string
		if err := yaml.Unmarshal(data, &overrides); err != nil {
			return fmt.Errorf("failed to parse messages file %s: %w", c.path, err)
		}
		for k, v := range overrides {
			if _, ok := c.defaults[k]; !ok {
				return fmt.Errorf("messages file %s: unknown key %q", c.path, k)
			}
			texts[k] = v
		}
	}

	root := template.New("catalog").Funcs(c.funcs())
	for k, v := range texts {
		if _, err := root.New(string(k)).Parse(v); err != nil {
			return fmt.Errorf("message %q: %w", k, err)
		}
	}
	c.current.Store(root)
	return nil
}

func (c *Catalog) funcs() template.FuncMap {
	return template.FuncMap{
		"when":    c.Format,
		"overdue": FormatDuration,
		"join":    strings.Join,
	}
}

func (c *Catalog) Location() *time.Location {
	return c.loc
}

// Format renders an instant in the catalog's timezone.
func (c *Catalog) Format(t time.Time) string {
	return t.In(c.loc).Format(timeLayout)
}

// Render executes the template for key. A failing template is logged and the
// key itself is returned so the user still gets a reply.
func (c *Catalog) Render(key Key, data any) string {
	var buf bytes.Buffer
	if err := c.current.Load().ExecuteTemplate(&buf, string(key), data); err != nil {
		slog.Error("failed to render message", "key", key, "error", err)
		return string(key)
	}
	return buf.String()
}

func (c *Catalog) Initial(t *task.Task) string {
	return c.Render(KeyInitial, map[string]any{"Task": t})
}

func (c *Catalog) Escalation(t *task.Task, overdue time.Duration) string {
	return c.Render(KeyEscalation, map[string]any{"Task": t, "Overdue": overdue})
}

// FormatDuration spells out a duration in whole hours and minutes.
func FormatDuration(d time.Duration) string {
	d = d.Truncate(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	switch {
	case h > 0 && m > 0:
		return plural(h, "hour") + " " + plural(m, "minute")
	case h > 0:
		return plural(h, "hour")
	default:
		return plural(m, "minute")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

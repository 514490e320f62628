package command

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kazz187/nudge/internal/catalog"
	"github.com/kazz187/nudge/internal/task"
	"github.com/kazz187/nudge/internal/timeparse"
	"github.com/kazz187/nudge/pkg/cerr"
	"github.com/kazz187/nudge/pkg/clog"
)

// Verb is a normalized chat command.
type Verb string

const (
	VerbAdd     Verb = "add"
	VerbDone    Verb = "done"
	VerbList    Verb = "list"
	VerbClear   Verb = "clear"
	VerbTime    Verb = "time"
	VerbHelp    Verb = "help"
	VerbUnknown Verb = ""
)

var aliases = map[string]Verb{
	"add":       VerbAdd,
	"/add":      VerbAdd,
	"done":      VerbDone,
	"/done":     VerbDone,
	"list":      VerbList,
	"/list":     VerbList,
	"รายการ":    VerbList,
	"clear":     VerbClear,
	"/clear":    VerbClear,
	"ล้าง":      VerbClear,
	"time":      VerbTime,
	"/time":     VerbTime,
	"เวลา":      VerbTime,
	"help":      VerbHelp,
	"/help":     VerbHelp,
	"ช่วยเหลือ": VerbHelp,
}

// Command is one parsed chat message.
type Command struct {
	Verb Verb
	Args string
}

// Parse splits a message into a verb and its argument text. The verb is
// case-insensitive.
func Parse(text string) Command {
	text = strings.TrimSpace(text)
	head, rest, _ := strings.Cut(text, " ")
	verb, ok := aliases[strings.ToLower(head)]
	if !ok {
		return Command{Verb: VerbUnknown, Args: text}
	}
	return Command{Verb: verb, Args: strings.TrimSpace(rest)}
}

// SplitAdd separates the description from the time text of an add command.
// "desc | time" is explicit. Without a bar the trailing one or two words are
// taken as the time, whichever the resolver accepts.
func SplitAdd(args string, resolver *timeparse.Resolver, now time.Time) (description, timeText string, ok bool) {
	if desc, when, found := cutLast(args, "|"); found {
		desc, when = strings.TrimSpace(desc), strings.TrimSpace(when)
		return desc, when, desc != "" && when != ""
	}
	fields := strings.Fields(args)
	for n := 2; n >= 1; n-- {
		if len(fields) <= n {
			continue
		}
		when := strings.Join(fields[len(fields)-n:], " ")
		if _, err := resolver.Resolve(when, now); err == nil {
			return strings.Join(fields[:len(fields)-n], " "), when, true
		}
	}
	// no recognizable time; let the resolver explain what is wrong with the
	// last word
	if len(fields) >= 2 {
		return strings.Join(fields[:len(fields)-1], " "), fields[len(fields)-1], true
	}
	return "", "", false
}

func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

type listItem struct {
	Task    *task.Task
	Overdue time.Duration
}

// TextHandler answers chat messages with rendered replies.
type TextHandler struct {
	router   *Router
	resolver *timeparse.Resolver
	msgs     *catalog.Catalog
}

func NewTextHandler(router *Router, resolver *timeparse.Resolver, msgs *catalog.Catalog) *TextHandler {
	return &TextHandler{router: router, resolver: resolver, msgs: msgs}
}

// Handle runs the command in text for ownerID and returns the reply.
func (h *TextHandler) Handle(ctx context.Context, ownerID, text string) string {
	cmd := Parse(text)
	clog.AddOwner(ctx, ownerID)
	clog.AddAttribute(ctx, "command", string(cmd.Verb))

	switch cmd.Verb {
	case VerbAdd:
		return h.add(ctx, ownerID, cmd.Args)
	case VerbDone:
		if cmd.Args == "" {
			return h.msgs.Render(catalog.KeyUsageDone, nil)
		}
		t, err := h.router.CompleteTask(ctx, ownerID, cmd.Args)
		if err != nil {
			return h.failure(ctx, err, cmd.Args)
		}
		return h.msgs.Render(catalog.KeyCompleted, map[string]any{"Task": t})
	case VerbList:
		return h.list(ctx, ownerID)
	case VerbClear:
		removed := h.router.ClearTasks(ctx, ownerID)
		if len(removed) == 0 {
			return h.msgs.Render(catalog.KeyClearEmpty, nil)
		}
		return h.msgs.Render(catalog.KeyCleared, map[string]any{"Count": len(removed)})
	case VerbTime:
		return h.msgs.Render(catalog.KeyTime, map[string]any{
			"Now":  h.router.Now(),
			"Zone": h.router.Location().String(),
		})
	case VerbHelp:
		return h.msgs.Render(catalog.KeyHelp, map[string]any{"Formats": timeparse.Formats})
	default:
		return h.msgs.Render(catalog.KeyUnknown, map[string]any{"Text": cmd.Args})
	}
}

func (h *TextHandler) add(ctx context.Context, ownerID, args string) string {
	desc, when, ok := SplitAdd(args, h.resolver, h.router.Now())
	if !ok {
		return h.msgs.Render(catalog.KeyUsageAdd, nil)
	}
	t, err := h.router.AddTask(ctx, ownerID, desc, when)
	if err != nil {
		return h.failure(ctx, err, when)
	}
	return h.msgs.Render(catalog.KeyAdded, map[string]any{"Task": t})
}

func (h *TextHandler) list(ctx context.Context, ownerID string) string {
	tasks := h.router.ListTasks(ctx, ownerID)
	if len(tasks) == 0 {
		return h.msgs.Render(catalog.KeyListEmpty, nil)
	}
	now := h.router.Now()
	items := make([]listItem, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, listItem{Task: t, Overdue: t.Overdue(now).Truncate(time.Minute)})
	}
	return h.msgs.Render(catalog.KeyList, map[string]any{"Items": items})
}

// failure turns an error from the router into a reply. Only unexpected
// errors are logged.
func (h *TextHandler) failure(ctx context.Context, err error, input string) string {
	var (
		perr    *timeparse.ParseError
		pastDue *PastDueError
	)
	switch {
	case errors.As(err, &perr):
		return h.msgs.Render(catalog.KeyParseError, map[string]any{
			"Input":   perr.Input,
			"Reason":  perr.Reason,
			"Formats": timeparse.Formats,
		})
	case errors.As(err, &pastDue):
		return h.msgs.Render(catalog.KeyPastDue, map[string]any{
			"DueAt": pastDue.DueAt,
			"Now":   pastDue.Now,
		})
	case cerr.IsCode(err, cerr.NotFound):
		return h.msgs.Render(catalog.KeyNotFound, map[string]any{"ID": strings.TrimSpace(input)})
	case cerr.IsCode(err, cerr.InvalidArgument):
		return "❌ " + cerr.Message(err, "invalid input")
	default:
		clog.AddError(ctx, err)
		slog.ErrorContext(ctx, "command failed")
		return h.msgs.Render(catalog.KeyError, nil)
	}
}

package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/nudge/internal/timeparse"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{"add call mom | 14:30", Command{Verb: VerbAdd, Args: "call mom | 14:30"}},
		{"  ADD   buy milk 9:00 ", Command{Verb: VerbAdd, Args: "buy milk 9:00"}},
		{"done 3", Command{Verb: VerbDone, Args: "3"}},
		{"/done 3", Command{Verb: VerbDone, Args: "3"}},
		{"List", Command{Verb: VerbList}},
		{"รายการ", Command{Verb: VerbList}},
		{"clear", Command{Verb: VerbClear}},
		{"ล้าง", Command{Verb: VerbClear}},
		{"time", Command{Verb: VerbTime}},
		{"help", Command{Verb: VerbHelp}},
		{"hello there", Command{Verb: VerbUnknown, Args: "hello there"}},
		{"added", Command{Verb: VerbUnknown, Args: "added"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.in))
		})
	}
}

func TestSplitAdd(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Bangkok")
	require.NoError(t, err)
	r := timeparse.NewResolver(loc, 2024)
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, loc)

	tests := []struct {
		args string
		desc string
		when string
		ok   bool
	}{
		{"call mom | 14:30", "call mom", "14:30", true},
		{"a | b | 14:30", "a | b", "14:30", true},
		{"call mom 14:30", "call mom", "14:30", true},
		{"pay rent 25/12/2025 08:15", "pay rent", "25/12/2025 08:15", true},
		{"pay rent 2025-12-25 08:15", "pay rent", "2025-12-25 08:15", true},
		{"call mom 99:99", "call mom", "99:99", true},
		{"call mom |", "call mom", "", false},
		{"| 14:30", "", "14:30", false},
		{"14:30", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			desc, when, ok := SplitAdd(tt.args, r, now)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.desc, desc)
				assert.Equal(t, tt.when, when)
			}
		})
	}
}

func TestTextHandler_Conversation(t *testing.T) {
	f := newFixture(t)
	h := NewTextHandler(f.router, f.resolver, f.msgs)
	ctx := context.Background()

	reply := h.Handle(ctx, "U1", "add call mom | 14:30")
	assert.Contains(t, reply, "#1")
	assert.Contains(t, reply, "call mom")
	assert.Contains(t, reply, "Mon 10/03/2025 14:30")

	reply = h.Handle(ctx, "U1", "add water plants 11:00")
	assert.Contains(t, reply, "#2")

	f.clock.Set(f.at(13, 0))
	reply = h.Handle(ctx, "U1", "list")
	assert.Contains(t, reply, "(2)")
	assert.Contains(t, reply, "#1 call mom")
	assert.Contains(t, reply, "#2 water plants")
	assert.Contains(t, reply, "overdue 2 hours")

	reply = h.Handle(ctx, "U1", "done 2")
	assert.Contains(t, reply, "Done #2")
	reply = h.Handle(ctx, "U1", "done 2")
	assert.Contains(t, reply, "No such task: 2")
	reply = h.Handle(ctx, "U1", "done")
	assert.Contains(t, reply, "Usage: done")

	reply = h.Handle(ctx, "U1", "clear")
	assert.Contains(t, reply, "Cleared 1 task.")
	reply = h.Handle(ctx, "U1", "clear")
	assert.Contains(t, reply, "Nothing to clear")
	reply = h.Handle(ctx, "U1", "list")
	assert.Contains(t, reply, "no pending tasks")
}

func TestTextHandler_Errors(t *testing.T) {
	f := newFixture(t)
	h := NewTextHandler(f.router, f.resolver, f.msgs)
	ctx := context.Background()

	reply := h.Handle(ctx, "U1", "add trip | 31/02/2025 10:00")
	assert.Contains(t, reply, `Cannot read the time "31/02/2025 10:00"`)
	assert.Contains(t, reply, "HH:MM")

	reply = h.Handle(ctx, "U1", "add trip | 2025-03-09 10:00")
	assert.Contains(t, reply, "has already passed")

	reply = h.Handle(ctx, "U1", "add trip")
	assert.Contains(t, reply, "Usage: add")

	reply = h.Handle(ctx, "U1", "what is this")
	assert.Contains(t, reply, `"what is this"`)

	reply = h.Handle(ctx, "U1", "time")
	assert.Contains(t, reply, "Mon 10/03/2025 10:00")
	assert.Contains(t, reply, "Asia/Bangkok")

	reply = h.Handle(ctx, "U1", "help")
	assert.Contains(t, reply, "done <id>")
	assert.Contains(t, reply, "YYYY-MM-DD HH:MM")

	assert.Empty(t, f.router.ListTasks(ctx, "U1"))
}

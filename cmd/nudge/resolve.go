package main

import (
	"fmt"
	"io"
	"time"

	"github.com/kazz187/nudge/internal/timeparse"
)

func runResolve(w io.Writer, text, timezone string, minYear int) error {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	now := time.Now().In(loc)
	at, err := timeparse.NewResolver(loc, minYear).Resolve(text, now)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s\n", at.Format("Mon 02/01/2006 15:04 MST"))
	if !at.After(now) {
		fmt.Fprintln(w, "(already in the past)")
	}
	return nil
}

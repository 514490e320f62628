package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/kazz187/nudge/internal/api"
	"github.com/kazz187/nudge/internal/client"
)

func runTask(command string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := client.NewReminderClient(nil, *serverURL, *apiKey)
	switch command {
	case taskAddCmd.FullCommand():
		t, err := c.AddTask(ctx, *taskOwner, *addDesc, *addTime)
		if err != nil {
			return err
		}
		color.Green("Added #%d %s, due %s", t.ID, t.Description, t.DueAt.Format("02/01/2006 15:04"))
	case taskDoneCmd.FullCommand():
		t, err := c.CompleteTask(ctx, *taskOwner, *doneID)
		if err != nil {
			return err
		}
		color.Green("Completed #%d %s", t.ID, t.Description)
	case taskListCmd.FullCommand():
		tasks, err := c.ListTasks(ctx, *taskOwner)
		if err != nil {
			return err
		}
		printTasks(tasks)
	case taskClearCmd.FullCommand():
		cleared, err := c.ClearTasks(ctx, *taskOwner)
		if err != nil {
			return err
		}
		color.Yellow("Cleared %d task(s)", len(cleared))
	}
	return nil
}

func printTasks(tasks []*api.Task) {
	if len(tasks) == 0 {
		fmt.Println("No pending tasks.")
		return
	}
	now := time.Now()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDUE\tREMINDER\tDESCRIPTION")
	for _, t := range tasks {
		due := t.DueAt.Format("02/01/2006 15:04")
		if t.DueAt.Before(now) {
			due = color.RedString(due)
		}
		fmt.Fprintf(w, "#%d\t%s\t%s\t%s\n", t.ID, due, t.Reminder, t.Description)
	}
	w.Flush()
}

package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
)

var version = "dev"

var (
	app = kingpin.New("nudge", "Chat reminder service that keeps nudging until a task is done")

	serveCmd = app.Command("serve", "Run the reminder server").Default()

	resolveCmd      = app.Command("resolve", "Show how a time expression is read")
	resolveText     = resolveCmd.Arg("time", "HH:MM, DD/MM/YYYY HH:MM or YYYY-MM-DD HH:MM").Required().String()
	resolveTimezone = resolveCmd.Flag("timezone", "Timezone to read the time in").Envar("NUDGE_TIMEZONE").Default("Asia/Bangkok").String()
	resolveMinYear  = resolveCmd.Flag("min-year", "Earliest year accepted").Envar("NUDGE_MIN_YEAR").Default("2024").Int()

	taskCmd    = app.Command("task", "Manage tasks on a running server")
	serverURL  = taskCmd.Flag("server", "Server base URL").Envar("NUDGE_SERVER_URL").Default("http://localhost:3100").String()
	apiKey     = taskCmd.Flag("api-key", "API key of the server").Envar("NUDGE_API_KEY").String()
	taskOwner  = taskCmd.Flag("owner", "Owner whose tasks to manage").Envar("NUDGE_OWNER").Required().String()
	taskAddCmd = taskCmd.Command("add", "Add a task")
	addDesc    = taskAddCmd.Arg("description", "What to be reminded of").Required().String()
	addTime    = taskAddCmd.Arg("time", "When the task is due").Required().String()

	taskDoneCmd = taskCmd.Command("done", "Complete a task")
	doneID      = taskDoneCmd.Arg("id", "Task id").Required().String()

	taskListCmd  = taskCmd.Command("list", "List pending tasks")
	taskClearCmd = taskCmd.Command("clear", "Remove every pending task")

	versionCmd = app.Command("version", "Print the version")
)

func main() {
	app.HelpFlag.Short('h')
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	var err error
	switch command {
	case serveCmd.FullCommand():
		err = runServe()
	case resolveCmd.FullCommand():
		err = runResolve(os.Stdout, *resolveText, *resolveTimezone, *resolveMinYear)
	case taskAddCmd.FullCommand(), taskDoneCmd.FullCommand(), taskListCmd.FullCommand(), taskClearCmd.FullCommand():
		err = runTask(command)
	case versionCmd.FullCommand():
		fmt.Println(version)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

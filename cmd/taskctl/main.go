// Command taskctl is a terminal client for the TaskTrail API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/Vanaiyalini/TaskTrail/internal/client"
	"github.com/Vanaiyalini/TaskTrail/internal/models"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: taskctl <command> [flags]

Commands:
  register <name> <email>        Create an account and log in
  login <email>                  Log in and save the session
  logout                         Remove the saved session
  whoami                         Show the logged-in user
  list [--urgency] [--completed] List your tasks, newest first
  add <title>                    Create a task
  update <id>                    Change a task's fields
  done <id>                      Mark a task completed
  rm <id>                        Delete a task

The session is stored at %s
(override with TASKTRAIL_SESSION_FILE).
`, client.SessionFilePath())
}

// app holds what every command needs: the session file location and the
// session loaded from it, if any.
type app struct {
	sessionPath string
	session     *client.Session
	out         io.Writer
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) < 1 {
		printUsage()
		return errors.New("command required")
	}

	a := &app{sessionPath: client.SessionFilePath(), out: out}
	session, err := client.LoadSession(a.sessionPath)
	switch {
	case err == nil:
		a.session = session
	case errors.Is(err, client.ErrNoSession):
	default:
		return err
	}

	command, rest := args[0], args[1:]
	switch command {
	case "register":
		return a.runRegister(ctx, rest)
	case "login":
		return a.runLogin(ctx, rest)
	case "logout":
		return a.runLogout()
	case "whoami":
		return a.authed(ctx, a.runWhoami, rest)
	case "list", "ls":
		return a.authed(ctx, a.runList, rest)
	case "add":
		return a.authed(ctx, a.runAdd, rest)
	case "update":
		return a.authed(ctx, a.runUpdate, rest)
	case "done":
		return a.authed(ctx, a.runDone, rest)
	case "rm", "delete":
		return a.authed(ctx, a.runRemove, rest)
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command: %q", command)
	}
}

func newFlagSet(name string) *pflag.FlagSet {
	return pflag.NewFlagSet("taskctl "+name, pflag.ContinueOnError)
}

// parse reports done=true when --help was requested and the command should stop.
func parse(fs *pflag.FlagSet, args []string) (done bool, err error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// authed runs fn with a client bound to the saved session. An expired token
// clears the session so the next command starts clean.
func (a *app) authed(ctx context.Context, fn func(context.Context, *client.Client, []string) error, args []string) error {
	if !a.session.LoggedIn() {
		return errors.New(`not logged in; run "taskctl login <email>" first`)
	}
	err := fn(ctx, client.New(a.session), args)
	if client.IsTokenExpired(err) {
		if clearErr := client.ClearSession(a.sessionPath); clearErr != nil {
			return errors.Join(err, clearErr)
		}
		return fmt.Errorf(`%w; run "taskctl login <email>" again`, err)
	}
	return err
}

func (a *app) baseClient(server string) *client.Client {
	if server == "" && a.session != nil {
		server = a.session.BaseURL
	}
	return client.New(&client.Session{BaseURL: server})
}

func readPassword(passwordFlag string) (string, error) {
	if passwordFlag != "" {
		return passwordFlag, nil
	}
	if env := os.Getenv("TASKTRAIL_PASSWORD"); env != "" {
		return env, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal available for password prompt (use --password or TASKTRAIL_PASSWORD)")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(raw), nil
}

func (a *app) saveAndGreet(session *client.Session) error {
	if err := client.SaveSession(a.sessionPath, session); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s <%s>\n", session.User.Name, session.User.Email)
	return nil
}

func (a *app) runRegister(ctx context.Context, args []string) error {
	fs := newFlagSet("register")
	server := fs.String("server", os.Getenv("TASKTRAIL_SERVER"), "API base URL")
	password := fs.String("password", "", "account password (prompted when omitted)")
	if done, err := parse(fs, args); done || err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("usage: taskctl register <name> <email>")
	}

	pw, err := readPassword(*password)
	if err != nil {
		return err
	}
	session, err := a.baseClient(*server).Register(ctx, fs.Arg(0), fs.Arg(1), pw)
	if err != nil {
		return err
	}
	return a.saveAndGreet(session)
}

func (a *app) runLogin(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	server := fs.String("server", os.Getenv("TASKTRAIL_SERVER"), "API base URL")
	password := fs.String("password", "", "account password (prompted when omitted)")
	if done, err := parse(fs, args); done || err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: taskctl login <email>")
	}

	pw, err := readPassword(*password)
	if err != nil {
		return err
	}
	session, err := a.baseClient(*server).Login(ctx, fs.Arg(0), pw)
	if err != nil {
		return err
	}
	return a.saveAndGreet(session)
}

func (a *app) runLogout() error {
	if err := client.ClearSession(a.sessionPath); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *app) runWhoami(ctx context.Context, c *client.Client, _ []string) error {
	me, err := c.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s>\n", me.Name, me.Email)
	return nil
}

func parseCompleted(raw string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return nil, nil
	case "true", "yes":
		v := true
		return &v, nil
	case "false", "no":
		v := false
		return &v, nil
	}
	return nil, fmt.Errorf("--completed must be true or false, got %q", raw)
}

func parseUrgencyFlag(raw string) (*models.Urgency, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	u, ok := models.ParseUrgency(raw)
	if !ok {
		return nil, fmt.Errorf("--urgency must be low, medium or high, got %q", raw)
	}
	return &u, nil
}

func (a *app) runList(ctx context.Context, c *client.Client, args []string) error {
	fs := newFlagSet("list")
	urgency := fs.String("urgency", "", "only tasks with this urgency (low, medium, high)")
	completed := fs.String("completed", "", "only completed (true) or open (false) tasks")
	if done, err := parse(fs, args); done || err != nil {
		return err
	}

	var filter models.TaskFilter
	var err error
	if filter.Urgency, err = parseUrgencyFlag(*urgency); err != nil {
		return err
	}
	if filter.Completed, err = parseCompleted(*completed); err != nil {
		return err
	}

	tasks, err := c.ListTasks(ctx, filter)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Fprintln(a.out, "No tasks")
		return nil
	}
	printTasks(a.out, tasks)
	return nil
}

func printTasks(out io.Writer, tasks []models.Task) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDONE\tURGENCY\tTITLE\tCREATED")
	for _, t := range tasks {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		fmt.Fprintf(w, "%s\t[%s]\t%s\t%s\t%s\n", t.ID, mark, t.Urgency, t.Title, t.CreatedAt.Local().Format(time.DateTime))
	}
	w.Flush()
}

func (a *app) runAdd(ctx context.Context, c *client.Client, args []string) error {
	fs := newFlagSet("add")
	description := fs.StringP("description", "d", "", "task description")
	urgency := fs.StringP("urgency", "u", "", "low, medium (default) or high")
	if done, err := parse(fs, args); done || err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("usage: taskctl add <title> [--description text] [--urgency level]")
	}

	task, err := c.CreateTask(ctx, models.TaskCreateRequest{
		Title:       strings.Join(fs.Args(), " "),
		Description: *description,
		Urgency:     *urgency,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created %s\n", task.ID)
	return nil
}

func (a *app) runUpdate(ctx context.Context, c *client.Client, args []string) error {
	fs := newFlagSet("update")
	title := fs.String("title", "", "new title")
	description := fs.StringP("description", "d", "", "new description")
	urgency := fs.StringP("urgency", "u", "", "new urgency")
	completed := fs.String("completed", "", "true or false")
	if done, err := parse(fs, args); done || err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: taskctl update <id> [--title] [--description] [--urgency] [--completed]")
	}

	var patch models.TaskPatch
	if fs.Changed("title") {
		patch.Title = title
	}
	if fs.Changed("description") {
		patch.Description = description
	}
	var err error
	if patch.Urgency, err = parseUrgencyFlag(*urgency); err != nil {
		return err
	}
	if patch.Completed, err = parseCompleted(*completed); err != nil {
		return err
	}
	if patch.Empty() {
		return errors.New("nothing to update")
	}

	task, err := c.UpdateTask(ctx, fs.Arg(0), patch)
	if err != nil {
		return err
	}
	printTasks(a.out, []models.Task{*task})
	return nil
}

func (a *app) runDone(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: taskctl done <id>")
	}
	completed := true
	if _, err := c.UpdateTask(ctx, args[0], models.TaskPatch{Completed: &completed}); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Completed %s\n", args[0])
	return nil
}

func (a *app) runRemove(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: taskctl rm <id>")
	}
	if err := c.DeleteTask(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Task removed\n")
	return nil
}

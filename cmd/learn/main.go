// Command learn walks through the course: it lists the lessons, shows the
// learning path and serves a chosen subset of lessons.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"apicourse/internal/app"
	"apicourse/internal/config"
	"apicourse/internal/lesson"
	"apicourse/internal/logger"
)

const usage = `usage: learn <command> [arguments]

commands:
  list [-level L]       lessons grouped by level
  path                  the learning path in order
  levels                what each level covers and how long it takes
  describe <lesson>     one lesson by number or slug
  serve [-port P] [lesson ...]
                        serve the given lessons (all when none are given)
  help                  this text
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "learn:", err)
		}
		os.Exit(2)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return nil
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "list":
		return list(rest, out)
	case "path":
		return path(out)
	case "levels":
		return levels(out)
	case "describe":
		return describe(rest, out)
	case "serve":
		return serve(ctx, rest, out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	}
	fmt.Fprintf(out, "unknown command %q\n\n%s", cmd, usage)
	return errUsage
}

func list(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(out)
	level := fs.String("level", "", "only lessons of this level")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	grouped := lesson.ByLevel()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, lv := range lesson.Levels {
		if *level != "" && !strings.EqualFold(*level, string(lv)) {
			continue
		}
		fmt.Fprintf(tw, "%s\n", strings.ToUpper(string(lv)))
		for _, l := range grouped[lv] {
			fmt.Fprintf(tw, "  %02d\t%s\t%s\t%s\n", l.Number, l.Slug, l.Title, l.Summary)
		}
	}
	return tw.Flush()
}

func path(out io.Writer) error {
	for i, st := range lesson.Path() {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "%s: %s\n", strings.ToUpper(string(st.Level)), st.Focus)
		for _, l := range st.Lessons {
			fmt.Fprintf(out, "  %02d %-12s %s\n", l.Number, l.Slug, l.Summary)
		}
	}
	return nil
}

func levels(out io.Writer) error {
	for i, st := range lesson.Path() {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "%s: %s (%s)\n", strings.ToUpper(string(st.Level)), st.Focus, st.Duration)
		for _, s := range st.Skills {
			fmt.Fprintf(out, "  - %s\n", s)
		}
	}
	return nil
}

func describe(args []string, out io.Writer) error {
	if len(args) != 1 {
		fmt.Fprint(out, usage)
		return errUsage
	}
	l, ok := lesson.Find(args[0])
	if !ok {
		return fmt.Errorf("unknown lesson %q", args[0])
	}
	fmt.Fprintf(out, "%02d %s (%s)\n", l.Number, l.Title, l.Level)
	fmt.Fprintf(out, "%s\n\n", l.Summary)
	fmt.Fprintln(out, "topics:")
	for _, t := range l.Topics {
		fmt.Fprintf(out, "  - %s\n", t)
	}
	switch {
	case !l.Routes:
		fmt.Fprintln(out, "\nno routes; read and run its tests")
	case l.Prefix == "":
		fmt.Fprintln(out, "\nroutes: /")
	default:
		fmt.Fprintf(out, "\nroutes: %s\n", l.Prefix)
	}
	if len(l.Needs) > 0 {
		needs := make([]string, len(l.Needs))
		for i, n := range l.Needs {
			needs[i] = string(n)
		}
		fmt.Fprintf(out, "needs: %s\n", strings.Join(needs, ", "))
	}
	return nil
}

func serve(ctx context.Context, args []string, out io.Writer) error {
	cfg := config.Load()
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(out)
	host := fs.String("host", cfg.Host, "interface to listen on, empty for all")
	port := fs.String("port", cfg.Port, "port to listen on")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if _, err := lesson.Select(fs.Args()); err != nil {
		return err
	}

	cfg.Host, cfg.Port = *host, *port

	log := logger.New(cfg.LogLevel, os.Stdout, cfg.Location())
	a, err := app.New(ctx, cfg, log, app.Options{Lessons: fs.Args()})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "serving %d lessons on http://localhost:%s (docs at /swagger/index.html)\n", len(a.Mounted()), *port)
	for _, s := range a.SkippedLessons() {
		fmt.Fprintf(out, "skipped %s: %s\n", s.Slug, s.Reason)
	}
	return a.Run(ctx, cfg.ListenAddr(), 10*time.Second)
}

// jview - query the systemd journal by interval and field filters
//
// Usage:
//
//	jview [flags]                run the query and print entries
//	jview args [flags]           print the equivalent journalctl command
//	jview intervals              list selectable intervals
//	jview filters                list supported filters
//	jview units [pattern...]     list systemd units
//	jview complete-unit <prefix> complete a unit name for -f unit=
//	jview presets                list saved presets
//	jview save <name> [flags]    save the query as a preset
//	jview delete <name>          delete a preset
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/mbrock/jview/internal/dirs"
	"github.com/mbrock/jview/internal/journal"
	"github.com/mbrock/jview/internal/output"
	"github.com/mbrock/jview/internal/preset"
	"github.com/mbrock/jview/internal/query"
	"github.com/mbrock/jview/internal/units"
)

// Global flags
var (
	intervalFlag  string
	sinceFlag     string
	untilFlag     string
	filterFlags   []string
	presetFlag    string
	backendFlag   string
	directoryFlag string
	fileFlags     []string
	outputFlag    string
	linesFlag     int
	colorFlag     string
	userFlag      bool
)

const (
	backendSDJournal  = "sdjournal"
	backendJournalctl = "journalctl"
)

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("JVIEW_DEBUG") != "" {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	flag.StringVarP(&intervalFlag, "interval", "i", "", "Interval: "+strings.Join(intervalTags(), ", "))
	flag.StringVar(&sinceFlag, "since", "", "Range start, e.g. \"2024-01-02 15:04\" (implies --interval=range)")
	flag.StringVar(&untilFlag, "until", "", "Range end (implies --interval=range)")
	flag.StringArrayVarP(&filterFlags, "filter", "f", nil, "Filter NAME=VALUE (can be repeated; see 'jview filters')")
	flag.StringVarP(&presetFlag, "preset", "P", "", "Start from a saved preset")
	flag.StringVarP(&backendFlag, "backend", "b", envOr("JVIEW_BACKEND", backendSDJournal), "Backend: sdjournal, journalctl (overrides JVIEW_BACKEND)")
	flag.StringVarP(&directoryFlag, "directory", "D", os.Getenv("JVIEW_JOURNAL_DIR"), "Read journal files from this directory")
	flag.StringArrayVar(&fileFlags, "file", nil, "Read this journal file (can be repeated)")
	flag.StringVarP(&outputFlag, "output", "o", output.FormatShort, "Output: short, json")
	flag.IntVarP(&linesFlag, "lines", "n", 0, "Show only the newest N entries (0 = all)")
	flag.StringVar(&colorFlag, "color", "auto", "Colour: auto, always, never")
	flag.BoolVar(&userFlag, "user", false, "Use the user journal and user manager")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `jview - query the systemd journal by interval and field filters

Usage:
  jview [flags]                run the query and print entries
  jview args [flags]           print the equivalent journalctl command
  jview intervals              list selectable intervals
  jview filters                list supported filters
  jview units [pattern...]     list systemd units (values for -f unit=)
  jview complete-unit <prefix> complete a unit name for -f unit=
  jview presets                list saved presets
  jview save <name> [flags]    save the query as a preset
  jview delete <name>          delete a preset

Flags:
`)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		cmdRun()
		return
	}

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "run":
		cmdRun()
	case "args":
		cmdPrintArgs()
	case "intervals":
		cmdIntervals()
	case "filters":
		cmdFilters()
	case "units":
		cmdUnits(cmdArgs)
	case "complete-unit":
		prefix := ""
		if len(cmdArgs) > 0 {
			prefix = cmdArgs[0]
		}
		cmdCompleteUnit(prefix)
	case "presets":
		cmdPresets()
	case "save":
		if len(cmdArgs) == 0 {
			fatal("usage: jview save <name> [flags]")
		}
		cmdSave(cmdArgs[0])
	case "delete":
		if len(cmdArgs) == 0 {
			fatal("usage: jview delete <name>")
		}
		cmdDelete(cmdArgs[0])
	default:
		fatal("unknown command: %s", cmd)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// fatalQuery reports a query that failed to build. Validation problems
// are listed one per line and exit with status 2.
func fatalQuery(err error) {
	if !errors.Is(err, query.ErrValidation) {
		fatal("%v", err)
	}
	fmt.Fprintln(os.Stderr, "error: invalid query:")
	for _, line := range strings.Split(err.Error(), "\n") {
		fmt.Fprintf(os.Stderr, "  %s\n", line)
	}
	os.Exit(2)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intervalTags() []string {
	var tags []string
	for _, iv := range query.Intervals() {
		tags = append(tags, iv.Tag)
	}
	return tags
}

func presetStore() preset.Store {
	return preset.Store{Path: dirs.PresetsFile()}
}

// buildQuery turns the command line into a query.
func buildQuery() query.Query {
	var base *query.RawInputs
	if presetFlag != "" {
		q, err := presetStore().Get(presetFlag)
		if err != nil {
			fatal("loading preset: %v", err)
		}
		raw := query.ToRawInputs(q)
		base = &raw
	}

	in, err := parseCommandLine(commandLine{
		Interval: intervalFlag,
		Since:    sinceFlag,
		Until:    untilFlag,
		Filters:  filterFlags,
	}, base)
	if err != nil {
		fatalQuery(err)
	}

	q, err := query.Builder{}.BuildRaw(in)
	if err != nil {
		fatalQuery(err)
	}
	slog.Debug("built query", "query", q.String())
	return q
}

func openReader() journal.Reader {
	switch backendFlag {
	case backendSDJournal:
		r, err := journal.OpenSDJournal(directoryFlag, fileFlags...)
		if err != nil {
			fatal("%v", err)
		}
		if userFlag {
			r.UID = strconv.Itoa(os.Getuid())
		}
		return r
	case backendJournalctl:
		return &journal.CtlReader{
			Path:      envOr("JVIEW_JOURNALCTL", journal.DefaultJournalctl),
			Directory: directoryFlag,
			Files:     fileFlags,
			User:      userFlag,
		}
	default:
		fatal("unknown backend %q (want %s or %s)", backendFlag, backendSDJournal, backendJournalctl)
		return nil
	}
}

func useColor() bool {
	switch colorFlag {
	case "always":
		lipgloss.SetColorProfile(termenv.ANSI256)
		return true
	case "never":
		return false
	case "auto":
		return outputFlag == output.FormatShort && term.IsTerminal(int(os.Stdout.Fd()))
	default:
		fatal("unknown --color value %q (want auto, always or never)", colorFlag)
		return false
	}
}

func cmdRun() {
	q := buildQuery()
	color := useColor()

	r, err := output.New(outputFlag, os.Stdout, color)
	if err != nil {
		fatal("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader := openReader()
	defer reader.Close()

	records, err := reader.Read(ctx, q, linesFlag)
	if err != nil {
		fatal("reading journal: %v", err)
	}
	for _, rec := range records {
		if err := r.Render(rec); err != nil {
			fatal("writing output: %v", err)
		}
	}
}

// cmdPrintArgs prints the journalctl invocation for the query.
func cmdPrintArgs() {
	q := buildQuery()
	ctl := journal.CtlReader{Directory: directoryFlag, Files: fileFlags, User: userFlag}
	argv := ctl.Command(q, linesFlag)
	// Drop the JSON output options Command adds for decoding.
	argv = append(argv[:1], argv[3:]...)
	fmt.Println(shellJoin(argv))
}

func cmdIntervals() {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, iv := range query.Intervals() {
		fmt.Fprintf(w, "%s\t%s\n", iv.Tag, iv.Label)
	}
	w.Flush()
}

func cmdFilters() {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tLABEL\tVALUES\tFIELD")
	for _, f := range query.FilterCatalog() {
		values := "text"
		switch {
		case f.AllowedValues != nil:
			values = strings.Join(f.AllowedValues, "|")
		case f.Multiple:
			values = "text..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.Name, f.Label, values, f.Field)
	}
	w.Flush()
}

func connectUnits(ctx context.Context) units.Lister {
	connect := units.ConnectSystem
	if userFlag {
		connect = units.ConnectUser
	}
	lister, err := connect(ctx)
	if err != nil {
		fatal("%v", err)
	}
	return lister
}

func cmdUnits(patterns []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lister := connectUnits(ctx)
	defer lister.Close()

	us, err := lister.ListUnits(ctx, patterns)
	if err != nil {
		fatal("%v", err)
	}
	if outputFlag == output.FormatJSON {
		enc := json.NewEncoder(os.Stdout)
		for _, u := range us {
			if err := enc.Encode(u); err != nil {
				fatal("writing output: %v", err)
			}
		}
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, u := range us {
		fmt.Fprintf(w, "%s\t%s/%s\t%s\n", u.Name, u.ActiveState, u.SubState, u.Description)
	}
	w.Flush()
}

// cmdCompleteUnit prints one completion per line, for shell completion
// scripts.
func cmdCompleteUnit(prefix string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lister := connectUnits(ctx)
	defer lister.Close()

	names, err := units.CompleteUnit(ctx, lister, prefix)
	if err != nil {
		fatal("%v", err)
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

func cmdPresets() {
	presets, err := presetStore().Load()
	if err != nil {
		fatal("%v", err)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range slices.Sorted(maps.Keys(presets)) {
		fmt.Fprintf(w, "%s\t%s\n", name, presets[name])
	}
	w.Flush()
}

func cmdSave(name string) {
	q := buildQuery()
	if err := presetStore().Save(name, q); err != nil {
		fatal("saving preset: %v", err)
	}
	fmt.Fprintf(os.Stderr, "saved preset %s: %s\n", name, q)
}

func cmdDelete(name string) {
	if err := presetStore().Delete(name); err != nil {
		fatal("%v", err)
	}
}

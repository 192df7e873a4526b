// Package main provides the formkit CLI.
// It runs and verifies form documents, lints schemas, fills forms in the
// terminal and manages saved forms.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"

	"github.com/dlovans/formkit/internal/config"
	"github.com/dlovans/formkit/pkg/fill"
	"github.com/dlovans/formkit/pkg/formkit"
	"github.com/dlovans/formkit/pkg/lint"
	"github.com/dlovans/formkit/pkg/log"
	"github.com/dlovans/formkit/pkg/store"
)

func main() {
	configPath := flag.String("config", "", "Config file (.yaml, .toml, .json or .ini)")
	flag.Usage = printUsage
	flag.Parse()

	// Define flags
	runCmd := flag.NewFlagSet("run", flag.ExitOnError)
	runDate := runCmd.String("date", "", "Effective date (ISO 8601 format, defaults to now)")
	runFile := runCmd.String("file", "", "Input JSON document (or use stdin)")

	verifyCmd := flag.NewFlagSet("verify", flag.ExitOnError)
	verifyNew := verifyCmd.String("new", "", "Completed document to verify")
	verifyBase := verifyCmd.String("base", "", "Original document")

	lintCmd := flag.NewFlagSet("lint", flag.ExitOnError)
	lintFile := lintCmd.String("file", "", "Schema file to lint (or use stdin)")

	fillCmd := flag.NewFlagSet("fill", flag.ExitOnError)
	fillFile := fillCmd.String("file", "", "Schema file to fill")
	fillID := fillCmd.String("id", "", "Saved form to fill")

	saveCmd := flag.NewFlagSet("save", flag.ExitOnError)
	saveFile := saveCmd.String("file", "", "Schema file to save")
	saveName := saveCmd.String("name", "", "Form name (defaults to the schema name)")

	listCmd := flag.NewFlagSet("list", flag.ExitOnError)

	showCmd := flag.NewFlagSet("show", flag.ExitOnError)
	showID := showCmd.String("id", "", "Saved form to print")

	watchCmd := flag.NewFlagSet("watch", flag.ExitOnError)
	watchFile := watchCmd.String("file", "", "Schema file to watch")

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalf("Error: %v\n", err)
	}
	logger, err := cfg.Logger()
	if err != nil {
		fatalf("Error: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "run":
		runCmd.Parse(args[1:])
		err = handleRun(os.Stdout, *runDate, *runFile)

	case "verify":
		verifyCmd.Parse(args[1:])
		err = handleVerify(os.Stdout, *verifyNew, *verifyBase)

	case "lint":
		lintCmd.Parse(args[1:])
		err = handleLint(os.Stdout, *lintFile)

	case "fill":
		fillCmd.Parse(args[1:])
		err = handleFill(ctx, os.Stdout, cfg, logger, *fillFile, *fillID)

	case "save":
		saveCmd.Parse(args[1:])
		err = withStore(cfg, logger, func(s store.Store) error {
			return handleSave(ctx, os.Stdout, s, *saveFile, *saveName)
		})

	case "list":
		listCmd.Parse(args[1:])
		err = withStore(cfg, logger, func(s store.Store) error {
			return handleList(ctx, os.Stdout, s)
		})

	case "show":
		showCmd.Parse(args[1:])
		err = withStore(cfg, logger, func(s store.Store) error {
			return handleShow(ctx, os.Stdout, s, *showID)
		})

	case "watch":
		watchCmd.Parse(args[1:])
		err = handleWatch(ctx, os.Stdout, logger, *watchFile)

	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		stop()
		fatalf("Error: %v\n", err)
	}
}

func printUsage() {
	fmt.Println("formkit - form schema engine")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  formkit [-config file] run [-date YYYY-MM-DD] [-file document.json]")
	fmt.Println("  formkit [-config file] verify -new completed.json -base document.json")
	fmt.Println("  formkit [-config file] lint -file schema.(json|yaml)")
	fmt.Println("  formkit [-config file] fill -file schema.(json|yaml) | -id ID")
	fmt.Println("  formkit [-config file] save -file schema.(json|yaml) [-name Name]")
	fmt.Println("  formkit [-config file] list")
	fmt.Println("  formkit [-config file] show -id ID")
	fmt.Println("  formkit [-config file] watch -file schema.(json|yaml)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  formkit run -date 2025-06-15 -file signup.json")
	fmt.Println("  cat signup.json | formkit run -date 2025-06-15")
	fmt.Println("  formkit lint -file signup.yaml")
	fmt.Println("  formkit -config formkit.toml save -file signup.yaml -name Signup")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}

// parseDate accepts YYYY-MM-DD or RFC3339; empty means now.
func parseDate(dateStr string) (time.Time, error) {
	if dateStr == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse("2006-01-02", dateStr); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format '%s'", dateStr)
	}
	return t, nil
}

// readInput reads filePath, or stdin when it is empty.
func readInput(filePath string) ([]byte, error) {
	if filePath != "" {
		return os.ReadFile(filePath)
	}
	return io.ReadAll(os.Stdin)
}

func handleRun(w io.Writer, dateStr, filePath string) error {
	effectiveDate, err := parseDate(dateStr)
	if err != nil {
		return err
	}

	input, err := readInput(filePath)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	result, err := formkit.Run(string(input), effectiveDate)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, result)
	return nil
}

func handleVerify(w io.Writer, newPath, basePath string) error {
	if newPath == "" || basePath == "" {
		return fmt.Errorf("both -new and -base flags are required")
	}

	newJson, err := os.ReadFile(newPath)
	if err != nil {
		return fmt.Errorf("reading new file: %w", err)
	}
	baseJson, err := os.ReadFile(basePath)
	if err != nil {
		return fmt.Errorf("reading base document: %w", err)
	}

	valid, err := formkit.Verify(string(newJson), string(baseJson))
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	if !valid {
		return fmt.Errorf("document verification failed")
	}

	fmt.Fprintln(w, "✓ Document verified: every value is a legal derivation")
	return nil
}

func handleLint(w io.Writer, filePath string) error {
	input, err := readInput(filePath)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	result, err := lint.Run(string(input))
	if err != nil {
		return err
	}

	printIssues(w, result)
	if !result.Valid {
		return fmt.Errorf("%d error(s) found", result.Count(lint.SeverityError))
	}
	return nil
}

func printIssues(w io.Writer, result *lint.Result) {
	if len(result.Issues) == 0 {
		fmt.Fprintln(w, "✓ No issues found")
		return
	}

	for _, issue := range result.Issues {
		icon := "⚠"
		switch issue.Severity {
		case lint.SeverityError:
			icon = "✗"
		case lint.SeverityInfo:
			icon = "ℹ"
		}
		location := ""
		if issue.Field != "" {
			location = fmt.Sprintf(" [field: %s]", issue.Field)
		}
		if issue.Rule != "" {
			location += fmt.Sprintf(" [rule: %s]", issue.Rule)
		}
		fmt.Fprintf(w, "%s %s%s: %s\n", icon, issue.Severity, location, issue.Message)
	}
}

func handleFill(ctx context.Context, w io.Writer, cfg *config.Config, logger log.Logger, filePath, id string) error {
	var schema formkit.FormSchema
	switch {
	case filePath != "":
		var err error
		if schema, err = formkit.LoadSchemaFile(filePath); err != nil {
			return err
		}
	case id != "":
		err := withStore(cfg, logger, func(s store.Store) error {
			rec, err := s.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("form %s: %w", id, err)
			}
			schema = rec.Schema()
			return nil
		})
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("one of -file or -id is required")
	}

	rt := formkit.NewRuntime(schema, formkit.WithLogger(logger))
	filler := fill.New(fill.WithMaxRounds(cfg.Fill.MaxRounds), fill.WithLogger(logger))
	snap, fillErr := filler.Fill(ctx, rt)

	if err := writeJSON(w, snap); err != nil {
		return err
	}
	return fillErr
}

func handleSave(ctx context.Context, w io.Writer, s store.Store, filePath, name string) error {
	if filePath == "" {
		return fmt.Errorf("-file is required")
	}
	schema, err := formkit.LoadSchemaFile(filePath)
	if err != nil {
		return err
	}

	if result := lint.Check(schema); !result.Valid {
		printIssues(os.Stderr, result)
		return fmt.Errorf("refusing to save a schema with errors")
	}

	if name == "" {
		name = schema.Name
	}
	rec, err := s.Save(ctx, name, schema.Fields)
	if err != nil {
		return err
	}
	return writeJSON(w, rec)
}

func handleList(ctx context.Context, w io.Writer, s store.Store) error {
	records, err := s.List(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "No saved forms")
		return nil
	}
	for _, rec := range records {
		fmt.Fprintf(w, "%s  %s  %s (%d fields)\n", rec.ID, rec.DateCreated, rec.Name, len(rec.Fields))
	}
	return nil
}

func handleShow(ctx context.Context, w io.Writer, s store.Store, id string) error {
	if id == "" {
		return fmt.Errorf("-id is required")
	}
	rec, err := s.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("form %s: %w", id, err)
	}
	return writeJSON(w, rec)
}

func withStore(cfg *config.Config, logger log.Logger, fn func(store.Store) error) error {
	s, err := store.NewBoltStoreWithOptions(&cfg.Store, store.WithLogger(logger))
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

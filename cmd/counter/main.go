// Package main provides a CLI client for counting sessions against a
// running chefdeck server.
// Usage: counter status
//        counter start "Кухня"
//        counter set "Кухня" "Мука" 2,5
//        counter finalize
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"chefdeck/internal/domain/counting"
	"chefdeck/internal/engine"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "status":
		cmdStatus(ctx)
	case "create-sheet":
		cmdCreateSheet(ctx)
	case "start":
		cmdStart(ctx)
	case "stop":
		cmdStop(ctx)
	case "set":
		cmdSet(ctx)
	case "submit":
		cmdSubmit(ctx)
	case "reopen":
		cmdReopen(ctx)
	case "finalize":
		cmdFinalize(ctx)
	case "summary":
		cmdSummary(ctx)
	case "export":
		cmdExport(ctx)
	case "archive":
		cmdArchive(ctx)
	case "import-catalog":
		cmdImportCatalog(ctx)
	case "clear-archive":
		cmdClearArchive(ctx)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Chefdeck Counting CLI

Usage:
  counter <command> [options]

Commands:
  status          Show the working cycle and per-sheet progress
  create-sheet    Create a sheet: counter create-sheet "Кухня"
  start           Take a sheet for counting: counter start "Кухня"
  stop            Release a sheet: counter stop "Кухня"
  set             Record a count: counter set "Кухня" "Мука" 2,5
  submit          Submit a finished sheet: counter submit "Кухня"
  reopen          Reopen a submitted sheet: counter reopen "Кухня"
  finalize        Archive the cycle and reset for the next count
  summary         Write the live summary XLSX: counter summary out.xlsx
  export          Write the full cycle XLSX: counter export out.xlsx
  archive         List archived cycles grouped by month
  import-catalog  Upload a product catalog: counter import-catalog goods.xlsx
  clear-archive   Delete all archived cycles
  help            Show this help

Environment Variables:
  CHEFDECK_URL       Server base URL (default http://localhost:8080)
  CHEFDECK_BOT_ID    Tenant bot id (default "default")
  CHEFDECK_USER_ID   Numeric user id for sheet locks (required for start/set)
  CHEFDECK_USER_NAME Display name shown to other counters
  CHEFDECK_ADMIN     Set to "true" to edit sheets without taking the lock

Examples:
  counter status
  counter start "Кухня"
  counter set "Кухня" "Мука" 12,5
  counter submit "Кухня"
  counter finalize`)
}

func newEngine(ctx context.Context) *engine.Engine {
	baseURL := getEnv("CHEFDECK_URL", "http://localhost:8080")
	botID := getEnv("CHEFDECK_BOT_ID", "default")

	userID, _ := strconv.ParseInt(os.Getenv("CHEFDECK_USER_ID"), 10, 64)
	user := counting.LockHolder{
		ID:   userID,
		Name: getEnv("CHEFDECK_USER_NAME", "counter-cli"),
	}

	drafts, err := engine.NewFileDraftStore(draftDir(), botID)
	if err != nil {
		fatal("open draft store: %v", err)
	}

	e := engine.New(engine.Config{
		Store:  engine.NewHTTPStore(baseURL, botID),
		Drafts: drafts,
		User:   user,
		Admin:  os.Getenv("CHEFDECK_ADMIN") == "true",
		OnError: func(err error) {
			fmt.Printf("warning: background save failed: %v\n", err)
		},
	})
	if err := e.Start(ctx); err != nil {
		fatal("connect to %s: %v", baseURL, err)
	}
	return e
}

func newStore() *engine.HTTPStore {
	return engine.NewHTTPStore(
		getEnv("CHEFDECK_URL", "http://localhost:8080"),
		getEnv("CHEFDECK_BOT_ID", "default"),
	)
}

func draftDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "chefdeck")
	}
	return os.TempDir()
}

func cmdStatus(ctx context.Context) {
	e := newEngine(ctx)
	defer e.Close()

	c := e.Cycle()
	if c == nil {
		fmt.Println("No working cycle. Create a sheet to start one.")
		return
	}

	fmt.Printf("Cycle %s, started %s\n", c.ID, c.Time().Format("02.01.2006 15:04"))
	for _, sh := range c.Sheets {
		line := fmt.Sprintf("  %-20s %d/%d counted  [%s]", sh.Title, sh.CountedItems(), len(sh.Items), sh.Status)
		if sh.LockedBy != nil {
			line += fmt.Sprintf("  locked by %s", sh.LockedBy.Name)
		}
		fmt.Println(line)
	}
	if c.AllSubmitted() {
		fmt.Println("All sheets submitted, ready to finalize.")
	}
}

func cmdCreateSheet(ctx context.Context) {
	title := requireArg(2, "sheet title")
	e := newEngine(ctx)
	defer e.Close()

	sheetID, err := e.CreateSheet(ctx, title)
	if err != nil {
		fatal("create sheet: %v", err)
	}
	fmt.Printf("Created sheet %q (%s)\n", title, sheetID)
}

func cmdStart(ctx context.Context) {
	title := requireArg(2, "sheet title")
	e := newEngine(ctx)
	defer e.Close()

	sh := findSheet(e, title)
	if err := e.StartCounting(ctx, sh.ID); err != nil {
		fatal("start counting: %v", err)
	}
	fmt.Printf("Sheet %q is yours. Run `counter set` to record counts.\n", sh.Title)
}

func cmdStop(ctx context.Context) {
	title := requireArg(2, "sheet title")
	e := newEngine(ctx)
	defer e.Close()

	sh := findSheet(e, title)
	if err := e.StopCounting(ctx, sh.ID); err != nil {
		fatal("stop counting: %v", err)
	}
	fmt.Printf("Released sheet %q\n", sh.Title)
}

func cmdSet(ctx context.Context) {
	sheetTitle := requireArg(2, "sheet title")
	itemName := requireArg(3, "item name")
	value := requireArg(4, "quantity")

	e := newEngine(ctx)
	defer e.Close()

	sh := findSheet(e, sheetTitle)
	item := findItem(sh, itemName)
	if err := e.SetItemQuantity(sh.ID, item.ID, value); err != nil {
		fatal("set quantity: %v", err)
	}
	// One-shot process: push the debounced write before exiting.
	e.Flush()
	fmt.Printf("%s / %s = %s\n", sh.Title, item.Name, value)
}

func cmdSubmit(ctx context.Context) {
	title := requireArg(2, "sheet title")
	e := newEngine(ctx)
	defer e.Close()

	sh := findSheet(e, title)
	if err := e.SubmitSheet(ctx, sh.ID); err != nil {
		fatal("submit sheet: %v", err)
	}
	fmt.Printf("Submitted sheet %q\n", sh.Title)
}

func cmdReopen(ctx context.Context) {
	title := requireArg(2, "sheet title")
	e := newEngine(ctx)
	defer e.Close()

	sh := findSheet(e, title)
	if err := e.ReopenSheet(ctx, sh.ID); err != nil {
		fatal("reopen sheet: %v", err)
	}
	fmt.Printf("Reopened sheet %q\n", sh.Title)
}

func cmdFinalize(ctx context.Context) {
	e := newEngine(ctx)
	defer e.Close()

	if err := e.FinalizeCycle(ctx); err != nil {
		fatal("finalize cycle: %v", err)
	}
	fmt.Println("Cycle archived. A fresh cycle is ready for the next count.")
}

func cmdSummary(ctx context.Context) {
	out := requireArg(2, "output file")
	e := newEngine(ctx)
	defer e.Close()

	c := e.Cycle()
	if c == nil {
		fatal("no working cycle to export")
	}

	f, err := os.Create(out)
	if err != nil {
		fatal("create %s: %v", out, err)
	}
	defer f.Close()

	if err := engine.ExportSummary(f, c, e.Catalog()); err != nil {
		fatal("export summary: %v", err)
	}
	fmt.Printf("Summary written to %s\n", out)
}

func cmdExport(ctx context.Context) {
	out := requireArg(2, "output file")
	e := newEngine(ctx)
	defer e.Close()

	c := e.Cycle()
	if c == nil {
		fatal("no working cycle to export")
	}

	f, err := os.Create(out)
	if err != nil {
		fatal("create %s: %v", out, err)
	}
	defer f.Close()

	if err := engine.ExportCycle(f, c); err != nil {
		fatal("export cycle: %v", err)
	}
	fmt.Printf("Cycle written to %s\n", out)
}

func cmdArchive(ctx context.Context) {
	e := newEngine(ctx)
	defer e.Close()

	groups, err := e.Archive(ctx)
	if err != nil {
		fatal("load archive: %v", err)
	}
	if len(groups) == 0 {
		fmt.Println("Archive is empty.")
		return
	}
	for _, g := range groups {
		fmt.Println(g.Label)
		for _, c := range g.Cycles {
			items := 0
			for _, sh := range c.Sheets {
				items += len(sh.Items)
			}
			fmt.Printf("  %s  %d sheets, %d items\n", c.Time().Format("02.01.2006 15:04"), len(c.Sheets), items)
		}
	}
}

func cmdImportCatalog(ctx context.Context) {
	path := requireArg(2, "xlsx file")

	f, err := os.Open(path)
	if err != nil {
		fatal("open %s: %v", path, err)
	}
	defer f.Close()

	items, err := engine.ParseCatalogXLSX(f)
	if err != nil {
		fatal("parse %s: %v", path, err)
	}

	if err := newStore().UploadCatalog(ctx, items); err != nil {
		fatal("upload catalog: %v", err)
	}
	fmt.Printf("Uploaded %d catalog items\n", len(items))
}

func cmdClearArchive(ctx context.Context) {
	if err := newStore().ClearArchive(ctx); err != nil {
		fatal("clear archive: %v", err)
	}
	fmt.Println("Archive cleared.")
}

// findSheet matches by exact title first, then by id prefix.
func findSheet(e *engine.Engine, ref string) *counting.Sheet {
	c := e.Cycle()
	if c == nil {
		fatal("no working cycle")
	}
	for i := range c.Sheets {
		if c.Sheets[i].Title == ref {
			return &c.Sheets[i]
		}
	}
	for i := range c.Sheets {
		if strings.HasPrefix(c.Sheets[i].ID.String(), ref) {
			return &c.Sheets[i]
		}
	}
	fatal("sheet %q not found", ref)
	return nil
}

func findItem(sh *counting.Sheet, ref string) *counting.Item {
	for i := range sh.Items {
		if strings.EqualFold(sh.Items[i].Name, ref) {
			return &sh.Items[i]
		}
	}
	for i := range sh.Items {
		if strings.HasPrefix(sh.Items[i].ID.String(), ref) {
			return &sh.Items[i]
		}
	}
	fatal("item %q not found on sheet %q", ref, sh.Title)
	return nil
}

func requireArg(n int, what string) string {
	if len(os.Args) <= n {
		fatal("missing argument: %s", what)
	}
	return os.Args[n]
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func fatal(format string, args ...any) {
	fmt.Printf("Error: "+format+"\n", args...)
	os.Exit(1)
}

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/railsight/atpdecode/internal/common"
	"github.com/railsight/atpdecode/internal/format"
	"github.com/railsight/atpdecode/internal/record"
	"github.com/railsight/atpdecode/internal/report"
	"github.com/railsight/atpdecode/internal/ru"
	"github.com/railsight/atpdecode/internal/streamio"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const (
	exitOK                   = 0
	exitUsageError           = 1
	exitInputNotReadable     = 2
	exitResyncBudgetExceeded = 3
	exitInternalError        = 4
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(exitUsageError)
	}
	switch os.Args[1] {
	case "decode":
		os.Exit(decodeCmd(os.Args[2:]))
	default:
		usage()
		os.Exit(exitUsageError)
	}
}

func usage() {
	fmt.Printf(`atpdecode %s (built %s) <command> [options]

Commands:
  decode <input-file> [-n <count>] [-f text|json] [-o <output-file>] [-v]
         [-resync-budget <n>] [-progress] [-json-report <file>] [-pdf-report <file>]
`, version, buildDate)
}

func decodeCmd(args []string) int {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	count := fs.Int("n", 0, "write at most this many output events; the whole input is still decoded (0 means no limit)")
	outFormat := fs.String("f", "text", "output format: text or json")
	outPath := fs.String("o", "", "output file (default stdout)")
	verbose := fs.Bool("v", false, "print the post-run summary to stderr")
	resyncBudget := fs.Int("resync-budget", ru.DefaultResyncBudget, "resyncs permitted before aborting")
	progress := fs.Bool("progress", false, "show a read progress bar on stderr")
	jsonReport := fs.String("json-report", "", "write a SessionReport JSON summary to this path")
	pdfReport := fs.String("pdf-report", "", "write a SessionReport PDF summary to this path")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "required: <input-file>")
		return exitUsageError
	}
	if *outFormat != "text" && *outFormat != "json" {
		fmt.Fprintf(os.Stderr, "invalid -f %q: want text or json\n", *outFormat)
		return exitUsageError
	}
	inputPath := fs.Arg(0)

	buf, err := streamio.Open(inputPath, *progress)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", inputPath, err)
		return exitInputNotReadable
	}

	metrics := common.NewMetrics()
	metrics.SetTotalBytes(int64(len(buf)))
	metrics.Start()

	session := ru.NewSession(*resyncBudget)
	events, summary := session.DecodeAll(buf)
	exceeded := budgetExceeded(events)
	if *count > 0 && len(events) > *count {
		events = events[:*count]
	}
	metrics.AddBytes(int64(len(buf)))
	metrics.Stop()
	for i := 0; i < summary.FramesDecoded; i++ {
		metrics.AddFrame()
	}
	for i := 0; i < summary.ResyncsPerformed; i++ {
		metrics.IncResync()
	}
	for i := 0; i < summary.TelegramsReassembled; i++ {
		metrics.AddTelegram()
	}
	for i := 0; i < summary.EvictedIncomplete; i++ {
		metrics.AddEviction()
	}
	for kind, n := range summary.ErrorsByKind {
		for i := 0; i < n; i++ {
			metrics.AddError(kind)
		}
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "create %s: %v\n", *outPath, err)
			return exitInternalError
		}
		defer f.Close()
		out = f
	}

	var writeErr error
	if *outFormat == "json" {
		writeErr = format.WriteJSON(out, events)
	} else {
		writeErr = format.WriteText(out, events)
	}
	if writeErr != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", writeErr)
		return exitInternalError
	}

	if *jsonReport != "" || *pdfReport != "" {
		fingerprint, _, err := common.Sha256OfFile(inputPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fingerprint %s: %v\n", inputPath, err)
			return exitInternalError
		}
		rep := report.NewSessionReport(inputPath, fingerprint, summary, events)
		if *jsonReport != "" {
			if err := report.SaveSessionJSON(rep, *jsonReport); err != nil {
				fmt.Fprintf(os.Stderr, "write json report: %v\n", err)
				return exitInternalError
			}
		}
		if *pdfReport != "" {
			if err := report.SaveSessionPDF(rep, *pdfReport); err != nil {
				fmt.Fprintf(os.Stderr, "write pdf report: %v\n", err)
				return exitInternalError
			}
		}
	}

	if *verbose {
		common.Logf("%s", metrics.Snapshot().Summary())
	}

	if exceeded {
		return exitResyncBudgetExceeded
	}
	return exitOK
}

func budgetExceeded(events []record.Event) bool {
	if len(events) == 0 {
		return false
	}
	_, ok := events[len(events)-1].Err.(*record.ResyncBudgetExceeded)
	return ok
}

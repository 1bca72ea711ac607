package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joshsymonds/gworkspace/internal/config"
	"github.com/joshsymonds/gworkspace/internal/digest"
	"github.com/joshsymonds/gworkspace/internal/runtime"
)

type digestConfig struct {
	window      time.Duration
	topN        int
	maxMessages int
	calendars   string
	taskLists   string
	jsonOut     string
	rps         float64
}

func main() {
	cfg := parseFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("gworkspace-digest failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() digestConfig {
	window := flag.Duration("window", digest.DefaultWindow, "how far back to look at mail")
	topN := flag.Int("top", digest.DefaultTopN, "number of top senders/lists to display")
	maxMessages := flag.Int("max-messages", digest.DefaultMessages, "most inbox messages to fetch")
	calendars := flag.String("calendars", "", "comma separated calendar ids (default primary)")
	taskLists := flag.String("task-lists", "", "comma separated task list ids (default @default)")
	jsonOut := flag.String("json", "", "write JSON report to path")
	rps := flag.Float64("rps", 0, "max requests per second per API (0 uses the config or default rate)")
	flag.Parse()

	return digestConfig{
		window:      *window,
		topN:        *topN,
		maxMessages: *maxMessages,
		calendars:   *calendars,
		taskLists:   *taskLists,
		jsonOut:     *jsonOut,
		rps:         *rps,
	}
}

func run(cfg digestConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conf, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	rps := cfg.rps
	if rps <= 0 {
		rps = conf.RequestsPerSecond
	}

	logger := runtime.DefaultLogger()
	ws, err := runtime.Open(ctx, runtime.NewManager(conf, logger), rps, logger)
	if err != nil {
		return err
	}
	svc := digest.NewService(ws.Gmail, ws.Calendar, ws.Tasks, logger)
	rep, err := svc.Run(ctx, digest.Options{
		Window:      cfg.window,
		TopN:        cfg.topN,
		MaxMessages: cfg.maxMessages,
		Calendars:   splitList(cfg.calendars),
		TaskLists:   splitList(cfg.taskLists),
	})
	if err != nil {
		return fmt.Errorf("run digest: %w", err)
	}

	if printErr := digest.PrintHuman(rep, os.Stdout); printErr != nil {
		return fmt.Errorf("print report: %w", printErr)
	}
	if cfg.jsonOut == "" {
		return nil
	}
	if writeErr := digest.WriteJSON(rep, cfg.jsonOut); writeErr != nil {
		return fmt.Errorf("write json: %w", writeErr)
	}
	return nil
}

func splitList(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

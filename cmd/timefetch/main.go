// TimeFetch - Cached SNTP Client
// A minimal NTP client with result caching, built for gateways in front
// of embedded devices that lack a battery-backed clock
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neutrinoguy/timefetch/internal/client"
	"github.com/neutrinoguy/timefetch/internal/config"
	"github.com/neutrinoguy/timefetch/internal/logger"
	"github.com/neutrinoguy/timefetch/internal/tui"
)

const (
	AppName    = "TimeFetch"
	AppVersion = "1.0.0"
	AppDesc    = "Cached SNTP client with a terminal dashboard"
)

var (
	showVersion = flag.Bool("version", false, "Show version information")
	showHelp    = flag.Bool("help", false, "Show help information")
	headless    = flag.Bool("headless", false, "Run in headless mode (no TUI)")
	once        = flag.Bool("once", false, "Read the time once, print it, and exit")
	runCheck    = flag.Bool("check", false, "Cross-check the result against a reference NTP client (with --once)")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n%s\n", AppName, AppVersion, AppDesc)
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	// Ensure data directory exists
	if _, err := config.EnsureDataDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating data directory: %v\n", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.GetLogger()
	if err := log.Initialize(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Infof("STARTUP", "%s v%s starting on %s", AppName, AppVersion, config.GetOSInfo())

	cl := client.NewClient(cfg)
	defer cl.Close()

	switch {
	case *once:
		runOnce(cl, cfg)
	case *headless:
		runHeadless(cl, cfg, log)
	default:
		runTUI(cl, cfg)
	}
}

// runOnce performs a single read and prints the result
func runOnce(cl *client.Client, cfg *config.Config) {
	cal, err := cl.Read()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading time from %s: %v\n", cfg.Client.Server, err)
		os.Exit(1)
	}

	fmt.Printf("%s (%s, UTC%+d, day %d of the year)\n",
		cal.String(), cal.Weekday, cfg.Client.TimezoneOffsetHours, cal.YearDay)

	if *runCheck || cfg.Check.Enabled {
		result, err := cl.RunCheck()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cross-check failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Cross-check against %s (stratum %d): skew %v, RTT %v\n",
			result.Server, result.Stratum, result.Skew, result.RTT)
	}
}

// runHeadless reads periodically and logs the results
func runHeadless(cl *client.Client, cfg *config.Config, log *logger.Logger) {
	fmt.Printf("%s v%s reading %s:%d every %ds (cache window %ds)\n",
		AppName, AppVersion,
		cfg.Client.Server, cfg.Client.Port,
		cfg.Client.ReadIntervalSeconds, cfg.Client.CacheSeconds)
	fmt.Println("Press Ctrl+C to stop...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	interval := time.Duration(cfg.Client.ReadIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	read := func() {
		cal, err := cl.Read()
		if err != nil {
			// Already logged by the client; next tick retries naturally
			return
		}
		log.Debugf("CLIENT", "Current time: %s", cal.String())
	}

	read()

	for {
		select {
		case <-ticker.C:
			read()
		case <-sigChan:
			fmt.Println("\nShutting down...")
			return
		}
	}
}

// runTUI launches the terminal dashboard
func runTUI(cl *client.Client, cfg *config.Config) {
	app := tui.NewApp(cfg, cl)

	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}

	// Save config on exit
	cfg.Save()
}

func printHelp() {
	fmt.Printf(`%s v%s - %s

USAGE:
    timefetch [OPTIONS]

OPTIONS:
    --help          Show this help message
    --version       Show version information
    --headless      Run in headless mode (no TUI)
    --once          Read the time once, print it, and exit
    --check         With --once, also cross-check against a reference NTP client

KEYBOARD SHORTCUTS (TUI Mode):
    F1              Dashboard
    F2              View Logs
    F3              Edit Configuration
    F5              Fetch History
    F12 / Esc       Quit
    Ctrl+S          Save Configuration
    Ctrl+E          Export Logs (JSON & CSV)
    Ctrl+R          Toggle History Recording
    Ctrl+U          Discard Cache / Force Fetch
    Ctrl+K          Cross-Check Against Reference
    ?               Show Help

FILES:
    ./.timefetch/config.yaml    Configuration file
    ./.timefetch/timefetch.log  Log file
    ./.timefetch/history/       Fetch history journals
    ./.timefetch/exports/       Exported logs (JSON/CSV)

EXAMPLES:
    # Run with TUI (default)
    timefetch

    # Print the current server time and exit
    timefetch --once

    # Periodic reads without a TUI
    timefetch --headless
`, AppName, AppVersion, AppDesc)
}

// Package tui provides the terminal user interface
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/neutrinoguy/timefetch/internal/client"
	"github.com/neutrinoguy/timefetch/internal/config"
	"github.com/neutrinoguy/timefetch/internal/history"
	"github.com/neutrinoguy/timefetch/internal/logger"
)

// Colors
var (
	ColorPrimary   = tcell.ColorDodgerBlue
	ColorSecondary = tcell.ColorLightGray
	ColorSuccess   = tcell.ColorLimeGreen
	ColorWarning   = tcell.ColorOrange
	ColorDanger    = tcell.ColorRed
	ColorAccent    = tcell.ColorMediumPurple
)

// App represents the TUI application
type App struct {
	app      *tview.Application
	pages    *tview.Pages
	cfg      *config.Config
	client   *client.Client
	log      *logger.Logger
	recorder *history.Recorder

	// UI Components
	mainFlex      *tview.Flex
	header        *tview.TextView
	footer        *tview.TextView
	statusBar     *tview.TextView
	logView       *tview.TextView
	dashboardView *tview.Flex
	configEditor  *tview.TextArea
	historyPanel  *tview.Flex
	helpModal     *tview.Modal

	// State
	currentPage string
	logChan     chan logger.LogEntry
	lastCheck   string
}

// NewApp creates a new TUI application
func NewApp(cfg *config.Config, cl *client.Client) *App {
	a := &App{
		app:      tview.NewApplication(),
		pages:    tview.NewPages(),
		cfg:      cfg,
		client:   cl,
		log:      logger.GetLogger(),
		recorder: history.GetRecorder(),
	}

	a.setupUI()
	return a
}

// setupUI initializes all UI components
func (a *App) setupUI() {
	// Create header
	a.header = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.updateHeader()
	a.header.SetBackgroundColor(ColorPrimary)
	a.header.SetTextColor(tcell.ColorWhite)

	// Create footer with keybindings
	a.footer = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.footer.SetText(" [yellow]F1[white] Dashboard │ [yellow]F2[white] Logs │ [yellow]F3[white] Config │ [yellow]F5[white] History │ [yellow]Ctrl+U[white] Refresh │ [yellow]Ctrl+K[white] Check │ [yellow]F12[white] Quit │ [yellow]?[white] Help ")
	a.footer.SetBackgroundColor(tcell.ColorDarkSlateGray)

	// Create status bar
	a.statusBar = tview.NewTextView().
		SetDynamicColors(true)
	a.updateStatusBar()

	// Create main content views
	a.createDashboardView()
	a.createLogView()
	a.createConfigEditor()
	a.createHistoryPanel()
	a.createHelpModal()

	// Add pages
	a.pages.AddPage("dashboard", a.dashboardView, true, true)
	a.pages.AddPage("logs", a.logView, true, false)
	a.pages.AddPage("config", a.configEditor, true, false)
	a.pages.AddPage("history", a.historyPanel, true, false)

	// Create main layout
	a.mainFlex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.header, 3, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false).
		AddItem(a.footer, 1, 0, false)

	// Set up input capture for global keybindings
	a.app.SetInputCapture(a.handleGlobalKeys)

	a.app.SetRoot(a.mainFlex, true)
	a.currentPage = "dashboard"

	// Subscribe to log updates
	a.logChan = a.log.Subscribe()
	go a.handleLogUpdates()
}

// createDashboardView creates the main dashboard
func (a *App) createDashboardView() {
	// Clock panel
	clockPanel := tview.NewTextView().SetDynamicColors(true)
	clockPanel.SetBorder(true)
	clockPanel.SetTitle(" 🕐 Server Time ")
	clockPanel.SetBorderColor(ColorPrimary)

	// Sync status panel
	syncStatus := tview.NewTextView().SetDynamicColors(true)
	syncStatus.SetBorder(true)
	syncStatus.SetTitle(" ⬆️ Last Fetch ")
	syncStatus.SetBorderColor(ColorAccent)

	// Statistics panel
	statsPanel := tview.NewTextView().SetDynamicColors(true)
	statsPanel.SetBorder(true)
	statsPanel.SetTitle(" 📊 Statistics ")
	statsPanel.SetBorderColor(ColorSuccess)

	// Cross-check panel
	checkPanel := tview.NewTextView().SetDynamicColors(true)
	checkPanel.SetBorder(true)
	checkPanel.SetTitle(" 🧭 Cross-Check ")
	checkPanel.SetBorderColor(ColorSecondary)

	// Quick log panel
	quickLog := tview.NewTextView().SetDynamicColors(true)
	quickLog.SetBorder(true)
	quickLog.SetTitle(" 📜 Recent Logs ")
	quickLog.SetBorderColor(ColorWarning)
	quickLog.SetScrollable(true)

	// Layout
	topRow := tview.NewFlex().
		AddItem(clockPanel, 0, 1, false).
		AddItem(syncStatus, 0, 1, false)

	middleRow := tview.NewFlex().
		AddItem(statsPanel, 0, 1, false).
		AddItem(checkPanel, 0, 1, false)

	a.dashboardView = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(topRow, 11, 0, false).
		AddItem(middleRow, 9, 0, false).
		AddItem(quickLog, 0, 1, false)

	// Update dashboard periodically
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for range ticker.C {
			cal, err := a.client.Read()
			a.app.QueueUpdateDraw(func() {
				// Clock
				if err != nil {
					clockPanel.SetText(fmt.Sprintf(`
  [red]● NO TIME[white]

  %v

  Reads fail until a fetch succeeds.
  Press [yellow]Ctrl+U[white] to retry now`, err))
					clockPanel.SetBorderColor(ColorDanger)
				} else {
					clockPanel.SetText(fmt.Sprintf(`
  [green]● %s[white]

  %s, day %d of the year
  Timezone: [cyan]UTC%+d[white]
  Server: [cyan]%s:%d[white]`,
						cal.String(),
						cal.Weekday, cal.YearDay,
						a.cfg.Client.TimezoneOffsetHours,
						a.cfg.Client.Server, a.cfg.Client.Port))
					clockPanel.SetBorderColor(ColorPrimary)
				}

				a.updateSyncPanel(syncStatus)
				a.updateStatsPanel(statsPanel)
				a.updateCheckPanel(checkPanel)
				a.updateQuickLog(quickLog)
			})
		}
	}()
}

// updateSyncPanel updates the last fetch panel
func (a *App) updateSyncPanel(syncStatus *tview.TextView) {
	status := a.client.Status()
	if status.Synchronized {
		resp := a.client.LastResponse()
		mode := ""
		if resp != nil {
			mode = resp.ModeString
		}
		syncStatus.SetText(fmt.Sprintf(`
  [green]● SYNCHRONIZED[white]

  Server: [cyan]%s[white]
  Stratum: [cyan]%d[white]
  Mode: [cyan]%s[white]
  RTT: [cyan]%v[white]
  Fetched: [cyan]%s[white]
  Cache window: [cyan]%ds[white]`,
			status.Server,
			status.Stratum,
			mode,
			status.LastRTT,
			status.LastSync.String(),
			a.cfg.Client.CacheSeconds))
	} else {
		errMsg := status.LastError
		if errMsg == "" {
			errMsg = "Not yet fetched"
		}
		syncStatus.SetText(fmt.Sprintf(`
  [yellow]● UNSYNCHRONIZED[white]

  Status: [red]%s[white]

  Press [yellow]Ctrl+U[white] to force a fetch`, errMsg))
	}
}

// updateStatsPanel updates the statistics panel
func (a *App) updateStatsPanel(statsPanel *tview.TextView) {
	stats := a.client.GetStats()
	statsPanel.SetText(fmt.Sprintf(`
  Uptime: [cyan]%s[white]

  Reads: [green]%d[white]
  Cache hits: [green]%d[white]
  Fetches: [green]%d[white]
  Errors: [red]%d[white]
  Checks: [yellow]%d[white]`,
		formatDuration(stats.Uptime),
		stats.TotalReads,
		stats.CacheHits,
		stats.Fetches,
		stats.ErrorCount,
		stats.ChecksRun))
}

// updateCheckPanel updates the cross-check panel
func (a *App) updateCheckPanel(checkPanel *tview.TextView) {
	if a.lastCheck == "" {
		checkPanel.SetText(`
  [gray]No cross-check run yet[white]

  Press [yellow]Ctrl+K[white] to compare against
  a reference NTP implementation`)
	} else {
		checkPanel.SetText(a.lastCheck)
	}
}

// updateQuickLog updates the recent log panel
func (a *App) updateQuickLog(quickLog *tview.TextView) {
	entries := a.log.GetEntries(15)
	var logSb strings.Builder
	for _, entry := range entries {
		color := "white"
		switch entry.Level {
		case logger.LevelDebug:
			color = "gray"
		case logger.LevelInfo:
			color = "green"
		case logger.LevelWarn:
			color = "yellow"
		case logger.LevelError:
			color = "red"
		}
		logSb.WriteString(fmt.Sprintf("[%s]%s [%s] %s[white]\n",
			color, entry.Timestamp.Format("15:04:05"), entry.Category, truncate(entry.Message, 60)))
	}
	quickLog.SetText(logSb.String())
	quickLog.ScrollToEnd()
}

// createLogView creates the log viewer
func (a *App) createLogView() {
	a.logView = tview.NewTextView().SetDynamicColors(true)
	a.logView.SetScrollable(true)
	a.logView.SetBorder(true)
	a.logView.SetTitle(" 📜 Logs [Ctrl+C to clear, Ctrl+E to export] ")
	a.logView.SetBorderColor(ColorPrimary)
}

// createConfigEditor creates the configuration editor
func (a *App) createConfigEditor() {
	a.configEditor = tview.NewTextArea().
		SetPlaceholder("Loading configuration...")
	a.configEditor.SetBorder(true)
	a.configEditor.SetTitle(" ⚙️ Configuration [Ctrl+S to save] ")
	a.configEditor.SetBorderColor(ColorWarning)

	// Load current config
	yaml, _ := a.cfg.GetYAML()
	a.configEditor.SetText(yaml, true)
}

// createHistoryPanel creates the fetch history panel
func (a *App) createHistoryPanel() {
	// Recording status
	recordingStatus := tview.NewTextView().SetDynamicColors(true)
	recordingStatus.SetBorder(true)
	recordingStatus.SetTitle(" 🎬 Recording ")
	recordingStatus.SetBorderColor(ColorDanger)

	// Journal list
	journalList := tview.NewList().
		SetHighlightFullLine(true).
		SetSelectedBackgroundColor(ColorPrimary)
	journalList.SetBorder(true)
	journalList.SetTitle(" 📁 Saved Journals ")

	// Journal details
	journalDetails := tview.NewTextView().SetDynamicColors(true)
	journalDetails.SetBorder(true)
	journalDetails.SetTitle(" 📋 Journal Details ")
	journalDetails.SetBorderColor(ColorSecondary)

	// Update recording info
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			a.app.QueueUpdateDraw(func() {
				if a.recorder.IsRecording() {
					current := a.recorder.GetCurrent()
					if current != nil {
						duration := time.Since(current.StartTime)
						recordingStatus.SetText(fmt.Sprintf(`
  [red]● RECORDING[white]

  Journal: [cyan]%s[white]
  Duration: [cyan]%s[white]
  Events: [cyan]%d[white]

  Press [yellow]Ctrl+R[white] to stop`, current.ID, formatDuration(duration), current.EventCount))
					}
				} else {
					recordingStatus.SetText(`
  [gray]○ NOT RECORDING[white]

  Press [yellow]Ctrl+R[white] to start recording`)
				}
			})
		}
	}()

	// Load journals
	a.refreshJournalList(journalList, journalDetails)

	// Layout
	leftPane := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(recordingStatus, 8, 0, false).
		AddItem(journalList, 0, 1, true)

	a.historyPanel = tview.NewFlex().
		AddItem(leftPane, 40, 0, true).
		AddItem(journalDetails, 0, 1, false)
}

// refreshJournalList refreshes the journal list
func (a *App) refreshJournalList(journalList *tview.List, journalDetails *tview.TextView) {
	journalList.Clear()

	journals, err := history.List()
	if err != nil {
		journalDetails.SetText(fmt.Sprintf("[red]Error loading journals: %v[white]", err))
		return
	}

	if len(journals) == 0 {
		journalDetails.SetText("\n  [gray]No saved journals[white]\n\n  Start a recording with [yellow]Ctrl+R[white]")
		return
	}

	for _, journal := range journals {
		j := journal // capture
		journalList.AddItem(j.ID, j.StartTime.Format("2006-01-02 15:04:05"), 0, func() {
			journalDetails.SetText(fmt.Sprintf(`
  [cyan]Journal ID:[white] %s
  [cyan]Start:[white] %s
  [cyan]End:[white] %s
  [cyan]Duration:[white] %s

  [yellow]Statistics:[white]
  • Fetches: %d
  • Failures: %d
  • Avg RTT: %v`,
				j.ID,
				j.StartTime.Format(time.RFC3339),
				j.EndTime.Format(time.RFC3339),
				j.EndTime.Sub(j.StartTime).String(),
				j.Stats.TotalFetches,
				j.Stats.Failures,
				j.Stats.AvgRTT))
		})
	}
}

// createHelpModal creates the help modal
func (a *App) createHelpModal() {
	helpText := `TimeFetch - Cached SNTP Client

⌨️  KEYBOARD SHORTCUTS:

  F1         - Dashboard
  F2         - View Logs
  F3         - Edit Configuration
  F5         - Fetch History
  F12 / Esc  - Quit

  Ctrl+S     - Save Configuration
  Ctrl+E     - Export Logs
  Ctrl+C     - Clear Logs (in log view)
  Ctrl+R     - Toggle Recording
  Ctrl+U     - Discard Cache / Force Fetch
  Ctrl+K     - Cross-Check Against Reference

The clock shows the time reported by the configured
NTP server, served from cache inside the cache window.

Press any key to close this help.`

	a.helpModal = tview.NewModal().
		SetText(helpText).
		AddButtons([]string{"Close"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			a.pages.HidePage("help")
		})
}

// handleGlobalKeys handles global keyboard shortcuts
func (a *App) handleGlobalKeys(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyF1:
		a.switchPage("dashboard")
		return nil
	case tcell.KeyF2:
		a.switchPage("logs")
		return nil
	case tcell.KeyF3:
		a.switchPage("config")
		return nil
	case tcell.KeyF5:
		a.switchPage("history")
		return nil
	case tcell.KeyF12, tcell.KeyEscape:
		a.confirmQuit()
		return nil
	case tcell.KeyCtrlS:
		a.saveConfig()
		return nil
	case tcell.KeyCtrlE:
		a.exportLogs()
		return nil
	case tcell.KeyCtrlR:
		a.toggleRecording()
		return nil
	case tcell.KeyCtrlU:
		a.client.ForceRefresh()
		return nil
	case tcell.KeyCtrlK:
		a.runCheck()
		return nil
	case tcell.KeyCtrlC:
		if a.currentPage == "logs" {
			a.log.ClearEntries()
			a.logView.Clear()
			return nil
		}
	case tcell.KeyRune:
		if event.Rune() == '?' {
			a.showHelp()
			return nil
		}
	}
	return event
}

// switchPage switches to a different page
func (a *App) switchPage(name string) {
	a.pages.SwitchToPage(name)
	a.currentPage = name
	a.updateHeader()

	// Reload config when switching to config page
	if name == "config" {
		a.reloadConfigEditor()
	}
}

// reloadConfigEditor reloads the current config into the editor
func (a *App) reloadConfigEditor() {
	yaml, err := a.cfg.GetYAML()
	if err != nil {
		a.log.Errorf("CONFIG", "Failed to load config: %v", err)
		return
	}
	a.configEditor.SetText(yaml, true)
}

// saveConfig saves the configuration
func (a *App) saveConfig() {
	if a.currentPage == "config" {
		yaml := a.configEditor.GetText()
		if err := a.cfg.UpdateFromYAML(yaml); err != nil {
			a.log.Errorf("CONFIG", "Invalid config: %v", err)
			return
		}
	}

	if err := a.cfg.Save(); err != nil {
		a.log.Errorf("CONFIG", "Failed to save: %v", err)
	} else {
		a.log.Info("CONFIG", "Configuration saved")
		a.client.UpdateConfig(a.cfg)
	}
}

// exportLogs exports logs to file
func (a *App) exportLogs() {
	timestamp := time.Now().Format("20060102_150405")

	jsonFile := fmt.Sprintf("logs_%s.json", timestamp)
	if err := a.log.ExportJSON(jsonFile); err != nil {
		a.log.Errorf("EXPORT", "Failed to export JSON: %v", err)
	} else {
		a.log.Infof("EXPORT", "Exported to .timefetch/exports/%s", jsonFile)
	}

	csvFile := fmt.Sprintf("logs_%s.csv", timestamp)
	if err := a.log.ExportCSV(csvFile); err != nil {
		a.log.Errorf("EXPORT", "Failed to export CSV: %v", err)
	} else {
		a.log.Infof("EXPORT", "Exported to .timefetch/exports/%s", csvFile)
	}
}

// toggleRecording toggles fetch history recording
func (a *App) toggleRecording() {
	if a.recorder.IsRecording() {
		journal, err := a.recorder.Stop()
		if err != nil {
			a.log.Errorf("HISTORY", "Failed to stop recording: %v", err)
		} else {
			a.log.Infof("HISTORY", "Recording stopped, saved as %s", journal.ID)
		}
	} else {
		if err := a.recorder.Start(); err != nil {
			a.log.Errorf("HISTORY", "Failed to start recording: %v", err)
		} else {
			a.log.Info("HISTORY", "Recording started")
		}
	}
}

// runCheck runs the reference cross-check in the background
func (a *App) runCheck() {
	go func() {
		result, err := a.client.RunCheck()

		a.app.QueueUpdateDraw(func() {
			if err != nil {
				a.lastCheck = fmt.Sprintf(`
  [red]● CHECK FAILED[white]

  %v`, err)
				return
			}
			a.lastCheck = fmt.Sprintf(`
  [green]● CHECKED[white]

  Reference: [cyan]%s[white] (stratum %d)
  Reference time: [cyan]%s[white]
  Skew: [cyan]%v[white]
  RTT: [cyan]%v[white]`,
				result.Server,
				result.Stratum,
				result.ReferenceTime.UTC().Format(time.RFC3339),
				result.Skew,
				result.RTT)
		})
	}()
}

// showHelp shows the help modal
func (a *App) showHelp() {
	a.pages.AddPage("help", a.helpModal, true, true)
}

// confirmQuit confirms before quitting
func (a *App) confirmQuit() {
	modal := tview.NewModal().
		SetText("Are you sure you want to quit?").
		AddButtons([]string{"Quit", "Cancel"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			if buttonLabel == "Quit" {
				a.app.Stop()
			} else {
				a.pages.RemovePage("confirm_quit")
			}
		})
	a.pages.AddPage("confirm_quit", modal, true, true)
}

// updateHeader updates the header text
func (a *App) updateHeader() {
	pageNames := map[string]string{
		"dashboard": "Dashboard",
		"logs":      "Logs",
		"config":    "Configuration",
		"history":   "Fetch History",
	}
	pageName := pageNames[a.currentPage]

	a.header.SetText(fmt.Sprintf("\n⏱ TimeFetch - Cached SNTP Client │ %s\n", pageName))
}

// updateStatusBar updates the status bar
func (a *App) updateStatusBar() {
	status := "[gray]Source: "
	sync := a.client.Status()
	if sync.Synchronized {
		status += fmt.Sprintf("[green]SYNCED[white] (%s)", sync.Server)
	} else {
		status += "[yellow]UNSYNCED[white]"
	}

	if a.recorder.IsRecording() {
		status += " │ [red]🔴 RECORDING[white]"
	}

	a.statusBar.SetText(status)
}

// handleLogUpdates handles log updates from the channel
func (a *App) handleLogUpdates() {
	for entry := range a.logChan {
		a.app.QueueUpdateDraw(func() {
			color := "white"
			switch entry.Level {
			case logger.LevelDebug:
				color = "gray"
			case logger.LevelInfo:
				color = "green"
			case logger.LevelWarn:
				color = "yellow"
			case logger.LevelError:
				color = "red"
			}

			line := fmt.Sprintf("[%s]%s [%s][%s]%s %s[white]\n",
				"cyan", entry.Timestamp.Format("15:04:05"),
				entry.LevelStr, color, entry.Category, entry.Message)

			fmt.Fprint(a.logView, line)
			a.logView.ScrollToEnd()

			// Update status bar
			a.updateStatusBar()
		})
	}
}

// Run runs the TUI application
func (a *App) Run() error {
	return a.app.Run()
}

// Helper functions

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

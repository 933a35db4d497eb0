package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/churchevent-ux/registerform--event-final/internal/config"
	"github.com/churchevent-ux/registerform--event-final/internal/tui"
)

// Monitor shows the live dashboard and break board of a running api.
func main() {
	cfg := config.Load()

	client := tui.NewClient(cfg.MonitorURL, cfg.MonitorToken)
	if cfg.MonitorToken == "" {
		if cfg.MonitorEmail == "" {
			fmt.Fprintln(os.Stderr, "set MONITOR_TOKEN or MONITOR_EMAIL and MONITOR_PASSWORD")
			os.Exit(2)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := client.Login(ctx, cfg.MonitorEmail, cfg.MonitorPassword)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			os.Exit(1)
		}
	}

	p := tea.NewProgram(tui.NewModel(client.Snapshot, cfg.MonitorRefresh), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "monitor: %v\n", err)
		os.Exit(1)
	}
}

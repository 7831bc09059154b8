package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/streamvr/server/internal/tui/app"
	"github.com/streamvr/server/internal/tui/client"
)

var (
	monitorURL   string
	monitorToken string
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch a running driver from the terminal",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ws := client.NewWSClient(monitorURL, monitorToken)
		p := tea.NewProgram(app.New(ws), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("monitor: %w", err)
		}
		return nil
	},
}

func init() {
	monitorCmd.Flags().StringVar(&monitorURL, "url", "ws://127.0.0.1:8082/ws", "WebSocket URL of the status feed")
	monitorCmd.Flags().StringVar(&monitorToken, "token", "", "Auth token (if the server requires it)")
}

package main

import (
	"context"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/gatescan/terminal/internal/camera"
	"github.com/gatescan/terminal/internal/config"
	"github.com/gatescan/terminal/internal/gateway"
	"github.com/gatescan/terminal/internal/scanner"
	"github.com/gatescan/terminal/internal/session"
	"github.com/gatescan/terminal/internal/tui"
	"github.com/gatescan/terminal/internal/workflow"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.LoadTerminal()

	store, err := session.NewFileStore(cfg.SessionPath)
	if err != nil {
		log.Fatalf("Session store: %v", err)
	}

	client := gateway.NewClient(cfg.GatewayURL, store)

	ctrl := workflow.NewController(workflow.Config{Gateway: client})

	loop := scanner.NewLoop(scanner.Config{
		Device:  &camera.V4L2Device{Path: cfg.CameraDevice},
		Decoder: scanner.NewQRDecoder(),
		Beeper:  tui.Bell{},
		OnDetected: func(code string) {
			ctrl.Submit(context.Background(), code)
		},
		OnError: func(msg string) {
			log.Printf("Scanner: %s", msg)
		},
	})
	ctrl.AttachLoop(loop)

	program := tea.NewProgram(tui.New(ctrl, client, store), tea.WithAltScreen())
	ctrl.SetNotify(func() {
		program.Send(tui.Refresh())
	})

	if _, err := program.Run(); err != nil {
		log.Fatalf("UI: %v", err)
	}
	loop.Stop()
}

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"forkful/demo/tui"
)

func main() {
	// Load environment
	_ = godotenv.Load()

	// Parse command-line flags
	serverURL := flag.String("server", "http://localhost:8080", "Ingestion server URL")
	sourceURL := flag.String("url", "", "Recipe URL to ingest")
	sourceText := flag.String("text", "", "Raw recipe text to ingest")
	flag.Parse()

	source := tui.Source{URL: *sourceURL, Text: *sourceText, Files: flag.Args()}
	if source.URL == "" && source.Text == "" && len(source.Files) == 0 {
		fmt.Println("Usage: demo [-server URL] -url RECIPE_URL | -text \"...\" | image.jpg [image2.jpg ...]")
		os.Exit(1)
	}

	// Create TUI model
	m := tui.NewModel(*serverURL, source)

	// Create the tea program
	program := tea.NewProgram(m)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		program.Quit()
	}()

	// Run the program
	if _, err := program.Run(); err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
}

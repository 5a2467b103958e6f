package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/pkarlsen/vaultview/pkg/api"
	"github.com/pkarlsen/vaultview/pkg/audit"
	"github.com/pkarlsen/vaultview/pkg/config"
	"github.com/pkarlsen/vaultview/pkg/fetch"
	"github.com/pkarlsen/vaultview/pkg/hierarchy"
	"github.com/pkarlsen/vaultview/pkg/model"
	"github.com/pkarlsen/vaultview/pkg/ui"
	"github.com/pkarlsen/vaultview/pkg/watcher"
)

const version = "0.3.0"

func main() {
	apiURL := flag.String("api", "", "Hierarchy service base URL (overrides config)")
	configPath := flag.String("config", config.DefaultPath(), "Config file path")
	showVersion := flag.Bool("version", false, "Show version")
	showHelp := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *showHelp {
		fmt.Println("Usage: vv [options]")
		fmt.Println("\nA terminal browser for archive migration status.")
		flag.PrintDefaults()
		os.Exit(0)
	}
	if *showVersion {
		fmt.Println("vv version " + version)
		os.Exit(0)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "vv is interactive; stdout must be a terminal")
		os.Exit(1)
	}

	if os.Getenv("VV_DEBUG") != "" {
		f, err := tea.LogToFile("vv-debug.log", "vv")
		if err == nil {
			defer f.Close()
		}
	} else {
		log.SetOutput(os.Stderr)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}
	if *apiURL != "" {
		cfg.APIBaseURL = *apiURL
	}

	client := api.NewClient(cfg.APIBaseURL, api.WithTimeout(cfg.RequestTimeout()))

	vocab, err := loadVocabularies(client, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading option lists from %s: %v\n", cfg.APIBaseURL, err)
		fmt.Fprintln(os.Stderr, "Check that the hierarchy service is running and -api points at it.")
		os.Exit(1)
	}

	var auditDB *audit.DB
	if cfg.AuditDBPath != "" {
		auditDB, err = audit.Open(cfg.AuditDBPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: edit journal unavailable: %v\n", err)
		} else {
			defer auditDB.Close()
		}
	}

	co := fetch.NewCoordinator(client, hierarchy.NewCache())
	m := ui.NewModel(co, vocab, cfg, auditDB)

	p := tea.NewProgram(m, tea.WithAltScreen())

	cw, err := watcher.WatchConfig(*configPath, 0, func() {
		reloaded, err := config.Load(*configPath)
		if err != nil {
			log.Printf("config reload failed: %v", err)
			return
		}
		if *apiURL != "" {
			reloaded.APIBaseURL = *apiURL
		}
		p.Send(ui.ConfigReloadedMsg{Config: reloaded})
	})
	if err == nil {
		defer cw.Close()
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running vaultview: %v\n", err)
		os.Exit(1)
	}
}

// loadVocabularies fetches the four option lists once at startup. They
// are immutable for the life of the process.
func loadVocabularies(client *api.Client, cfg config.Config) (ui.Vocabularies, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout())
	defer cancel()

	var vocab ui.Vocabularies
	for _, kind := range model.VocabKinds {
		labels, err := client.Vocabulary(ctx, kind)
		if err != nil {
			return vocab, fmt.Errorf("fetch %s: %w", kind, err)
		}
		v := model.NewVocabulary(kind, labels)
		switch kind {
		case model.VocabStatuses:
			vocab.Statuses = v
		case model.VocabUsers:
			vocab.Users = v
		case model.VocabCollections:
			vocab.Collections = v
		case model.VocabSets:
			vocab.Sets = v
		}
	}
	return vocab, nil
}

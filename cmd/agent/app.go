package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/alexrabarts/ceo-agent/internal/config"
	"github.com/alexrabarts/ceo-agent/internal/db"
	"github.com/alexrabarts/ceo-agent/internal/google"
	"github.com/alexrabarts/ceo-agent/internal/journal"
	"github.com/alexrabarts/ceo-agent/internal/llm"
	"github.com/alexrabarts/ceo-agent/internal/planner"
	"github.com/alexrabarts/ceo-agent/internal/sheets"
	"github.com/alexrabarts/ceo-agent/internal/strategy"
	"github.com/alexrabarts/ceo-agent/internal/tasks"
)

// app holds the services every command shares
type app struct {
	cfg      *config.Config
	location *time.Location
	database *db.DB
	google   *google.Clients
	store    sheets.Store
	llm      *llm.FallbackClient
	planner  *planner.Planner
	strategy *strategy.Repository
	tasks    *tasks.Manager
	journal  *journal.Journal
}

// newApp opens the store and builds the domain services. The AI chain is
// only created when withAI is set.
func newApp(ctx context.Context, cfg *config.Config, withAI bool) (*app, error) {
	a := &app{cfg: cfg}

	location, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		log.Printf("Invalid timezone %s, using local: %v", cfg.Schedule.Timezone, err)
		location = time.Local
	}
	a.location = location

	// The SQLite file always carries the usage log, and the rows too for the sqlite backend
	database, err := db.Init(cfg.Store.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.database = database

	if err := db.RunMigrations(database); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if cfg.Store.Backend == "sheets" || cfg.Features.Voice {
		clients, err := google.NewClients(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize Google clients: %w", err)
		}
		a.google = clients
	}

	switch cfg.Store.Backend {
	case "sheets":
		a.store = sheets.NewClient(a.google.Sheets, cfg.Store.SpreadsheetID)
	case "sqlite":
		a.store = db.NewSheetStore(database)
	case "memory":
		a.store = sheets.NewMemoryStore()
	default:
		a.Close()
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	log.Printf("✓ Store backend: %s", cfg.Store.Backend)

	var plan tasks.GoalUpdater
	var source planner.ContextSource
	if cfg.Features.Strategy {
		a.strategy = strategy.NewRepository(a.store, cfg.Store.Sheets.Profile, cfg.Store.Sheets.Strategy)
		plan = a.strategy
		source = a.strategy
	}

	a.tasks = tasks.NewManager(a.store, cfg.Store.Sheets.Tasks, plan, location, cfg.Company.DefaultOwner)

	if cfg.Features.ConversationLog {
		a.journal = journal.New(a.store, cfg.Store.Sheets.Log, location)
	}

	if withAI {
		client, err := llm.New(ctx, cfg, database)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
		}
		a.llm = client
		a.planner = planner.New(client, llm.NewPromptBuilder(cfg.Company.Name), source, a.tasks)
	}

	return a, nil
}

func (a *app) Close() {
	if a.llm != nil {
		if err := a.llm.Close(); err != nil {
			log.Printf("Failed to close LLM client: %v", err)
		}
	}
	if a.database != nil {
		a.database.Close()
	}
}

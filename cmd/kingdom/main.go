// Command kingdom runs The Evolving Kingdom, a terminal diplomacy game in
// which four factions remember the monarch's decisions and change because of
// them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/talgya/evolving-kingdom/internal/config"
	"github.com/talgya/evolving-kingdom/internal/engine"
	"github.com/talgya/evolving-kingdom/internal/llm"
	"github.com/talgya/evolving-kingdom/internal/persistence"
	"github.com/talgya/evolving-kingdom/internal/terminal"
)

const recentReigns = 10

func main() {
	turns := flag.Int("turns", 0, "number of turns (overrides KINGDOM_TURNS)")
	listReigns := flag.Bool("reigns", false, "list archived reigns and exit")
	flag.Parse()

	os.Exit(run(*turns, *listReigns))
}

func run(turns int, listReigns bool) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if listReigns {
		if err := showReigns(); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return 1
		}
		return 0
	}

	err := play(ctx, turns)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, engine.ErrInterrupted):
		fmt.Println("\n\nGame interrupted. Your kingdom falls into chaos!")
		return 0
	default:
		slog.Error("session failed", "error", err)
		fmt.Printf("\n\nError: %v\n", err)
		fmt.Println("The kingdom has encountered an unexpected crisis!")
		return 1
	}
}

func setupLogging(level slog.Level) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

func play(ctx context.Context, turns int) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if turns > 0 {
		cfg = cfg.WithTotalTurns(turns)
	}
	setupLogging(cfg.LogLevel)

	slog.Info("The Evolving Kingdom starting",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"turns", cfg.TotalTurns,
		"state", cfg.StatePath,
	)

	provider, err := llm.NewProvider(ctx, cfg)
	if err != nil {
		return err
	}

	ui := terminal.New(os.Stdin, os.Stdout, cfg)
	store := persistence.NewStore(cfg.StatePath, cfg)
	game := engine.NewController(cfg, store, llm.NewKingdom(provider, cfg.Temperatures), ui, ui)

	if cfg.ArchivePath != "" {
		archive, err := persistence.OpenArchive(cfg.ArchivePath)
		if err != nil {
			slog.Warn("reign archive unavailable", "path", cfg.ArchivePath, "error", err)
		} else {
			defer archive.Close()
			game.SetArchive(archive)
		}
	}

	return game.Play(ctx)
}

func showReigns() error {
	cfg, err := config.LoadLocal()
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	if cfg.ArchivePath == "" {
		return errors.New("the reign archive is disabled (KINGDOM_ARCHIVE is empty)")
	}

	archive, err := persistence.OpenArchive(cfg.ArchivePath)
	if err != nil {
		return err
	}
	defer archive.Close()

	reigns, err := archive.RecentReigns(recentReigns)
	if err != nil {
		return err
	}

	past := make([]terminal.PastReign, 0, len(reigns))
	for _, r := range reigns {
		factions, err := archive.ReignFactions(r.ID)
		if err != nil {
			return err
		}
		chronicles, err := archive.ChronicleCount(r.ID)
		if err != nil {
			return err
		}
		past = append(past, terminal.PastReign{Reign: r, Factions: factions, Chronicles: chronicles})
	}

	terminal.New(os.Stdin, os.Stdout, cfg).Reigns(past)
	return nil
}

// Command import_usage loads a usage statistics JSON file into Redis so the
// decision server can scout team previews for a format.
//
// Usage:
//
//	go run ./cmd/import_usage/ --input gen9ou.json --format gen9ou
package main

import (
	"context"
	"flag"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/showdown-bot/internal/bot"
	"github.com/freeeve/showdown-bot/internal/model"
	redisrepo "github.com/freeeve/showdown-bot/internal/repository/redis"
)

func main() {
	input := flag.String("input", "", "usage statistics JSON file")
	format := flag.String("format", "gen9ou", "format the statistics belong to")
	redisURL := flag.String("redis", envOrDefault("REDIS_URL", "redis://localhost:6379/0"), "Redis URL")
	dryRun := flag.Bool("dry-run", false, "parse and normalize without writing")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	if *input == "" {
		log.Fatal().Msg("--input is required")
	}

	raw, err := bot.LoadUsageFile(*input)
	if err != nil {
		log.Fatal().Err(err).Msg("Load failed")
	}
	table, dropped := normalizeTable(raw)
	log.Info().Int("units", len(table)).Int("dropped", dropped).Str("format", *format).Msg("Parsed usage file")
	if *dryRun {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := redisrepo.NewClient(ctx, *redisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connect failed")
	}
	defer client.Close()

	if err := client.SetUsage(ctx, *format, table); err != nil {
		log.Fatal().Err(err).Msg("Write failed")
	}
	count, err := client.UsageCount(ctx, *format)
	if err != nil {
		log.Fatal().Err(err).Msg("Count failed")
	}
	log.Info().Int64("stored", count).Str("format", *format).Msg("Import complete")
}

// normalizeTable lowercases and trims unit names, drops units with no
// recorded usage and orders each unit's moves and tera types by weight.
// Names that collide keep the entry with the larger count. It returns the cleaned table and the number of units dropped.
func normalizeTable(raw model.UsageTable) (model.UsageTable, int) {
	out := make(model.UsageTable, len(raw))
	dropped := 0
	for name, stats := range raw {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || stats.RawCount <= 0 {
			dropped++
			continue
		}
		moves := append([]model.MoveUsage(nil), stats.Moves...)
		sort.SliceStable(moves, func(i, j int) bool { return moves[i].Weight > moves[j].Weight })
		tera := append([]model.TypeUsage(nil), stats.TeraTypes...)
		sort.SliceStable(tera, func(i, j int) bool { return tera[i].Weight > tera[j].Weight })

		if prev, ok := out[key]; ok {
			dropped++
			if prev.RawCount >= stats.RawCount {
				continue
			}
		}
		out[key] = model.UsageStats{Moves: moves, RawCount: stats.RawCount, TeraTypes: tera}
	}
	return out, dropped
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

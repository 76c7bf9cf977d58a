// Command bot decides moves for battle states read as JSON lines, one state
// per line, and prints one choice token per line. A change of battle ID
// starts a new match.
//
// Usage:
//
//	go run ./cmd/bot/ --input states.jsonl --engine ./engine --strategy search
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/showdown-bot/internal/bot"
	"github.com/freeeve/showdown-bot/internal/logger"
	"github.com/freeeve/showdown-bot/pkg/battle"
	"github.com/freeeve/showdown-bot/pkg/bei"
)

func main() {
	input := flag.String("input", "-", "JSONL battle states (- for stdin)")
	enginePath := flag.String("engine", os.Getenv("ENGINE_PATH"), "search engine binary")
	strategyName := flag.String("strategy", "search", "strategy (search, heuristic, random)")
	searchTime := flag.Int("search-time", 100, "base search time per move in ms")
	parallelism := flag.Int("parallelism", 1, "concurrent searches")
	usageFile := flag.String("usage", "", "usage statistics JSON file")
	experience := flag.String("experience", "", "experience log path (empty disables)")
	seed := flag.Int64("seed", 0, "random seed for move sampling (0 = nondeterministic)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// stdout carries choice tokens, so logs go to stderr.
	level := "info"
	if *debug {
		level = "debug"
	}
	logger.Setup(logger.Options{Out: os.Stderr, Level: level, TimeFormat: "15:04:05"})
	if *seed != 0 {
		bot.SeedBotRng(*seed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Received shutdown signal")
		cancel()
	}()

	var usage bot.UsageSource
	if *usageFile != "" {
		table, err := bot.LoadUsageFile(*usageFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Usage file load failed")
		}
		usage = bot.TableSource(table)
	}

	var damage bot.DamageCalculator
	var decider *bot.Bot
	if *enginePath != "" {
		pool, err := bei.NewPool(ctx, *parallelism, nil, *enginePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *enginePath).Msg("Engine pool failed to start")
		}
		defer pool.Close()
		damage = bot.NewEngineDamage(pool)
		decider = bot.NewBot(bot.NewEngineSearch(pool),
			bot.WithScout(bot.NewUsageScout(usage)),
			bot.WithDamage(damage),
			bot.WithParallelism(*parallelism),
		)
	}

	strategy, err := bot.StrategyForName(*strategyName, decider)
	if err != nil {
		log.Fatal().Err(err).Msg("Strategy unavailable")
	}

	var recorder bot.Recorder
	if *experience != "" {
		recorder = bot.NewFileRecorder(*experience)
	}
	timeCfg := bot.DefaultTimeConfig(*searchTime)
	newContext := func() *bot.StrategicContext {
		return bot.NewStrategicContext(damage, timeCfg, recorder)
	}

	in := os.Stdin
	if *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			log.Fatal().Err(err).Msg("Open input failed")
		}
		defer f.Close()
		in = f
	}

	start := time.Now()
	n, err := run(ctx, in, os.Stdout, strategy, newContext)
	if err != nil {
		log.Fatal().Err(err).Int("decided", n).Msg("Decision run failed")
	}
	log.Info().Int("decided", n).Dur("elapsed", time.Since(start)).Msg("Done")
}

// run decides every state in r and writes one token per line to w. It
// returns how many states were decided.
func run(ctx context.Context, r io.Reader, w io.Writer, strategy bot.Strategy, newContext func() *bot.StrategicContext) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var sc *bot.StrategicContext
	battleID := ""
	n := 0
	for line := 1; scanner.Scan(); line++ {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var st battle.State
		if err := json.Unmarshal(raw, &st); err != nil {
			return n, fmt.Errorf("line %d: decode state: %w", line, err)
		}
		if sc == nil || st.ID != battleID {
			sc = newContext()
			battleID = st.ID
			log.Info().Str("battle", st.ID).Str("matchId", sc.MatchID.String()).Msg("New match")
		}
		choice, err := strategy.Choose(ctx, sc, &st)
		if err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		if _, err := fmt.Fprintln(w, choice.String()); err != nil {
			return n, err
		}
		n++
	}
	return n, scanner.Err()
}

// Package bei is a client for BEI (Battle Engine Interface) search engines.
// It manages the engine subprocess, performs the protocol handshake, and
// exposes the two queries the decision engine needs: a time-bounded search
// over a concrete battle state and a damage-range lookup.
//
// Protocol summary (one command per line):
//
//	bei                      -> id name/author, option ..., protocol_version, beiok
//	isready                  -> readyok
//	position <state json>
//	go movetime <ms>         -> info side <n> visits <v> score <s> move <choice>
//	                            info totalvisits <n>
//	                            bestmove <choice>
//	damage <user|opponent> <move>
//	                         -> damagerolls <min> <max> <critmin> <critmax>
//	                            damageerror <reason>
//	stop, quit
package bei

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/showdown-bot/pkg/battle"
)

// ErrEngineClosed is returned by queries on a closed or exited engine.
var ErrEngineClosed = errors.New("bei: engine is closed")

// ErrDamage is wrapped by errors the engine reports for a damage query.
var ErrDamage = errors.New("bei: damage query failed")

// Engine wraps a BEI-compatible engine subprocess. Commands go to stdin;
// a single reader goroutine forwards stdout lines to the active query.
type Engine struct {
	path string
	args []string

	cmd   *exec.Cmd
	stdin io.WriteCloser
	lines chan string

	mu     sync.Mutex
	closed bool
	exited chan struct{}

	// Handshake results populated during Init.
	ID      EngineID
	Options []EngineOption
}

// NewEngine creates an Engine for the given binary. The process is not
// started until Init is called.
func NewEngine(path string, args ...string) *Engine {
	return &Engine{
		path: path,
		args: args,
	}
}

// Init starts the engine subprocess and performs the handshake
// (bei -> id/option/beiok, isready -> readyok).
func (e *Engine) Init(ctx context.Context) error {
	if err := e.start(); err != nil {
		return fmt.Errorf("bei: start engine: %w", err)
	}

	if err := e.handshake(ctx); err != nil {
		e.Close()
		return fmt.Errorf("bei: handshake: %w", err)
	}

	return nil
}

// SetOption sends a "setoption" command to the engine.
func (e *Engine) SetOption(name, value string) {
	if value != "" {
		e.send(fmt.Sprintf("setoption name %s value %s", name, value))
	} else {
		e.send(fmt.Sprintf("setoption name %s", name))
	}
}

// IsReady sends "isready" and blocks until "readyok" or ctx is done.
func (e *Engine) IsReady(ctx context.Context) error {
	e.send("isready")
	return e.readUntil(ctx, "readyok")
}

// Position serializes st and sends it as the state for the next query.
func (e *Engine) Position(st *battle.State) error {
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("bei: encode position: %w", err)
	}
	e.send("position " + string(b))
	return nil
}

// Go starts a search and collects info lines until "bestmove".
//
// If ctx is canceled first, "stop" is sent and the engine gets a short
// grace period to report the moves it has searched so far.
func (e *Engine) Go(ctx context.Context, params GoParams) (*SearchResults, error) {
	if err := e.usable(); err != nil {
		return nil, err
	}

	if suffix := params.String(); suffix != "" {
		e.send("go " + suffix)
	} else {
		e.send("go")
	}

	return e.readSearchResults(ctx)
}

// Damage asks the engine for the damage range of move used by side against
// the opposing active unit in the current position.
func (e *Engine) Damage(ctx context.Context, side battle.SideID, move string) (DamageRolls, error) {
	if err := e.usable(); err != nil {
		return DamageRolls{}, err
	}
	e.send(fmt.Sprintf("damage %s %s", side, move))

	for {
		line, err := e.next(ctx)
		if err != nil {
			return DamageRolls{}, err
		}
		switch {
		case strings.HasPrefix(line, "damagerolls"):
			return parseDamageRolls(line)
		case strings.HasPrefix(line, "damageerror"):
			reason := strings.TrimSpace(strings.TrimPrefix(line, "damageerror"))
			return DamageRolls{}, fmt.Errorf("%w: %s", ErrDamage, reason)
		}
	}
}

// Stop sends the "stop" command to interrupt the current search.
func (e *Engine) Stop() {
	e.send("stop")
}

// Alive reports whether the engine process is running and not closed.
func (e *Engine) Alive() bool {
	return e.usable() == nil
}

// Close sends "quit" and waits for the process to exit, killing it after 3s.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	if e.stdin != nil {
		fmt.Fprintf(e.stdin, "quit\n")
	}
	e.closed = true
	e.mu.Unlock()

	if e.stdin != nil {
		e.stdin.Close()
	}
	if e.lines != nil {
		go func() {
			for range e.lines {
			}
		}()
	}

	if e.exited != nil {
		select {
		case <-e.exited:
		case <-time.After(3 * time.Second):
			log.Warn().Str("engine", e.path).Msg("bei: engine did not exit within 3s, killing")
			if e.cmd != nil && e.cmd.Process != nil {
				e.cmd.Process.Kill()
			}
			<-e.exited
		}
	}
	return nil
}

// start launches the subprocess and the stdout reader.
func (e *Engine) start() error {
	e.cmd = exec.Command(e.path, e.args...)

	var err error
	e.stdin, err = e.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := e.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}

	e.lines = make(chan string, 64)
	e.exited = make(chan struct{})

	if err := e.cmd.Start(); err != nil {
		return fmt.Errorf("start process: %w", err)
	}

	go func() {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			e.lines <- scanner.Text()
		}
		close(e.lines)
	}()

	go func() {
		e.cmd.Wait()
		close(e.exited)
	}()

	return nil
}

// handshake sends "bei", reads id/option lines until "beiok", then syncs with isready.
func (e *Engine) handshake(ctx context.Context) error {
	e.send("bei")

	for {
		line, err := e.next(ctx)
		if err != nil {
			return fmt.Errorf("waiting for beiok: %w", err)
		}
		switch {
		case strings.HasPrefix(line, "id name "):
			e.ID.Name = strings.TrimPrefix(line, "id name ")
		case strings.HasPrefix(line, "id author "):
			e.ID.Author = strings.TrimPrefix(line, "id author ")
		case strings.HasPrefix(line, "protocol_version "):
			fmt.Sscanf(strings.TrimPrefix(line, "protocol_version "), "%d", &e.ID.ProtocolVersion)
		case strings.HasPrefix(line, "option "):
			e.Options = append(e.Options, parseEngineOption(line))
		}
		if line == "beiok" {
			break
		}
	}

	e.send("isready")
	if err := e.readUntil(ctx, "readyok"); err != nil {
		return fmt.Errorf("waiting for readyok: %w", err)
	}
	return nil
}

// readSearchResults reads info lines until bestmove. On cancellation it sends
// stop and waits up to 2s for the forced bestmove.
func (e *Engine) readSearchResults(ctx context.Context) (*SearchResults, error) {
	sr := &SearchResults{}
	stopped := false
	var grace <-chan time.Time

	for {
		var line string
		var ok bool
		select {
		case line, ok = <-e.lines:
			if !ok {
				return nil, fmt.Errorf("bei: engine closed stdout during search")
			}
		case <-ctx.Done():
			if stopped {
				continue
			}
			stopped = true
			e.send("stop")
			grace = time.After(2 * time.Second)
			ctx = context.Background()
			continue
		case <-grace:
			return nil, fmt.Errorf("bei: engine did not respond to stop within 2s")
		}

		switch {
		case strings.HasPrefix(line, "bestmove "):
			best, err := battle.ParseChoice(strings.TrimPrefix(line, "bestmove "))
			if err != nil {
				return nil, fmt.Errorf("bei: bestmove: %w", err)
			}
			sr.BestMove = best
			if sr.TotalVisits == 0 {
				sr.TotalVisits = sr.Visits()
			}
			return sr, nil
		case strings.HasPrefix(line, "info "):
			if err := sr.add(parseInfo(line)); err != nil {
				log.Debug().Err(err).Str("line", line).Msg("bei: skipping malformed info line")
			}
		}
	}
}

// readUntil reads lines until the expected line is seen, ignoring others.
func (e *Engine) readUntil(ctx context.Context, expected string) error {
	for {
		line, err := e.next(ctx)
		if err != nil {
			return err
		}
		if line == expected {
			return nil
		}
	}
}

// next returns the next stdout line.
func (e *Engine) next(ctx context.Context) (string, error) {
	select {
	case line, ok := <-e.lines:
		if !ok {
			return "", fmt.Errorf("engine closed stdout")
		}
		return line, nil
	case <-ctx.Done():
		return "", fmt.Errorf("context canceled: %w", ctx.Err())
	}
}

// send writes a command line to the engine's stdin.
func (e *Engine) send(line string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.stdin == nil {
		return
	}
	fmt.Fprintf(e.stdin, "%s\n", line)
}

func (e *Engine) usable() error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrEngineClosed
	}
	if e.exited == nil {
		return fmt.Errorf("bei: engine process is not running")
	}
	select {
	case <-e.exited:
		return fmt.Errorf("bei: engine process is not running")
	default:
		return nil
	}
}

// ABOUTME: Interactive REPL: prompt loop, slash commands, styled output.
// ABOUTME: The console sink renders streamed tokens and tool activity inline.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bytecraft-dev/bytecraft/agent"
	"github.com/bytecraft-dev/bytecraft/fidelity"
	"github.com/bytecraft-dev/bytecraft/session"
)

var (
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	toolStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	replyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	sessionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// consoleSink renders agent events to the terminal. When streaming, tokens
// are printed as they arrive and OnComplete only terminates the line; when
// not streaming, OnComplete prints the whole reply.
type consoleSink struct {
	streaming bool
	printed   bool
}

func newConsoleSink(streaming bool) *consoleSink {
	return &consoleSink{streaming: streaming}
}

func (s *consoleSink) OnToken(text string) {
	fmt.Print(replyStyle.Render(text))
	s.printed = true
}

func (s *consoleSink) OnToolCall(name, args string) {
	if s.printed {
		fmt.Println()
		s.printed = false
	}
	fmt.Println(toolStyle.Render("⚙ " + name + " " + compactArgs(args)))
}

func (s *consoleSink) OnToolResult(name, result string) {
	fmt.Println(dimStyle.Render("  ↳ " + compactArgs(result)))
}

func (s *consoleSink) OnComplete(final string) {
	if s.streaming && s.printed {
		fmt.Println()
	} else if final != "" {
		fmt.Println(replyStyle.Render(final))
	}
	s.printed = false
}

func (s *consoleSink) OnError(err error) {
	if s.printed {
		fmt.Println()
		s.printed = false
	}
	fmt.Println(errorStyle.Render("✗ " + err.Error()))
}

// compactArgs collapses a payload to a single short line for display.
func compactArgs(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	const max = 120
	if len(s) > max {
		return s[:max] + "…"
	}
	return s
}

// app holds the REPL's mutable state.
type app struct {
	store    *session.Store
	resolver *session.Resolver
	loop     *agent.Loop
	pipeline *fidelity.Pipeline
	cfg      appConfig
	sink     *consoleSink
	session  *session.Meta
}

// showRebuild reports how a reopened session's history becomes context.
func (a *app) showRebuild(ctx context.Context) {
	turns, err := a.store.LoadTurns(a.session.ID)
	if err != nil || len(turns) == 0 {
		return
	}
	msgs, strategy := a.pipeline.Rebuild(ctx, turns, fidelity.RebuildAuto)
	fmt.Println(dimStyle.Render(fmt.Sprintf("context: %d turns rebuilt as %d messages (%s)",
		len(turns), len(msgs), strategy)))
}

func (a *app) oneShot(ctx context.Context, message string) error {
	_, err := a.loop.ProcessMessage(ctx, a.session.ID, message)
	return err
}

func (a *app) repl(ctx context.Context) error {
	fmt.Println(titleStyle.Render("ByteCraft") + dimStyle.Render("  model="+a.loop.Model()))
	a.printSessionBanner()
	a.showRebuild(ctx)
	fmt.Println(dimStyle.Render("type /help for commands"))

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print(promptStyle.Render("› "))
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			done, err := a.dispatch(ctx, line)
			if err != nil {
				fmt.Println(errorStyle.Render(err.Error()))
			}
			if done {
				return nil
			}
			continue
		}

		if _, err := a.loop.ProcessMessage(ctx, a.session.ID, line); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			// The sink already reported it; keep the REPL alive.
			continue
		}
		if meta, err := a.store.GetMeta(a.session.ID); err == nil {
			a.session = meta
		}
	}
}

// dispatch handles a slash command. It returns true when the REPL should exit.
func (a *app) dispatch(ctx context.Context, line string) (bool, error) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/exit", "/quit":
		return true, nil

	case "/help":
		a.printHelp()

	case "/new":
		meta, err := a.store.CreateSession(arg)
		if err != nil {
			return false, err
		}
		a.session = meta
		a.printSessionBanner()

	case "/model":
		if arg == "" {
			fmt.Println(dimStyle.Render("model: " + a.loop.Model()))
			return false, nil
		}
		a.loop.SetModel(a.cfg.resolveModel(arg))
		fmt.Println(dimStyle.Render("model: " + a.loop.Model()))

	case "/load":
		if arg == "" {
			return false, fmt.Errorf("usage: /load <id, prefix, or title>")
		}
		meta, err := a.resolver.Resolve(arg)
		if err != nil {
			return false, err
		}
		a.session = meta
		if err := a.store.SetLastSession(meta.ID); err != nil {
			return false, err
		}
		a.printSessionBanner()
		a.showRebuild(ctx)

	case "/sessions":
		metas, err := a.store.ListSessions()
		if err != nil {
			return false, err
		}
		if len(metas) == 0 {
			fmt.Println(dimStyle.Render("no sessions"))
			return false, nil
		}
		for _, m := range metas {
			marker := "  "
			if m.ID == a.session.ID {
				marker = sessionStyle.Render("* ")
			}
			title := m.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Printf("%s%s  %s  %s\n",
				marker,
				dimStyle.Render(m.ID[:8]),
				title,
				dimStyle.Render(m.UpdatedAt.Local().Format("2006-01-02 15:04")))
		}

	case "/clear":
		fmt.Print("\033[2J\033[H")
		a.printSessionBanner()

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
	return false, nil
}

func (a *app) printSessionBanner() {
	title := a.session.Title
	if title == "" {
		title = "new session"
	}
	fmt.Println(sessionStyle.Render("session "+a.session.ID[:8]) + dimStyle.Render("  "+title))
}

func (a *app) printHelp() {
	rows := [][2]string{
		{"/new [title]", "start a fresh session"},
		{"/load <ref>", "load a session by id, prefix, or title"},
		{"/sessions", "list sessions"},
		{"/model [alias]", "show or switch the model"},
		{"/clear", "clear the screen"},
		{"/help", "show this help"},
		{"/exit", "quit"},
	}
	for _, r := range rows {
		fmt.Printf("  %s  %s\n", promptStyle.Render(fmt.Sprintf("%-15s", r[0])), dimStyle.Render(r[1]))
	}
}

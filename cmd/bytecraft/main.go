// ABOUTME: CLI entry point: flags, env, dotenv, wiring, one-shot mode, REPL.
// ABOUTME: CRAFT_MODEL / CRAFT_SESSION_ID / CRAFT_INITIAL_MESSAGE drive non-interactive use.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bytecraft-dev/bytecraft/agent"
	"github.com/bytecraft-dev/bytecraft/fidelity"
	"github.com/bytecraft-dev/bytecraft/llm"
	"github.com/bytecraft-dev/bytecraft/session"
	"github.com/bytecraft-dev/bytecraft/tools"
)

const systemPrompt = `You are ByteCraft, an AI coding assistant running in a terminal.
You help with software tasks: reading and editing files, running commands, and executing code.
Use the available tools when a task needs them. Be concise; prefer doing over describing.`

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("bytecraft: "+err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// .env values never clobber real environment variables.
	godotenv.Load()

	var (
		flagModel   = flag.String("model", "", "model name or alias")
		flagSession = flag.String("session", "", "session id, prefix, or title to load")
		flagMessage = flag.String("message", "", "one-shot prompt; process it and exit")
		flagDir     = flag.String("dir", ".", "directory whose .bytecraft state to use")
		flagNoStrm  = flag.Bool("no-stream", false, "disable response streaming")
	)
	flag.Parse()

	stateDir := filepath.Join(*flagDir, stateDirName)
	cfg, err := loadConfig(stateDir)
	if err != nil {
		return err
	}

	model := cfg.Model
	if env := os.Getenv("CRAFT_MODEL"); env != "" {
		model = env
	}
	if *flagModel != "" {
		model = *flagModel
	}
	model = cfg.resolveModel(model)

	sessionRef := os.Getenv("CRAFT_SESSION_ID")
	if *flagSession != "" {
		sessionRef = *flagSession
	}
	initialMessage := os.Getenv("CRAFT_INITIAL_MESSAGE")
	if *flagMessage != "" {
		initialMessage = *flagMessage
	}
	streaming := cfg.Streaming && !*flagNoStrm

	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return &ConfigError{Path: cfg.APIKeyEnv, Err: fmt.Errorf("environment variable not set")}
	}
	baseURL := cfg.BaseURL
	if env := os.Getenv("OPENAI_BASE_URL"); env != "" {
		baseURL = env
	}

	store, err := session.NewStore(stateDir)
	if err != nil {
		return err
	}

	client := llm.NewClient()
	var adapterOpts []llm.OpenAIOption
	if baseURL != "" {
		adapterOpts = append(adapterOpts, llm.WithBaseURL(baseURL))
	}
	client.Register(llm.NewOpenAIAdapter(apiKey, model, adapterOpts...))
	defer client.Close()

	pipeline := fidelity.NewPipeline(cfg.Context, fidelity.WithSummarizer(&modelSummarizer{
		client: client, provider: "openai", model: model,
	}))

	workdir := *flagDir
	commandTool := tools.NewCommandTool(workdir)
	defer commandTool.KillAll()

	registry := tools.NewRegistry()
	registry.Register(tools.NewFileTool(workdir))
	registry.Register(tools.NewCodeTool())
	registry.Register(commandTool)
	for _, name := range []string{"code", "command"} {
		registry.SetOutputLimit(name, tools.DefaultOutputLimit())
	}
	registry.SetOutputLimit("file", tools.OutputLimit{MaxChars: 60000, MaxLines: 1500, Mode: tools.OutputHeadTail})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resolver := session.NewResolver(store)
	active, err := pickSession(store, resolver, sessionRef)
	if err != nil {
		return err
	}

	sink := newConsoleSink(streaming)
	loop := agent.NewLoop(agent.Config{
		Client:       client,
		Provider:     "openai",
		Model:        model,
		Store:        store,
		Pipeline:     pipeline,
		Registry:     registry,
		SystemPrompt: systemPrompt,
		Sink:         sink,
		Streaming:    streaming,
	})

	a := &app{
		store:    store,
		resolver: resolver,
		loop:     loop,
		pipeline: pipeline,
		cfg:      cfg,
		sink:     sink,
		session:  active,
	}

	if initialMessage != "" {
		return a.oneShot(ctx, initialMessage)
	}
	return a.repl(ctx)
}

// pickSession resolves an explicit reference, or falls back to the last used
// session, the most recent one, then a fresh session.
func pickSession(store *session.Store, resolver *session.Resolver, ref string) (*session.Meta, error) {
	if ref != "" {
		return resolver.Resolve(ref)
	}
	meta, err := resolver.PickStartup()
	if err != nil {
		return nil, err
	}
	if meta != nil {
		return meta, nil
	}
	return store.CreateSession("")
}

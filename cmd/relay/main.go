// Command relay runs an interactive chat session against an
// OpenAI-compatible endpoint, with tool calling, a persistent
// conversation thread, and optional OTEL observability.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/okonen/relay"
	"github.com/okonen/relay/config"
	"github.com/okonen/relay/observer"
	"github.com/okonen/relay/provider/openaicompat"
	"github.com/okonen/relay/store/sqlite"
	"github.com/okonen/relay/tools/webfetch"
)

func main() {
	var (
		configPath = flag.String("config", "", "assistant config file (.toml, .yaml, or .json)")
		dbPath     = flag.String("db", "relay.db", "sqlite database path")
		thread     = flag.String("thread", "default", "conversation thread name")
		maxRecent  = flag.Int("max-recent", 50, "max stored turns to resume with")
		stream     = flag.Bool("stream", true, "stream responses token by token")
		observe    = flag.Bool("observe", false, "enable OTEL observability")
	)
	flag.Parse()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal("OPENAI_API_KEY is not set")
	}
	baseURL := os.Getenv("OPENAI_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	cfg := &config.Assistant{Name: "relay", Model: "gpt-4o-mini"}
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var requester relay.Requester = openaicompat.New(apiKey, baseURL, openaicompat.WithLogger(logger))
	var fetch relay.Tool = webfetch.New()

	var hooks relay.RunHooks = relay.NopHooks{}
	if *observe {
		inst, shutdown, err := observer.Init(ctx, nil)
		if err != nil {
			log.Fatalf("observer init: %v", err)
		}
		defer shutdown(context.Background())

		requester = observer.WrapRequester(requester, inst)
		fetch = observer.WrapTool(fetch, inst)
		hooks = observer.NewHooks(inst)
	}
	if *stream {
		hooks = joinHooks(hooks, consoleHooks{})
	}

	store := sqlite.New(*dbPath, sqlite.WithLogger(logger))
	defer store.Close()
	if err := store.Init(ctx); err != nil {
		log.Fatalf("init store: %v", err)
	}

	history := relay.NewHistory(cfg.ConversationTokenLimit(), relay.ApproxTokenizer(),
		relay.WithHistoryLogger(logger))

	opts := []relay.RunnerOption{
		relay.WithTools(fetch),
		relay.WithHooks(hooks),
		relay.WithLogger(logger),
		relay.WithConversationStore(store, *thread, *maxRecent),
	}
	if cfg.Instructions != "" {
		opts = append(opts, relay.WithInstructions(cfg.Instructions))
	}
	if p := cfg.GenerationParams(); p != nil {
		opts = append(opts, relay.WithGenerationParams(p))
	}
	if *stream {
		opts = append(opts, relay.WithStreaming())
	}

	runner := relay.NewRunner(cfg.Name, cfg.Model, requester, history, opts...)

	fmt.Printf("%s ready (model %s, thread %q). Ctrl-D to exit.\n", cfg.Name, cfg.Model, *thread)
	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			break
		}
		line := in.Text()
		if line == "" {
			continue
		}

		reply, err := runner.Run(ctx, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			if ctx.Err() != nil {
				return
			}
			continue
		}
		if *stream {
			fmt.Println()
		} else {
			fmt.Println(reply)
		}
	}
}

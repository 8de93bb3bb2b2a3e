// ABOUTME: CLI entrypoint for the playbook runtime with run and validate modes.
// ABOUTME: Wires together the engine, provider adapters, tool registry, sqlite memory, and signal handling.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/2389-research/playbook/llm"
	"github.com/2389-research/playbook/playbook"
	"github.com/2389-research/playbook/store"
	"github.com/2389-research/playbook/tool"
)

var version = "dev"

// config holds all CLI configuration parsed from flags and positional arguments.
type config struct {
	validateOnly bool
	sets         kvFlag
	maxSteps     int
	tracePath    string
	scriptPath   string
	dbPath       string
	baseURL      string
	model        string
	verbose      bool
	showVersion  bool
	playbookFile string
}

// kvFlag collects repeated -set key=value pairs.
type kvFlag map[string]string

func (f kvFlag) String() string { return fmt.Sprintf("%v", map[string]string(f)) }

func (f kvFlag) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	f[key] = val
	return nil
}

func main() {
	loadDotEnv(".env")

	cfg := parseFlags()

	if cfg.showVersion {
		fmt.Printf("playbook %s\n", version)
		os.Exit(0)
	}

	os.Exit(run(cfg))
}

// parseFlags parses command-line flags and returns a populated config.
func parseFlags() config {
	cfg := config{sets: kvFlag{}}

	fs := flag.NewFlagSet("playbook", flag.ContinueOnError)
	fs.BoolVar(&cfg.validateOnly, "validate", false, "Validate playbook without executing")
	fs.Var(cfg.sets, "set", "Seed state field as key=value (repeatable)")
	fs.IntVar(&cfg.maxSteps, "max-steps", 0, "Maximum node executions per run (default: 100)")
	fs.StringVar(&cfg.tracePath, "trace", "", "Write the execution trace as JSONL to this file")
	fs.StringVar(&cfg.scriptPath, "script", "", "Run against scripted responses from this file instead of a live provider")
	fs.StringVar(&cfg.dbPath, "db", "", "SQLite database path for memorized records")
	fs.StringVar(&cfg.baseURL, "base-url", "", "Custom API base URL for the LLM provider")
	fs.StringVar(&cfg.model, "model", "", "Model override for default-tier nodes")
	fs.BoolVar(&cfg.verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		printHelp(os.Stderr, version)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if fs.NArg() > 0 {
		cfg.playbookFile = fs.Arg(0)
	}

	return cfg
}

// run dispatches to the appropriate mode based on the config.
// Returns an exit code: 0 for success, 1 for failure.
func run(cfg config) int {
	if cfg.playbookFile == "" {
		printHelp(os.Stderr, version)
		return 0
	}

	if cfg.validateOnly {
		return validatePlaybook(cfg)
	}

	if cfg.scriptPath == "" && os.Getenv("OPENAI_API_KEY") == "" {
		fmt.Fprintln(os.Stderr, "error: no LLM API key found")
		fmt.Fprintln(os.Stderr, "Set OPENAI_API_KEY, or pass -script for a scripted run")
		return 1
	}

	return runPlaybook(cfg)
}

// runPlaybook decodes a playbook file and executes it through the engine.
func runPlaybook(cfg config) int {
	def, err := playbook.DecodeFile(cfg.playbookFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = provider.Close() }()

	engineCfg := playbook.EngineConfig{
		Provider: provider,
		Tools:    tool.NewRegistry(),
		MaxSteps: cfg.maxSteps,
	}

	if cfg.dbPath != "" {
		memory, err := store.OpenSqlite(cfg.dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		defer func() { _ = memory.Close() }()
		engineCfg.Memory = memory
	}

	if cfg.tracePath != "" {
		out, err := os.Create(cfg.tracePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		defer func() { _ = out.Close() }()
		engineCfg.TraceSink = playbook.NewStreamSink(out)
	}

	if cfg.verbose {
		engineCfg.EventHandler = verboseEventHandler
	}

	engine := playbook.NewEngine(engineCfg)

	initial := make(map[string]any, len(cfg.sets))
	for key, value := range cfg.sets {
		initial[key] = value
	}

	// Set up context with signal handling for graceful cancellation.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	result, runErr := engine.RunDefinition(ctx, def, initial, playbook.RunOptions{
		ModelOverride: cfg.model,
	})
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		return 1
	}

	fmt.Printf("Playbook completed successfully.\n")
	fmt.Printf("Exec ID: %s\n", result.ExecID)
	fmt.Printf("Visited nodes: %v\n", result.Visited)
	for _, warning := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}

	return 0
}

// buildProvider returns a routing client over either a scripted adapter or
// the live OpenAI adapter.
func buildProvider(cfg config) (*llm.Client, error) {
	if cfg.scriptPath != "" {
		responses, err := loadScript(cfg.scriptPath)
		if err != nil {
			return nil, err
		}
		if cfg.verbose {
			fmt.Fprintf(os.Stderr, "[provider] scripted mode, %d responses\n", len(responses))
		}
		return llm.NewClient(llm.WithProvider("scripted", llm.NewScriptedAdapter(responses...))), nil
	}

	adapter := llm.NewOpenAIAdapter(os.Getenv("OPENAI_API_KEY"), cfg.baseURL)
	return llm.NewClient(llm.WithProvider("openai", adapter)), nil
}

// loadScript reads scripted provider responses, one per non-empty line.
// A line may use \n escapes for multi-line responses.
func loadScript(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var responses []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		responses = append(responses, strings.ReplaceAll(line, `\n`, "\n"))
	}
	return responses, nil
}

// validatePlaybook decodes and validates a playbook file without executing it.
func validatePlaybook(cfg config) int {
	def, err := playbook.DecodeFile(cfg.playbookFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	diags := playbook.Validate(def)

	hasErrors := false
	for _, d := range diags {
		fmt.Fprintf(os.Stderr, "[%s] %s", d.Severity, d.Message)
		if d.NodeID != "" {
			fmt.Fprintf(os.Stderr, " (node: %s)", d.NodeID)
		}
		if d.Fix != "" {
			fmt.Fprintf(os.Stderr, " -- fix: %s", d.Fix)
		}
		fmt.Fprintln(os.Stderr)

		if d.Severity == playbook.SeverityError {
			hasErrors = true
		}
	}

	if hasErrors {
		fmt.Fprintf(os.Stderr, "Validation failed.\n")
		return 1
	}

	fmt.Println("Playbook is valid.")
	return 0
}

// verboseEventHandler prints engine lifecycle events to stderr.
func verboseEventHandler(evt playbook.EngineEvent) {
	switch evt.Type {
	case playbook.EventRunStarted:
		fmt.Fprintf(os.Stderr, "[run] %s started\n", evt.ExecID)
	case playbook.EventNodeStarted:
		fmt.Fprintf(os.Stderr, "[node] %s started\n", evt.NodeID)
	case playbook.EventNodeCompleted:
		fmt.Fprintf(os.Stderr, "[node] %s completed\n", evt.NodeID)
	case playbook.EventNodeRetrying:
		fmt.Fprintf(os.Stderr, "[node] %s retrying\n", evt.NodeID)
	case playbook.EventNodeFailed:
		if reason, ok := evt.Data["reason"]; ok {
			fmt.Fprintf(os.Stderr, "[node] %s failed: %v\n", evt.NodeID, reason)
		} else {
			fmt.Fprintf(os.Stderr, "[node] %s failed\n", evt.NodeID)
		}
	case playbook.EventRunCompleted:
		fmt.Fprintf(os.Stderr, "[run] %s completed\n", evt.ExecID)
	case playbook.EventRunFailed:
		if errVal, ok := evt.Data["error"]; ok {
			fmt.Fprintf(os.Stderr, "[run] %s failed: %v\n", evt.ExecID, errVal)
		} else {
			fmt.Fprintf(os.Stderr, "[run] %s failed\n", evt.ExecID)
		}
	}
}

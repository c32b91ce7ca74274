package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/steveyegge/slogan-gen/internal/generator"
	"github.com/steveyegge/slogan-gen/internal/output"
	"github.com/steveyegge/slogan-gen/internal/types"
)

// errExit is returned by /exit to stop the loop.
var errExit = errors.New("exit")

// REPL represents the interactive shell. Every line that is not a slash
// command is a generation request.
type REPL struct {
	svc      *generator.Service
	rl       *readline.Instance
	ctx      context.Context
	out      io.Writer
	commands map[string]command

	historyFile string

	// Per-session settings changed with /model, /turns and /verbose
	model    string
	maxTurns int
	verbose  bool
}

// CommandHandler handles a specific command
type CommandHandler func(args []string) error

type command struct {
	usage   string
	desc    string
	handler CommandHandler
}

// Config holds REPL configuration
type Config struct {
	Service *generator.Service

	// HistoryFile persists input history; empty keeps it in memory
	HistoryFile string

	// Out receives all output. Default: os.Stdout.
	Out io.Writer
}

// New creates a new REPL instance
func New(cfg *Config) (*REPL, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("generator service is required")
	}

	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}

	r := &REPL{
		svc:         cfg.Service,
		out:         out,
		historyFile: cfg.HistoryFile,
		commands:    make(map[string]command),
		maxTurns:    cfg.Service.Config().MaxTurns,
	}

	// Register built-in commands
	r.registerCommands()

	return r, nil
}

// Run starts the REPL loop, reading from in (os.Stdin when nil).
func (r *REPL) Run(ctx context.Context, in io.ReadCloser) error {
	r.ctx = ctx

	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("slogan> "),
		HistoryFile:       r.historyFile,
		AutoComplete:      r.completer(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "/exit",
		HistorySearchFold: true,
		Stdin:             in,
		Stdout:            r.out,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	r.rl = rl

	r.printWelcome()

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				// Ctrl+C - just show prompt again
				continue
			} else if errors.Is(err, io.EOF) {
				// Ctrl+D - exit
				fmt.Fprintln(r.out, "\nGoodbye!")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := r.processInput(line); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			red := color.New(color.FgRed).SprintFunc()
			fmt.Fprintf(r.out, "%s %v\n", red("Error:"), err)
		}
	}
}

// processInput processes a single line of input
func (r *REPL) processInput(line string) error {
	if !strings.HasPrefix(line, "/") {
		return r.generate(line)
	}

	parts := strings.Fields(line)
	name := strings.TrimPrefix(parts[0], "/")
	cmd, ok := r.commands[name]
	if !ok {
		return fmt.Errorf("unknown command /%s (try /help)", name)
	}
	return cmd.handler(parts[1:])
}

func (r *REPL) generate(input string) error {
	ctx, cancel := context.WithTimeout(r.context(), r.svc.Config().GenerationTimeout())
	defer cancel()

	gray := color.New(color.FgHiBlack).SprintFunc()
	fmt.Fprintln(r.out, gray("Generating..."))

	session, err := r.svc.Generate(ctx, generator.Request{
		Input:    input,
		Model:    r.model,
		MaxTurns: r.maxTurns,
	})
	if err != nil {
		return err
	}
	fmt.Fprint(r.out, output.FormatSession(session, r.verbose))
	return nil
}

// registerCommands registers all built-in commands
func (r *REPL) registerCommands() {
	r.register("help", "/help", "Show this help message", r.cmdHelp)
	r.register("?", "/?", "Show this help message", r.cmdHelp)
	r.register("exit", "/exit", "Exit the REPL", r.cmdExit)
	r.register("quit", "/quit", "Exit the REPL", r.cmdExit)
	r.register("model", "/model [NAME]", "Show or set the model for this session", r.cmdModel)
	r.register("models", "/models", "List available models", r.cmdModels)
	r.register("turns", "/turns [N]", "Show or set the turn budget (1-10)", r.cmdTurns)
	r.register("verbose", "/verbose", "Toggle per-turn details", r.cmdVerbose)
	r.register("history", "/history [N]", "List recent sessions", r.cmdHistory)
	r.register("show", "/show ID", "Show a stored session", r.cmdShow)
}

func (r *REPL) register(name, usage, desc string, h CommandHandler) {
	r.commands[name] = command{usage: usage, desc: desc, handler: h}
}

func (r *REPL) completer() *readline.PrefixCompleter {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		if name != "?" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	items := make([]readline.PrefixCompleterInterface, 0, len(names))
	for _, name := range names {
		items = append(items, readline.PcItem("/"+name))
	}
	return readline.NewPrefixCompleter(items...)
}

// printWelcome prints the welcome message
func (r *REPL) printWelcome() {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Fprintf(r.out, "\n%s\n", cyan("Slogan Writer-Reviewer"))
	fmt.Fprintf(r.out, "Model: %s  Turns: %d\n\n", r.currentModel(), r.maxTurns)
	fmt.Fprintln(r.out, "Describe a product to get a slogan. Type '/help' for commands, '/exit' to quit")
	fmt.Fprintln(r.out)
}

func (r *REPL) currentModel() string {
	if r.model != "" {
		return r.model
	}
	return r.svc.DefaultModel()
}

// cmdHelp shows help information
func (r *REPL) cmdHelp(args []string) error {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.out, "\n%s\n\n", cyan("Available Commands:"))

	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == "?" || name == "quit" {
			continue
		}
		cmd := r.commands[name]
		fmt.Fprintf(r.out, "  %-16s %s\n", green(cmd.usage), cmd.desc)
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "Anything else is a slogan request, e.g. 'eco-friendly water bottle'")
	fmt.Fprintln(r.out)
	return nil
}

// cmdExit exits the REPL
func (r *REPL) cmdExit(args []string) error {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.out, "\n%s Goodbye!\n", green("✓"))
	return errExit
}

func (r *REPL) cmdModel(args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(r.out, "Model: %s\n", r.currentModel())
		return nil
	}
	name := args[0]
	found, err := r.svc.Client().HasModel(r.context(), name)
	if err == nil && !found {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Fprintf(r.out, "%s model '%s' not found on the backend\n", yellow("Warning:"), name)
	}
	r.model = name
	fmt.Fprintf(r.out, "Model set to %s\n", name)
	return nil
}

func (r *REPL) cmdModels(args []string) error {
	models, err := r.svc.Client().Models(r.context())
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	green := color.New(color.FgGreen).SprintFunc()
	current := r.currentModel()
	for _, m := range models {
		if m.Name == current {
			fmt.Fprintf(r.out, "  %s %s\n", green("*"), green(m.Name))
		} else {
			fmt.Fprintf(r.out, "    %s\n", m.Name)
		}
	}
	return nil
}

func (r *REPL) cmdTurns(args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(r.out, "Turns: %d\n", r.maxTurns)
		return nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < types.MinRoundBudget || n > types.MaxRoundBudget {
		return fmt.Errorf("turns must be between %d and %d", types.MinRoundBudget, types.MaxRoundBudget)
	}
	r.maxTurns = n
	fmt.Fprintf(r.out, "Turns set to %d\n", n)
	return nil
}

func (r *REPL) cmdVerbose(args []string) error {
	r.verbose = !r.verbose
	state := "off"
	if r.verbose {
		state = "on"
	}
	fmt.Fprintf(r.out, "Verbose output %s\n", state)
	return nil
}

func (r *REPL) cmdHistory(args []string) error {
	store := r.svc.Store()
	if store == nil {
		return fmt.Errorf("history is disabled (storage kind is none)")
	}
	limit := 10
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid count %q", args[0])
		}
		limit = n
	}
	sessions, err := store.ListSessions(r.context(), limit, "")
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(r.out, "No sessions yet")
		return nil
	}
	for _, s := range sessions {
		fmt.Fprintln(r.out, output.FormatSummary(s))
	}
	return nil
}

func (r *REPL) cmdShow(args []string) error {
	store := r.svc.Store()
	if store == nil {
		return fmt.Errorf("history is disabled (storage kind is none)")
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: /show ID")
	}
	session, err := store.GetSession(r.context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprint(r.out, output.FormatSession(session, true))
	return nil
}

func (r *REPL) context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

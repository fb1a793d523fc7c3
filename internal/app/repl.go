package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/manifoldco/promptui"

	"github.com/fpt/go-kaizen-cli/pkg/agent/compaction"
)

// SlashCommand represents a command that starts with /
type SlashCommand struct {
	Name        string
	Description string
	Handler     func(*Assistant) bool // Returns true if should exit
}

// getSlashCommands returns all available slash commands
func getSlashCommands() []SlashCommand {
	return []SlashCommand{
		{
			Name:        "help",
			Description: "Show available commands and usage information",
			Handler: func(a *Assistant) bool {
				showInteractiveHelp()
				return false
			},
		},
		{
			Name:        "log",
			Description: "Show conversation history (preview)",
			Handler: func(a *Assistant) bool {
				history := a.GetConversationPreview(1000)
				if strings.TrimSpace(history) == "" {
					fmt.Println("📜 No conversation history found.")
					return false
				}
				fmt.Println(history)
				return false
			},
		},
		{
			Name:        "clear",
			Description: "Clear conversation history and start fresh",
			Handler: func(a *Assistant) bool {
				a.ClearHistory()
				fmt.Println("🧹 Conversation history cleared.")
				return false
			},
		},
		{
			Name:        "status",
			Description: "Show current session status and statistics",
			Handler: func(a *Assistant) bool {
				showStatus(a)
				return false
			},
		},
		{
			Name:        "context",
			Description: "Show context window usage for the current model",
			Handler: func(a *Assistant) bool {
				fmt.Println(a.Session().ContextUsage().StatusLine())
				return false
			},
		},
		{
			Name:        "compact",
			Description: "Compress the conversation history now",
			Handler: func(a *Assistant) bool {
				result := a.Session().ForceCompression()
				if result == nil {
					fmt.Println("📦 Compression is not configured for this session.")
					return false
				}
				fmt.Printf("📦 %s\n", result.Message)
				if result.Compressed {
					fmt.Println(a.Session().ContextUsage().StatusLine())
				}
				return false
			},
		},
		{
			Name:        "strategy",
			Description: "Choose the compression strategy",
			Handler: func(a *Assistant) bool {
				selectStrategy(a)
				return false
			},
		},
		{
			Name:        "quit",
			Description: "Exit the interactive session",
			Handler: func(a *Assistant) bool {
				fmt.Println("👋 Goodbye!")
				return true
			},
		},
		{
			Name:        "exit",
			Description: "Exit the interactive session (alias for quit)",
			Handler: func(a *Assistant) bool {
				fmt.Println("👋 Goodbye!")
				return true
			},
		},
	}
}

// handleSlashCommand processes commands that start with /
// Returns true if the command requests program exit, false otherwise
func handleSlashCommand(input string, a *Assistant) bool {
	// Just "/" opens the command selector
	if strings.TrimSpace(input) == "/" {
		return showCommandSelector(a)
	}

	parts := strings.Fields(input)
	if len(parts) == 0 {
		return false
	}

	commandName := strings.TrimPrefix(parts[0], "/")
	commands := getSlashCommands()

	for _, cmd := range commands {
		if cmd.Name == commandName {
			return cmd.Handler(a)
		}
	}

	fmt.Printf("❌ Unknown command: /%s\n", commandName)
	fmt.Println("💡 Available commands:")
	for _, cmd := range commands {
		fmt.Printf("  /%s - %s\n", cmd.Name, cmd.Description)
	}
	fmt.Println("\n💡 Tip: Type just '/' to see an interactive command selector!")
	return false
}

// showCommandSelector shows an interactive command selector using promptui
func showCommandSelector(a *Assistant) bool {
	commands := getSlashCommands()

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}?",
		Active:   "▸ {{ .Name | cyan }} - {{ .Description | faint }}",
		Inactive: "  {{ .Name | cyan }} - {{ .Description | faint }}",
		Selected: "{{ .Name | red | cyan }}",
		Details: `
--------- Command Details ----------
{{ "Name:" | faint }}	{{ .Name }}
{{ "Description:" | faint }}	{{ .Description }}`,
	}

	searcher := func(input string, index int) bool {
		command := commands[index]
		name := strings.ReplaceAll(strings.ToLower(command.Name), " ", "")
		input = strings.ReplaceAll(strings.ToLower(input), " ", "")
		return strings.Contains(name, input)
	}

	prompt := promptui.Select{
		Label:     "Choose a command",
		Items:     commands,
		Templates: templates,
		Size:      10,
		Searcher:  searcher,
	}

	i, _, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt {
			fmt.Println("\nCancelled.")
			return false
		}
		fmt.Printf("Command selection failed: %v\n", err)
		return false
	}
	return commands[i].Handler(a)
}

// selectStrategy lets the user pick a compression strategy interactively
func selectStrategy(a *Assistant) {
	strategies := []struct {
		Strategy    compaction.Strategy
		Description string
	}{
		{compaction.StrategySummary, "Replace old messages with a generated summary"},
		{compaction.StrategySlidingWindow, "Drop oldest messages until under the threshold"},
		{compaction.StrategyImportance, "Drop least important messages first"},
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}?",
		Active:   "▸ {{ .Strategy | cyan }} - {{ .Description | faint }}",
		Inactive: "  {{ .Strategy | cyan }} - {{ .Description | faint }}",
		Selected: "{{ .Strategy | cyan }}",
	}

	prompt := promptui.Select{
		Label:     "Choose a compression strategy",
		Items:     strategies,
		Templates: templates,
	}

	i, _, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt {
			fmt.Println("\nCancelled.")
			return
		}
		fmt.Printf("Strategy selection failed: %v\n", err)
		return
	}

	if err := a.Session().SetStrategy(strategies[i].Strategy); err != nil {
		fmt.Printf("❌ Failed to set strategy: %v\n", err)
		return
	}
	fmt.Printf("✅ Compression strategy set to %s\n", strategies[i].Strategy)
}

// StartInteractiveMode runs the readline-based REPL
func StartInteractiveMode(ctx context.Context, a *Assistant) {
	rlCfg := &readline.Config{
		Prompt:              "> ",
		HistoryFile:         "",
		AutoComplete:        createAutoCompleter(),
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		HistorySearchFold:   true,
		HistoryLimit:        2000,
		FuncFilterInputRune: filterInput,
	}

	rl, err := readline.NewEx(rlCfg)
	if err != nil {
		fmt.Printf("❌ Failed to initialize interactive mode: %v\n", err)
		fmt.Println("💡 Please use one-shot mode instead: kaizen \"your request here\"")
		return
	}
	defer rl.Close()

	fmt.Println("\n🚀 Welcome to Kaizen Interactive Mode!")
	fmt.Printf("🧠 Model: %s\n", a.ModelID())
	fmt.Println("💬 Commands start with '/', everything else goes to the AI agent!")
	fmt.Println("⌨️ Use arrow keys to navigate, Ctrl+R for history search, Tab for completion.")
	fmt.Println(strings.Repeat("=", 60))

	if preview := a.GetConversationPreview(6); preview != "" {
		fmt.Print("\n")
		fmt.Print(preview)
		fmt.Println()
	}

	for {
		// Always show where the context budget stands before the prompt
		fmt.Printf("\n%s\n", a.Session().ContextUsage().StatusLine())

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		}

		userInput := strings.TrimSpace(line)
		if userInput == "" {
			continue
		}

		if strings.HasPrefix(userInput, "/") {
			if handleSlashCommand(userInput, a) {
				break
			}
			continue
		}

		// Ctrl+C during execution cancels the turn, not the program
		execCtx, cancel := context.WithCancel(ctx)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT)

		go func() {
			select {
			case <-sigChan:
				fmt.Println()
				cancel()
			case <-execCtx.Done():
			}
		}()

		response, invokeErr := a.Invoke(execCtx, userInput)
		wasCanceled := execCtx.Err() == context.Canceled

		signal.Stop(sigChan)
		close(sigChan)
		cancel()

		if invokeErr != nil {
			if wasCanceled {
				fmt.Printf("🔄 Ready for next command.\n")
			} else {
				fmt.Printf("❌ Error: %v\n", invokeErr)
			}
			continue
		}

		fmt.Printf("✅ Response:\n%s\n", response.Content())
	}

	if err := a.saveSession(); err != nil {
		logger.Warn("Failed to save session on exit", "error", err)
	} else {
		fmt.Println("💾 Session saved.")
	}
}

// createAutoCompleter creates an autocompletion function for readline
func createAutoCompleter() *readline.PrefixCompleter {
	commands := getSlashCommands()
	var pcItems []readline.PrefixCompleterInterface
	for _, cmd := range commands {
		pcItems = append(pcItems, readline.PcItem("/"+cmd.Name))
	}
	pcItems = append(pcItems, readline.PcItem("/"))
	for _, pattern := range []string{
		"Create a", "Analyze the", "Write unit tests for", "List files in",
		"Run go build", "Fix any errors", "Explain how", "Show me",
		"Generate", "Debug", "Test", "Refactor",
	} {
		pcItems = append(pcItems, readline.PcItem(pattern))
	}
	return readline.NewPrefixCompleter(pcItems...)
}

// filterInput filters input runes to handle special keys
func filterInput(r rune) (rune, bool) {
	switch r {
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func showInteractiveHelp() {
	commands := getSlashCommands()
	fmt.Println("\n📚 Interactive Commands:")
	fmt.Println("  /                - Show interactive command selector")
	for _, cmd := range commands {
		fmt.Printf("  /%-15s - %s\n", cmd.Name, cmd.Description)
	}
	fmt.Println("\n⌨️  Enhanced Features:")
	fmt.Println("  Ctrl+C           - Cancel current input or running turn")
	fmt.Println("  Ctrl+R           - Search this session's input history")
	fmt.Println("  Tab              - Auto-complete commands and patterns")
	fmt.Println("  Arrow keys       - Navigate input and history")
	fmt.Println("\n💡 Example requests:")
	fmt.Println("  > Create a HTTP server with health check")
	fmt.Println("  > Analyze the current codebase structure")
	fmt.Println("  > List files in the current directory")
	fmt.Println("  > Run go build and fix any errors")
	fmt.Println("\n🔧 The agent will automatically use tools when needed!")
}

func showStatus(a *Assistant) {
	session := a.Session()
	usage := session.ContextUsage()

	fmt.Println("\n📊 Session Status:")
	fmt.Printf("  🧠 Model: %s\n", a.ModelID())
	fmt.Printf("  💬 Messages: %d\n", session.MessageCount())
	fmt.Printf("  %s\n", usage.StatusLine())

	if cfg, ok := session.CompressionConfig(); ok {
		state := "disabled"
		if cfg.Enabled {
			state = fmt.Sprintf("enabled at %d%% (%s)", cfg.Threshold, cfg.Strategy)
		}
		fmt.Printf("  📦 Compression: %s\n", state)
	}
	if last := session.LastCompression(); last != nil && last.Compressed {
		fmt.Printf("  📦 Last compression: %d -> %d tokens (%d%% reduction, %s)\n",
			last.OriginalTokenCount, last.CompressedTokenCount, last.ReductionPercentage, last.Strategy)
	}
	fmt.Printf("  📁 Working directory: %s\n", a.WorkingDir())
	fmt.Println("  ⚡ Status: Ready for requests")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fpt/go-kaizen-cli/internal/app"
	"github.com/fpt/go-kaizen-cli/internal/config"
	"github.com/fpt/go-kaizen-cli/pkg/client"
	pkgLogger "github.com/fpt/go-kaizen-cli/pkg/logger"
	"github.com/fpt/go-kaizen-cli/pkg/message"
	"github.com/fpt/go-kaizen-cli/pkg/tokens"
)

// resolveStringFlag returns the non-empty value, preferring short flag over long flag
func resolveStringFlag(shortVal, longVal string) string {
	if shortVal != "" {
		return shortVal
	}
	return longVal
}

func printUsage() {
	fmt.Println("kaizen - AI-powered coding assistant with context budget management")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  kaizen                                   # Interactive mode")
	fmt.Println("  kaizen \"Create a HTTP server\"            # One-shot mode")
	fmt.Println("  kaizen -b anthropic \"Analyze this code\"  # Use Anthropic backend")
	fmt.Println("  kaizen -m glm-4.7 \"Explain this repo\"    # Pick a model explicitly")
	fmt.Println("  kaizen -f prompts.txt                    # Multi-turn from file")
	fmt.Println("  kaizen -v \"Debug this issue\"             # Enable verbose debug logging")
	fmt.Println("  kaizen -l                                # Show conversation history")
	fmt.Println()
}

func main() {
	ctx := context.Background()

	var backend = flag.String("b", "", "LLM backend (ollama, anthropic, openai, or gemini)")
	var backendLong = flag.String("backend", "", "LLM backend (ollama, anthropic, openai, or gemini)")
	var model = flag.String("m", "", "Model name to use")
	var modelLong = flag.String("model", "", "Model name to use")
	var workdir = flag.String("workdir", "", "Working directory")
	var settingsPath = flag.String("settings", "", "Path to settings file")
	var showLog = flag.Bool("l", false, "Print conversation message history and exit")
	var showLogLong = flag.Bool("log", false, "Print conversation message history and exit")
	var promptFile = flag.String("f", "", "File containing multi-turn prompts separated by '----'")
	var verbose = flag.Bool("v", false, "Enable verbose logging (debug level)")
	var verboseLong = flag.Bool("verbose", false, "Enable verbose logging (debug level)")
	var help = flag.Bool("h", false, "Show this help message")
	var helpLong = flag.Bool("help", false, "Show this help message")

	flag.Usage = func() {
		printUsage()
		fmt.Println("Flags:")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *help || *helpLong {
		flag.Usage()
		return
	}

	resolvedBackend := resolveStringFlag(*backend, *backendLong)
	resolvedModel := resolveStringFlag(*model, *modelLong)
	resolvedShowLog := *showLog || *showLogLong
	resolvedVerbose := *verbose || *verboseLong

	args := flag.Args()

	settings, err := config.LoadSettings(*settingsPath)
	if err != nil {
		fmt.Printf("⚠️  Warning: failed to load settings: %v\n", err)
		settings = config.GetDefaultSettings()
	}

	// Override log level to debug if verbose flag is set
	logLevel := settings.Agent.LogLevel
	if resolvedVerbose {
		logLevel = "debug"
	}
	pkgLogger.SetGlobalLogLevel(pkgLogger.LogLevel(logLevel))
	logger := pkgLogger.NewLogger(pkgLogger.LogLevel(logLevel))

	// Override settings with command line arguments
	if resolvedBackend != "" {
		settings.LLM.Backend = resolvedBackend
	}
	if resolvedModel != "" {
		settings.LLM.Model = resolvedModel
	}

	if err := config.ValidateSettings(settings); err != nil {
		logger.ErrorWithIcon("❌", "Settings validation failed", "error", err)
		os.Exit(1)
	}

	// Merge optional model context window overrides before any usage math
	if settings.Agent.ModelLimitsFile != "" {
		if err := tokens.LoadLimitsFile(settings.Agent.ModelLimitsFile); err != nil {
			logger.ErrorWithIcon("❌", "Failed to load model limits file", "error", err)
			os.Exit(1)
		}
	}

	// The ollama client resolves its endpoint from the environment
	if settings.LLM.BaseURL != "" && settings.LLM.Backend == "ollama" {
		os.Setenv("OLLAMA_HOST", settings.LLM.BaseURL)
	}

	llmClient, err := client.NewClient(settings.LLM.Backend, settings.LLM.Model, settings.LLM.MaxTokens)
	if err != nil {
		logger.ErrorWithIcon("❌", "Failed to create LLM client", "backend", settings.LLM.Backend, "error", err)
		os.Exit(1)
	}

	// Determine working directory (don't change process cwd, just pass to tools)
	workingDirectory := *workdir
	if workingDirectory != "" {
		if _, err := os.Stat(workingDirectory); err != nil {
			logger.ErrorWithIcon("❌", "Working directory does not exist",
				"directory", workingDirectory, "error", err)
			os.Exit(1)
		}
		fmt.Printf("Working directory: %s\n", workingDirectory)
	} else {
		workingDirectory = "."
	}

	// Skip session restoration for file mode to keep runs isolated
	restoreSession := *promptFile == "" && len(args) == 0

	assistant, err := app.NewAssistant(llmClient, workingDirectory, settings, restoreSession)
	if err != nil {
		logger.ErrorWithIcon("❌", "Failed to initialize assistant", "error", err)
		os.Exit(1)
	}

	if resolvedShowLog {
		history := assistant.GetConversationPreview(1000)
		if history != "" {
			fmt.Println("📜 Conversation History:")
			fmt.Println(strings.Repeat("=", 60))
			fmt.Print(history)
			fmt.Println(strings.Repeat("=", 60))
		} else {
			fmt.Println("📜 No conversation history found.")
		}
		return
	}

	if *promptFile != "" {
		executeMultiTurnFile(ctx, assistant, *promptFile)
		return
	}

	if len(args) > 0 {
		// One-shot mode: execute single command and exit
		userInput := strings.Join(args, " ")
		executeCommand(ctx, assistant, userInput)
		return
	}

	app.StartInteractiveMode(ctx, assistant)
}

func executeCommand(ctx context.Context, assistant *app.Assistant, userInput string) {
	fmt.Print("\n")

	var response message.Message
	var err error

	response, err = assistant.Invoke(ctx, userInput)
	if err != nil {
		fmt.Printf("❌ Command execution failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Response:\n%s\n", response.Content())
}

func executeMultiTurnFile(ctx context.Context, assistant *app.Assistant, filePath string) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		fmt.Printf("❌ Failed to read prompt file '%s': %v\n", filePath, err)
		os.Exit(1)
	}

	prompts := strings.Split(string(content), "----")
	if len(prompts) == 0 {
		fmt.Printf("❌ No prompts found in file '%s'\n", filePath)
		os.Exit(1)
	}

	fmt.Printf("🗂️  Executing %d turns from file: %s\n", len(prompts), filePath)

	// Memory is preserved between turns
	for i, prompt := range prompts {
		prompt = strings.TrimSpace(prompt)
		if prompt == "" {
			continue
		}

		fmt.Printf("🔄 Turn %d/%d:\n", i+1, len(prompts))
		fmt.Printf("📝 Prompt: %s\n\n", prompt)

		response, err := assistant.Invoke(ctx, prompt)
		if err != nil {
			fmt.Printf("❌ Turn %d failed: %v\n", i+1, err)
			continue
		}

		fmt.Printf("✅ Response:\n%s\n", response.Content())
		fmt.Printf("%s\n\n", strings.Repeat("─", 60))
	}

	fmt.Println("🏁 All turns completed.")
}

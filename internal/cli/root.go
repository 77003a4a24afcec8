package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/ironnote/internal/config"
	"github.com/existflow/ironnote/internal/logger"
	"github.com/existflow/ironnote/internal/tui"
	"github.com/spf13/cobra"
)

var (
	logLevel   string
	logFile    string
	logConsole bool
	apiURL     string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ironnote",
	Short: "IronNote - projects, notes and checklists in the terminal",
	Long: `IronNote keeps projects, sections, notes and todo checklists on an
IronNote server, with a fast local cache for offline reading.

Run 'ironnote' without arguments to launch the interactive TUI.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config from file (or defaults if not exists)
		loaded, err := config.Load()
		if err != nil {
			logger.Warn("Failed to load config, using defaults", logger.F("error", err))
			loaded = config.DefaultConfig()
		}
		cfg = loaded

		// Override with CLI flags if provided
		configChanged := false
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
			configChanged = true
		}
		if cmd.Flags().Changed("log-file") {
			cfg.LogFile = logFile
			configChanged = true
		}
		if cmd.Flags().Changed("log-console") {
			cfg.LogConsole = logConsole
			configChanged = true
		}
		if cmd.Flags().Changed("api-url") {
			cfg.APIURL = apiURL
			configChanged = true
		}

		// Save config if changed via CLI flags
		if configChanged {
			if err := cfg.Save(); err != nil {
				logger.Warn("Failed to save config", logger.F("error", err))
			}
		}

		logConfig := logger.Config{
			Level:      logger.ParseLevel(cfg.LogLevel),
			FilePath:   cfg.LogFile,
			MaxSize:    10 * 1024 * 1024, // 10MB
			MaxAge:     7,
			MaxBackups: 5,
			Console:    cfg.LogConsole,
		}

		if err := logger.Init(logConfig); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		logger.Info("IronNote started", logger.F("command", cmd.Name()), logger.F("api", cfg.APIURL))
		return nil
	},

	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		logger.Info("Launching TUI")
		m := tui.NewModel(a.client, a.cache, a.cfg.RequestTimeout)
		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

		if _, err := p.Run(); err != nil {
			logger.Error("TUI error", logger.F("error", err))
			return fmt.Errorf("failed to run TUI: %w", err)
		}

		logger.Info("TUI exited normally")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Info("IronNote exiting", logger.F("command", cmd.Name()))
		logger.Close()
	},
}

// currentConfig returns the config loaded for this invocation
func currentConfig() *config.Config {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return cfg
}

// Execute runs the root command. Errors the notifier already printed are
// not printed again.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !errorAlreadyShown(err) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	// Add logging flags
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file")
	rootCmd.PersistentFlags().BoolVar(&logConsole, "log-console", false, "Enable console logging")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "IronNote server URL (saved to config)")

	// Add subcommands
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(sectionCmd)
	rootCmd.AddCommand(noteCmd)
	rootCmd.AddCommand(todoCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(cacheCmd)
}

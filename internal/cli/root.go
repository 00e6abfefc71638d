package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/legalens/internal/model"
	"github.com/ppiankov/legalens/internal/validate"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=..."
var Version = "0.1.0"

var (
	cfgFile string
	verbose bool

	// cfg and logger are populated by loadRuntime before every command
	cfg    *model.Config
	logger *slog.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "legalens",
	Short: "legalens - Legal document analysis (extractive, non-advisory)",
	Long: `legalens analyzes legal documents (PDF, HTML, Markdown, plain text) and
produces an extractive summary, key clauses, keywords, the risk terms the
document mentions and recent regulatory updates.

It does not interpret the law and gives no legal advice. Every sentence in a
summary is taken verbatim from the source document.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadRuntime(cmd)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of legalens.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "legalens v%s\n", Version)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.legalens/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// loadRuntime loads .env, the configuration and the logger
func loadRuntime(cmd *cobra.Command) error {
	// .env is optional; real environment variables take precedence
	_ = godotenv.Load()

	loaded, used, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		loaded.Log.Level = lvl
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		loaded.Log.Format = format
	}
	if verbose {
		loaded.Output.Verbose = true
	}

	cfg = loaded
	logger = newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	if used != "" && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", used)
	}
	return nil
}

// loadConfig merges defaults, the config file and LEGALENS_* environment
// variables, in increasing priority. It returns the config file used, if any.
func loadConfig(path string) (*model.Config, string, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	defaults, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return nil, "", fmt.Errorf("marshal defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, "", fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".legalens"))
		v.SetConfigName("config")
	}

	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, "", fmt.Errorf("read config: %w", err)
		}
	}

	// Read in environment variables that match LEGALENS_*
	v.SetEnvPrefix("LEGALENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets never appear in config files, so they are bound explicitly
	_ = v.BindEnv("mail.password", "LEGALENS_MAIL_PASSWORD")
	_ = v.BindEnv("llm.api_key", "LEGALENS_LLM_API_KEY", "OPENAI_API_KEY")

	// Keys omitted from the marshaled defaults are unknown to AutomaticEnv
	for _, key := range []string{"http.http_proxy", "http.https_proxy", "http.no_proxy", "llm.base_url"} {
		_ = v.BindEnv(key)
	}

	loaded := model.DefaultConfig()
	if err := v.Unmarshal(loaded); err != nil {
		return nil, "", fmt.Errorf("decode config: %w", err)
	}

	if loaded.Cache.Enabled && loaded.Cache.Dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			loaded.Cache.Dir = filepath.Join(home, ".legalens", "cache")
		}
	}
	if loaded.LLM.Provider == "ollama" && loaded.LLM.BaseURL == "" {
		loaded.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}

	if err := validate.Config(loaded); err != nil {
		return nil, "", err
	}
	return loaded, v.ConfigFileUsed(), nil
}

// newLogger builds a slog logger from the log section
func newLogger(c model.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

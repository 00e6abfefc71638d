package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/legalens/internal/model"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage legalens configuration",
	Long: `Manage legalens configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (LEGALENS_*, also read from .env)
3. Config file (~/.legalens/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after defaults, config file and environment variables are merged. Secrets are never printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showConfig(cmd.OutOrStdout(), cfg)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.legalens/config.yaml with all available options.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("error finding home directory: %w", err)
			}
			path = filepath.Join(home, ".legalens", "config.yaml")
		}

		if err := writeDefaultConfig(path); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Created default configuration: %s\n", path)
		fmt.Fprintf(out, "\nTo view the configuration:\n")
		fmt.Fprintf(out, "  legalens config show\n")
		fmt.Fprintf(out, "\nTo customize, edit the file with your preferred editor:\n")
		fmt.Fprintf(out, "  $EDITOR %s\n\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

func showConfig(w io.Writer, c *model.Config) error {
	yamlData, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(w, "  Current Configuration")
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(w)
	fmt.Fprintln(w, string(yamlData))
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Secrets (not shown):")
	fmt.Fprintf(w, "  mail.password: %s\n", setOrUnset(c.Mail.Password))
	fmt.Fprintf(w, "  llm.api_key:   %s\n", setOrUnset(c.LLM.APIKey))
	fmt.Fprintln(w)
	return nil
}

func setOrUnset(s string) string {
	if s == "" {
		return "unset"
	}
	return "set"
}

// writeDefaultConfig writes the default configuration to path, refusing to
// overwrite an existing file
func writeDefaultConfig(path string) (err error) {
	if _, statErr := os.Stat(path); statErr == nil {
		return fmt.Errorf("config file already exists: %s\nUse 'legalens config show' to view it, or delete it first to recreate", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	yamlData, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close config file: %w", closeErr)
		}
	}()

	// Helper for writing with error checking
	printf := func(format string, a ...any) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(f, format, a...)
	}

	printf("# legalens configuration file\n")
	printf("#\n")
	printf("# Configuration hierarchy (highest to lowest priority):\n")
	printf("#   1. CLI flags\n")
	printf("#   2. Environment variables (LEGALENS_*, e.g. LEGALENS_ANALYSIS_NUM_SENTENCES)\n")
	printf("#   3. This config file\n")
	printf("#   4. Built-in defaults\n\n")
	printf("%s", yamlData)
	printf("\n# Secrets belong in the environment or a .env file, never here:\n")
	printf("#   LEGALENS_MAIL_PASSWORD=...\n")
	printf("#   OPENAI_API_KEY=sk-...\n")
	printf("#   OLLAMA_BASE_URL=http://localhost:11434/v1\n")
	if err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	return nil
}

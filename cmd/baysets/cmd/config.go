package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/baysets/baysets/internal/config"
	"github.com/baysets/baysets/internal/output"
)

// newConfigCmd creates the config management command.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage baysets configuration",
		Long: `Manage the user-level and project-level baysets configuration.

User configuration lives at ~/.config/baysets/config.yaml (or
$XDG_CONFIG_HOME/baysets/config.yaml) and applies to every index directory.
Project configuration lives in .baysets.yaml alongside a specific index and
overrides the user configuration for that directory.`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the user configuration file",
		Long: `Write a user configuration file populated with defaults at
~/.config/baysets/config.yaml.

If a user configuration already exists, use --force to back it up and merge
in any newly introduced default fields without disturbing existing values.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Back up and upgrade an existing user configuration")

	return cmd
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())
	configPath := config.GetUserConfigPath()

	if config.UserConfigExists() {
		if !force {
			out.Warning(fmt.Sprintf("User configuration already exists at %s", configPath))
			cmd.Println("Use --force to back it up and merge in newly added default fields.")
			return nil
		}
		return runConfigUpgrade(cmd, out, configPath)
	}

	configDir := config.GetUserConfigDir()
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := config.NewConfig().WriteYAML(configPath); err != nil {
		return fmt.Errorf("failed to write user config: %w", err)
	}

	out.Success(fmt.Sprintf("Wrote default configuration to %s", configPath))
	return nil
}

func runConfigUpgrade(cmd *cobra.Command, out *output.Writer, configPath string) error {
	backupPath, err := config.BackupUserConfig()
	if err != nil {
		return fmt.Errorf("failed to back up existing config: %w", err)
	}
	if backupPath != "" {
		out.Status("📦", fmt.Sprintf("Backed up existing configuration to %s", backupPath))
	}

	existingCfg, err := config.LoadUserConfig()
	if err != nil {
		return fmt.Errorf("failed to load existing config: %w", err)
	}
	if existingCfg == nil {
		existingCfg = config.NewConfig()
	}

	added := existingCfg.MergeNewDefaults()

	if err := existingCfg.WriteYAML(configPath); err != nil {
		return fmt.Errorf("failed to write upgraded config: %w", err)
	}

	if len(added) == 0 {
		out.Success("Configuration already up to date")
		return nil
	}

	out.Success(fmt.Sprintf("Upgraded configuration at %s", configPath))
	cmd.Println("Added fields:")
	for _, field := range added {
		cmd.Printf("  - %s\n", field)
	}

	return nil
}

func newConfigShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show [dir]",
		Short: "Print the effective configuration",
		Long: `Print configuration. --source selects which layer to show:

  merged    the fully resolved configuration for dir (default)
  user      only the user/global configuration
  project   only the project configuration file in dir
  defaults  the hardcoded defaults, ignoring every file`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runConfigShow(cmd, dir, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON instead of YAML")
	cmd.Flags().StringVar(&source, "source", "merged", "Configuration layer to show: merged, user, project, defaults")

	return cmd
}

func runConfigShow(cmd *cobra.Command, dir string, jsonOutput bool, source string) error {
	var cfg *config.Config
	var sourceDesc string

	absDir, err := filepath.Abs(dir)
	if err != nil {
		absDir = dir
	}

	switch source {
	case "merged":
		cfg, err = config.Load(absDir)
		if err != nil {
			return fmt.Errorf("failed to load merged config: %w", err)
		}
		sourceDesc = fmt.Sprintf("merged (defaults + user + %s + env)", absDir)

	case "user":
		cfg, err = config.LoadUserConfig()
		if err != nil {
			return fmt.Errorf("failed to load user config: %w", err)
		}
		if cfg == nil {
			cfg = config.NewConfig()
			sourceDesc = "defaults (no user config found at " + config.GetUserConfigPath() + ")"
		} else {
			sourceDesc = config.GetUserConfigPath()
		}

	case "project":
		cfg = config.NewConfig()
		projectPath, found := findProjectConfigFile(absDir)
		if !found {
			sourceDesc = "defaults (no .baysets.yaml found in " + absDir + ")"
		} else if err := loadProjectConfigFile(cfg, projectPath); err != nil {
			return fmt.Errorf("failed to load project config: %w", err)
		} else {
			sourceDesc = projectPath
		}

	case "defaults":
		cfg = config.NewConfig()
		sourceDesc = "hardcoded defaults"

	default:
		return fmt.Errorf("unknown source %q: must be merged, user, project, or defaults", source)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	cmd.Printf("# source: %s\n", sourceDesc)
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// findProjectConfigFile looks for .baysets.yaml or .baysets.yml directly in
// dir, without walking up to any ancestor.
func findProjectConfigFile(dir string) (string, bool) {
	for _, name := range []string{".baysets.yaml", ".baysets.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

func loadProjectConfigFile(cfg *config.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the user configuration file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.Println(config.GetUserConfigPath())
			return nil
		},
	}
}

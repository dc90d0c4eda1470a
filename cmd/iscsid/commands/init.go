package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iscsid/negotiator/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample iscsid configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/iscsid/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  iscsid init

  # Initialize with custom path
  iscsid init --config /etc/iscsid/config.yaml

  # Force overwrite existing config
  iscsid init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}

	if !initForce {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", configPath)
		}
	}

	cfg := config.DefaultConfig()
	if err := config.SaveConfig(cfg, configPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to add CHAP users under credential.users")
	fmt.Printf("  2. Run: iscsid negotiate --config %s <fixture>\n", configPath)

	return nil
}

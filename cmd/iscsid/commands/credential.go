package commands

import (
	"bufio"
	"fmt"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/iscsid/negotiator/pkg/config"
	"github.com/iscsid/negotiator/pkg/secretstore"
)

var credentialCmd = &cobra.Command{
	Use:   "credential",
	Short: "Manage CHAP users and the admin password",
}

var setAdminPasswordCmd = &cobra.Command{
	Use:   "set-admin-password",
	Short: "Hash and store the password that protects admin CLI commands",
	Long: `Prompt for a new admin password, bcrypt-hash it (pkg/secretstore), and
write the hash to the config file. This password never touches the CHAP
credential table. No iscsid command verifies it against the stored hash.`,
	RunE: runSetAdminPassword,
}

var addCHAPUserCmd = &cobra.Command{
	Use:   "add-chap-user <username> <shared-secret>",
	Short: "Add or replace a CHAP user's shared secret in the config file",
	Long: `Add or replace a static CHAP credential entry. Unlike the admin
password, the CHAP shared secret is stored in plaintext: the CHAP response
computation (MD5(identifier||secret||challenge)) needs it back, so it
cannot be a one-way hash (see pkg/secretstore's package doc).`,
	Args: cobra.ExactArgs(2),
	RunE: runAddCHAPUser,
}

func init() {
	credentialCmd.AddCommand(setAdminPasswordCmd)
	credentialCmd.AddCommand(addCHAPUserCmd)
}

func runSetAdminPassword(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	hash, err := secretstore.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	cfg.Admin.PasswordHash = hash

	path := GetConfigFile()
	if path == "" {
		path = config.DefaultConfigPath()
	}
	if err := config.SaveConfig(cfg, path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Admin password updated in %s\n", path)
	return nil
}

// readPassword prompts for a password without echoing it, the same way the
// teacher's "dittofs user" commands do. Falls back to a plain scanned line
// from cmd's configured stdin when the process's real stdin isn't a
// terminal (piped input, or a cobra test harness with SetIn).
func readPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), "New admin password: ")

	if term.IsTerminal(int(syscall.Stdin)) {
		b, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return "", fmt.Errorf("no password provided")
	}
	return strings.TrimRight(scanner.Text(), "\r\n"), nil
}

func runAddCHAPUser(cmd *cobra.Command, args []string) error {
	username, secret := args[0], args[1]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	replaced := false
	for i, u := range cfg.Credential.Users {
		if u.Username == username {
			cfg.Credential.Users[i].SharedSecret = secret
			replaced = true
			break
		}
	}
	if !replaced {
		cfg.Credential.Users = append(cfg.Credential.Users, config.StaticUser{
			Username:     username,
			SharedSecret: secret,
		})
	}

	path := GetConfigFile()
	if path == "" {
		path = config.DefaultConfigPath()
	}
	if err := config.SaveConfig(cfg, path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	verb := "added"
	if replaced {
		verb = "updated"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "CHAP user %q %s in %s\n", username, verb, path)
	return nil
}

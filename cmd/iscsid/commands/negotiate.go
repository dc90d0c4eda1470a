package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iscsid/negotiator/internal/iscsi"
	"github.com/iscsid/negotiator/internal/metrics"
	"github.com/iscsid/negotiator/internal/target"
)

var negotiateOutgoing bool

var negotiateCmd = &cobra.Command{
	Use:   "negotiate <fixture>",
	Short: "Run the engine against a text fixture of login-phase key=value lines",
	Long: `Drive one round of login-phase negotiation from a fixture file.

The fixture is a plain-text file with one "Key=Value" pair per line
(blank lines and "#"-prefixed lines are ignored). It is packed into the
login text buffer the engine expects, fed through a single Session.Parse
call, and the resulting response tokens are printed one per line,
followed by the round's status.

By default the fixture is treated as an incoming offer from the
initiator (--outgoing=false). Pass --outgoing to instead treat it as
offers iscsid itself sends, for exercising the local-offer path.

Examples:
  iscsid negotiate fixtures/login-request.txt
  iscsid negotiate --outgoing fixtures/login-offer.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runNegotiate,
}

func init() {
	negotiateCmd.Flags().BoolVar(&negotiateOutgoing, "outgoing", false, "treat the fixture as outgoing offers rather than an incoming offer")
}

func runNegotiate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	lines, err := readFixture(args[0])
	if err != nil {
		return err
	}

	buf, err := packFixture(lines)
	if err != nil {
		return err
	}

	var mc *metrics.Collector
	if cfg.Metrics.Enabled {
		mc = metrics.New(nil)
	}

	store := target.NewStaticCredentialStore(cfg.Credential.Users)
	sess, err := target.NewSession(store, cfg.Session.LocalUser, mc)
	if err != nil {
		return fmt.Errorf("failed to build session: %w", err)
	}

	out, status, err := sess.Parse(context.Background(), buf, negotiateOutgoing)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "negotiation error (%s): %v\n", status, err)
	}

	tokens, decErr := iscsi.DecodeText(out)
	if decErr != nil {
		return fmt.Errorf("failed to decode response: %w", decErr)
	}
	for _, t := range tokens {
		fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", t.Key, t.Value)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "# status=%s\n", status)

	if status == iscsi.StatusFatal {
		return fmt.Errorf("login aborted: %w", err)
	}
	return nil
}

func readFixture(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return lines, nil
}

func packFixture(lines []string) ([]byte, error) {
	var buf []byte
	for _, line := range lines {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("malformed fixture line (want Key=Value): %q", line)
		}
		var err error
		buf, err = iscsi.EncodeText(buf, iscsi.MaxTokenLen*len(lines)+1, key, value)
		if err != nil {
			return nil, fmt.Errorf("failed to pack fixture line %q: %w", line, err)
		}
	}
	return buf, nil
}

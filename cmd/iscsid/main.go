// Command iscsid exercises the iSCSI login-phase negotiation engine from
// the command line: it offers no network transport of its own (spec's
// Non-goals exclude PDU framing and TCP handling), only the engine, its
// catalog, and the CHAP sub-negotiator driven against text fixtures.
package main

import (
	"fmt"
	"os"

	"github.com/iscsid/negotiator/cmd/iscsid/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "iscsid:", err)
		os.Exit(1)
	}
}

// Command draftsend creates personalized draft emails with calendar
// invitations and stores them on an IMAP server.
package main

import (
	"fmt"
	"os"

	"github.com/nhle/draftsend/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

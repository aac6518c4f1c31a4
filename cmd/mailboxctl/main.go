package main

import (
	"fmt"
	"os"

	"github.com/richinsley/mailbox/internal/cli"
)

func main() {
	if err := cli.NewCtlCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mailboxctl: %v\n", err)
		os.Exit(1)
	}
}

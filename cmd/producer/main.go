package main

import (
	"fmt"
	"os"

	"github.com/richinsley/mailbox/internal/cli"
)

func main() {
	if err := cli.NewProducerCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "producer: %v\n", err)
		os.Exit(1)
	}
}

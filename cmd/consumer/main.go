package main

import (
	"fmt"
	"os"

	"github.com/richinsley/mailbox/internal/cli"
)

func main() {
	if err := cli.NewConsumerCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "consumer: %v\n", err)
		os.Exit(1)
	}
}

// Package main provides anchorctl, a command-line tool for inspecting and
// manipulating a fixed-record anchor store.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/calvinalkan/anchorstore/internal/anchorcli"
)

func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	exitCode := anchorcli.Run(os.Stdin, os.Stdout, os.Stderr, os.Args, sigCh)

	os.Exit(exitCode)
}

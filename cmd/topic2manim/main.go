package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// Exit statuses, so scripts can tell a failed job from a missing server.
const (
	exitFailure     = 1
	exitConfig      = 2
	exitUnreachable = 3
	exitInterrupted = 130
)

var (
	errConfig      = errors.New("configuration error")
	errUnreachable = errors.New("server unreachable")
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.Execute()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(stderr, err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, errUnreachable):
		return exitUnreachable
	case errors.Is(err, errConfig):
		return exitConfig
	default:
		return exitFailure
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/tebeka/atexit"
)

func main() {
	rc := NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := rc.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

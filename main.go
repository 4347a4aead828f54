// ABOUTME: Entry point for the gymtrack CLI
// ABOUTME: Signs in to the gymtrack API and logs workouts from the terminal

package main

import (
	"fmt"
	"os"

	"github.com/gymtrack/gymtrack/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

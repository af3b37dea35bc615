//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Generate builds the CLI and runs the full pipeline for $TOPIC.
func Generate() error {
	mg.Deps(Build)
	topic := os.Getenv("TOPIC")
	if topic == "" {
		return fmt.Errorf("set TOPIC to the report topic")
	}
	args := []string{"generate", "--topic", topic}
	if length := os.Getenv("LENGTH"); length != "" {
		args = append(args, "--length", length)
	}
	return sh.RunV(binPath(), args...)
}

// Plan builds the CLI and prints the search terms for $TOPIC.
func Plan() error {
	mg.Deps(Build)
	topic := os.Getenv("TOPIC")
	if topic == "" {
		return fmt.Errorf("set TOPIC to the report topic")
	}
	return sh.RunV(binPath(), "plan", "--topic", topic)
}

// History builds the CLI and lists recent runs.
func History() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "history", "list")
}

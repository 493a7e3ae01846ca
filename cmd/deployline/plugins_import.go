package main

// Blank imports ensure contributor init() registration runs for the CLI binary.
import (
	_ "github.com/alexisbeaulieu97/deployline/internal/contributors/command"
	_ "github.com/alexisbeaulieu97/deployline/internal/contributors/release"
	_ "github.com/alexisbeaulieu97/deployline/internal/contributors/revision"
)

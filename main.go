// quranchat - a terminal client for the Quran chat service.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"github.com/joho/godotenv"

	"github.com/jeranaias/quranchat-tui/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	// QURANCHAT_* settings may come from a .env file in the working
	// directory; a missing file is fine.
	_ = godotenv.Load(".env")

	cli.Execute()
}

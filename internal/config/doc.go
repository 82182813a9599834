// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for quranchat.
//
// Supports both TOML and JSON configuration formats, with defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: main configuration structure
//   - ServerConfig: chat service address, timeout, retries and rate limit
//   - RenderConfig: script classification thresholds
//   - RevealConfig: typewriter reveal of new answers
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (QURANCHAT_*), including those loaded from .env
//   - ~/.quranchat/config.toml
//   - ~/.quranchat/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := chatapi.NewClient(cfg.Server.URL, tokens).WithTimeout(cfg.Timeout())
package config

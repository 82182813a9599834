// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package devserver is an in-memory chat service for local development and
// integration tests.
//
// It serves the same routes as the production service (see package chatapi)
// from a chi router. Answers come from an Answerer; the default one returns
// canned answers with scripture and tradition citations so the client can be
// exercised without a retrieval pipeline or an LLM.
//
// Failures can be injected with FailNext to exercise the client's error
// handling.
package devserver

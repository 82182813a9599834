// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package credentials holds the bearer token used for chat service calls.
//
// The token lives in a single file (by default ~/.quranchat/token, mode 0600)
// written by `quranchat login` or an external login tool. A token given in
// the configuration or the QURANCHAT_TOKEN environment variable overrides
// the file until Clear is called.
//
// Watch follows the file so that a client sent back to login resumes as soon
// as a new token is written.
package credentials

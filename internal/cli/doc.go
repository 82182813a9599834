// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the quranchat command line.
//
// Running quranchat with no subcommand opens the full-screen chat. The
// subcommands cover scripting and maintenance:
//
//	quranchat                      open the chat TUI
//	quranchat chat                 line-mode chat with history
//	quranchat ask "question"       one question, answer on stdout
//	quranchat verse                a random verse from the service
//	quranchat chats list|show|delete|search|bookmark
//	quranchat export <chat-id>     write a chat as markdown, html or json
//	quranchat login|logout|status
//	quranchat config show|get|set|keys|path
//	quranchat render [file]        dump the rendered document of a text
//	quranchat devserver            run the local development service
//
// Every command accepts --json to print a JSONResponse envelope instead of
// human-readable text.
package cli

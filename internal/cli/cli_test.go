// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/quranchat-tui/internal/chatapi"
	"github.com/jeranaias/quranchat-tui/internal/devserver"
	"github.com/jeranaias/quranchat-tui/internal/session"
	"github.com/jeranaias/quranchat-tui/internal/storage"
)

const patienceQuestion = "What does the Quran say about patience?"

// =============================================================================
// HARNESS
// =============================================================================

type testEnv struct {
	t      *testing.T
	home   string
	srv    *devserver.Server
	server string
}

// newTestEnv isolates HOME and starts a dev server accepting "tok".
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"QURANCHAT_SERVER_URL", "QURANCHAT_TOKEN", "QURANCHAT_LOG_LEVEL",
		"QURANCHAT_REVEAL", "QURANCHAT_OFFLINE_ARCHIVE", "NO_COLOR"} {
		t.Setenv(k, "")
	}
	t.Setenv("QURANCHAT_TOKEN", "tok")

	srv := devserver.New(devserver.Options{Tokens: map[string]string{"tok": "alice"}})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return &testEnv{t: t, home: home, srv: srv, server: ts.URL}
}

type result struct {
	code   int
	stdout string
	stderr string
}

func (e *testEnv) run(stdin string, args ...string) result {
	e.t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"--server", e.server}, args...)
	code := Run(full, strings.NewReader(stdin), &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

// runJSON runs with --json and decodes the envelope.
func (e *testEnv) runJSON(args ...string) (int, JSONResponse, json.RawMessage) {
	e.t.Helper()
	res := e.run("", append([]string{"--json"}, args...)...)
	var env struct {
		JSONResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(e.t, json.Unmarshal([]byte(res.stdout), &env), res.stdout)
	return res.code, env.JSONResponse, env.Data
}

func (e *testEnv) askNewChat() string {
	e.t.Helper()
	code, resp, data := e.runJSON("ask", patienceQuestion)
	require.Equal(e.t, ExitOK, code)
	require.True(e.t, resp.Success)
	var ans AnswerData
	require.NoError(e.t, json.Unmarshal(data, &ans))
	require.NotEmpty(e.t, ans.ChatID)
	return ans.ChatID
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_PrintsAnswerAndSources(t *testing.T) {
	env := newTestEnv(t)

	res := env.run("", "ask", patienceQuestion)
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Surah Al-Baqarah (2:153)")
	assert.Contains(t, res.stdout, "Sources:")
	assert.Contains(t, res.stdout, "chat ")
}

func TestAsk_JSONCarriesDocument(t *testing.T) {
	env := newTestEnv(t)

	code, resp, data := env.runJSON("ask", patienceQuestion)
	require.Equal(t, ExitOK, code)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "quranchat ask", resp.Command)

	var ans AnswerData
	require.NoError(t, json.Unmarshal(data, &ans))
	assert.NotEmpty(t, ans.MessageID)
	assert.Len(t, ans.Sources, 2)
	require.Len(t, ans.Document.Blocks, 3)
	assert.Equal(t, "prose", string(ans.Document.Blocks[0].Kind))
	assert.Equal(t, "script", string(ans.Document.Blocks[1].Kind))
}

func TestAsk_ReadsQuestionFromStdin(t *testing.T) {
	if IsTTY() {
		t.Skip("stdin is a terminal")
	}
	env := newTestEnv(t)

	res := env.run("Tell me about mercy\n", "ask")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Al-Anbiya (21:107)")
}

func TestAsk_EmptyQuestionIsUsageError(t *testing.T) {
	env := newTestEnv(t)

	res := env.run("   \n", "ask")
	assert.Equal(t, ExitUsage, res.code)
	assert.Contains(t, res.stderr, "invalid message")
}

func TestAsk_ContinuesChat(t *testing.T) {
	env := newTestEnv(t)
	id := env.askNewChat()

	code, _, data := env.runJSON("ask", "--chat", id, "And what about gratitude?")
	require.Equal(t, ExitOK, code)
	var ans AnswerData
	require.NoError(t, json.Unmarshal(data, &ans))
	assert.Equal(t, id, ans.ChatID)
}

func TestAsk_UnauthorizedClearsTokenFile(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("QURANCHAT_TOKEN", "")

	tokenFile := filepath.Join(env.home, ".quranchat", "token")
	require.NoError(t, os.MkdirAll(filepath.Dir(tokenFile), 0700))
	require.NoError(t, os.WriteFile(tokenFile, []byte("stale\n"), 0600))

	code, resp, _ := env.runJSON("ask", patienceQuestion)
	assert.Equal(t, ExitUnauthorized, code)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)

	_, err := os.Stat(tokenFile)
	assert.True(t, os.IsNotExist(err), "rejected token file should be removed")
}

func TestAsk_ServiceErrorExitCode(t *testing.T) {
	env := newTestEnv(t)
	env.srv.FailNext(500, 1)

	res := env.run("", "ask", patienceQuestion)
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.stderr, "Error:")
}

// =============================================================================
// CHATS
// =============================================================================

func TestChats_ListShowDelete(t *testing.T) {
	env := newTestEnv(t)
	id := env.askNewChat()

	code, _, data := env.runJSON("chats", "list")
	require.Equal(t, ExitOK, code)
	var chats []map[string]any
	require.NoError(t, json.Unmarshal(data, &chats))
	require.Len(t, chats, 1)
	assert.Equal(t, id, chats[0]["id"])

	res := env.run("", "chats", "show", id)
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, patienceQuestion)
	assert.Contains(t, res.stdout, "Assistant")

	res = env.run("", "chats", "delete", id)
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Deleted chat "+id)

	res = env.run("", "chats", "show", id)
	assert.Equal(t, ExitNotFound, res.code)
}

func TestChats_OfflineArchive(t *testing.T) {
	env := newTestEnv(t)
	id := env.askNewChat()

	code, _, data := env.runJSON("chats", "list", "--offline")
	require.Equal(t, ExitOK, code)
	var metas []storage.ChatMeta
	require.NoError(t, json.Unmarshal(data, &metas))
	require.Len(t, metas, 1)
	assert.Equal(t, id, metas[0].ID)
	assert.Equal(t, 2, metas[0].MessageCount)

	res := env.run("", "chats", "search", "PATIENCE")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, id)

	res = env.run("", "chats", "search", "astronomy")
	require.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stdout, "No archived chats.")
}

func TestChats_ArchiveDisabled(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("QURANCHAT_OFFLINE_ARCHIVE", "false")

	res := env.run("", "chats", "search", "x")
	assert.Equal(t, ExitUsage, res.code)
	assert.Contains(t, res.stderr, "archive is disabled")
}

func TestChats_Bookmark(t *testing.T) {
	env := newTestEnv(t)
	id := env.askNewChat()

	chat, err := env.srv.Store().Chat("alice", id)
	require.NoError(t, err)
	answerID := chat.Messages[1].ID

	code, _, data := env.runJSON("chats", "bookmark", answerID)
	require.Equal(t, ExitOK, code)
	assert.JSONEq(t, fmt.Sprintf(`{"message_id":%q,"bookmarked":true}`, answerID), string(data))

	res := env.run("", "chats", "bookmark", answerID)
	require.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stdout, "Removed bookmark")

	res = env.run("", "chats", "bookmark", "nope")
	assert.Equal(t, ExitNotFound, res.code)
}

// =============================================================================
// EXPORT
// =============================================================================

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	id := env.askNewChat()

	t.Run("stdout markdown", func(t *testing.T) {
		res := env.run("", "export", id, "--stdout")
		require.Equal(t, ExitOK, res.code, res.stderr)
		assert.Contains(t, res.stdout, "### Question")
		assert.Contains(t, res.stdout, "**Sources**")
	})

	t.Run("file html", func(t *testing.T) {
		dir := t.TempDir()
		code, _, data := env.runJSON("export", id, "--format", "html", "--out", dir)
		require.Equal(t, ExitOK, code)
		var got map[string]string
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, dir, filepath.Dir(got["path"]))
		assert.Equal(t, ".html", filepath.Ext(got["path"]))
		content, err := os.ReadFile(got["path"])
		require.NoError(t, err)
		assert.Contains(t, string(content), `dir="rtl"`)
	})

	t.Run("offline json", func(t *testing.T) {
		res := env.run("", "export", id, "--offline", "--format", "json", "--stdout")
		require.Equal(t, ExitOK, res.code, res.stderr)
		assert.Contains(t, res.stdout, `"generator"`)
	})

	t.Run("unknown format", func(t *testing.T) {
		res := env.run("", "export", id, "--format", "pdf", "--stdout")
		assert.Equal(t, ExitUsage, res.code)
	})
}

// =============================================================================
// AUTH
// =============================================================================

func TestLoginLogout(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("QURANCHAT_TOKEN", "")
	tokenFile := filepath.Join(env.home, ".quranchat", "token")

	res := env.run("", "login", "--token", "tok")
	require.Equal(t, ExitOK, res.code, res.stderr)
	info, err := os.Stat(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	res = env.run("", "ask", patienceQuestion)
	require.Equal(t, ExitOK, res.code, res.stderr)

	res = env.run("", "logout")
	require.Equal(t, ExitOK, res.code)
	_, err = os.Stat(tokenFile)
	assert.True(t, os.IsNotExist(err))
}

func TestLogin_ReadsTokenFromStdin(t *testing.T) {
	if IsTTY() {
		t.Skip("stdin is a terminal")
	}
	env := newTestEnv(t)
	t.Setenv("QURANCHAT_TOKEN", "")

	res := env.run("tok\n", "login")
	require.Equal(t, ExitOK, res.code, res.stderr)
	data, err := os.ReadFile(filepath.Join(env.home, ".quranchat", "token"))
	require.NoError(t, err)
	assert.Equal(t, "tok\n", string(data))

	res = env.run("\n", "login")
	assert.Equal(t, ExitUsage, res.code)
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)

	code, _, data := env.runJSON("status")
	require.Equal(t, ExitOK, code)
	var st StatusData
	require.NoError(t, json.Unmarshal(data, &st))
	assert.True(t, st.Reachable)
	assert.True(t, st.HasToken)
	require.NotNil(t, st.TokenValid)
	assert.True(t, *st.TokenValid)

	t.Setenv("QURANCHAT_TOKEN", "wrong")
	code, _, data = env.runJSON("status")
	require.Equal(t, ExitOK, code)
	require.NoError(t, json.Unmarshal(data, &st))
	require.NotNil(t, st.TokenValid)
	assert.False(t, *st.TokenValid)
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfig_SetGet(t *testing.T) {
	env := newTestEnv(t)

	res := env.run("", "config", "set", "reveal.chunk_size", "7")
	require.Equal(t, ExitOK, res.code, res.stderr)

	res = env.run("", "config", "get", "reveal.chunk_size")
	require.Equal(t, ExitOK, res.code)
	assert.Equal(t, "7\n", res.stdout)

	// The environment token must not be written to the file.
	data, err := os.ReadFile(filepath.Join(env.home, ".quranchat", "config.toml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"tok"`)

	res = env.run("", "config", "set", "reveal.nope", "1")
	assert.Equal(t, ExitUsage, res.code)

	res = env.run("", "config", "get", "auth.token")
	assert.Equal(t, ExitUsage, res.code)
}

func TestConfig_ShowRedactsToken(t *testing.T) {
	env := newTestEnv(t)

	res := env.run("", "config", "show")
	require.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stdout, "[REDACTED]")
	assert.NotContains(t, res.stdout, `"tok"`)
}

func TestConfig_Keys(t *testing.T) {
	env := newTestEnv(t)

	res := env.run("", "config", "keys")
	require.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stdout, "reveal.chunk_size")
	assert.Contains(t, res.stdout, "server.url")
}

// =============================================================================
// RENDER
// =============================================================================

func TestVerse(t *testing.T) {
	env := newTestEnv(t)
	// The route is public.
	t.Setenv("QURANCHAT_TOKEN", "")

	refs := make(map[string]bool, len(devserver.DefaultVerses))
	for _, v := range devserver.DefaultVerses {
		refs[v.Reference()] = true
	}

	code, resp, data := env.runJSON("verse")
	require.Equal(t, ExitOK, code)
	assert.True(t, resp.Success)

	var v VerseData
	require.NoError(t, json.Unmarshal(data, &v))
	assert.True(t, refs[v.Reference], v.Reference)
	require.NotNil(t, v.Citation)
	assert.True(t, v.Citation.IsScripture())
	require.Len(t, v.Document.Blocks, 1)
	assert.Equal(t, "script", string(v.Document.Blocks[0].Kind))

	res := env.run("", "verse")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.NotEmpty(t, strings.TrimSpace(res.stdout))
}

func TestRender_PrintsDocument(t *testing.T) {
	env := newTestEnv(t)

	input := "See **Surah Al-Fatiha (1:1)**\nبِسْمِ اللَّهِ الرَّحْمَٰنِ الرَّحِيمِ\n"
	res := env.run(input, "render")
	require.Equal(t, ExitOK, res.code, res.stderr)

	var doc struct {
		Blocks []struct {
			Kind  string `json:"kind"`
			Spans []struct {
				Kind string `json:"kind"`
			} `json:"spans"`
		} `json:"blocks"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &doc))
	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, "prose", doc.Blocks[0].Kind)
	assert.Equal(t, "script", doc.Blocks[1].Kind)
	require.NotEmpty(t, doc.Blocks[0].Spans)
}

// =============================================================================
// ROOT
// =============================================================================

func TestTUIRequiresTerminal(t *testing.T) {
	env := newTestEnv(t)
	if IsTTY() && IsStdoutTTY() {
		t.Skip("running on a terminal")
	}
	res := env.run("")
	assert.Equal(t, ExitUsage, res.code)
	assert.Contains(t, res.stderr, "needs a terminal")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"usage", usageError("bad %s", "flag"), ExitUsage},
		{"validation", &session.ValidationError{Field: "message", Reason: "empty"}, ExitUsage},
		{"unauthorized", fmt.Errorf("wrap: %w", chatapi.ErrUnauthorized), ExitUnauthorized},
		{"not found", chatapi.ErrNotFound, ExitNotFound},
		{"archive miss", fmt.Errorf("%w: x", storage.ErrChatNotFound), ExitNotFound},
		{"other", os.ErrPermission, ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	env := newTestEnv(t)
	res := env.run("", "frobnicate")
	assert.NotEqual(t, ExitOK, res.code)
	assert.Contains(t, res.stderr, "unknown command")
}

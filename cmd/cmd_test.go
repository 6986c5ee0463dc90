package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// execute runs the root command against server and returns stdout
func execute(t *testing.T, server *httptest.Server, format string, args ...string) (string, error) {
	t.Helper()

	// Flag variables outlive a single run
	tokensFile = ""
	queryExpr = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(append(args,
		"--api-key", "API_KEY",
		"--url", server.URL,
		"--log-level", "error",
		"--output", format,
	))

	err := rootCmd.Execute()
	return out.String(), err
}

func batchServer(t *testing.T, status int) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key=API_KEY", r.Header.Get("Authorization"))

		var req struct {
			RegistrationTokens []string `json:"registration_tokens"`
			To                 string   `json:"to"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "/topics/global", req.To)

		results := make([]map[string]string, len(req.RegistrationTokens))
		for i, tok := range req.RegistrationTokens {
			results[i] = map[string]string{}
			if tok == "11" {
				results[i]["error"] = "NOT_FOUND"
			}
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestAddCommand(t *testing.T) {
	server := batchServer(t, http.StatusOK)

	out, err := execute(t, server, "json", "add", "global", "42", "11", "10")
	require.NoError(t, err)

	var report relationshipReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "add", report.Action)
	assert.Equal(t, "/topics/global", report.Topic)
	assert.Equal(t, 3, report.Tokens)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "11", report.Errors[0].RegistrationToken)
	assert.Equal(t, "NOT_FOUND", report.Errors[0].Error)
}

func TestRemoveCommandTokensFile(t *testing.T) {
	server := batchServer(t, http.StatusOK)

	path := filepath.Join(t.TempDir(), "tokens.txt")
	require.NoError(t, os.WriteFile(path, []byte("# devices\n42\n\n11\n"), 0o600))

	out, err := execute(t, server, "yaml", "remove", "/topics/global", "10", "--tokens-file", path)
	require.NoError(t, err)

	var report relationshipReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Equal(t, "remove", report.Action)
	assert.Equal(t, 3, report.Tokens)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "11", report.Errors[0].RegistrationToken)
}

func TestRelationshipCommandRejected(t *testing.T) {
	server := batchServer(t, http.StatusInternalServerError)

	out, err := execute(t, server, "json", "add", "global", "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 batches rejected")
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, out, `"status_code": 500`)
}

func TestRelationshipCommandNoTokens(t *testing.T) {
	server := batchServer(t, http.StatusOK)

	_, err := execute(t, server, "json", "add", "global")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no registration tokens")
}

func infoServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/info/TOKEN" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		io.WriteString(w, `{
			"application": "com.iid.example",
			"platform": "ANDROID",
			"rel": {"topics": {"news": {"addDate": "2015-07-30"}, "weather": {"addDate": "2015-07-30"}}}
		}`)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestInfoCommand(t *testing.T) {
	server := infoServer(t)

	t.Run("details", func(t *testing.T) {
		out, err := execute(t, server, "json", "info", "TOKEN")
		require.NoError(t, err)

		var info map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &info))
		assert.Equal(t, "com.iid.example", info["application"])
	})

	t.Run("query", func(t *testing.T) {
		out, err := execute(t, server, "json", "info", "TOKEN", "--query", `subscribed("news") && topicCount() == 2`)
		require.NoError(t, err)
		assert.Equal(t, "true\n", out)
	})

	t.Run("bad query", func(t *testing.T) {
		_, err := execute(t, server, "json", "info", "TOKEN", "--query", "platform ==")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "compilation error")
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := execute(t, server, "json", "info", "OTHER")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `no info available for registration token "OTHER"`)
	})
}

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3", "2024-01-01")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "iid 1.2.3 (built 2024-01-01)\n", out.String())
}

func TestNormalizeTopic(t *testing.T) {
	assert.Equal(t, "/topics/news", normalizeTopic("news"))
	assert.Equal(t, "/topics/news", normalizeTopic("/topics/news"))
}

func TestReadTokensFile(t *testing.T) {
	tokens, err := readTokensFile(strings.NewReader("a\n  b  \n#c\n\n"), "-")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tokens)

	_, err = readTokensFile(nil, filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestUseColor(t *testing.T) {
	assert.True(t, useColor("always", 0))
	assert.False(t, useColor("never", 0))

	t.Setenv("NO_COLOR", "1")
	assert.False(t, useColor("auto", 0))
}

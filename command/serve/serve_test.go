// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package serve

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hashicorp/edge-rewriter/command/cli"
	"github.com/hashicorp/edge-rewriter/edge"
	"github.com/hashicorp/edge-rewriter/testutil"
)

func TestServeCommand_noTabs(t *testing.T) {
	require.NotContains(t, New(cli.NewMockUI()).Help(), "\t")
}

func getRequest(t *testing.T, url string) (int, edge.Request) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out edge.Request
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.Unmarshal(body, &out))
	}
	return resp.StatusCode, out
}

func TestServeCommand_ServeAndReload(t *testing.T) {
	cfgFile := testutil.WriteFile(t, "edge.hcl", `
log_level = "debug"
serve {
  http_addr = "127.0.0.1:0"
}
`)

	ui := cli.NewMockUI()
	c := New(ui)
	c.listening = make(chan string, 1)

	exitCh := make(chan int, 1)
	go func() {
		exitCh <- c.Run([]string{"-config", cfgFile})
	}()

	var addr string
	select {
	case addr = <-c.listening:
	case code := <-exitCh:
		t.Fatalf("serve exited early with %d: %s", code, ui.ErrorWriter.String())
	case <-time.After(10 * time.Second):
		t.Fatal("server did not start")
	}
	base := "http://" + addr

	code, req := getRequest(t, base+"/widget/1.0.0/home")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "/widget/1.0.0/index.html", req.URI)
	require.Equal(t, "ok", req.Headers.Get("x-custom-header"))

	resp, err := http.Get(base + "/v1/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, os.WriteFile(cfgFile, []byte(`
mode      = "passthrough"
log_level = "debug"
serve {
  http_addr = "127.0.0.1:0"
}
`), 0600))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(cfgFile, future, future))

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/widget/1.0.0/home")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var req edge.Request
		if err := json.NewDecoder(resp.Body).Decode(&req); err != nil {
			return false
		}
		return req.URI == "/widget/1.0.0/home" && req.Headers.Get("x-edge-demo") == "ok"
	}, 10*time.Second, 50*time.Millisecond)

	close(c.shutdownCh)
	select {
	case code := <-exitCh:
		require.Equal(t, 0, code, ui.ErrorWriter.String())
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}
	require.Contains(t, ui.ErrorWriter.String(), "configuration reloaded")
}

func TestServeCommand_Errors(t *testing.T) {
	cases := map[string]struct {
		args    []string
		wantErr string
	}{
		"extra args":  {args: []string{"extra"}, wantErr: "Too many arguments"},
		"bad origin":  {args: []string{"-origin", "ftp://origin"}, wantErr: "-origin must be an http or https URL"},
		"bad config":  {args: []string{"-config", "/does/not/exist.hcl"}, wantErr: "Error loading configuration"},
		"bad address": {args: []string{"-http-addr", "not-an-address"}, wantErr: "Error listening on not-an-address"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ui := cli.NewMockUI()
			require.Equal(t, 1, New(ui).Run(tc.args))
			require.Contains(t, ui.ErrorWriter.String(), tc.wantErr)
		})
	}
}

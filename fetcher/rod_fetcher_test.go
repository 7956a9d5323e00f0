package fetcher

import (
	"os"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireBrowser(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	if os.Getenv("CHROME_BIN") != "" {
		return
	}
	if _, ok := launcher.LookPath(); !ok {
		t.Skip("no Chrome/Chromium installed; set CHROME_BIN to run")
	}
}

func TestRodFetcherFetchesWithTimeout(t *testing.T) {
	requireBrowser(t)

	ps, url := newPageServer(t, `<html><body><p id="v">one</p>
<script>document.getElementById("v").textContent += " rendered"</script></body></html>`)

	cfg := testConfig()
	cfg.Timeout = 10 * time.Second
	f, err := NewRodFetcher(cfg, nil)
	require.NoError(t, err)
	defer f.Close()

	first, err := f.Fetch(url)
	require.NoError(t, err)
	assert.Equal(t, "one rendered", first)

	ps.set("<html><body><p>two</p></body></html>")
	second, err := f.Fetch(url)
	require.NoError(t, err)
	assert.Equal(t, "two", second)
}

func TestRodFetcherTimesOut(t *testing.T) {
	requireBrowser(t)

	ps, url := newPageServer(t, "<p>slow</p>")
	ps.configure(func(s *pageServer) { s.delay = 3 * time.Second })

	cfg := testConfig()
	cfg.Timeout = 500 * time.Millisecond
	f, err := NewRodFetcher(cfg, nil)
	require.NoError(t, err)
	defer f.Close()

	start := time.Now()
	_, err = f.Fetch(url)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}

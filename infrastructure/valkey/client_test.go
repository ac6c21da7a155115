package valkey

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient connects to a local valkey or skips the test.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(Config{
		Address:        "localhost:6379",
		KeyPrefix:      "prospect_test_" + t.Name(),
		ConnectTimeout: 500 * time.Millisecond,
	})
	if err != nil {
		t.Skipf("valkey not available: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestKey(t *testing.T) {
	c := &Client{keyPrefix: "prospect:"}
	assert.Equal(t, "prospect:usage:exa:2026-01-02", c.Key("usage", "exa", "2026-01-02"))
	assert.Equal(t, "prospect", c.Key())
}

func TestDeletePrefix(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	inner := c.Inner()

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, inner.Do(ctx, inner.B().Set().Key(c.Key("cache", k)).Value("1").Build()).Error())
	}
	require.NoError(t, inner.Do(ctx, inner.B().Set().Key(c.Key("other")).Value("1").Build()).Error())

	n, err := c.DeletePrefix(ctx, c.Key("cache")+":")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	keys, err := c.ScanPrefix(ctx, c.Key(""))
	require.NoError(t, err)
	assert.Equal(t, []string{c.Key("other")}, keys)

	_, err = c.DeletePrefix(ctx, c.Key(""))
	require.NoError(t, err)
}

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"styling-assistant/internal/styling/taxonomy"
)

func writeBuiltin(t *testing.T) string {
	t.Helper()
	raw, err := taxonomy.Encode(taxonomy.Builtin())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "taxonomy.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func TestRun_Validate(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"validate", "-path", writeBuiltin(t)}, &out))
	assert.Contains(t, out.String(), "10 categories")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"categories":[]}`), 0o600))
	assert.ErrorIs(t, run([]string{"validate", "-path", bad}, &out), taxonomy.ErrInvalidTaxonomy)
}

func TestRun_ExportRoundTrips(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"export"}, &out))

	tax, err := taxonomy.Parse(out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, taxonomy.BuiltinVersion, tax.Version())
}

func TestRun_Match(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"match", "-message", "I have to go to a wedding"}, &out))
	assert.Contains(t, out.String(), "question: false")
	assert.Contains(t, out.String(), "occasion = wedding")
}

func TestRun_UnknownCommand(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run([]string{"frobnicate"}, &out))
	assert.Contains(t, out.String(), "Usage:")
	assert.Error(t, run(nil, &out))
}

func TestPublish(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	tax := taxonomy.Builtin()
	require.NoError(t, publish(context.Background(), rdb, "styling:taxonomy", time.Hour, tax))

	assert.Equal(t, time.Hour, mr.TTL("styling:taxonomy"))

	src := &taxonomy.RedisSource{
		Client: rdb,
		Key:    "styling:taxonomy",
		Upstream: taxonomy.SourceFunc(func(context.Context) (*taxonomy.Taxonomy, error) {
			t.Fatal("upstream must not be consulted on a cache hit")
			return nil, nil
		}),
	}
	got, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tax.Names(), got.Names())
}

func TestRun_Publish(t *testing.T) {
	mr := miniredis.RunT(t)

	var out bytes.Buffer
	require.NoError(t, run([]string{"publish", "-redis", mr.Addr(), "-key", "tax", "-ttl", "0", "-path", writeBuiltin(t)}, &out))
	assert.Contains(t, out.String(), "Published taxonomy")

	raw, err := mr.Get("tax")
	require.NoError(t, err)
	tax, err := taxonomy.Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, taxonomy.BuiltinVersion, tax.Version())
	assert.Zero(t, mr.TTL("tax"))
}

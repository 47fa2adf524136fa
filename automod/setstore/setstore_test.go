package setstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemSetStore(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s := NewMemSetStore()
	ok, err := s.InSet(ctx, "suspect-tokens", "nitro")
	assert.NoError(err)
	assert.False(ok)

	s.Put("suspect-tokens", []string{"nitro", "airdrop"})
	ok, err = s.InSet(ctx, "suspect-tokens", "nitro")
	assert.NoError(err)
	assert.True(ok)

	l, err := s.Members(ctx, "suspect-tokens")
	assert.NoError(err)
	assert.Equal([]string{"airdrop", "nitro"}, l)

	l, err = s.Members(ctx, "missing")
	assert.NoError(err)
	assert.Empty(l)
}

func TestMemSetStoreLoadJSON(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	p := filepath.Join(t.TempDir(), "sets.json")
	assert.NoError(os.WriteFile(p, []byte(`{"suspect-tokens": ["gift", "verify"]}`), 0644))

	s := NewMemSetStore()
	s.Put("suspect-tokens", []string{"nitro"})
	assert.NoError(s.LoadFromFileJSON(p))

	l, err := s.Members(ctx, "suspect-tokens")
	assert.NoError(err)
	assert.Equal([]string{"gift", "verify"}, l)

	assert.Error(s.LoadFromFileJSON(filepath.Join(t.TempDir(), "nope.json")))
}

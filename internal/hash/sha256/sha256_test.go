package sha256

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHash_KnownVector(t *testing.T) {
	t.Parallel()

	h := New()
	// sha256("abc")
	require.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		h.Hash([]byte("abc")),
	)
}

func TestHash_EmptyInput(t *testing.T) {
	t.Parallel()

	h := New()
	require.Len(t, h.Hash(nil), 64)
	require.Equal(t, h.Hash(nil), h.Hash([]byte{}))
}

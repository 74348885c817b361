package icrypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAADSlot(t *testing.T) {
	a := AADSlot("adconsole", "session", "token", 1)
	assert.Equal(t, a, AADSlot("adconsole", "session", "token", 1), "deterministic")

	assert.NotEqual(t, a, AADSlot("adconsole", "session", "csrf", 1))
	assert.NotEqual(t, a, AADSlot("adconsole", "session", "token", 2))
	// Length prefixes keep part boundaries unambiguous.
	assert.NotEqual(t, AADSlot("ad", "console", "token", 1), AADSlot("adcon", "sole", "token", 1))
}

func TestBuildAADEncoding(t *testing.T) {
	got := buildAAD("ab", uint64(1), 2)
	want := []byte{
		0, 0, 0, 2, 'a', 'b',
		0, 0, 0, 0, 0, 0, 0, 1,
		0, 0, 0, 2,
	}
	assert.Equal(t, want, got)
}

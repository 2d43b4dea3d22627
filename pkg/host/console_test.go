package host

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureStdout redirects os.Stdout for the duration of fn and returns
// everything written to it.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)

	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestTermConsole_Print(t *testing.T) {
	out := captureStdout(t, func() {
		c := NewTermConsole()
		c.Print("hello")
	})
	assert.Equal(t, "hello", out)
}

func TestTermConsole_Cls(t *testing.T) {
	out := captureStdout(t, func() {
		c := NewTermConsole()
		c.Cls()
	})
	assert.Equal(t, "\x1b[2J\x1b[H", out)
}

func TestTermConsole_Locate(t *testing.T) {
	out := captureStdout(t, func() {
		c := NewTermConsole()
		c.Locate(5, 10)
	})
	assert.Equal(t, "\x1b[5;10H", out)
}

func TestTermConsole_Beep(t *testing.T) {
	out := captureStdout(t, func() {
		c := NewTermConsole()
		c.Beep()
	})
	assert.Equal(t, "\a", out)
}

func TestTermConsole_ViewPrint(t *testing.T) {
	out := captureStdout(t, func() {
		c := NewTermConsole()
		c.ViewPrint(1, 24)
	})
	assert.Equal(t, "\x1b[1;24r", out)
}

func TestTermConsole_ColorEmitsResetThenAttribute(t *testing.T) {
	out := captureStdout(t, func() {
		c := NewTermConsole()
		c.Color(4, 0)
	})
	assert.Contains(t, out, "\x1b[0m") // color.Reset
	assert.NotEmpty(t, out)
}

func TestTermConsole_KeyHitWithNoInputIsNonBlocking(t *testing.T) {
	c := NewTermConsole()
	key, ok := c.KeyHit()
	assert.False(t, ok)
	assert.Empty(t, key)
}

package ansi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripPlainTextUnchanged(t *testing.T) {
	assert.Equal(t, "hello world", Strip("hello world"))
}

func TestStripCSISequence(t *testing.T) {
	assert.Equal(t, "hello", Strip("\x1b[31mhello\x1b[0m"))
}

func TestStripOSCWithBellTerminator(t *testing.T) {
	assert.Equal(t, "after", Strip("\x1b]0;title\x07after"))
}

func TestStripOSCWithSTTerminator(t *testing.T) {
	assert.Equal(t, "after", Strip("\x1b]8;;http://example.com\x1b\\after"))
}

func TestStrip8BitCSI(t *testing.T) {
	assert.Equal(t, "hi", Strip("\x9B31mhi"))
}

func TestStripMixedContent(t *testing.T) {
	in := "\x1b[2K\x1b[1Gwaiting for input\x1b[0m\nready"
	assert.Equal(t, "waiting for input\nready", Strip(in))
}

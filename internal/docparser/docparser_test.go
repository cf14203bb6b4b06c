package docparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainTextParserAcceptsTxt(t *testing.T) {
	p := PlainTextParser{}
	text, ok := p.ParseBytes([]byte("hello world"), "txt")
	assert.True(t, ok)
	assert.Equal(t, "hello world", text)
}

func TestPlainTextParserRejectsOtherExtensions(t *testing.T) {
	p := PlainTextParser{}
	_, ok := p.ParseBytes([]byte("irrelevant"), "epub")
	assert.False(t, ok)
}

package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFiltersBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	l := New(Warn, &buf)

	l.Info("should not appear")
	assert.Empty(t, buf.String())

	l.Error("disk on fire %d", 7)
	assert.Contains(t, buf.String(), "ERROR")
	assert.Contains(t, buf.String(), "disk on fire 7")
}

func TestSetLevelChangesFilterAtRuntime(t *testing.T) {
	var buf bytes.Buffer
	l := New(Error, &buf)

	l.Warn("ignored")
	assert.Empty(t, buf.String())

	l.SetLevel(Warn)
	l.Warn("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestOffSuppressesEverything(t *testing.T) {
	var buf bytes.Buffer
	l := New(Off, &buf)
	l.Error("never printed")
	assert.Empty(t, buf.String())
}

func TestNewDiscardDropsEverything(t *testing.T) {
	d := NewDiscard()
	d.Error("nobody sees this")
	d.SetLevel(Trace)
}

func TestSetDefaultReplacesProcessWideLogger(t *testing.T) {
	var buf bytes.Buffer
	orig := Default()
	defer SetDefault(orig)

	SetDefault(New(Trace, &buf))
	Default().Info("hello %s", "world")
	assert.True(t, strings.Contains(buf.String(), "hello world"))
}

func TestLevelStringNamesAreStable(t *testing.T) {
	assert.Equal(t, "TRACE", Trace.String())
	assert.Equal(t, "DEBUG", Debug.String())
	assert.Equal(t, "INFO", Info.String())
	assert.Equal(t, "WARN", Warn.String())
	assert.Equal(t, "ERROR", Error.String())
	assert.Equal(t, "OFF", Off.String())
}

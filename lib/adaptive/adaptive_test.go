package adaptive

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	err := IndexError(5, 2)
	assert.Equal(t, "AdaptiveError (code IndexOutOfRange): index 5 out of range for length 2", err.Error())
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	assert.False(t, errors.Is(err, ErrNoSuchElement))

	wrapped := fmt.Errorf("while reading: %w", NewError(RetCConcurrentModification, "changed"))
	assert.True(t, errors.Is(wrapped, ErrConcurrentModification))

	var aerr *Error
	require.True(t, errors.As(wrapped, &aerr))
	assert.Equal(t, RetCConcurrentModification, aerr.Code)

	assert.Equal(t, "IllegalState", RetCIllegalState.String())
	assert.Equal(t, "Unknown", RetCode(99).String())
}

func TestOptions(t *testing.T) {
	var nilOpts *Options
	resolved := nilOpts.Resolve()
	assert.Equal(t, DefaultOptions(), resolved)
	assert.Equal(t, ModeSlow, resolved.Mode)

	base := &Options{Capacity: -3}
	fast := base.WithMode(ModeFast).WithName("cache")
	assert.Equal(t, ModeSlow, base.Mode, "With* returns a copy")
	assert.Equal(t, ModeFast, fast.Mode)
	assert.Equal(t, "cache", fast.Name)
	assert.Equal(t, 0, fast.Capacity)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"fast": ModeFast, "FAST": ModeFast, "slow": ModeSlow, "SLOW": ModeSlow} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMode("medium")
	assert.True(t, errors.Is(err, ErrIllegalArgument))
	assert.Equal(t, "fast", ModeFast.String())
}

func TestLogger(t *testing.T) {
	lvl, err := ParseLogLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, logger.WARNING, lvl)

	_, err = ParseLogLevel("loud")
	assert.True(t, errors.Is(err, ErrIllegalArgument))

	var buf bytes.Buffer
	require.NoError(t, InitLoggers("debug", &buf, "adaptive-test"))

	l := logger.GetLogger("adaptive-test")
	l.Debugf("switched %d", 1)
	l.Infof("hello")
	assert.Contains(t, buf.String(), "DEBUG | adaptive-test   | switched 1")
	assert.Contains(t, buf.String(), "INFO  | adaptive-test   | hello")

	l.SetLevel(logger.ERROR)
	buf.Reset()
	l.Warningf("hidden")
	assert.Empty(t, buf.String())

	// a second call redirects existing loggers instead of failing
	var other bytes.Buffer
	require.NoError(t, InitLoggers("info", &other, "adaptive-test"))
	l.Infof("moved")
	assert.Empty(t, buf.String())
	assert.Contains(t, other.String(), "INFO  | adaptive-test   | moved")

	assert.PanicsWithValue(t, "broken 7", func() {
		l.Panicf("broken %d", 7)
	})
	assert.Contains(t, other.String(), "PANIC | adaptive-test   | broken 7")
}

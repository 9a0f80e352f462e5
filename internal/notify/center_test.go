package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDismissClearsMatchingNotice(t *testing.T) {
	c := NewCenter(time.Millisecond)
	cmd := c.Errorf("failed for %s", "Ada")
	require.NotNil(t, cmd)

	n, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, LevelError, n.Level)
	assert.Equal(t, "failed for Ada", n.Text)

	msg := cmd()
	assert.True(t, c.Update(msg))
	_, ok = c.Current()
	assert.False(t, ok)
}

func TestSupersededTimerDoesNotClearNewerNotice(t *testing.T) {
	c := NewCenter(time.Millisecond)
	first := c.Infof("first")
	c.Successf("second")

	c.Update(first())
	n, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "second", n.Text)
}

func TestCloseDropsPendingAndFutureNotices(t *testing.T) {
	c := NewCenter(time.Millisecond)
	pending := c.Infof("hello")
	c.Close()

	assert.Nil(t, c.Infof("after close"))
	c.Update(pending())
	_, ok := c.Current()
	assert.False(t, ok)
	assert.Equal(t, "", c.View())
}

func TestUpdateIgnoresForeignMessages(t *testing.T) {
	c := NewCenter(0)
	assert.False(t, c.Update("nope"))
	assert.Equal(t, DefaultTTL, c.ttl)
}

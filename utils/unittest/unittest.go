package unittest

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// RequireReturnsBefore requires that f returns before the duration expires.
func RequireReturnsBefore(t testing.TB, f func(), duration time.Duration, message string) {
	done := make(chan struct{})

	go func() {
		f()
		close(done)
	}()

	select {
	case <-time.After(duration):
		require.Fail(t, "function did not return in time: "+message)
	case <-done:
		return
	}
}

// RunWithTempDir runs f with a fresh directory that is removed afterwards.
func RunWithTempDir(t testing.TB, f func(string)) {
	dir, err := os.MkdirTemp("", "gravity-scenario-")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	f(dir)
}

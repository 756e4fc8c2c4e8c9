package sh

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInterruptCancelsOnlyRunningCommand(t *testing.T) {
	s := &Shell{Interactive: true, Ctx: context.Background()}
	proc, err := os.FindProcess(os.Getpid())
	require.NoError(t, err)

	ctx, cancel := s.Command()
	require.NoError(t, proc.Signal(os.Interrupt))
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("command not interrupted")
	}
	cancel()

	next, cancel := s.Command()
	defer cancel()
	require.NoError(t, next.Err())
	require.NoError(t, s.Ctx.Err())
}

//go:build unix

package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/concave-dev/bootkit/pkg/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const signalChildEnv = "BOOTKIT_SHELL_SIGNAL_CHILD"

func TestInterruptAbortsOnlyRunningCommand(t *testing.T) {
	// Keeps a late interrupt from terminating the test binary
	guard := make(chan os.Signal, 1)
	signal.Notify(guard, os.Interrupt)
	defer signal.Stop(guard)

	rec := &recorder{}
	tree := newTree(t, rec)
	started := make(chan struct{})
	_, err := tree.AddSubcommand("wait", func(ctx context.Context, _ *command.Args) (int, error) {
		close(started)
		<-ctx.Done()
		rec.calls = append(rec.calls, "aborted")
		return 0, ctx.Err()
	})
	require.NoError(t, err)

	go func() {
		<-started
		_ = syscall.Kill(os.Getpid(), syscall.SIGINT)
	}()

	reader := &scriptReader{lines: []string{"wait", "count up"}, end: io.EOF}
	sh := New(tree, "app", WithReader(reader), WithStdout(io.Discard))

	status, err := sh.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, status)
	assert.Equal(t, []string{"aborted", "up"}, rec.calls)
}

func TestSecondInterruptTerminatesCommand(t *testing.T) {
	if os.Getenv(signalChildEnv) == "1" {
		tree := command.NewTree("app", nil)
		_, err := tree.AddSubcommand("hang", func(context.Context, *command.Args) (int, error) {
			fmt.Println("ready")
			time.Sleep(time.Minute)
			return 0, nil
		})
		require.NoError(t, err)

		sh := New(tree, "app", WithReader(&scriptReader{end: io.EOF}), WithStdout(io.Discard))
		sh.Execute(context.Background(), "hang")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestSecondInterruptTerminatesCommand$")
	cmd.Env = append(os.Environ(), signalChildEnv+"=1")
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() && scanner.Text() != "ready" {
	}

	done := make(chan error, 1)
	go func() {
		_, _ = io.Copy(io.Discard, stdout)
		done <- cmd.Wait()
	}()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(10 * time.Second)

	for {
		select {
		case err := <-done:
			var exitErr *exec.ExitError
			require.ErrorAs(t, err, &exitErr)
			status, ok := exitErr.Sys().(syscall.WaitStatus)
			require.True(t, ok)
			assert.True(t, status.Signaled())
			return
		case <-ticker.C:
			_ = cmd.Process.Signal(os.Interrupt)
		case <-deadline:
			_ = cmd.Process.Kill()
			<-done
			t.Fatal("process survived repeated interrupts")
		}
	}
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sshd_test

import (
	"bytes"
	"context"
	"io"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/ssh"

	"github.com/chriscoyle101/karaf/config"
	"github.com/chriscoyle101/karaf/console"
	"github.com/chriscoyle101/karaf/eval"
	"github.com/chriscoyle101/karaf/history"
	"github.com/chriscoyle101/karaf/sshd"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startServer(t *testing.T, users map[string]string) string {
	t.Helper()
	signer, err := sshd.LoadHostKey("")
	require.NoError(t, err)
	srv, err := sshd.New(config.SSHConfig{Users: users}, func(string) (console.Evaluator, []console.Option) {
		h := history.NewMemory(0)
		return eval.New(eval.WithHistory(h)), []console.Option{console.WithHistory(h)}
	}, sshd.WithHostKey(signer))
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatalf("server did not stop")
		}
	})
	return ln.Addr().String()
}

func dial(t *testing.T, addr, user, password string) (*ssh.Client, error) {
	t.Helper()
	return ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.Password(password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
}

func TestExec(t *testing.T) {
	addr := startServer(t, map[string]string{"karaf": "karaf"})
	client, err := dial(t, addr, "karaf", "karaf")
	require.NoError(t, err)
	defer client.Close()

	session, err := client.NewSession()
	require.NoError(t, err)
	out, err := session.Output(`echo "hello ssh"; get USER`)
	require.NoError(t, err)
	require.Equal(t, "hello ssh\nkaraf\n", string(out))
	session.Close()

	session, err = client.NewSession()
	require.NoError(t, err)
	err = session.Run("nope")
	var exit *ssh.ExitError
	require.ErrorAs(t, err, &exit)
	require.Equal(t, 1, exit.ExitStatus())
	session.Close()
}

func TestRejectsBadPassword(t *testing.T) {
	addr := startServer(t, map[string]string{"karaf": "karaf"})
	_, err := dial(t, addr, "karaf", "wrong")
	require.Error(t, err)
}

func TestShell(t *testing.T) {
	addr := startServer(t, nil)
	client, err := dial(t, addr, "anyone", "")
	require.NoError(t, err)
	defer client.Close()

	session, err := client.NewSession()
	require.NoError(t, err)
	defer session.Close()
	require.NoError(t, session.Setenv("GREETING", "hi"))

	var stdout bytes.Buffer
	session.Stdout = &stdout
	stdin, err := session.StdinPipe()
	require.NoError(t, err)
	require.NoError(t, session.Shell())

	_, err = io.WriteString(stdin, "echo $GREETING \\\nthere\nexit\n")
	require.NoError(t, err)
	require.NoError(t, session.Wait())
	require.Contains(t, stdout.String(), "hi there")
	require.True(t, strings.HasSuffix(stdout.String(), "\n"))
}

func TestShellRequestAnsweredWhileRunning(t *testing.T) {
	addr := startServer(t, nil)
	client, err := dial(t, addr, "anyone", "")
	require.NoError(t, err)
	defer client.Close()

	session, err := client.NewSession()
	require.NoError(t, err)
	defer session.Close()
	require.NoError(t, session.RequestPty("xterm", 24, 80, ssh.TerminalModes{}))

	var stdout bytes.Buffer
	session.Stdout = &stdout
	stdin, err := session.StdinPipe()
	require.NoError(t, err)

	replied := make(chan error, 1)
	go func() { replied <- session.Shell() }()
	select {
	case err := <-replied:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatalf("shell request not answered while the console runs")
	}
	require.NoError(t, session.WindowChange(40, 120))

	_, err = io.WriteString(stdin, "exit\r")
	require.NoError(t, err)
	require.NoError(t, session.Wait())
}

func TestExecRepliesBeforeOutput(t *testing.T) {
	addr := startServer(t, nil)
	client, err := dial(t, addr, "anyone", "")
	require.NoError(t, err)
	defer client.Close()

	session, err := client.NewSession()
	require.NoError(t, err)
	defer session.Close()
	var stdout bytes.Buffer
	session.Stdout = &stdout

	replied := make(chan error, 1)
	go func() { replied <- session.Start("sleep 2s; echo late") }()
	select {
	case err := <-replied:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("exec request answered only after the command ran")
	}
	require.NoError(t, session.Wait())
	require.Equal(t, "late\n", stdout.String())
}

func TestHostKeyPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "host.pem")
	first, err := sshd.LoadHostKey(path)
	require.NoError(t, err)
	second, err := sshd.LoadHostKey(path)
	require.NoError(t, err)
	require.Equal(t, first.PublicKey().Marshal(), second.PublicKey().Marshal())
}

package main

import (
	"bytes"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"
	"github.com/srg/bsrc/internal/testutils"
	"github.com/stretchr/testify/suite"
)

// CommandTestSuite provides command execution helpers and local sources.
// All cmd/bsrc test suites should embed it.
type CommandTestSuite struct {
	suite.Suite
	Helper *testutils.TestHelper
}

func (s *CommandTestSuite) SetupTest() {
	s.Helper = testutils.NewTestHelper(s.T())
	resetFlags(rootCmd.PersistentFlags())
	for _, cmd := range rootCmd.Commands() {
		resetFlags(cmd.Flags())
	}
}

// resetFlags restores defaults; cobra keeps parsed values and Changed marks
// between Execute calls on the same command tree.
func resetFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

// ExecuteCommand runs the root command with args and stdin, returning what
// was written to stdout and stderr separately.
func (s *CommandTestSuite) ExecuteCommand(stdin string, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// WebSocketServer serves messages to every client. With abrupt set the
// connection is dropped without a close frame, which a reader sees as a
// failure rather than the end of the stream.
func (s *CommandTestSuite) WebSocketServer(abrupt bool, messages ...string) string {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, m := range messages {
			_ = conn.WriteMessage(websocket.BinaryMessage, []byte(m))
		}
		if abrupt {
			return
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_, _, _ = conn.ReadMessage()
	}))
	s.T().Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// HoldingTCPServer accepts one connection, writes data and keeps the
// connection open until the test ends.
func (s *CommandTestSuite) HoldingTCPServer(data string) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err, "listener MUST start")

	release := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = io.WriteString(conn, data)
		<-release
	}()

	s.T().Cleanup(func() {
		close(release)
		_ = ln.Close()
	})
	return "tcp://" + ln.Addr().String()
}

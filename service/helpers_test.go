// Copyright (c) 2026 The LineMQ Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package service

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zentures/linemq/sessions"
	"github.com/zentures/linemq/topics"
)

// startServer runs a Server on an ephemeral port with test-local providers,
// so tests don't share topic state through the "mem" singletons.
func startServer(t *testing.T) (*Server, string) {
	t.Helper()

	topicsName := "topics-" + t.Name()
	sessName := "sessions-" + t.Name()
	topics.Register(topicsName, topics.NewMemTopics())
	sessions.Register(sessName, sessions.NewMemProvider())
	t.Cleanup(func() {
		topics.Unregister(topicsName)
		sessions.Unregister(sessName)
	})

	svr := &Server{
		TopicsProvider:   topicsName,
		SessionsProvider: sessName,
	}

	done := make(chan error, 1)
	go func() {
		done <- svr.ListenAndServe("tcp://127.0.0.1:0")
	}()

	var addr net.Addr
	require.Eventually(t, func() bool {
		addr = svr.Addr()
		return addr != nil
	}, 2*time.Second, 5*time.Millisecond, "server never bound a listener")

	t.Cleanup(func() {
		require.NoError(t, svr.Close())
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("server did not shut down")
		}
	})

	return svr, addr.String()
}

type testClient struct {
	t       *testing.T
	conn    net.Conn
	scanner *bufio.Scanner
}

func dialServer(t *testing.T, addr string) *testClient {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &testClient{t: t, conn: conn, scanner: bufio.NewScanner(conn)}
}

func (this *testClient) sendRaw(line string) {
	this.t.Helper()
	_, err := this.conn.Write([]byte(line + "\n"))
	require.NoError(this.t, err)
}

func (this *testClient) send(req map[string]any) {
	this.t.Helper()
	data, err := json.Marshal(req)
	require.NoError(this.t, err)
	this.sendRaw(string(data))
}

func (this *testClient) recv() map[string]any {
	this.t.Helper()

	require.NoError(this.t, this.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.True(this.t, this.scanner.Scan(), "expected a line, got error: %v", this.scanner.Err())

	var m map[string]any
	require.NoError(this.t, json.Unmarshal(this.scanner.Bytes(), &m))
	return m
}

func (this *testClient) recvSuccess() map[string]any {
	this.t.Helper()
	m := this.recv()
	require.Equal(this.t, "success", m["status"], "unexpected response: %v", m)
	return m
}

func (this *testClient) recvError(text string) {
	this.t.Helper()
	m := this.recv()
	require.Equal(this.t, "error", m["status"], "unexpected response: %v", m)
	require.Equal(this.t, text, m["message"])
}

// expectNothing asserts no line arrives within the grace period. The read
// deadline poisons the scanner, so this must be the last read on the client.
func (this *testClient) expectNothing() {
	this.t.Helper()

	require.NoError(this.t, this.conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	require.False(this.t, this.scanner.Scan(), "unexpected line: %s", this.scanner.Text())
}

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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestPublishSubscribe(t *testing.T) {
	_, addr := startServer(t)

	sub := dialServer(t, addr)
	pub := dialServer(t, addr)

	sub.send(map[string]any{"action": "subscribe", "topic": "news"})
	resp := sub.recvSuccess()
	require.Equal(t, "news", resp["topic"])
	require.Equal(t, true, resp["subscribed"])

	pub.send(map[string]any{"action": "publish", "topic": "news", "message": "Hello", "priority": "high"})
	require.Equal(t, "news", pub.recvSuccess()["topic"])

	push := sub.recv()
	require.Equal(t, "message", push["type"])
	require.Equal(t, "news", push["topic"])
	require.Equal(t, "Hello", push["payload"])
	require.Equal(t, "high", push["priority"])
	require.NotContains(t, push, "expires_at")
}

func TestTwoSubscribersReceiveIdenticalPush(t *testing.T) {
	_, addr := startServer(t)

	sub1 := dialServer(t, addr)
	sub2 := dialServer(t, addr)
	pub := dialServer(t, addr)

	for _, sub := range []*testClient{sub1, sub2} {
		sub.send(map[string]any{"action": "subscribe", "topic": "t"})
		sub.recvSuccess()
	}

	pub.send(map[string]any{"action": "publish", "topic": "t", "message": "X"})
	pub.recvSuccess()

	p1 := sub1.recv()
	p2 := sub2.recv()
	require.Equal(t, p1, p2)
	require.Equal(t, "message", p1["type"])
	require.Equal(t, "X", p1["payload"])
	require.Equal(t, "normal", p1["priority"])
}

// A message published with no subscribers is recorded for accounting but
// never delivered, not even to subscribers that join later.
func TestLateSubscriberGetsNothing(t *testing.T) {
	_, addr := startServer(t)

	pub := dialServer(t, addr)
	late := dialServer(t, addr)

	pub.send(map[string]any{"action": "publish", "topic": "news", "message": "Hello", "priority": "high"})
	pub.recvSuccess()

	late.send(map[string]any{"action": "subscribe", "topic": "news"})
	late.recvSuccess()

	pub.send(map[string]any{"action": "queue_length", "topic": "news"})
	resp := pub.recvSuccess()
	require.Equal(t, float64(1), resp["messages"])

	late.expectNothing()
}

func TestUnsubscribedConnectionReceivesNothing(t *testing.T) {
	_, addr := startServer(t)

	sub := dialServer(t, addr)
	pub := dialServer(t, addr)

	sub.send(map[string]any{"action": "subscribe", "topic": "t"})
	sub.recvSuccess()
	sub.send(map[string]any{"action": "unsubscribe", "topic": "t"})
	resp := sub.recvSuccess()
	require.Equal(t, true, resp["unsubscribed"])

	pub.send(map[string]any{"action": "publish", "topic": "t", "message": 1})
	pub.recvSuccess()

	pub.send(map[string]any{"action": "queue_length", "topic": "t"})
	require.Equal(t, float64(1), pub.recvSuccess()["messages"])

	sub.expectNothing()
}

func TestDisconnectRemovesSubscriber(t *testing.T) {
	svr, addr := startServer(t)

	sub := dialServer(t, addr)
	pub := dialServer(t, addr)

	sub.send(map[string]any{"action": "subscribe", "topic": "t"})
	sub.recvSuccess()

	require.NoError(t, sub.conn.Close())

	// Cleanup is driven by the dead connection's own read loop.
	require.Eventually(t, func() bool {
		return svr.sessMgr.Count() == 1
	}, 2*time.Second, 5*time.Millisecond)

	// A publish after the disconnect must not error out.
	pub.send(map[string]any{"action": "publish", "topic": "t", "message": "still fine"})
	pub.recvSuccess()
}

func TestQueueLengthAndClear(t *testing.T) {
	_, addr := startServer(t)

	c := dialServer(t, addr)

	c.send(map[string]any{"action": "publish", "topic": "q", "message": "1"})
	c.recvSuccess()

	c.send(map[string]any{"action": "queue_length", "topic": "q"})
	require.Equal(t, float64(1), c.recvSuccess()["messages"])

	c.send(map[string]any{"action": "clear_topic", "topic": "q"})
	resp := c.recvSuccess()
	require.Equal(t, true, resp["cleared"])

	c.send(map[string]any{"action": "queue_length", "topic": "q"})
	require.Equal(t, float64(0), c.recvSuccess()["messages"])
}

func TestTTLExpiration(t *testing.T) {
	_, addr := startServer(t)

	c := dialServer(t, addr)

	c.send(map[string]any{"action": "publish", "topic": "ttl", "message": "tmp", "ttl": 1})
	c.recvSuccess()

	// Immediately after publish the message counts.
	c.send(map[string]any{"action": "queue_length", "topic": "ttl"})
	require.Equal(t, float64(1), c.recvSuccess()["messages"])

	time.Sleep(1200 * time.Millisecond)

	c.send(map[string]any{"action": "queue_length", "topic": "ttl"})
	require.Equal(t, float64(0), c.recvSuccess()["messages"])
}

func TestPushCarriesExpiry(t *testing.T) {
	_, addr := startServer(t)

	sub := dialServer(t, addr)
	pub := dialServer(t, addr)

	sub.send(map[string]any{"action": "subscribe", "topic": "t"})
	sub.recvSuccess()

	pub.send(map[string]any{"action": "publish", "topic": "t", "message": "m", "ttl": 60})
	pub.recvSuccess()

	push := sub.recv()
	require.Equal(t, "message", push["type"])

	expires, ok := push["expires_at"].(string)
	require.True(t, ok, "push missing expires_at: %v", push)

	parsed, err := time.Parse(time.RFC3339, expires)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().UTC().Add(60*time.Second), parsed, 5*time.Second)
}

func TestListTopics(t *testing.T) {
	_, addr := startServer(t)

	c := dialServer(t, addr)

	c.send(map[string]any{"action": "list_topics"})
	resp := c.recvSuccess()
	require.Equal(t, []any{}, resp["topics"])

	for _, topic := range []string{"zeta", "alpha"} {
		c.send(map[string]any{"action": "publish", "topic": topic, "message": "x"})
		c.recvSuccess()
	}

	c.send(map[string]any{"action": "list_topics"})
	resp = c.recvSuccess()
	require.Equal(t, []any{"alpha", "zeta"}, resp["topics"])
}

func TestTopicPasswords(t *testing.T) {
	_, addr := startServer(t)

	owner := dialServer(t, addr)
	intruder := dialServer(t, addr)

	// First publish claims the password.
	owner.send(map[string]any{"action": "publish", "topic": "vault", "message": "s", "password": "P"})
	owner.recvSuccess()

	intruder.send(map[string]any{"action": "publish", "topic": "vault", "message": "x", "password": "wrong"})
	intruder.recvError("Forbidden: wrong password")

	intruder.send(map[string]any{"action": "subscribe", "topic": "vault"})
	intruder.recvError("Forbidden: wrong password")

	intruder.send(map[string]any{"action": "clear_topic", "topic": "vault"})
	intruder.recvError("Forbidden: wrong password")

	intruder.send(map[string]any{"action": "subscribe", "topic": "vault", "password": "P"})
	intruder.recvSuccess()

	owner.send(map[string]any{"action": "clear_topic", "topic": "vault", "password": "P"})
	require.Equal(t, true, owner.recvSuccess()["cleared"])

	owner.send(map[string]any{"action": "queue_length", "topic": "vault"})
	require.Equal(t, float64(0), owner.recvSuccess()["messages"])
}

func TestProtocolErrors(t *testing.T) {
	_, addr := startServer(t)

	c := dialServer(t, addr)

	c.sendRaw(`{"action": "publish"`)
	c.recvError("Invalid JSON format")

	c.sendRaw(`[1, 2, 3]`)
	c.recvError("Invalid JSON format")

	c.sendRaw(`null`)
	c.recvError("Invalid JSON format")

	// The connection survives protocol errors.
	c.send(map[string]any{"action": "list_topics"})
	c.recvSuccess()
}

func TestValidationErrors(t *testing.T) {
	_, addr := startServer(t)

	c := dialServer(t, addr)

	c.send(map[string]any{"topic": "t"})
	c.recvError("Missing 'action' field")

	c.send(map[string]any{"action": "queue_length"})
	c.recvError("Missing 'topic' field")

	c.send(map[string]any{"action": "publish", "topic": "t"})
	c.recvError("Missing 'topic' or 'message' field")

	c.send(map[string]any{"action": "publish", "message": "m"})
	c.recvError("Missing 'topic' or 'message' field")

	c.send(map[string]any{"action": "destroy_everything", "topic": "t"})
	c.recvError("Unknown action 'destroy_everything'")

	c.send(map[string]any{"action": "publish", "topic": "t", "message": "m", "priority": "urgent"})
	c.recvError("Invalid 'priority' (use high|normal|low)")

	c.send(map[string]any{"action": "publish", "topic": "t", "message": "m", "ttl": "soon"})
	c.recvError("Invalid 'ttl' (seconds expected)")

	c.send(map[string]any{"action": "publish", "topic": "t", "message": "m", "ttl": -5})
	c.recvError("Invalid 'ttl' (seconds expected)")

	c.send(map[string]any{"action": "queue_length", "topic": "never-seen"})
	c.recvError("Topic 'never-seen' does not exist")

	c.send(map[string]any{"action": "clear_topic", "topic": "never-seen"})
	c.recvError("Topic 'never-seen' does not exist")

	// Failed requests must not have created the topic.
	c.send(map[string]any{"action": "list_topics"})
	require.Equal(t, []any{}, c.recvSuccess()["topics"])
}

func TestPriorityCaseInsensitive(t *testing.T) {
	_, addr := startServer(t)

	sub := dialServer(t, addr)
	pub := dialServer(t, addr)

	sub.send(map[string]any{"action": "subscribe", "topic": "t"})
	sub.recvSuccess()

	pub.send(map[string]any{"action": "publish", "topic": "t", "message": "m", "priority": "HIGH"})
	pub.recvSuccess()

	require.Equal(t, "high", sub.recv()["priority"])
}

func TestServerStartStop(t *testing.T) {
	ignore := goleak.IgnoreCurrent()

	svr, addr := startServer(t)

	c := dialServer(t, addr)
	c.send(map[string]any{"action": "subscribe", "topic": "t"})
	c.recvSuccess()

	// Close tears down the listener and every live connection and waits for
	// their handlers, so nothing of the server may survive it.
	require.NoError(t, c.conn.Close())
	require.NoError(t, svr.Close())

	goleak.VerifyNone(t, ignore)
}

func TestCloseIsIdempotent(t *testing.T) {
	svr, _ := startServer(t)
	require.NoError(t, svr.Close())
	require.NoError(t, svr.Close())
}

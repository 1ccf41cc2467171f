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
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/zentures/linemq/auth"
	"github.com/zentures/linemq/message"
	"github.com/zentures/linemq/sessions"
	"github.com/zentures/linemq/topics"
)

// Lines longer than this terminate the connection.
const maxLineSize = 1024 * 1024

var (
	gsvcid uint64 = 0
)

// service is the broker side of one client connection. It is in one of two
// states: connected (the read loop is running) or stopped. stop() performs
// the transition exactly once, removing the connection from every topic's
// subscriber set so no dangling references remain.
type service struct {
	// The ID of this service, it's just a number that's incremented for
	// every new service.
	id uint64

	// Network connection for this service.
	conn net.Conn

	// sess tracks what this connection subscribed to and its traffic stats.
	sess *sessions.Session

	log zerolog.Logger

	authMgr   *auth.Manager
	topicsMgr *topics.Manager
	sessMgr   *sessions.Manager

	// Serializes writes to conn: a response to this connection's own request
	// and a fan-out push from another connection's publish must never
	// interleave on the wire.
	wmu sync.Mutex

	closed int64

	// onStop detaches the service from the server's live set.
	onStop func(*service)
}

// run reads one line at a time and processes it until the peer disconnects
// or the read fails.
func (this *service) run() {
	defer this.stop()

	scanner := bufio.NewScanner(this.conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		this.sess.IncIn(int64(len(line)) + 1)
		this.processLine(line)
	}

	if err := scanner.Err(); err != nil {
		this.log.Debug().Err(err).Msg("read loop terminated")
	}
}

// processLine handles a single request line. A fault while processing one
// line is answered as a generic error and must never take down the
// connection, let alone the server.
func (this *service) processLine(line []byte) {
	defer func() {
		if r := recover(); r != nil {
			this.log.Error().Interface("panic", r).Msg("recovering from panic")
			this.writeFrame(message.NewErrorResponse(fmt.Sprintf("Server exception: %v", r)))
		}
	}()

	req, err := message.Decode(line)
	if err != nil {
		this.writeFrame(message.NewErrorResponse(err.Error()))
		return
	}

	if err := this.processRequest(req); err != nil {
		this.writeFrame(message.NewErrorResponse(err.Error()))
	}
}

func (this *service) writeFrame(v any) error {
	data, err := message.Encode(v)
	if err != nil {
		return err
	}
	return this.write(data)
}

func (this *service) write(data []byte) error {
	this.wmu.Lock()
	defer this.wmu.Unlock()

	if _, err := this.conn.Write(data); err != nil {
		return err
	}

	this.sess.IncOut(int64(len(data)))
	return nil
}

// Push implements topics.Subscriber. It is called concurrently from other
// connections' publish fan-outs.
func (this *service) Push(data []byte) error {
	return this.write(data)
}

func (this *service) stop() {
	if !atomic.CompareAndSwapInt64(&this.closed, 0, 1) {
		return
	}

	this.topicsMgr.RemoveEverywhere(this)
	this.sessMgr.Del(this.sess.ID())
	this.conn.Close()

	in, out := this.sess.Stats()
	this.log.Info().
		Int64("in_msgs", in.Msgs).
		Int64("in_bytes", in.Bytes).
		Int64("out_msgs", out.Msgs).
		Int64("out_bytes", out.Bytes).
		Msg("connection closed")

	if this.onStop != nil {
		this.onStop(this)
	}
}

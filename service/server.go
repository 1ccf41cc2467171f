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

// Package service provides the broker Server and the per-connection handling
// of the line protocol defined in package message.
package service

import (
	"errors"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/zentures/linemq/auth"
	"github.com/zentures/linemq/sessions"
	"github.com/zentures/linemq/topics"
)

var (
	ErrInvalidConnectionType = errors.New("service: invalid connection type")
	ErrServerClosed          = errors.New("service: server closed")
)

const (
	DefaultAuthenticator    = "plain"
	DefaultTopicsProvider   = "mem"
	DefaultSessionsProvider = "mem"
)

// Server accepts client connections and runs a service loop for each. The
// zero value is usable; unset fields take the defaults above.
type Server struct {
	// Authenticator names the auth provider used for topic passwords.
	// If not set then default to "plain".
	Authenticator string

	// TopicsProvider names the topic store that keeps queues, subscriber
	// sets and passwords. If not set then default to "mem".
	TopicsProvider string

	// SessionsProvider names the session store for per-connection state.
	// If not set then default to "mem".
	SessionsProvider string

	// Logger, if set, receives server and connection logs. Nil disables
	// logging.
	Logger *zerolog.Logger

	log zerolog.Logger

	authMgr   *auth.Manager
	topicsMgr *topics.Manager
	sessMgr   *sessions.Manager

	configOnce sync.Once
	configErr  error

	mu     sync.Mutex
	ln     net.Listener
	svcs   map[uint64]*service
	wg     sync.WaitGroup
	closed int64
}

// ListenAndServe listens on the network address of uri (e.g.
// "tcp://127.0.0.1:8888") and accepts connections until Close is called.
func (this *Server) ListenAndServe(uri string) error {
	if err := this.checkConfiguration(); err != nil {
		return err
	}

	u, err := url.Parse(uri)
	if err != nil {
		return err
	}

	ln, err := net.Listen(u.Scheme, u.Host)
	if err != nil {
		return err
	}

	this.mu.Lock()
	if atomic.LoadInt64(&this.closed) == 1 {
		this.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	this.ln = ln
	this.mu.Unlock()

	this.log.Info().Str("addr", ln.Addr().String()).Msg("server is ready")

	var tempDelay time.Duration // how long to sleep on accept failure

	for {
		conn, err := ln.Accept()

		// Borrowed from go1.3.3/src/pkg/net/http/server.go:1699
		if err != nil {
			if atomic.LoadInt64(&this.closed) == 1 {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}
				if max := 1 * time.Second; tempDelay > max {
					tempDelay = max
				}
				this.log.Error().Err(err).Dur("retry_in", tempDelay).Msg("accept error")
				time.Sleep(tempDelay)
				continue
			}
			return err
		}
		tempDelay = 0

		go this.handleConnection(conn)
	}
}

// Addr returns the listener address once ListenAndServe has bound it, or nil.
func (this *Server) Addr() net.Addr {
	this.mu.Lock()
	defer this.mu.Unlock()

	if this.ln == nil {
		return nil
	}
	return this.ln.Addr()
}

// Close stops the listener and tears down every live connection. It blocks
// until all connection handlers have finished.
func (this *Server) Close() error {
	if !atomic.CompareAndSwapInt64(&this.closed, 0, 1) {
		return nil
	}

	this.mu.Lock()
	ln := this.ln
	svcs := make([]*service, 0, len(this.svcs))
	for _, svc := range this.svcs {
		svcs = append(svcs, svc)
	}
	this.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	for _, svc := range svcs {
		svc.stop()
	}

	this.wg.Wait()
	return nil
}

// handleConnection runs the whole lifecycle of one client connection: session
// creation, the read loop, and teardown. It is called on a dedicated
// goroutine per connection.
func (this *Server) handleConnection(c net.Conn) (svc *service, err error) {
	this.wg.Add(1)
	defer this.wg.Done()

	if c == nil {
		return nil, ErrInvalidConnectionType
	}

	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	if atomic.LoadInt64(&this.closed) == 1 {
		return nil, ErrServerClosed
	}

	sess, err := this.sessMgr.New("")
	if err != nil {
		return nil, err
	}

	svc = &service{
		id:   atomic.AddUint64(&gsvcid, 1),
		conn: c,
		sess: sess,

		authMgr:   this.authMgr,
		topicsMgr: this.topicsMgr,
		sessMgr:   this.sessMgr,
	}
	svc.log = this.log.With().Uint64("svc", svc.id).Logger()
	svc.onStop = this.detach

	this.attach(svc)

	svc.log.Info().Str("remote", c.RemoteAddr().String()).Msg("connection established")

	svc.run()
	return svc, nil
}

func (this *Server) attach(svc *service) {
	this.mu.Lock()
	defer this.mu.Unlock()

	if this.svcs == nil {
		this.svcs = make(map[uint64]*service)
	}
	this.svcs[svc.id] = svc
}

func (this *Server) detach(svc *service) {
	this.mu.Lock()
	defer this.mu.Unlock()

	delete(this.svcs, svc.id)
}

func (this *Server) checkConfiguration() error {
	this.configOnce.Do(func() {
		if this.Authenticator == "" {
			this.Authenticator = DefaultAuthenticator
		}

		if this.TopicsProvider == "" {
			this.TopicsProvider = DefaultTopicsProvider
		}

		if this.SessionsProvider == "" {
			this.SessionsProvider = DefaultSessionsProvider
		}

		if this.Logger != nil {
			this.log = this.Logger.With().Str("component", "server").Logger()
		} else {
			this.log = zerolog.Nop()
		}

		this.authMgr, this.configErr = auth.NewManager(this.Authenticator)
		if this.configErr != nil {
			return
		}

		this.topicsMgr, this.configErr = topics.NewManager(this.TopicsProvider)
		if this.configErr != nil {
			return
		}

		this.sessMgr, this.configErr = sessions.NewManager(this.SessionsProvider)
	})

	return this.configErr
}

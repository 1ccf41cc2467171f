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

// Package topics is the authoritative store for topic state: the ordered
// queue of pending message records, the subscriber set and the optional
// topic password. Topic names are opaque, case-sensitive strings; topics are
// created lazily on first publish or subscribe and never destroyed.
//
// Every read-modify-write against a topic (creation, password claim and
// check, enqueue, subscriber add/remove, drain) runs inside one exclusive
// critical section per operation, so concurrent connections never observe a
// half-updated topic.
package topics

import (
	"errors"
	"fmt"
	"time"

	"github.com/zentures/linemq/auth"
	"github.com/zentures/linemq/message"
)

var (
	ErrTopicsProviderNotFound = errors.New("topics: topics provider not found")
	ErrTopicNotFound          = errors.New("topics: topic does not exist")
	ErrNilSubscriber          = errors.New("topics: subscriber cannot be nil")

	providers = make(map[string]TopicsProvider)
)

// Subscriber is a live connection handle capable of receiving pushed frames.
// Topics hold subscribers as back-references only; they never own them.
type Subscriber interface {
	Push(data []byte) error
}

// MessageRecord is the accounting entry stored in a topic's queue. The queue
// is never delivered from; it exists for queue_length, expiry bookkeeping and
// bulk clearing.
type MessageRecord struct {
	Priority  message.Priority
	CreatedAt time.Time
	Sequence  uint64
	Payload   any
	ExpiresAt *time.Time
}

// Expired reports whether the record's ttl has elapsed at the given instant.
// Records without an expiry never expire.
func (this *MessageRecord) Expired(now time.Time) bool {
	return this.ExpiresAt != nil && !now.Before(*this.ExpiresAt)
}

// less orders records by (priority ascending, sequence ascending). Sequence
// numbers are allocated under the enqueue lock, so this order is total and
// stable regardless of call interleaving.
func (this *MessageRecord) less(other *MessageRecord) bool {
	if this.Priority != other.Priority {
		return this.Priority < other.Priority
	}
	return this.Sequence < other.Sequence
}

// TopicsProvider is the interface for the topic store. Operations that can
// touch a password-protected topic take the supplied credential together
// with the authenticator to check it with, so the check happens inside the
// store's critical section.
type TopicsProvider interface {
	// Enqueue creates the topic if absent (claiming cred as its password
	// when non-empty), checks the password, allocates the next global
	// sequence number, inserts the record in queue order and returns a
	// snapshot of the current subscriber set for lock-free fan-out.
	Enqueue(name string, rec *MessageRecord, cred string, a auth.Authenticator) ([]Subscriber, error)

	// Subscribe adds sub to the topic's subscriber set, creating the topic
	// if absent (claiming cred as its password when non-empty).
	Subscribe(name, cred string, a auth.Authenticator, sub Subscriber) error

	// Unsubscribe removes sub from the named topic. Unknown topics and
	// non-members are not an error.
	Unsubscribe(name string, sub Subscriber) error

	// RemoveEverywhere removes sub from every topic's subscriber set. Called
	// exactly once when a connection dies.
	RemoveEverywhere(sub Subscriber)

	// Names returns all known topic names, sorted.
	Names() []string

	// Len returns the number of pending records, or ErrTopicNotFound.
	Len(name string) (int, error)

	// Clear drops every pending record after a password check.
	Clear(name, cred string, a auth.Authenticator) error

	// Purge drains the topic's queue, discards records expired at now and
	// reinserts the rest preserving their relative order, atomically.
	Purge(name string, now time.Time) error

	Close() error
}

// Register makes a topics provider available by the provided name.
// If Register is called twice with the same name or if the provider is nil,
// it panics.
func Register(name string, provider TopicsProvider) {
	if provider == nil {
		panic("topics: Register provider is nil")
	}

	if _, dup := providers[name]; dup {
		panic("topics: Register called twice for provider " + name)
	}

	providers[name] = provider
}

func Unregister(name string) {
	delete(providers, name)
}

type Manager struct {
	p TopicsProvider
}

func NewManager(providerName string) (*Manager, error) {
	p, ok := providers[providerName]
	if !ok {
		return nil, fmt.Errorf("topics: unknown provider %q", providerName)
	}

	return &Manager{p: p}, nil
}

func (this *Manager) Enqueue(name string, rec *MessageRecord, cred string, a auth.Authenticator) ([]Subscriber, error) {
	return this.p.Enqueue(name, rec, cred, a)
}

func (this *Manager) Subscribe(name, cred string, a auth.Authenticator, sub Subscriber) error {
	return this.p.Subscribe(name, cred, a, sub)
}

func (this *Manager) Unsubscribe(name string, sub Subscriber) error {
	return this.p.Unsubscribe(name, sub)
}

func (this *Manager) RemoveEverywhere(sub Subscriber) {
	this.p.RemoveEverywhere(sub)
}

func (this *Manager) Names() []string {
	return this.p.Names()
}

func (this *Manager) Len(name string) (int, error) {
	return this.p.Len(name)
}

func (this *Manager) Clear(name, cred string, a auth.Authenticator) error {
	return this.p.Clear(name, cred, a)
}

func (this *Manager) Purge(name string, now time.Time) error {
	return this.p.Purge(name, now)
}

func (this *Manager) Close() error {
	return this.p.Close()
}

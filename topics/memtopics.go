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

package topics

import (
	"sort"
	"sync"
	"time"

	"github.com/zentures/linemq/auth"
)

func init() {
	Register("mem", NewMemTopics())
}

var _ TopicsProvider = (*MemTopics)(nil)

// MemTopics keeps all topic state in memory behind a single mutex. One
// global sequence counter is shared by every topic and advanced under the
// same lock that performs the insertion.
type MemTopics struct {
	mu     sync.Mutex
	topics map[string]*topic
	seq    uint64
}

type topic struct {
	// records is kept sorted by (priority, sequence) at insertion time, so
	// drains and length checks read it as-is.
	records  []*MessageRecord
	subs     map[Subscriber]struct{}
	password string
}

func NewMemTopics() *MemTopics {
	return &MemTopics{
		topics: make(map[string]*topic),
	}
}

// ensure returns the named topic, creating it if absent. A non-empty cred on
// the creating call claims the topic's password; on an existing topic it is
// ignored (first writer wins).
func (this *MemTopics) ensure(name, cred string) *topic {
	t, ok := this.topics[name]
	if !ok {
		t = &topic{subs: make(map[Subscriber]struct{})}
		if cred != "" {
			t.password = cred
		}
		this.topics[name] = t
	}
	return t
}

func (this *MemTopics) Enqueue(name string, rec *MessageRecord, cred string, a auth.Authenticator) ([]Subscriber, error) {
	this.mu.Lock()
	defer this.mu.Unlock()

	t := this.ensure(name, cred)

	if err := a.Authenticate(t.password, cred); err != nil {
		return nil, err
	}

	this.seq++
	rec.Sequence = this.seq
	t.insert(rec)

	// Snapshot the subscriber set so the caller can fan out without holding
	// the lock across network writes.
	subs := make([]Subscriber, 0, len(t.subs))
	for sub := range t.subs {
		subs = append(subs, sub)
	}

	return subs, nil
}

func (this *MemTopics) Subscribe(name, cred string, a auth.Authenticator, sub Subscriber) error {
	if sub == nil {
		return ErrNilSubscriber
	}

	this.mu.Lock()
	defer this.mu.Unlock()

	t := this.ensure(name, cred)

	if err := a.Authenticate(t.password, cred); err != nil {
		return err
	}

	t.subs[sub] = struct{}{}
	return nil
}

func (this *MemTopics) Unsubscribe(name string, sub Subscriber) error {
	this.mu.Lock()
	defer this.mu.Unlock()

	if t, ok := this.topics[name]; ok {
		delete(t.subs, sub)
	}
	return nil
}

func (this *MemTopics) RemoveEverywhere(sub Subscriber) {
	this.mu.Lock()
	defer this.mu.Unlock()

	for _, t := range this.topics {
		delete(t.subs, sub)
	}
}

func (this *MemTopics) Names() []string {
	this.mu.Lock()
	defer this.mu.Unlock()

	names := make([]string, 0, len(this.topics))
	for name := range this.topics {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func (this *MemTopics) Len(name string) (int, error) {
	this.mu.Lock()
	defer this.mu.Unlock()

	t, ok := this.topics[name]
	if !ok {
		return 0, ErrTopicNotFound
	}

	return len(t.records), nil
}

func (this *MemTopics) Clear(name, cred string, a auth.Authenticator) error {
	this.mu.Lock()
	defer this.mu.Unlock()

	t, ok := this.topics[name]
	if !ok {
		return ErrTopicNotFound
	}

	if err := a.Authenticate(t.password, cred); err != nil {
		return err
	}

	t.records = nil
	return nil
}

// Purge is the lazy expiry pass: drain the whole queue, keep what hasn't
// expired, reinsert in place. Runs under the same lock as Enqueue, so a
// concurrent publish can never observe a half-drained queue.
func (this *MemTopics) Purge(name string, now time.Time) error {
	this.mu.Lock()
	defer this.mu.Unlock()

	t, ok := this.topics[name]
	if !ok {
		return ErrTopicNotFound
	}

	kept := t.records[:0]
	for _, rec := range t.records {
		if !rec.Expired(now) {
			kept = append(kept, rec)
		}
	}
	for i := len(kept); i < len(t.records); i++ {
		t.records[i] = nil
	}
	t.records = kept

	return nil
}

func (this *MemTopics) Close() error {
	this.mu.Lock()
	defer this.mu.Unlock()

	this.topics = make(map[string]*topic)
	this.seq = 0
	return nil
}

// insert places rec at its (priority, sequence) position. Records arrive in
// sequence order under the lock, so within one priority this appends; the
// binary search only matters when priorities differ.
func (this *topic) insert(rec *MessageRecord) {
	i := sort.Search(len(this.records), func(i int) bool {
		return rec.less(this.records[i])
	})

	this.records = append(this.records, nil)
	copy(this.records[i+1:], this.records[i:])
	this.records[i] = rec
}

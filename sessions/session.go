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

package sessions

import (
	"sort"
	"sync"
)

// Stat counts frames and bytes in one direction of a connection.
type Stat struct {
	Bytes int64
	Msgs  int64
}

func (this *Stat) increment(n int64) {
	this.Bytes += n
	this.Msgs++
}

// Session is the broker-side state of one connection.
type Session struct {
	mu sync.Mutex

	id     string
	topics map[string]struct{}

	inStat  Stat
	outStat Stat
}

func (this *Session) ID() string {
	return this.id
}

// AddTopic records a subscription. Returns false if it was already present.
func (this *Session) AddTopic(name string) bool {
	this.mu.Lock()
	defer this.mu.Unlock()

	if _, ok := this.topics[name]; ok {
		return false
	}
	this.topics[name] = struct{}{}
	return true
}

func (this *Session) RemoveTopic(name string) {
	this.mu.Lock()
	defer this.mu.Unlock()

	delete(this.topics, name)
}

func (this *Session) Topics() []string {
	this.mu.Lock()
	defer this.mu.Unlock()

	names := make([]string, 0, len(this.topics))
	for name := range this.topics {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func (this *Session) IncIn(n int64) {
	this.mu.Lock()
	defer this.mu.Unlock()
	this.inStat.increment(n)
}

func (this *Session) IncOut(n int64) {
	this.mu.Lock()
	defer this.mu.Unlock()
	this.outStat.increment(n)
}

func (this *Session) Stats() (in, out Stat) {
	this.mu.Lock()
	defer this.mu.Unlock()
	return this.inStat, this.outStat
}

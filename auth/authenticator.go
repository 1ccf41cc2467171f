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

// Package auth checks topic secrets. A topic may be claimed with a password
// by whoever creates it; every later publish, subscribe or clear against the
// topic presents its credential to an Authenticator.
package auth

import (
	"errors"
	"fmt"
)

var (
	ErrAuthFailure          = errors.New("auth: Authentication failure")
	ErrAuthProviderNotFound = errors.New("auth: Authentication provider not found")

	providers = make(map[string]Authenticator)
)

type Authenticator interface {
	// Authenticate checks the supplied credential against the secret the
	// topic was claimed with. An empty required secret means the topic is
	// open and anything is accepted.
	Authenticate(required, supplied string) error
}

// Register makes an authenticator available by the provided name.
// If Register is called twice with the same name or if the provider is nil,
// it panics.
func Register(name string, provider Authenticator) {
	if provider == nil {
		panic("auth: Register provider is nil")
	}

	if _, dup := providers[name]; dup {
		panic("auth: Register called twice for provider " + name)
	}

	providers[name] = provider
}

func Unregister(name string) {
	delete(providers, name)
}

type Manager struct {
	p Authenticator
}

func NewManager(providerName string) (*Manager, error) {
	p, ok := providers[providerName]
	if !ok {
		return nil, fmt.Errorf("auth: unknown provider %q", providerName)
	}

	return &Manager{p: p}, nil
}

func (this *Manager) Authenticate(required, supplied string) error {
	return this.p.Authenticate(required, supplied)
}

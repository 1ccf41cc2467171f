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
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the daemon-facing configuration. Flags override file values,
// file values override defaults.
type Config struct {
	// Addr is the listen URI, e.g. "tcp://127.0.0.1:8888".
	Addr string `yaml:"addr"`

	// WebsocketAddr is an optional HTTP listen address (e.g. ":8080") that
	// serves the same protocol over websocket. Empty disables it.
	WebsocketAddr string `yaml:"websocket_addr"`

	Authenticator    string `yaml:"authenticator"`
	TopicsProvider   string `yaml:"topics_provider"`
	SessionsProvider string `yaml:"sessions_provider"`

	LogLevel string `yaml:"log_level"`
}

func DefaultConfig() Config {
	return Config{
		Addr:             "tcp://127.0.0.1:8888",
		Authenticator:    DefaultAuthenticator,
		TopicsProvider:   DefaultTopicsProvider,
		SessionsProvider: DefaultSessionsProvider,
		LogLevel:         "info",
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	buf, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, fmt.Errorf("service: parsing config %s: %w", path, err)
	}

	return cfg, nil
}

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

// LineMQ is a small in-memory message broker speaking a newline-delimited
// JSON protocol over TCP or WebSocket.
//
// The primary package of interest is package service. It provides the broker
// Server in library form; cmd/linemqd wraps it in a daemon and cmd/linemq is
// a line-mode client.
//
// Clients publish and subscribe to named topics. Every pending message in a
// topic is ordered by priority (high, normal, low) with a globally unique,
// monotonically increasing sequence number as the tie-break, so queue order
// is deterministic regardless of how concurrent publishers interleave.
// Messages may carry a time-to-live in seconds; expired messages are purged
// lazily when the queue is next inspected. A topic may be claimed with a
// password by whoever creates it first, after which publish, subscribe and
// clear_topic all require that password.
//
// Delivery is best-effort push: a published message is written concurrently
// to every connection subscribed at publish time, and nothing else. There are
// no acknowledgements, no redelivery, and no persistence; all broker state
// lives in memory and is lost on shutdown.
package linemq

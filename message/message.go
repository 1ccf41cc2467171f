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

// Package message defines the wire protocol: one JSON object per line,
// UTF-8 encoded, terminated by a single newline. Requests are tagged by the
// "action" field, responses by "status", and server pushes by "type".
package message

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Client request actions.
const (
	ActionListTopics  = "list_topics"
	ActionQueueLength = "queue_length"
	ActionClearTopic  = "clear_topic"
	ActionPublish     = "publish"
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"

	// TypeMessage marks a server-initiated push, distinguishing it from a
	// response to a request.
	TypeMessage = "message"
)

// The error texts below are part of the wire contract; clients match on them.
var (
	ErrInvalidJSON     = errors.New("Invalid JSON format")
	ErrMissingAction   = errors.New("Missing 'action' field")
	ErrMissingTopic    = errors.New("Missing 'topic' field")
	ErrMissingPayload  = errors.New("Missing 'topic' or 'message' field")
	ErrInvalidPriority = errors.New("Invalid 'priority' (use high|normal|low)")
	ErrInvalidTTL      = errors.New("Invalid 'ttl' (seconds expected)")
	ErrWrongPassword   = errors.New("Forbidden: wrong password")
)

func ErrUnknownAction(action string) error {
	return fmt.Errorf("Unknown action '%s'", action)
}

func ErrTopicNotFound(topic string) error {
	return fmt.Errorf("Topic '%s' does not exist", topic)
}

// Priority orders pending messages within a topic. Lower ordinal sorts first.
type Priority byte

const (
	PriorityHigh Priority = iota
	PriorityNormal
	PriorityLow
)

func ValidPriority(p Priority) bool {
	return p <= PriorityLow
}

// ParsePriority resolves a wire token case-insensitively. The empty token
// means the client omitted the field and defaults to normal.
func ParsePriority(token string) (Priority, error) {
	switch strings.ToLower(token) {
	case "high":
		return PriorityHigh, nil
	case "", "normal":
		return PriorityNormal, nil
	case "low":
		return PriorityLow, nil
	}
	return PriorityNormal, ErrInvalidPriority
}

func (this Priority) String() string {
	switch this {
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	}
	return "normal"
}

// Request is a decoded client request. Topic, Priority, TTL and Password are
// optional depending on Action; Payload carries the published message and is
// opaque to the broker.
type Request struct {
	Action   string `json:"action"`
	Topic    string `json:"topic,omitempty"`
	Payload  any    `json:"message,omitempty"`
	Priority string `json:"priority,omitempty"`
	TTL      any    `json:"ttl,omitempty"`
	Password string `json:"password,omitempty"`
}

func (this *Request) Name() string {
	return this.Action
}

// TTLSeconds validates the optional ttl field. It returns 0 with a nil error
// when no ttl was supplied. JSON numbers arrive as float64 and are truncated;
// numeric strings are accepted as well. A value that does not truncate to a
// positive number of seconds is an error.
func (this *Request) TTLSeconds() (int, error) {
	var n int

	switch v := this.TTL.(type) {
	case nil:
		return 0, nil

	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, ErrInvalidTTL
		}
		n = int(v)

	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, ErrInvalidTTL
		}
		n = parsed

	default:
		return 0, ErrInvalidTTL
	}

	if n <= 0 {
		return 0, ErrInvalidTTL
	}

	return n, nil
}

// Validate checks the per-action required fields before any broker state is
// touched. It does not validate priority or ttl; those have dedicated parsers
// so the dispatcher can report the precise failure.
func (this *Request) Validate() error {
	if this.Action == "" {
		return ErrMissingAction
	}

	switch this.Action {
	case ActionListTopics:
		return nil

	case ActionPublish:
		if this.Topic == "" || this.Payload == nil {
			return ErrMissingPayload
		}
		return nil

	case ActionQueueLength, ActionClearTopic, ActionSubscribe, ActionUnsubscribe:
		if this.Topic == "" {
			return ErrMissingTopic
		}
		return nil
	}

	return ErrUnknownAction(this.Action)
}

// Responses are one struct per action so that required fields ("topics",
// "messages", the boolean flags) always serialize, even when zero-valued.

type ListTopicsResponse struct {
	Status string   `json:"status"`
	Topics []string `json:"topics"`
}

func NewListTopicsResponse(topics []string) *ListTopicsResponse {
	if topics == nil {
		topics = []string{}
	}
	return &ListTopicsResponse{Status: StatusSuccess, Topics: topics}
}

type QueueLengthResponse struct {
	Status   string `json:"status"`
	Topic    string `json:"topic"`
	Messages int    `json:"messages"`
}

func NewQueueLengthResponse(topic string, n int) *QueueLengthResponse {
	return &QueueLengthResponse{Status: StatusSuccess, Topic: topic, Messages: n}
}

type ClearTopicResponse struct {
	Status  string `json:"status"`
	Topic   string `json:"topic"`
	Cleared bool   `json:"cleared"`
}

func NewClearTopicResponse(topic string) *ClearTopicResponse {
	return &ClearTopicResponse{Status: StatusSuccess, Topic: topic, Cleared: true}
}

type PublishResponse struct {
	Status string `json:"status"`
	Topic  string `json:"topic"`
}

func NewPublishResponse(topic string) *PublishResponse {
	return &PublishResponse{Status: StatusSuccess, Topic: topic}
}

type SubscribeResponse struct {
	Status     string `json:"status"`
	Topic      string `json:"topic"`
	Subscribed bool   `json:"subscribed"`
}

func NewSubscribeResponse(topic string) *SubscribeResponse {
	return &SubscribeResponse{Status: StatusSuccess, Topic: topic, Subscribed: true}
}

type UnsubscribeResponse struct {
	Status       string `json:"status"`
	Topic        string `json:"topic"`
	Unsubscribed bool   `json:"unsubscribed"`
}

func NewUnsubscribeResponse(topic string) *UnsubscribeResponse {
	return &UnsubscribeResponse{Status: StatusSuccess, Topic: topic, Unsubscribed: true}
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func NewErrorResponse(text string) *ErrorResponse {
	return &ErrorResponse{Status: StatusError, Message: text}
}

// Push is the server-initiated frame delivered to subscribers at publish
// time. ExpiresAt is RFC 3339 when the message carries a ttl, empty otherwise.
type Push struct {
	Type      string `json:"type"`
	Topic     string `json:"topic"`
	Payload   any    `json:"payload"`
	Priority  string `json:"priority"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

func NewPush(topic string, payload any, prio Priority, expiresAt *time.Time) *Push {
	p := &Push{
		Type:     TypeMessage,
		Topic:    topic,
		Payload:  payload,
		Priority: prio.String(),
	}
	if expiresAt != nil {
		p.ExpiresAt = expiresAt.Format(time.RFC3339)
	}
	return p
}

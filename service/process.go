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
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zentures/linemq/auth"
	"github.com/zentures/linemq/message"
	"github.com/zentures/linemq/topics"
)

// processRequest validates the request and routes it by action. A returned
// error becomes an error response on the wire; success paths write their own
// response.
func (this *service) processRequest(req *message.Request) error {
	if err := req.Validate(); err != nil {
		return err
	}

	switch req.Action {
	case message.ActionListTopics:
		return this.processListTopics(req)

	case message.ActionQueueLength:
		return this.processQueueLength(req)

	case message.ActionClearTopic:
		return this.processClearTopic(req)

	case message.ActionPublish:
		return this.processPublish(req)

	case message.ActionSubscribe:
		return this.processSubscribe(req)

	case message.ActionUnsubscribe:
		return this.processUnsubscribe(req)
	}

	return message.ErrUnknownAction(req.Action)
}

func (this *service) processListTopics(req *message.Request) error {
	return this.writeFrame(message.NewListTopicsResponse(this.topicsMgr.Names()))
}

// processQueueLength purges expired records first, so the reported count
// never includes messages whose ttl has elapsed. This is the only trigger
// for expiry; a message on an untouched topic can linger past its ttl.
func (this *service) processQueueLength(req *message.Request) error {
	if err := this.topicsMgr.Purge(req.Topic, time.Now().UTC()); err != nil {
		return this.mapTopicErr(err, req.Topic)
	}

	n, err := this.topicsMgr.Len(req.Topic)
	if err != nil {
		return this.mapTopicErr(err, req.Topic)
	}

	return this.writeFrame(message.NewQueueLengthResponse(req.Topic, n))
}

func (this *service) processClearTopic(req *message.Request) error {
	if err := this.topicsMgr.Clear(req.Topic, req.Password, this.authMgr); err != nil {
		return this.mapTopicErr(err, req.Topic)
	}

	return this.writeFrame(message.NewClearTopicResponse(req.Topic))
}

// processPublish is the publish pipeline: validate, one atomic registry step
// (topic creation, password claim and check, sequence allocation, enqueue,
// subscriber snapshot), then fan-out to the snapshot outside the lock.
func (this *service) processPublish(req *message.Request) error {
	prio, err := message.ParsePriority(req.Priority)
	if err != nil {
		return err
	}

	ttl, err := req.TTLSeconds()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	rec := &topics.MessageRecord{
		Priority:  prio,
		CreatedAt: now,
		Payload:   req.Payload,
	}
	if ttl > 0 {
		exp := now.Add(time.Duration(ttl) * time.Second)
		rec.ExpiresAt = &exp
	}

	subs, err := this.topicsMgr.Enqueue(req.Topic, rec, req.Password, this.authMgr)
	if err != nil {
		return this.mapTopicErr(err, req.Topic)
	}

	if len(subs) > 0 {
		data, err := message.Encode(message.NewPush(req.Topic, req.Payload, prio, rec.ExpiresAt))
		if err != nil {
			return err
		}

		// Concurrent best-effort delivery. A broken subscriber neither
		// aborts delivery to the others nor fails the publish; its own read
		// loop will notice the dead connection and clean up.
		var g errgroup.Group
		for _, sub := range subs {
			sub := sub
			g.Go(func() error {
				if err := sub.Push(data); err != nil {
					this.log.Debug().Err(err).Str("topic", req.Topic).Msg("push to subscriber failed")
				}
				return nil
			})
		}
		g.Wait()
	}

	return this.writeFrame(message.NewPublishResponse(req.Topic))
}

func (this *service) processSubscribe(req *message.Request) error {
	if err := this.topicsMgr.Subscribe(req.Topic, req.Password, this.authMgr, this); err != nil {
		return this.mapTopicErr(err, req.Topic)
	}

	this.sess.AddTopic(req.Topic)

	return this.writeFrame(message.NewSubscribeResponse(req.Topic))
}

// processUnsubscribe succeeds even for topics the connection never
// subscribed to, or that don't exist.
func (this *service) processUnsubscribe(req *message.Request) error {
	if err := this.topicsMgr.Unsubscribe(req.Topic, this); err != nil {
		return err
	}

	this.sess.RemoveTopic(req.Topic)

	return this.writeFrame(message.NewUnsubscribeResponse(req.Topic))
}

// mapTopicErr translates registry errors to their wire texts.
func (this *service) mapTopicErr(err error, topic string) error {
	switch {
	case errors.Is(err, topics.ErrTopicNotFound):
		return message.ErrTopicNotFound(topic)
	case errors.Is(err, auth.ErrAuthFailure):
		return message.ErrWrongPassword
	}
	return err
}

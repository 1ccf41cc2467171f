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

// linemq is a line-mode client for the LineMQ broker.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/zentures/linemq/message"
)

var (
	brokerAddr string
	password   string
	priority   string
	ttl        int
)

func main() {
	root := &cobra.Command{
		Use:          "linemq",
		Short:        "LineMQ broker client",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&brokerAddr, "addr", "127.0.0.1:8888", "broker address")

	topicsCmd := &cobra.Command{
		Use:   "topics",
		Short: "List known topics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return oneShot(map[string]any{"action": message.ActionListTopics})
		},
	}

	lenCmd := &cobra.Command{
		Use:   "len <topic>",
		Short: "Report the number of pending messages in a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return oneShot(map[string]any{"action": message.ActionQueueLength, "topic": args[0]})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear <topic>",
		Short: "Drop every pending message in a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{"action": message.ActionClearTopic, "topic": args[0]}
			if password != "" {
				req["password"] = password
			}
			return oneShot(req)
		},
	}
	clearCmd.Flags().StringVar(&password, "password", "", "topic password")

	pubCmd := &cobra.Command{
		Use:   "pub <topic> <message>",
		Short: "Publish a message to a topic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"action":  message.ActionPublish,
				"topic":   args[0],
				"message": args[1],
			}
			if priority != "" {
				req["priority"] = priority
			}
			if ttl > 0 {
				req["ttl"] = ttl
			}
			if password != "" {
				req["password"] = password
			}
			return oneShot(req)
		},
	}
	pubCmd.Flags().StringVar(&priority, "priority", "", "message priority (high|normal|low)")
	pubCmd.Flags().IntVar(&ttl, "ttl", 0, "time-to-live in seconds")
	pubCmd.Flags().StringVar(&password, "password", "", "topic password")

	subCmd := &cobra.Command{
		Use:   "sub <topic>...",
		Short: "Subscribe to topics and print pushed messages until interrupted",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSub,
	}
	subCmd.Flags().StringVar(&password, "password", "", "topic password")

	unsubCmd := &cobra.Command{
		Use:   "unsub <topic>",
		Short: "Unsubscribe from a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return oneShot(map[string]any{"action": message.ActionUnsubscribe, "topic": args[0]})
		},
	}

	root.AddCommand(topicsCmd, lenCmd, clearCmd, pubCmd, subCmd, unsubCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func dialBroker() (net.Conn, *bufio.Scanner, error) {
	conn, err := net.Dial("tcp", brokerAddr)
	if err != nil {
		return nil, nil, err
	}
	return conn, bufio.NewScanner(conn), nil
}

func send(conn net.Conn, req map[string]any) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	_, err = conn.Write(append(data, '\n'))
	return err
}

// oneShot issues a single request and prints the broker's response.
func oneShot(req map[string]any) error {
	conn, scanner, err := dialBroker()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := send(conn, req); err != nil {
		return err
	}
	if !scanner.Scan() {
		return fmt.Errorf("connection closed: %v", scanner.Err())
	}

	var resp map[string]any
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return err
	}
	printFrame(resp)

	if resp["status"] == message.StatusError {
		os.Exit(1)
	}
	return nil
}

// runSub subscribes and then keeps rendering whatever the broker pushes,
// until the connection drops or the process is interrupted.
func runSub(cmd *cobra.Command, args []string) error {
	conn, scanner, err := dialBroker()
	if err != nil {
		return err
	}
	defer conn.Close()

	for _, topic := range args {
		req := map[string]any{"action": message.ActionSubscribe, "topic": topic}
		if password != "" {
			req["password"] = password
		}
		if err := send(conn, req); err != nil {
			return err
		}
	}

	for scanner.Scan() {
		var frame map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &frame); err != nil {
			fmt.Printf("[Bad line] %s (%v)\n", scanner.Text(), err)
			continue
		}
		printFrame(frame)
	}

	fmt.Println("[Disconnected]")
	return scanner.Err()
}

func printFrame(frame map[string]any) {
	if frame["type"] == message.TypeMessage {
		fmt.Printf("[Message] topic=%v priority=%v: %v\n",
			frame["topic"], frame["priority"], frame["payload"])
		return
	}

	data, err := json.Marshal(frame)
	if err != nil {
		fmt.Printf("[Response] %v\n", frame)
		return
	}
	fmt.Printf("[Response] %s\n", data)
}

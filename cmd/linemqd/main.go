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

// linemqd runs the LineMQ broker.
package main

import (
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zentures/linemq/service"
)

var (
	cfgPath    string
	addr       string
	wsAddr     string
	logLevel   string
	cpuprofile string
)

func main() {
	root := &cobra.Command{
		Use:          "linemqd",
		Short:        "LineMQ message broker daemon",
		RunE:         run,
		SilenceUsage: true,
	}

	root.Flags().StringVarP(&cfgPath, "config", "c", "", "path to YAML config file")
	root.Flags().StringVar(&addr, "addr", "", "listen URI, e.g. tcp://127.0.0.1:8888")
	root.Flags().StringVar(&wsAddr, "wsaddr", "", "HTTP websocket address, e.g. ':8080'")
	root.Flags().StringVar(&logLevel, "log-level", "", "log level (trace|debug|info|warn|error)")
	root.Flags().StringVar(&cpuprofile, "cpuprofile", "", "CPU profile filename")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg := service.DefaultConfig()

	if cfgPath != "" {
		var err error
		if cfg, err = service.LoadConfig(cfgPath); err != nil {
			return err
		}
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if wsAddr != "" {
		cfg.WebsocketAddr = wsAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().Level(level)

	svr := &service.Server{
		Authenticator:    cfg.Authenticator,
		TopicsProvider:   cfg.TopicsProvider,
		SessionsProvider: cfg.SessionsProvider,
		Logger:           &logger,
	}

	var prof *os.File
	if cpuprofile != "" {
		if prof, err = os.Create(cpuprofile); err != nil {
			return err
		}
		if err = pprof.StartCPUProfile(prof); err != nil {
			prof.Close()
			return err
		}
	}

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigchan
		logger.Info().Str("signal", sig.String()).Msg("shutting down")

		if prof != nil {
			pprof.StopCPUProfile()
			prof.Close()
		}

		svr.Close()
	}()

	if cfg.WebsocketAddr != "" {
		if err := svr.AddWebsocketHandler("/mq"); err != nil {
			return err
		}
		go func() {
			if err := service.ListenAndServeWebsocket(cfg.WebsocketAddr); err != nil {
				logger.Error().Err(err).Msg("websocket listener failed")
			}
		}()
	}

	return svr.ListenAndServe(cfg.Addr)
}

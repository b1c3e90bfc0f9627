// Copyright 2024 Kelvin Clement Mwinuka
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/hogwarp/scripting/internal/bridge"
	"github.com/hogwarp/scripting/internal/config"
	"github.com/hogwarp/scripting/internal/modules"
	"github.com/hogwarp/scripting/scripting"
)

func newLogger(conf config.Config) (hclog.Logger, io.Closer, error) {
	var output io.Writer = os.Stderr
	var closer io.Closer = io.NopCloser(nil)
	if conf.LogFile != "" {
		path := conf.DataPath(conf.LogFile)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, err
		}
		output = io.MultiWriter(os.Stderr, f)
		closer = f
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "scripting",
		Level:  hclog.LevelFromString(conf.LogLevel),
		Output: output,
	}), closer, nil
}

func main() {
	conf, err := config.GetConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, logFile, err := newLogger(conf)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		_ = logFile.Close()
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer cancel()

	host := bridge.New(
		bridge.WithLogger(logger.Named("bridge")),
		bridge.WithTickInterval(conf.TickInterval),
	)

	server, err := scripting.NewServer(
		scripting.WithContext(ctx),
		scripting.WithConfig(conf),
		scripting.WithLogger(logger),
		scripting.WithPlayerManager(host),
		scripting.WithExtensions(modules.Select(conf.Extensions)...),
	)
	if err != nil {
		logger.Error("could not start server", "error", err)
		os.Exit(1)
	}
	host.Bind(server)

	if err = host.Serve(ctx, fmt.Sprintf("%s:%d", conf.BindAddr, conf.Port)); err != nil {
		logger.Error("bridge stopped", "error", err)
	}

	host.ShutDown()
	logger.Info("shutting down")
}

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

package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-hclog"
	"github.com/hogwarp/scripting/internal/constants"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	CommandPrefix  string        `json:"CommandPrefix" yaml:"CommandPrefix" env:"COMMAND_PREFIX"`
	DataDir        string        `json:"DataDir" yaml:"DataDir" env:"DATA_DIR"`
	OpsFile        string        `json:"OpsFile" yaml:"OpsFile" env:"OPS_FILE"`
	Modules        []string      `json:"Modules" yaml:"Modules" env:"MODULES"`
	Extensions     []string      `json:"Extensions" yaml:"Extensions" env:"EXTENSIONS"`
	LogLevel       string        `json:"LogLevel" yaml:"LogLevel" env:"LOG_LEVEL"`
	LogFile        string        `json:"LogFile" yaml:"LogFile" env:"LOG_FILE"`
	BindAddr       string        `json:"BindAddr" yaml:"BindAddr" env:"BIND_ADDR"`
	Port           uint16        `json:"Port" yaml:"Port" env:"PORT"`
	TickInterval   time.Duration `json:"TickInterval" yaml:"TickInterval" env:"TICK_INTERVAL"`
	BufferCapacity int           `json:"BufferCapacity" yaml:"BufferCapacity" env:"BUFFER_CAPACITY"`
	FlushRetries   uint64        `json:"FlushRetries" yaml:"FlushRetries" env:"FLUSH_RETRIES"`
	FlushBackoff   time.Duration `json:"FlushBackoff" yaml:"FlushBackoff" env:"FLUSH_BACKOFF"`
}

// EnvPrefix is prepended to the env tag of every Config field.
const EnvPrefix = "SCRIPTING_"

// DataPath resolves name against DataDir unless it is already absolute.
func (c Config) DataPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// Validate checks the values that cannot be fixed by a default.
func (c Config) Validate() error {
	if strings.TrimSpace(c.CommandPrefix) == "" || strings.ContainsAny(c.CommandPrefix, " \t") {
		return errors.New("command prefix must be a non-empty token")
	}
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		return fmt.Errorf("log level %q is not a valid level", c.LogLevel)
	}
	if c.BufferCapacity <= 0 {
		return errors.New("buffer capacity must be positive")
	}
	if c.TickInterval < 0 {
		return errors.New("tick interval cannot be negative")
	}
	for _, module := range c.Modules {
		ext := strings.ToLower(path.Ext(module))
		if ext != constants.LuaExt && ext != constants.JSExt {
			return fmt.Errorf("\"%s\" is not a .lua or .js file", module)
		}
	}
	return nil
}

func GetConfig() (Config, error) {
	var modules []string
	flag.Func(
		"loadmodule",
		`Path to a Lua or JavaScript script that adds a chat command (e.g. /path/to/command.lua)`,
		func(p string) error {
			ext := strings.ToLower(path.Ext(p))
			if ext != constants.LuaExt && ext != constants.JSExt {
				return fmt.Errorf("\"%s\" is not a .lua or .js file", p)
			}
			modules = append(modules, p)
			return nil
		})

	var extensions []string
	flag.Func(
		"extension",
		`Name of a bundled extension to enable. Repeat the flag to enable several.
The options are 'MinistryOfMagic' and 'BroomRacing'. All are enabled when the flag is absent.`,
		func(name string) error {
			known := []string{constants.ModerationModule, constants.RacingModule}
			idx := slices.IndexFunc(known, func(s string) bool { return strings.EqualFold(s, name) })
			if idx == -1 {
				return fmt.Errorf("extension %s is not a bundled extension", name)
			}
			extensions = append(extensions, known[idx])
			return nil
		})

	logLevel := "info"
	flag.Func("log-level", `Log level. The options are 'trace', 'debug', 'info', 'warn' and 'error'. Default is info.`,
		func(level string) error {
			if hclog.LevelFromString(level) == hclog.NoLevel {
				return fmt.Errorf("log level %s is not a valid level", level)
			}
			logLevel = strings.ToLower(level)
			return nil
		})

	commandPrefix := flag.String("command-prefix", constants.DefaultCommandPrefix, "Prefix that marks a chat line as a command. Default is /.")
	dataDir := flag.String("data-dir", ".", "Directory holding the operator list and extension data.")
	opsFile := flag.String("ops-file", constants.DefaultOpsFile, "Operator list file, relative to data-dir. JSON or YAML.")
	logFile := flag.String("log-file", constants.DefaultLogFile, "Log file path, relative to data-dir. Empty logs to stderr only.")
	bindAddr := flag.String("bind-addr", "127.0.0.1", "Address the host bridge listens on.")
	port := flag.Int("port", 7490, "Port the host bridge listens on. Default is 7490.")
	tickInterval := flag.Duration("tick-interval", 0, "Interval of self-driven ticks. 0 leaves ticking to the host.")
	bufferCapacity := flag.Int("buffer-capacity", constants.DefaultBufferCapacity, "Capacity in bytes of message buffers. Default is 10000.")
	flushRetries := flag.Uint64("flush-retries", 3, "How many times a failed file write is retried.")
	flushBackoff := flag.Duration("flush-backoff", 50*time.Millisecond, "Base backoff between file write retries.")

	config := flag.String(
		"config",
		"",
		`File path to a JSON or YAML config file. The values in this config file will override the flag values.`,
	)

	flag.Parse()

	conf := Config{
		CommandPrefix:  *commandPrefix,
		DataDir:        *dataDir,
		OpsFile:        *opsFile,
		Modules:        modules,
		Extensions:     extensions,
		LogLevel:       logLevel,
		LogFile:        *logFile,
		BindAddr:       *bindAddr,
		Port:           uint16(*port),
		TickInterval:   *tickInterval,
		BufferCapacity: *bufferCapacity,
		FlushRetries:   *flushRetries,
		FlushBackoff:   *flushBackoff,
	}

	// Environment variables, including those from a .env file, override flags
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if err := ParseEnv(&conf); err != nil {
		return Config{}, err
	}

	if len(*config) > 0 {
		// Override configurations from file
		if err := Override(&conf, *config); err != nil {
			return Config{}, err
		}
	}

	return conf, conf.Validate()
}

// ParseEnv sets the fields of conf whose SCRIPTING_ variable is set.
func ParseEnv(conf *Config) error {
	if err := env.ParseWithOptions(conf, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Override decodes the JSON or YAML file at filePath over conf.
func Override(conf *Config, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	switch strings.ToLower(path.Ext(f.Name())) {
	case constants.JSONExt:
		return json.NewDecoder(f).Decode(conf)
	case constants.YAMLExt, constants.YMLExt:
		return yaml.NewDecoder(f).Decode(conf)
	}
	return fmt.Errorf("config file %s must be JSON or YAML", filePath)
}

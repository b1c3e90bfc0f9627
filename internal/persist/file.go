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

// Package persist reads and writes small JSON or YAML documents on disk.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hogwarp/scripting/internal"
	"github.com/hogwarp/scripting/internal/constants"
	"github.com/sethvargo/go-retry"
	"gopkg.in/yaml.v3"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

// File is one document on disk. The encoding follows the file extension:
// .json, .yaml or .yml.
type File struct {
	path    string
	retries uint64
	backoff time.Duration
	logger  hclog.Logger
}

func WithRetries(retries uint64) func(f *File) {
	return func(f *File) {
		f.retries = retries
	}
}

func WithBackoff(backoff time.Duration) func(f *File) {
	return func(f *File) {
		if backoff > 0 {
			f.backoff = backoff
		}
	}
}

func WithLogger(logger hclog.Logger) func(f *File) {
	return func(f *File) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func NewFile(path string, options ...func(f *File)) *File {
	f := &File{
		path:    path,
		retries: 3,
		backoff: 50 * time.Millisecond,
		logger:  hclog.NewNullLogger(),
	}
	for _, option := range options {
		option(f)
	}
	return f
}

func (f *File) Path() string {
	return f.path
}

func (f *File) marshal(v any) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(f.path)) {
	case constants.JSONExt:
		return json.MarshalIndent(v, "", "  ")
	case constants.YAMLExt, constants.YMLExt:
		return yaml.Marshal(v)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f.path)
}

func (f *File) unmarshal(data []byte, v any) error {
	switch strings.ToLower(filepath.Ext(f.path)) {
	case constants.JSONExt:
		return json.Unmarshal(data, v)
	case constants.YAMLExt, constants.YMLExt:
		return yaml.Unmarshal(data, v)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f.path)
}

// Load decodes the document into v. It returns false and leaves v untouched
// when the file does not exist. An empty file is treated as missing.
func (f *File) Load(v any) (bool, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return false, nil
	}
	if err = f.unmarshal(data, v); err != nil {
		return true, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return true, nil
}

// Save encodes v and replaces the file with it. The document is written to a
// temporary file in the same directory and renamed into place, so readers see
// either the old or the new contents. I/O failures are retried with backoff.
func (f *File) Save(ctx context.Context, v any) error {
	data, err := f.marshal(v)
	if err != nil {
		return err
	}

	return retry.Do(ctx, internal.FlushBackoff(f.backoff, f.retries), func(ctx context.Context) error {
		if err := f.write(data); err != nil {
			f.logger.Debug("write failed, retrying", "path", f.path, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (f *File) write(data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

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

package events

import (
	"fmt"
	"runtime/debug"

	"github.com/hashicorp/go-hclog"
)

// HandlerFault wraps an error returned, or a panic raised, by one subscriber or handler.
type HandlerFault struct {
	Source string // Who was being invoked, e.g. "chat subscriber 3 (MinistryOfMagic)".
	Err    error
	Panic  bool
}

func (f *HandlerFault) Error() string {
	if f.Panic {
		return fmt.Sprintf("%s panicked: %v", f.Source, f.Err)
	}
	return fmt.Sprintf("%s failed: %v", f.Source, f.Err)
}

func (f *HandlerFault) Unwrap() error {
	return f.Err
}

// Isolate runs fn and turns a returned error or a panic into a *HandlerFault.
// The fault is logged at warn level on logger and returned, never re-raised.
func Isolate(logger hclog.Logger, source string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerFault{Source: source, Err: fmt.Errorf("%v", r), Panic: true}
			if logger != nil {
				logger.Warn("handler fault", "source", source, "error", err, "stack", string(debug.Stack()))
			}
			return
		}
		if err != nil && logger != nil {
			logger.Warn("handler fault", "source", source, "error", err)
		}
	}()
	if e := fn(); e != nil {
		return &HandlerFault{Source: source, Err: e}
	}
	return nil
}

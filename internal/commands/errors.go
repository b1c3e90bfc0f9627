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

package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hogwarp/scripting/internal"
)

var (
	ErrInvalidCommand   = errors.New("invalid command")
	ErrDuplicateCommand = errors.New("command already registered")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrNotAllowed       = errors.New("not allowed")
	ErrMissingArguments = errors.New("missing required arguments")
)

// DuplicateCommandError is returned when a command name is registered twice.
type DuplicateCommandError struct {
	Command  string
	Module   string // Module that attempted the registration.
	Existing string // Module that owns the name.
}

func (e *DuplicateCommandError) Error() string {
	return fmt.Sprintf("command %q from module %q already registered by module %q", e.Command, e.Module, e.Existing)
}

func (e *DuplicateCommandError) Is(target error) bool {
	return target == ErrDuplicateCommand
}

type NotFoundError struct {
	Command string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Command)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrUnknownCommand
}

type PermissionError struct {
	Command  string
	Identity internal.Identity
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s is not allowed to run %q", e.Identity, e.Command)
}

func (e *PermissionError) Is(target error) bool {
	return target == ErrNotAllowed
}

// ValidationError reports required arguments missing from an invocation.
type ValidationError struct {
	Command string
	Missing []string
	Usage   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("command %q missing %s; usage: %s", e.Command, strings.Join(e.Missing, ", "), e.Usage)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrMissingArguments
}

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

package buffer

import (
	"errors"
	"fmt"
)

var (
	// ErrBufferOverflow is matched by every *OverflowError.
	ErrBufferOverflow = errors.New("buffer overflow")
	// ErrTruncatedRead is matched by every *TruncatedReadError.
	ErrTruncatedRead = errors.New("truncated read")
	// ErrMalformedVarInt is returned when a varint does not terminate within 10 bytes.
	ErrMalformedVarInt = errors.New("malformed varint")
	// ErrCountTooLarge is returned when a record sequence cannot be described by a masked count.
	ErrCountTooLarge = errors.New("record count exceeds 16-bit cap")
)

// OverflowError is returned by a write that does not fit in the remaining capacity.
// The buffer is left untouched.
type OverflowError struct {
	Op        string
	Need      int
	Available int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("%s: %v: need %d bytes, %d available", e.Op, ErrBufferOverflow, e.Need, e.Available)
}

func (e *OverflowError) Is(target error) bool {
	return target == ErrBufferOverflow
}

// TruncatedReadError is returned by a read that extends past the written length.
// The read cursor is left untouched.
type TruncatedReadError struct {
	Op     string
	Need   int
	Unread int
}

func (e *TruncatedReadError) Error() string {
	return fmt.Sprintf("%s: %v: need %d bytes, %d unread", e.Op, ErrTruncatedRead, e.Need, e.Unread)
}

func (e *TruncatedReadError) Is(target error) bool {
	return target == ErrTruncatedRead
}

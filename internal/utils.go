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

package internal

import (
	"net"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/tidwall/resp"
)

// FlushBackoff is the retry policy for writing data files: a Fibonacci
// sequence starting at base, jittered by a quarter of base and stopped after
// retries attempts. A non-positive base falls back to one millisecond.
func FlushBackoff(base time.Duration, retries uint64) retry.Backoff {
	if base <= 0 {
		base = time.Millisecond
	}
	backoff := retry.WithJitter(base/4, retry.NewFibonacci(base))
	if retries > 0 {
		backoff = retry.WithMaxRetries(retries, backoff)
	}
	return backoff
}

// GetFreePort asks the kernel for an unused loopback TCP port.
func GetFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = l.Close()
	}()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// EncodeCommand renders args as a RESP array of bulk strings, the form the
// host bridge reads.
func EncodeCommand(args []string) ([]byte, error) {
	values := make([]resp.Value, 0, len(args))
	for _, arg := range args {
		values = append(values, resp.StringValue(arg))
	}
	return resp.ArrayValue(values).MarshalRESP()
}

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
	"testing"

	"github.com/go-test/deep"
)

func Test_Tokens(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{line: "JOIN 1 alice", want: []string{"JOIN", "1", "alice"}},
		{line: "  poll ", want: []string{"poll"}},
		{line: "CHAT 1 /ban alice now", want: []string{"CHAT", "1", "/ban alice now"}},
		{line: "chat 12 hello  there", want: []string{"chat", "12", "hello  there"}},
		{line: "", want: []string{}},
	}

	for _, test := range tests {
		t.Run(test.line, func(t *testing.T) {
			if diff := deep.Equal(tokens(test.line), test.want); diff != nil {
				t.Error(diff)
			}
		})
	}
}

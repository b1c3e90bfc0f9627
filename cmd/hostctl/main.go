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

// Command hostctl is an interactive stand-in for a game host. It sends one
// bridge command per input line and prints the reply, e.g.
//
//	JOIN 1 alice
//	CHAT 1 /help
//	POLL
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/hogwarp/scripting/internal"
	"github.com/tidwall/resp"
)

// tokens splits line into command arguments. The text of CHAT keeps its
// spaces.
func tokens(line string) []string {
	fields := strings.Fields(line)
	if len(fields) >= 3 && strings.EqualFold(fields[0], "CHAT") {
		rest := strings.TrimSpace(line)
		rest = strings.TrimSpace(rest[len(fields[0]):])
		rest = strings.TrimSpace(rest[len(fields[1]):])
		return []string{fields[0], fields[1], rest}
	}
	return fields
}

func printValue(v resp.Value, indent string) {
	switch v.Type() {
	case resp.Array:
		if len(v.Array()) == 0 {
			fmt.Println(indent + "(empty array)")
		}
		for i, e := range v.Array() {
			if e.Type() == resp.Array {
				fmt.Printf("%s%d)\n", indent, i+1)
				printValue(e, indent+"   ")
				continue
			}
			fmt.Printf("%s%d) %q\n", indent, i+1, e.String())
		}
	case resp.Error:
		fmt.Println(indent + "(error) " + v.String())
	case resp.Integer:
		fmt.Printf("%s(integer) %d\n", indent, v.Integer())
	default:
		fmt.Println(indent + v.String())
	}
}

func main() {
	addr := flag.String("addr", "127.0.0.1", "Address of the scripting bridge.")
	port := flag.Int("port", 7490, "Port of the scripting bridge. Default is 7490")
	flag.Parse()

	conn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", *addr, *port))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() {
		_ = conn.Close()
	}()

	reader := resp.NewReader(conn)
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		cmd := tokens(scanner.Text())
		if len(cmd) == 0 {
			fmt.Print("> ")
			continue
		}
		raw, err := internal.EncodeCommand(cmd)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if _, err = conn.Write(raw); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		v, _, err := reader.ReadValue()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		printValue(v, "")
		fmt.Print("> ")
	}
}

package command

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestPing(t *testing.T) {
	srv := newKVServer(t)

	res := runApp(t, append(srv.args(), "ping")...)
	if res.err != nil {
		t.Fatalf("ping error = %v (stderr %s)", res.err, res.stderr)
	}
	if !strings.Contains(res.stdout, "PONG") || !strings.Contains(res.stdout, "RTT") {
		t.Errorf("stdout = %q", res.stdout)
	}
	if srv.countCommand("PING") != 1 {
		t.Errorf("server saw %v", srv.commands())
	}
}

func TestSetGetDel(t *testing.T) {
	srv := newKVServer(t)
	base := append(srv.args(), "-o", "json")

	res := runApp(t, append(base, "set", "--ttl", "1500ms", "user:1", "alice")...)
	if res.err != nil {
		t.Fatalf("set error = %v", res.err)
	}
	var set SetResult
	if err := json.Unmarshal([]byte(res.stdout), &set); err != nil || !set.OK {
		t.Fatalf("set output %q: %v", res.stdout, err)
	}
	cmds := srv.commands()
	last := cmds[len(cmds)-1]
	if strings.Join(last, " ") != "SET user:1 alice PX 1500" {
		t.Errorf("server saw %q", last)
	}

	res = runApp(t, append(base, "get", "user:1")...)
	if res.err != nil {
		t.Fatalf("get error = %v", res.err)
	}
	var kv KeyValue
	if err := json.Unmarshal([]byte(res.stdout), &kv); err != nil {
		t.Fatal(err)
	}
	if !kv.Found || kv.Value != "alice" {
		t.Errorf("get = %+v", kv)
	}

	res = runApp(t, append(base, "del", "user:1", "user:2")...)
	if res.err != nil {
		t.Fatalf("del error = %v", res.err)
	}
	var del DelResult
	if err := json.Unmarshal([]byte(res.stdout), &del); err != nil {
		t.Fatal(err)
	}
	if del.Deleted != 1 || len(del.Keys) != 2 {
		t.Errorf("del = %+v", del)
	}

	res = runApp(t, append(base, "get", "user:1")...)
	if res.err != nil {
		t.Fatal(res.err)
	}
	kv = KeyValue{}
	if err := json.Unmarshal([]byte(res.stdout), &kv); err != nil {
		t.Fatal(err)
	}
	if kv.Found {
		t.Errorf("deleted key still found: %+v", kv)
	}
}

func TestGet_Table(t *testing.T) {
	srv := newKVServer(t)
	if res := runApp(t, append(srv.args(), "set", "k", "v")...); res.err != nil {
		t.Fatal(res.err)
	}

	res := runApp(t, append(srv.args(), "get", "k")...)
	if res.err != nil {
		t.Fatal(res.err)
	}
	if !strings.HasPrefix(res.stdout, "FIELD") || !strings.Contains(res.stdout, "found") {
		t.Errorf("stdout = %q", res.stdout)
	}
}

func TestKVCommands_Usage(t *testing.T) {
	tests := [][]string{
		{"get"},
		{"get", "a", "b"},
		{"set", "only-key"},
		{"set", "--ttl", "-1s", "k", "v"},
		{"del"},
	}

	for _, args := range tests {
		t.Run(strings.Join(args, "_"), func(t *testing.T) {
			res := runApp(t, args...)
			if !errors.Is(res.err, errUsage) {
				t.Fatalf("error = %v, want usage error", res.err)
			}
			if ExitCode(res.err) != 2 {
				t.Errorf("ExitCode() = %d", ExitCode(res.err))
			}
		})
	}
}

func TestPing_ServerDown(t *testing.T) {
	res := runApp(t, "--host", "127.0.0.1", "--port", itoa(closedPort(t)), "ping")
	if res.err == nil {
		t.Fatal("ping against a closed port should fail")
	}
	if ExitCode(res.err) != 1 {
		t.Errorf("ExitCode() = %d, want 1", ExitCode(res.err))
	}
}

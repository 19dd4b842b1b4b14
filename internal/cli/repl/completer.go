package repl

import (
	"sort"
	"strings"
)

// commandSpec is one entry of the help table.
type commandSpec struct {
	Name string
	Args string
}

// Usage is the name followed by its argument synopsis.
func (s commandSpec) Usage() string {
	if s.Args == "" {
		return s.Name
	}
	return s.Name + " " + s.Args
}

var knownCommands = []commandSpec{
	{Name: "PING", Args: "[message]"},
	{Name: "ECHO", Args: "message"},
	{Name: "GET", Args: "key"},
	{Name: "SET", Args: "key value [EX seconds|PX milliseconds] [NX|XX]"},
	{Name: "DEL", Args: "key [key ...]"},
	{Name: "EXISTS", Args: "key [key ...]"},
	{Name: "EXPIRE", Args: "key seconds"},
	{Name: "PEXPIRE", Args: "key milliseconds"},
	{Name: "TTL", Args: "key"},
	{Name: "PTTL", Args: "key"},
	{Name: "PERSIST", Args: "key"},
	{Name: "KEYS", Args: "pattern"},
	{Name: "SCAN", Args: "cursor [MATCH pattern] [COUNT count]"},
	{Name: "TYPE", Args: "key"},
	{Name: "INFO", Args: "[section]"},
	{Name: "DBSIZE"},
	{Name: "HELP", Args: "[prefix]"},
	{Name: "HISTORY"},
	{Name: "EXIT"},
	{Name: "QUIT"},
}

// Completer looks up known commands by case-insensitive prefix.
type Completer struct {
	specs []commandSpec
}

// NewCompleter returns a Completer over the built-in table, sorted by name.
func NewCompleter() *Completer {
	specs := make([]commandSpec, len(knownCommands))
	copy(specs, knownCommands)
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return &Completer{specs: specs}
}

// Complete returns the names starting with prefix.
func (c *Completer) Complete(prefix string) []string {
	var out []string
	for _, s := range c.match(prefix) {
		out = append(out, s.Name)
	}
	return out
}

// Usage returns the synopsis lines for the names starting with prefix.
func (c *Completer) Usage(prefix string) []string {
	var out []string
	for _, s := range c.match(prefix) {
		out = append(out, s.Usage())
	}
	return out
}

func (c *Completer) match(prefix string) []commandSpec {
	prefix = strings.ToUpper(prefix)
	var out []commandSpec
	for _, s := range c.specs {
		if strings.HasPrefix(s.Name, prefix) {
			out = append(out, s)
		}
	}
	return out
}

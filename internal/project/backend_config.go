package project

import "strings"

// BackendConfig is the newline delimited name=value text attached to a project
// widget. Lines keep their original order and spelling so that untouched text
// serializes back byte for byte.
type BackendConfig struct {
	entries         []ConfigEntry
	trailingNewline bool
}

type ConfigEntry struct {
	Name  string
	Value string
	// bare lines have no '=' separator
	bare bool
}

func ParseBackendConfig(text string) *BackendConfig {
	c := &BackendConfig{}
	if text == "" {
		return c
	}

	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		c.trailingNewline = true
		lines = lines[:len(lines)-1]
	}

	for _, line := range lines {
		name, value, found := strings.Cut(line, "=")
		c.entries = append(c.entries, ConfigEntry{Name: name, Value: value, bare: !found})
	}
	return c
}

func (c *BackendConfig) String() string {
	var sb strings.Builder
	for i, e := range c.entries {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(e.Name)
		if !e.bare {
			sb.WriteByte('=')
			sb.WriteString(e.Value)
		}
	}
	if c.trailingNewline && len(c.entries) > 0 {
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (c *BackendConfig) Entries() []ConfigEntry {
	out := make([]ConfigEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *BackendConfig) Get(name string) (string, bool) {
	for _, e := range c.entries {
		if e.Name == name && !e.bare {
			return e.Value, true
		}
	}
	return "", false
}

// Set patches the first entry named name, or appends a new one.
func (c *BackendConfig) Set(name, value string) {
	for i, e := range c.entries {
		if e.Name == name {
			c.entries[i].Value = value
			c.entries[i].bare = false
			return
		}
	}
	if len(c.entries) == 0 {
		c.trailingNewline = true
	}
	c.entries = append(c.entries, ConfigEntry{Name: name, Value: value})
}

func (c *BackendConfig) Del(name string) {
	kept := c.entries[:0]
	for _, e := range c.entries {
		if e.Name != name {
			kept = append(kept, e)
		}
	}
	c.entries = kept
}

func (c *BackendConfig) Len() int {
	return len(c.entries)
}

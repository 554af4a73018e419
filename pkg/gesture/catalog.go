// Package gesture holds the performance script: which intents are scripted,
// the gestures each one triggers, and the act each belongs to.
//
// A Catalog is built once at startup and never mutated. Intents that are not
// in the catalog are handled by the fallback responder.
package gesture

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed script.yaml
var defaultScript []byte

// Entry is one scripted intent.
type Entry struct {
	Intent   string
	Gestures []string
	Act      string
}

// Catalog is an immutable, ordered intent to gesture table.
type Catalog struct {
	entries  []Entry
	index    map[string]int
	terminal string
}

// scriptFile is the on-disk YAML shape.
type scriptFile struct {
	TerminalIntent string `yaml:"terminal_intent"`
	Acts           []struct {
		Name    string `yaml:"name"`
		Intents []struct {
			Intent   string   `yaml:"intent"`
			Gestures []string `yaml:"gestures"`
		} `yaml:"intents"`
	} `yaml:"acts"`
}

// New builds a catalog from entries in order. terminal names the intent that
// ends the performance and must be one of the entries.
func New(entries []Entry, terminal string) (*Catalog, error) {
	c := &Catalog{
		entries:  make([]Entry, 0, len(entries)),
		index:    make(map[string]int, len(entries)),
		terminal: terminal,
	}
	for i, e := range entries {
		name := strings.TrimSpace(e.Intent)
		if name == "" {
			return nil, fmt.Errorf("entry %d: %w", i, ErrEmptyIntent)
		}
		if _, dup := c.index[name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateIntent, name)
		}
		gestures := make([]string, len(e.Gestures))
		for j, g := range e.Gestures {
			g = strings.TrimSpace(g)
			if g == "" {
				return nil, fmt.Errorf("intent %s gesture %d: %w", name, j, ErrEmptyGesture)
			}
			gestures[j] = g
		}
		c.index[name] = len(c.entries)
		c.entries = append(c.entries, Entry{Intent: name, Gestures: gestures, Act: e.Act})
	}
	if _, ok := c.index[terminal]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrTerminalMissing, terminal)
	}
	return c, nil
}

// Load parses a YAML script. Unknown fields are rejected.
func Load(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f scriptFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("gesture script is empty")
		}
		return nil, fmt.Errorf("decode gesture script: %w", err)
	}

	var entries []Entry
	for _, act := range f.Acts {
		for _, in := range act.Intents {
			entries = append(entries, Entry{Intent: in.Intent, Gestures: in.Gestures, Act: act.Name})
		}
	}
	return New(entries, f.TerminalIntent)
}

// LoadFile parses the YAML script at path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gesture script: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the built-in performance script.
func Default() *Catalog {
	c, err := Load(bytes.NewReader(defaultScript))
	if err != nil {
		panic(fmt.Sprintf("gesture: embedded script invalid: %v", err))
	}
	return c
}

// Lookup returns the gestures for intent in script order. Unknown intents
// yield an empty slice. The result is a copy.
func (c *Catalog) Lookup(intent string) []string {
	i, ok := c.index[intent]
	if !ok {
		return []string{}
	}
	return append([]string{}, c.entries[i].Gestures...)
}

// Contains reports whether intent is scripted.
func (c *Catalog) Contains(intent string) bool {
	_, ok := c.index[intent]
	return ok
}

// Act returns the act label of a scripted intent.
func (c *Catalog) Act(intent string) (string, bool) {
	i, ok := c.index[intent]
	if !ok {
		return "", false
	}
	return c.entries[i].Act, true
}

// Terminal returns the intent that ends the performance.
func (c *Catalog) Terminal() string { return c.terminal }

// IsTerminal reports whether intent ends the performance.
func (c *Catalog) IsTerminal(intent string) bool { return intent == c.terminal }

// Len returns the number of scripted intents.
func (c *Catalog) Len() int { return len(c.entries) }

// Entries returns a copy of every entry in script order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	for i, e := range c.entries {
		e.Gestures = append([]string(nil), e.Gestures...)
		out[i] = e
	}
	return out
}

// Resolver reports whether a gesture identifier can be performed.
type Resolver interface {
	CanPerform(gesture string) bool
}

// Unresolved describes a scripted gesture the actuator cannot perform.
type Unresolved struct {
	Intent  string
	Gesture string
}

// Validate lists every scripted gesture r cannot resolve, in script order.
func (c *Catalog) Validate(r Resolver) []Unresolved {
	var out []Unresolved
	for _, e := range c.entries {
		for _, g := range e.Gestures {
			if !r.CanPerform(g) {
				out = append(out, Unresolved{Intent: e.Intent, Gesture: g})
			}
		}
	}
	return out
}

package gesture

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultScript(t *testing.T) {
	c := Default()

	assert.Equal(t, 27, c.Len())
	assert.Equal(t, "final_ending", c.Terminal())
	assert.True(t, c.IsTerminal("final_ending"))

	assert.Equal(t, []string{
		"animations/Stand/Gestures/Hey_1",
		"animations/Stand/Gestures/Enthusiastic_4",
	}, c.Lookup("welcome_intent"))
	assert.Equal(t, []string{"almost_swingbat_motion"}, c.Lookup("practice_show"))
	assert.Equal(t, []string{
		"animations/Stand/Gestures/Explain_1",
		"animations/Stand/Gestures/Yes_1",
		"animations/Stand/Gestures/No_3",
	}, c.Lookup("final_ending"))

	act, ok := c.Act("your_turn")
	require.True(t, ok)
	assert.Equal(t, "DOUBT", act)

	act, ok = c.Act("welcome_intent")
	require.True(t, ok)
	assert.Equal(t, "INTRODUCTION", act)
}

func TestLookupUnknownIsEmpty(t *testing.T) {
	c := Default()
	got := c.Lookup("order_pizza")
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.False(t, c.Contains("order_pizza"))
	assert.False(t, c.Contains(""))

	_, ok := c.Act("order_pizza")
	assert.False(t, ok)
}

func TestLookupReturnsCopy(t *testing.T) {
	c := Default()
	got := c.Lookup("welcome_intent")
	got[0] = "mutated"
	assert.Equal(t, "animations/Stand/Gestures/Hey_1", c.Lookup("welcome_intent")[0])

	entries := c.Entries()
	entries[0].Gestures[0] = "mutated"
	assert.Equal(t, "animations/Stand/Gestures/Hey_1", c.Lookup("welcome_intent")[0])
}

func TestEntriesKeepScriptOrder(t *testing.T) {
	entries := Default().Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, "welcome_intent", entries[0].Intent)
	assert.Equal(t, "final_ending", entries[len(entries)-1].Intent)
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New([]Entry{
		{Intent: "a", Gestures: []string{"x"}},
		{Intent: "a", Gestures: []string{"y"}},
	}, "a")
	assert.ErrorIs(t, err, ErrDuplicateIntent)
}

func TestNewRejectsBadEntries(t *testing.T) {
	_, err := New([]Entry{{Intent: " "}}, "a")
	assert.ErrorIs(t, err, ErrEmptyIntent)

	_, err = New([]Entry{{Intent: "a", Gestures: []string{""}}}, "a")
	assert.ErrorIs(t, err, ErrEmptyGesture)

	_, err = New([]Entry{{Intent: "a"}}, "b")
	assert.ErrorIs(t, err, ErrTerminalMissing)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader(`
terminal_intent: bye
acts:
  - name: ONE
    intents:
      - intent: bye
        gesturez: [x]
`))
	assert.Error(t, err)
}

func TestLoadEmpty(t *testing.T) {
	_, err := Load(strings.NewReader(""))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
terminal_intent: bye
acts:
  - name: ONLY
    intents:
      - intent: hi
        gestures: [animations/wave, animations/nod]
      - intent: bye
        gestures: []
`), 0o644))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"animations/wave", "animations/nod"}, c.Lookup("hi"))
	assert.Empty(t, c.Lookup("bye"))
	assert.True(t, c.Contains("bye"))
}

type prefixResolver string

func (p prefixResolver) CanPerform(g string) bool { return strings.HasPrefix(g, string(p)) }

func TestValidate(t *testing.T) {
	missing := Default().Validate(prefixResolver("animations/"))

	var names []string
	for _, u := range missing {
		names = append(names, u.Gesture)
	}
	assert.Equal(t, []string{
		"almost_swingbat_motion",
		"almost_swingbat_motion",
		"good_swingbat_motion",
		"v1_pre_last_dance_motion",
		"final_acceptance_dance_motion",
		"high_five_motion",
	}, names)
	assert.Equal(t, "confident_nao", missing[0].Intent)
}

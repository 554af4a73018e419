package intent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/teslashibe/go-theater/pkg/audioio"
)

// Utterance is one thing the audience said, as text or as raw audio.
type Utterance struct {
	Text       string
	Audio      []byte // PCM16 little-endian mono
	SampleRate int
}

// Empty reports whether the utterance carries nothing to classify.
func (u Utterance) Empty() bool {
	return strings.TrimSpace(u.Text) == "" && len(u.Audio) == 0
}

// Listener captures the next utterance.
type Listener interface {
	Listen(ctx context.Context) (Utterance, error)
}

// maxConsoleLine bounds one typed or pasted line.
const maxConsoleLine = 1 << 20

// ConsoleListener reads one utterance per line of text. It is used for
// rehearsals where an operator types what the actors say.
type ConsoleListener struct {
	prompt string
	out    io.Writer

	once  sync.Once
	in    io.Reader
	lines chan string
	err   error
}

// NewConsoleListener reads from in and, if out is non-nil, writes prompt
// before each line.
func NewConsoleListener(in io.Reader, out io.Writer, prompt string) *ConsoleListener {
	return &ConsoleListener{in: in, out: out, prompt: prompt}
}

func (c *ConsoleListener) start() {
	c.lines = make(chan string)
	go func() {
		defer close(c.lines)
		sc := bufio.NewScanner(c.in)
		sc.Buffer(make([]byte, 0, 64*1024), maxConsoleLine)
		for sc.Scan() {
			c.lines <- sc.Text()
		}
		c.err = sc.Err()
	}()
}

// Listen blocks for the next line. It returns io.EOF when input ends, and an
// error wrapping io.EOF when reading fails: the console cannot recover.
func (c *ConsoleListener) Listen(ctx context.Context) (Utterance, error) {
	c.once.Do(c.start)
	if c.out != nil && c.prompt != "" {
		fmt.Fprint(c.out, c.prompt)
	}
	select {
	case <-ctx.Done():
		return Utterance{}, ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			if c.err != nil {
				return Utterance{}, fmt.Errorf("console input: %w: %w", c.err, io.EOF)
			}
			return Utterance{}, io.EOF
		}
		return Utterance{Text: strings.TrimSpace(line)}, nil
	}
}

// AudioListener captures utterances from a microphone stream.
type AudioListener struct {
	ep *audioio.Endpointer
}

// NewAudioListener segments src with cfg.
func NewAudioListener(src audioio.Source, cfg audioio.EndpointConfig) *AudioListener {
	return &AudioListener{ep: audioio.NewEndpointer(src, cfg)}
}

// Listen returns the next utterance. Silence yields an empty utterance.
func (a *AudioListener) Listen(ctx context.Context) (Utterance, error) {
	chunk, err := a.ep.Next(ctx)
	if err != nil {
		return Utterance{}, fmt.Errorf("capture utterance: %w", err)
	}
	if len(chunk.Samples) == 0 {
		return Utterance{SampleRate: chunk.SampleRate}, nil
	}
	return Utterance{Audio: chunk.Bytes(), SampleRate: chunk.SampleRate}, nil
}

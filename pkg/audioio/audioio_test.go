package audioio

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockConfig() Config {
	cfg := DefaultConfig()
	cfg.Backend = BackendMock
	return cfg
}

func TestAudioChunk_BytesRoundTrip(t *testing.T) {
	c := AudioChunk{Samples: []int16{0, 1, -1, 32767, -32768}, SampleRate: 16000, Channels: 1}
	data := c.Bytes()
	require.Len(t, data, 10)
	assert.Equal(t, []byte{0x01, 0x00}, data[2:4])
	assert.Equal(t, []byte{0xff, 0xff}, data[4:6])

	var back AudioChunk
	back.FromBytes(data, 16000, 1)
	assert.Equal(t, c.Samples, back.Samples)
}

func TestAudioChunk_Duration(t *testing.T) {
	c := Silence(500*time.Millisecond, 16000)
	assert.Len(t, c.Samples, 8000)
	assert.Equal(t, 500*time.Millisecond, c.Duration())

	stereo := AudioChunk{Samples: make([]int16, 32000), SampleRate: 16000, Channels: 2}
	assert.Equal(t, time.Second, stereo.Duration())

	assert.Zero(t, (&AudioChunk{}).Duration())
}

func TestRMS(t *testing.T) {
	assert.Zero(t, RMS(nil))
	assert.InDelta(t, 1000.0, RMS([]int16{1000, -1000, 1000, -1000}), 1e-9)

	tone := Tone(100*time.Millisecond, 16000, 440, 0.5)
	assert.InDelta(t, 0.5*32767/1.41421356, tone.RMS(), 200)
}

func TestResample(t *testing.T) {
	in := []int16{0, 100, 200, 300}
	assert.Equal(t, in, Resample(in, 16000, 16000))
	assert.Len(t, Resample(in, 16000, 8000), 2)
	assert.Len(t, Resample(in, 8000, 16000), 8)
	assert.Empty(t, Resample(nil, 8000, 16000))
}

func TestStereoToMono(t *testing.T) {
	assert.Equal(t, []int16{150, -50}, StereoToMono([]int16{100, 200, -100, 0}))
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate(), "websocket backend needs a url")

	cfg.URL = "ws://robot/ws/audio"
	assert.NoError(t, cfg.Validate())

	cfg.Channels = 3
	cfg.SampleRate = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channels")
	assert.Contains(t, err.Error(), "sample_rate")
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(mockConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, "mock", src.Name())

	cfg := mockConfig()
	cfg.Backend = "alsa"
	_, err = NewSource(cfg, nil)
	assert.Error(t, err)
}

func TestMockSource_Script(t *testing.T) {
	a := Silence(20*time.Millisecond, 16000)
	b := Tone(20*time.Millisecond, 16000, 300, 0.3)
	src := NewMockSource(mockConfig(), nil, WithChunks(a, b))

	ctx := context.Background()
	_, err := src.Read(ctx)
	assert.ErrorIs(t, err, io.EOF, "not started")

	require.NoError(t, src.Start(ctx))
	got, err := src.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, a, got)
	got, err = src.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, b, got)
	_, err = src.Read(ctx)
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, src.Close())
	assert.ErrorIs(t, src.Start(ctx), io.ErrClosedPipe)
}

func chunks(n int, c AudioChunk) []AudioChunk {
	out := make([]AudioChunk, n)
	for i := range out {
		out[i] = c
	}
	return out
}

func TestEndpointer_Utterance(t *testing.T) {
	quiet := Silence(100*time.Millisecond, 16000)
	loud := Tone(100*time.Millisecond, 16000, 300, 0.5)

	var script []AudioChunk
	script = append(script, chunks(3, quiet)...)
	script = append(script, chunks(5, loud)...)
	script = append(script, chunks(10, quiet)...)

	src := NewMockSource(mockConfig(), nil, WithChunks(script...))
	require.NoError(t, src.Start(context.Background()))

	ep := NewEndpointer(src, EndpointConfig{
		Threshold:    500,
		EndSilence:   300 * time.Millisecond,
		MaxUtterance: 10 * time.Second,
		StartTimeout: 5 * time.Second,
	})

	utt, err := ep.Next(context.Background())
	require.NoError(t, err)
	// Five loud chunks plus three quiet ones before the gate closes.
	assert.Equal(t, 800*time.Millisecond, utt.Duration())
}

func TestEndpointer_StartTimeout(t *testing.T) {
	quiet := Silence(100*time.Millisecond, 16000)
	src := NewMockSource(mockConfig(), nil, WithChunks(chunks(20, quiet)...))
	require.NoError(t, src.Start(context.Background()))

	ep := NewEndpointer(src, EndpointConfig{Threshold: 500, EndSilence: time.Second, StartTimeout: 500 * time.Millisecond})
	utt, err := ep.Next(context.Background())
	require.NoError(t, err)
	assert.Empty(t, utt.Samples)
}

func TestEndpointer_MaxUtterance(t *testing.T) {
	loud := Tone(100*time.Millisecond, 16000, 300, 0.5)
	src := NewMockSource(mockConfig(), nil, WithChunks(chunks(50, loud)...))
	require.NoError(t, src.Start(context.Background()))

	ep := NewEndpointer(src, EndpointConfig{Threshold: 500, EndSilence: time.Second, MaxUtterance: time.Second})
	utt, err := ep.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Second, utt.Duration())
}

func TestEndpointer_EOF(t *testing.T) {
	src := NewMockSource(mockConfig(), nil, WithChunks(Silence(100*time.Millisecond, 16000)))
	require.NoError(t, src.Start(context.Background()))

	_, err := NewEndpointer(src, DefaultEndpointConfig()).Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestWebSocketSource(t *testing.T) {
	upgrader := websocket.Upgrader{}
	frame := Tone(20*time.Millisecond, 16000, 300, 0.5)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"hello":"ignored"}`))
		_ = conn.WriteMessage(websocket.BinaryMessage, frame.Bytes())
		_ = conn.WriteMessage(websocket.BinaryMessage, frame.Bytes())
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.URL = "ws" + strings.TrimPrefix(srv.URL, "http")

	src, err := NewSource(cfg, nil)
	require.NoError(t, err)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, src.Start(ctx))

	for i := 0; i < 2; i++ {
		c, err := src.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, frame.Samples, c.Samples)
		assert.Equal(t, 16000, c.SampleRate)
	}
	_, err = src.Read(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestWebSocketSource_Resamples(t *testing.T) {
	s := NewWebSocketSource(Config{SampleRate: 16000, InputRate: 32000, Channels: 2, BufferDuration: 20 * time.Millisecond}, nil)
	c := s.decode(SamplesToBytes(make([]int16, 1280)))
	assert.Len(t, c.Samples, 320)
	assert.Equal(t, 1, c.Channels)
}

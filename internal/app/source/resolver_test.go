package source

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/versesync/internal/domain/media"
	"github.com/osa030/versesync/internal/infra/config"
)

// fakeLoader answers loads from a table of per-source outcomes.
// Sources missing from the table never answer.
type fakeLoader struct {
	mu        sync.Mutex
	listeners map[int]func(media.Signal)
	nextID    int
	src       string
	loaded    []string
	answers   map[string]media.SignalType
	durations map[string]float64
	stampAs   string // when set, signals carry this source instead
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		listeners: make(map[int]func(media.Signal)),
		answers:   make(map[string]media.SignalType),
		durations: make(map[string]float64),
	}
}

func (f *fakeLoader) SetSource(src string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.src = src
}

func (f *fakeLoader) Load() {
	f.mu.Lock()
	src := f.src
	f.loaded = append(f.loaded, src)
	answer, ok := f.answers[src]
	stamp := src
	if f.stampAs != "" {
		stamp = f.stampAs
	}
	fns := make([]func(media.Signal), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	if !ok {
		return
	}
	emit := func(t media.SignalType) {
		for _, fn := range fns {
			fn(media.Signal{Type: t, Source: stamp})
		}
	}
	if answer == media.SignalCanPlay {
		emit(media.SignalLoadedMetadata)
	}
	emit(answer)
}

func (f *fakeLoader) Subscribe(fn func(media.Signal)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
	}
}

func (f *fakeLoader) Duration() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.durations[f.src]; ok {
		return d
	}
	return math.NaN()
}

func (f *fakeLoader) SetDuration(sec float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.durations[f.src] = sec
}

func (f *fakeLoader) loads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.loaded...)
}

func (f *fakeLoader) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

type fakeMeta map[int]struct {
	url      string
	duration float64
}

func (m fakeMeta) AudioMeta(collection int) (string, float64, bool) {
	e, ok := m[collection]
	return e.url, e.duration, ok
}

const remoteURL = "https://cdn.example.com/1.mp3"

func newTestResolver(t *testing.T, loader *fakeLoader, meta Metadata) *Resolver {
	t.Helper()
	local, err := NewLocalLocator(nil)
	require.NoError(t, err)
	return NewResolver(loader, meta, []Locator{local, NewRemoteLocator(meta)}, 20*time.Millisecond)
}

func TestResolve_LocalReady(t *testing.T) {
	loader := newFakeLoader()
	loader.answers["/audio/1.mp3"] = media.SignalCanPlay
	loader.durations["/audio/1.mp3"] = 12.5
	meta := fakeMeta{1: {url: remoteURL, duration: 99}}

	result := newTestResolver(t, loader, meta).Resolve(context.Background(), 1)

	assert.Equal(t, Result{Ready: true, Source: "/audio/1.mp3", DurationSec: 12.5}, result)
	assert.Equal(t, []string{"/audio/1.mp3"}, loader.loads())
	assert.Zero(t, loader.listenerCount(), "the wait listener is removed")
}

func TestResolve_MetadataDurationWhenStreamUnknown(t *testing.T) {
	loader := newFakeLoader()
	loader.answers["/audio/1.mp3"] = media.SignalCanPlay
	meta := fakeMeta{1: {url: remoteURL, duration: 42}}

	result := newTestResolver(t, loader, meta).Resolve(context.Background(), 1)

	assert.True(t, result.Ready)
	assert.Equal(t, 42.0, result.DurationSec)
	assert.Equal(t, 42.0, loader.Duration(), "the stream learns the metadata duration")
}

func TestResolve_Fallback(t *testing.T) {
	tests := []struct {
		name      string
		answers   map[string]media.SignalType
		meta      fakeMeta
		wantReady bool
		wantSrc   string
		wantLoads []string
	}{
		{
			name:      "primary timeout falls back to remote",
			answers:   map[string]media.SignalType{remoteURL: media.SignalCanPlay},
			meta:      fakeMeta{1: {url: remoteURL}},
			wantReady: true,
			wantSrc:   remoteURL,
			wantLoads: []string{"/audio/1.mp3", remoteURL},
		},
		{
			name: "primary error falls back to remote",
			answers: map[string]media.SignalType{
				"/audio/1.mp3": media.SignalError,
				remoteURL:      media.SignalCanPlay,
			},
			meta:      fakeMeta{1: {url: remoteURL}},
			wantReady: true,
			wantSrc:   remoteURL,
			wantLoads: []string{"/audio/1.mp3", remoteURL},
		},
		{
			name:      "primary timeout without remote url",
			answers:   map[string]media.SignalType{},
			meta:      fakeMeta{1: {url: ""}},
			wantReady: false,
			wantLoads: []string{"/audio/1.mp3"},
		},
		{
			name:      "no metadata at all",
			answers:   map[string]media.SignalType{"/audio/1.mp3": media.SignalError},
			meta:      fakeMeta{},
			wantReady: false,
			wantLoads: []string{"/audio/1.mp3"},
		},
		{
			name: "both fail",
			answers: map[string]media.SignalType{
				"/audio/1.mp3": media.SignalError,
				remoteURL:      media.SignalError,
			},
			meta:      fakeMeta{1: {url: remoteURL}},
			wantReady: false,
			wantLoads: []string{"/audio/1.mp3", remoteURL},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := newFakeLoader()
			loader.answers = tt.answers

			result := newTestResolver(t, loader, tt.meta).Resolve(context.Background(), 1)

			assert.Equal(t, tt.wantReady, result.Ready)
			assert.Equal(t, tt.wantSrc, result.Source)
			assert.Equal(t, tt.wantLoads, loader.loads())
		})
	}
}

func TestResolve_IgnoresSignalsForOtherSources(t *testing.T) {
	loader := newFakeLoader()
	loader.answers["/audio/1.mp3"] = media.SignalCanPlay
	loader.stampAs = "/audio/2.mp3"

	result := newTestResolver(t, loader, fakeMeta{}).Resolve(context.Background(), 1)

	assert.False(t, result.Ready)
}

func TestResolve_ContextCanceled(t *testing.T) {
	loader := newFakeLoader()
	meta := fakeMeta{1: {url: remoteURL}}
	loader.answers[remoteURL] = media.SignalCanPlay

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	local, err := NewLocalLocator(nil)
	require.NoError(t, err)
	r := NewResolver(loader, meta, []Locator{local, NewRemoteLocator(meta)}, time.Minute)

	result := r.Resolve(ctx, 1)

	assert.False(t, result.Ready)
	assert.Equal(t, []string{"/audio/1.mp3"}, loader.loads(), "remote is not tried after cancellation")
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "ok", OutcomeOK.String())
	assert.Equal(t, "error", OutcomeError.String())
	assert.Equal(t, "timeout", OutcomeTimeout.String())
	assert.Equal(t, "unknown", Outcome(9).String())
}

func TestLocalLocator(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		want     string
		wantErr  bool
	}{
		{name: "default template", settings: nil, want: "/audio/7.mp3"},
		{name: "custom template", settings: map[string]any{"path_template": "/r/{collection}/full.wav"}, want: "/r/7/full.wav"},
		{name: "template without placeholder", settings: map[string]any{"path_template": "/r/full.wav"}, wantErr: true},
		{name: "wrong type", settings: map[string]any{"path_template": 3}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLocalLocator(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			src, ok := l.Locate(7)
			assert.True(t, ok)
			assert.Equal(t, tt.want, src)
			assert.Equal(t, "local", l.Name())
		})
	}
}

func TestRemoteLocator(t *testing.T) {
	meta := fakeMeta{1: {url: remoteURL}, 2: {url: ""}}
	l := NewRemoteLocator(meta)

	src, ok := l.Locate(1)
	assert.True(t, ok)
	assert.Equal(t, remoteURL, src)

	_, ok = l.Locate(2)
	assert.False(t, ok)
	_, ok = l.Locate(3)
	assert.False(t, ok)
	_, ok = NewRemoteLocator(nil).Locate(1)
	assert.False(t, ok)
}

func TestNewResolverFromConfig(t *testing.T) {
	t.Run("configured order", func(t *testing.T) {
		cfg := config.AudioConfig{
			ResolveTimeoutMs: 100,
			Sources: []config.SourceConfig{
				{Type: "remote"},
				{Type: "local", Settings: map[string]any{"path_template": "/a/{collection}.wav"}},
			},
		}
		r, err := NewResolverFromConfig(cfg, newFakeLoader(), fakeMeta{})
		require.NoError(t, err)
		require.Len(t, r.locators, 2)
		assert.Equal(t, "remote", r.locators[0].Name())
		assert.Equal(t, "local", r.locators[1].Name())
		assert.Equal(t, 100*time.Millisecond, r.timeout)
	})

	t.Run("defaults", func(t *testing.T) {
		r, err := NewResolverFromConfig(config.AudioConfig{}, newFakeLoader(), fakeMeta{})
		require.NoError(t, err)
		require.Len(t, r.locators, 2)
		assert.Equal(t, "local", r.locators[0].Name())
		assert.Equal(t, DefaultTimeout, r.timeout)
	})

	t.Run("unsupported type", func(t *testing.T) {
		cfg := config.AudioConfig{Sources: []config.SourceConfig{{Type: "ftp"}}}
		_, err := NewResolverFromConfig(cfg, newFakeLoader(), fakeMeta{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported locator type")
	})

	t.Run("invalid settings", func(t *testing.T) {
		cfg := config.AudioConfig{Sources: []config.SourceConfig{{Type: "local", Settings: map[string]any{"path_template": "/x.mp3"}}}}
		_, err := NewResolverFromConfig(cfg, newFakeLoader(), fakeMeta{})
		assert.Error(t, err)
	})
}

package dma

import (
	"errors"
	"sync"
	"testing"
	"time"

	"magpie/audio"
	"magpie/core"
)

// mockDMA records calls in order.
type mockDMA struct {
	mu        sync.Mutex
	free      int
	next      core.DMAChannelID
	log       []string
	reload    map[core.DMAChannelID][]byte
	callbacks map[core.DMAChannelID]func()
	released  int
}

func newMockDMA(free int) *mockDMA {
	return &mockDMA{
		free:      free,
		reload:    make(map[core.DMAChannelID][]byte),
		callbacks: make(map[core.DMAChannelID]func()),
	}
}

func (m *mockDMA) record(s string) {
	m.mu.Lock()
	m.log = append(m.log, s)
	m.mu.Unlock()
}

func (m *mockDMA) AcquireChannel() (core.DMAChannelID, error) {
	if m.free == 0 {
		return 0, errors.New("no free channel")
	}
	m.free--
	id := m.next
	m.next++
	return id, nil
}

func (m *mockDMA) ReleaseChannel(id core.DMAChannelID) {
	m.free++
	m.released++
}

func (m *mockDMA) ConfigureChannel(id core.DMAChannelID, cfg core.DMAConfig, onComplete func()) error {
	m.callbacks[id] = onComplete
	return nil
}

func (m *mockDMA) SetReload(id core.DMAChannelID, dest []byte) {
	m.reload[id] = dest
}

func (m *mockDMA) EnableChannel(id core.DMAChannelID) error {
	m.record("dma" + core.Itoa(int(id)) + " on")
	return nil
}

func (m *mockDMA) DisableChannel(id core.DMAChannelID) error {
	m.record("dma" + core.Itoa(int(id)) + " off")
	return nil
}

// mockPorts shares the call log with mockDMA.
type mockPorts struct {
	dma *mockDMA
}

func (p *mockPorts) ConfigurePort(port core.DataPortID, cfg core.DataPortConfig) error {
	return nil
}

func (p *mockPorts) EnablePort(port core.DataPortID) error {
	p.dma.record("port" + core.Itoa(int(port)) + " on")
	return nil
}

func (p *mockPorts) DisablePort(port core.DataPortID) error {
	p.dma.record("port" + core.Itoa(int(port)) + " off")
	return nil
}

// mockGPIO toggles the chip-select monitor on every read, or holds it.
type mockGPIO struct {
	stuck bool
	level bool
	reads int
}

func (g *mockGPIO) ConfigureOutput(pin core.GPIOPin) error    { return nil }
func (g *mockGPIO) ConfigureInput(pin core.GPIOPin) error     { return nil }
func (g *mockGPIO) SetPin(pin core.GPIOPin, value bool) error { return nil }
func (g *mockGPIO) ReadPin(pin core.GPIOPin) bool {
	g.reads++
	if !g.stuck {
		g.level = !g.level
	}
	return g.level
}

func newTestEngine(t *testing.T, free int, gpio *mockGPIO) (*Engine, *mockDMA) {
	t.Helper()
	d := newMockDMA(free)
	e, err := NewEngine(d, &mockPorts{dma: d}, gpio, Config{
		ChunkSamples: 64,
		Ports:        [2]core.DataPortID{0, 1},
		SyncTimeout:  5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e, d
}

func TestConfigureNoFreeChannel(t *testing.T) {
	e, d := newTestEngine(t, 1, &mockGPIO{})

	err := e.Configure()
	if !errors.Is(err, core.ErrDMA) {
		t.Fatalf("Configure with one free channel: got %v, want ErrDMA", err)
	}
	if d.released != 1 {
		t.Errorf("released %d channels, want 1", d.released)
	}
	if e.State(audio.Channel0) != Uninitialized {
		t.Errorf("channel 0 state = %v, want uninitialized", e.State(audio.Channel0))
	}
}

func TestConfigureProgramsReload(t *testing.T) {
	e, d := newTestEngine(t, 2, &mockGPIO{})
	if err := e.Configure(); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	for ch := audio.Channel0; ch <= audio.Channel1; ch++ {
		if e.State(ch) != Configured {
			t.Errorf("channel %d state = %v, want configured", ch, e.State(ch))
		}
		r := e.ch[ch].ring
		if &d.reload[e.ch[ch].dma][0] != &r.Chunk(1)[0] {
			t.Errorf("channel %d reload is not chunk 1", ch)
		}
	}
	if len(d.log) != 0 {
		t.Errorf("Configure enabled hardware: %v", d.log)
	}
}

func TestStartOrderAndStagger(t *testing.T) {
	gpio := &mockGPIO{}
	e, d := newTestEngine(t, 2, gpio)
	e.Configure()

	if err := e.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	want := []string{"port0 on", "dma0 on", "port1 on", "dma1 on"}
	if len(d.log) != len(want) {
		t.Fatalf("log = %v, want %v", d.log, want)
	}
	for i := range want {
		if d.log[i] != want[i] {
			t.Errorf("step %d = %q, want %q", i, d.log[i], want[i])
		}
	}

	// One edge to align plus the stagger, two reads per edge at least.
	if minReads := 2 * (1 + DefaultStaggerEdges); gpio.reads < minReads {
		t.Errorf("only %d pin reads, want at least %d", gpio.reads, minReads)
	}
	for ch := audio.Channel0; ch <= audio.Channel1; ch++ {
		if e.State(ch) != Running {
			t.Errorf("channel %d state = %v, want running", ch, e.State(ch))
		}
	}
}

func TestStartSyncTimeout(t *testing.T) {
	e, d := newTestEngine(t, 2, &mockGPIO{stuck: true})
	e.Configure()

	start := time.Now()
	err := e.Start()
	if !errors.Is(err, core.ErrSyncTimeout) {
		t.Fatalf("Start with stuck pin: got %v, want ErrSyncTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
	if len(d.log) != 0 {
		t.Errorf("hardware enabled despite failed sync: %v", d.log)
	}
}

func TestStopOrder(t *testing.T) {
	e, d := newTestEngine(t, 2, &mockGPIO{})
	e.Configure()
	e.Start()
	d.log = nil

	if err := e.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	want := []string{"dma0 off", "port0 off", "dma1 off", "port1 off"}
	for i := range want {
		if i >= len(d.log) || d.log[i] != want[i] {
			t.Fatalf("log = %v, want %v", d.log, want)
		}
	}
	if e.State(audio.Channel1) != Stopped {
		t.Errorf("state = %v, want stopped", e.State(audio.Channel1))
	}

	// A stopped engine restarts from chunk 0.
	e.OnChunkComplete(audio.Channel0)
	if err := e.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if e.NumAvailable(audio.Channel0) != 0 {
		t.Errorf("restart kept %d stale chunks", e.NumAvailable(audio.Channel0))
	}
}

func TestInterruptBookkeeping(t *testing.T) {
	e, d := newTestEngine(t, 2, &mockGPIO{})
	e.Configure()
	e.Start()

	id := e.ch[audio.Channel1].dma
	d.callbacks[id]()
	if got := e.NumAvailable(audio.Channel1); got != 1 {
		t.Fatalf("NumAvailable = %d, want 1", got)
	}
	if e.NumAvailable(audio.Channel0) != 0 {
		t.Errorf("channel 0 counted channel 1's interrupt")
	}
	if &d.reload[id][0] != &e.ch[audio.Channel1].ring.Chunk(2)[0] {
		t.Errorf("reload after first completion is not chunk 2")
	}

	buf, err := e.ConsumeBuffer(audio.Channel1)
	if err != nil {
		t.Fatalf("ConsumeBuffer: %v", err)
	}
	if len(buf) != 64*BytesPerSample {
		t.Errorf("chunk length = %d, want %d", len(buf), 64*BytesPerSample)
	}

	for i := 0; i < 5; i++ {
		d.callbacks[id]()
	}
	if !e.OverrunOccurred(audio.Channel1) {
		t.Errorf("five unconsumed chunks in a ring of four did not flag overrun")
	}
	if e.OverrunOccurred(audio.Channel0) {
		t.Errorf("overrun leaked to channel 0")
	}
	e.ClearOverrun(audio.Channel1)
	if e.OverrunOccurred(audio.Channel1) {
		t.Errorf("ClearOverrun did not clear")
	}
}

func TestChunkPeriod(t *testing.T) {
	e, err := NewEngine(newMockDMA(2), nil, nil, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if got := e.ChunkPeriod(); got != 20*time.Millisecond {
		t.Errorf("ChunkPeriod = %v, want 20ms", got)
	}
}

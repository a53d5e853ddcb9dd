package transport

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"grow_controller/internal/models"

	"github.com/spf13/afero"
)

// pipePort is an in-memory serial device; the test side writes into w.
type pipePort struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func newPipePort() *pipePort {
	r, w := io.Pipe()
	return &pipePort{r: r, w: w}
}

func (p *pipePort) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipePort) Write(b []byte) (int, error) { return len(b), nil }
func (p *pipePort) Close() error                { return p.r.Close() }

type fakeOpener struct {
	mu    sync.Mutex
	ports map[string]*pipePort
	opens map[string]int
	err   error
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{ports: map[string]*pipePort{}, opens: map[string]int{}}
}

func (o *fakeOpener) Open(path string) (io.ReadWriteCloser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	p := newPipePort()
	o.ports[path] = p
	o.opens[path]++
	return p, nil
}

func (o *fakeOpener) port(path string) *pipePort {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ports[path]
}

func (o *fakeOpener) openCount(path string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens[path]
}

type fakeLister struct {
	mu    sync.Mutex
	ports []PortInfo
}

func (l *fakeLister) List() ([]PortInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]PortInfo(nil), l.ports...), nil
}

func (l *fakeLister) set(p ...PortInfo) {
	l.mu.Lock()
	l.ports = p
	l.mu.Unlock()
}

func newTestManager(t *testing.T) (*Manager, afero.Fs, *fakeOpener, *fakeLister) {
	t.Helper()
	fs := afero.NewMemMapFs()
	opener := newFakeOpener()
	lister := &fakeLister{}
	eps := DefaultEndpoints()
	board := NewStatusBoard("esp1", "esp2", "esp3", CoordinatorID)
	m := NewManager(Config{Endpoints: eps, Coordinator: DefaultCoordinator()}, fs, lister, opener, board, nil)
	return m, fs, opener, lister
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestManager_PresenceOpensAndCloses(t *testing.T) {
	m, fs, opener, _ := newTestManager(t)

	if err := afero.WriteFile(fs, "/dev/esp32_1", nil, 0o644); err != nil {
		t.Fatalf("create node: %v", err)
	}
	m.poll()
	m.poll() // no transition, no second open

	if n := opener.openCount("/dev/esp32_1"); n != 1 {
		t.Fatalf("opens = %d, want 1", n)
	}
	if st := m.Status().Get("esp1"); !st.Present || !st.Open {
		t.Fatalf("esp1 status = %+v", st)
	}

	go func() {
		_, _ = opener.port("/dev/esp32_1").w.Write([]byte("noise\nSCD30 -> CO2: 500 ppm, Temp: 24.5 C, RH: 55 %\n"))
	}()
	select {
	case r := <-m.Readings():
		if r.Source != "esp1" || !r.HasThermal || r.Kind != models.ReadingClimate || r.Climate.CO2 != 500 {
			t.Fatalf("unexpected reading: %+v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no reading delivered")
	}

	if err := fs.Remove("/dev/esp32_1"); err != nil {
		t.Fatalf("remove node: %v", err)
	}
	m.poll()
	if st := m.Status().Get("esp1"); st.Present || st.Open {
		t.Fatalf("esp1 should be closed, got %+v", st)
	}
}

func TestManager_SessionFailureRecoversOnNextPoll(t *testing.T) {
	m, fs, opener, _ := newTestManager(t)
	_ = afero.WriteFile(fs, "/dev/esp32_3", nil, 0o644)

	m.poll()
	opener.port("/dev/esp32_3").w.CloseWithError(errors.New("unplugged"))
	waitFor(t, "esp3 marked absent", func() bool { return !m.Status().Get("esp3").Present })

	m.poll()
	if n := opener.openCount("/dev/esp32_3"); n != 2 {
		t.Fatalf("opens = %d, want 2", n)
	}
	if !m.Status().Get("esp3").Connected() {
		t.Fatalf("esp3 should be connected again")
	}
}

func TestManager_OpenFailureLeavesEndpointDown(t *testing.T) {
	m, fs, opener, _ := newTestManager(t)
	opener.err = errors.New("busy")
	_ = afero.WriteFile(fs, "/dev/esp32_2", nil, 0o644)

	m.poll()
	if st := m.Status().Get("esp2"); st.Present || st.Open {
		t.Fatalf("esp2 status = %+v", st)
	}
}

func TestManager_CoordinatorDiscovery(t *testing.T) {
	m, _, opener, lister := newTestManager(t)

	lister.set(PortInfo{Path: "/dev/ttyUSB9", VendorID: "1a86", ProductID: "7523"})
	m.poll()
	if m.Status().Get(CoordinatorID).Open {
		t.Fatalf("foreign device must not be opened")
	}

	lister.set(PortInfo{Path: "/dev/ttyACM0", VendorID: "2341", ProductID: "0042"})
	m.poll()
	m.poll()
	if opener.openCount("/dev/ttyACM0") != 1 {
		t.Fatalf("coordinator opened %d times", opener.openCount("/dev/ttyACM0"))
	}

	go func() {
		_, _ = opener.port("/dev/ttyACM0").w.Write([]byte("SOIL -> RAW:1,2,3,4,5,6,7 PCT:10,20,30,40,50,60,70\n"))
	}()
	select {
	case r := <-m.Readings():
		if !r.SoilSensor || r.Source != CoordinatorID || r.Soil.Moisture[6] != 70 {
			t.Fatalf("unexpected reading: %+v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no soil reading")
	}

	lister.set(PortInfo{Path: "/dev/ttyACM1", VendorID: "2341", ProductID: "0042"})
	m.poll()
	if opener.openCount("/dev/ttyACM1") != 1 || !m.Status().Get(CoordinatorID).Connected() {
		t.Fatalf("coordinator not reopened on the new path")
	}

	lister.set()
	m.poll()
	if m.Status().Get(CoordinatorID).Connected() {
		t.Fatalf("coordinator should be down")
	}
}

package vulkan

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/leap/engine/core"
)

// mockFrameDevice models fences as "submitted and not yet waited on" and
// fails the test when the orchestrator breaks the per frame protocol.
type mockFrameDevice struct {
	t *testing.T

	imageCount int
	nextImage  int
	pending    []bool
	imageOwner map[uint32]int

	calls          []string
	maxOutstanding int

	acquireOutOfDate int
	presentOutOfDate int
	waitErr          error
	rebuildOK        bool
	rebuilds         int
}

func newMockFrameDevice(t *testing.T, frames, images int) *mockFrameDevice {
	return &mockFrameDevice{
		t:          t,
		imageCount: images,
		pending:    make([]bool, frames),
		imageOwner: make(map[uint32]int),
		rebuildOK:  true,
	}
}

func (m *mockFrameDevice) WaitFence(slot int) error {
	m.calls = append(m.calls, fmt.Sprintf("wait %d", slot))
	if m.waitErr != nil {
		return m.waitErr
	}
	m.pending[slot] = false
	return nil
}

func (m *mockFrameDevice) ResetFence(slot int) error {
	m.calls = append(m.calls, fmt.Sprintf("reset %d", slot))
	if m.pending[slot] {
		m.t.Errorf("fence %d reset while its submission is still pending", slot)
	}
	return nil
}

func (m *mockFrameDevice) AcquireImage(slot int) (uint32, error) {
	m.calls = append(m.calls, fmt.Sprintf("acquire %d", slot))
	if m.acquireOutOfDate > 0 {
		m.acquireOutOfDate--
		return 0, errors.Mark(errors.New("acquire: out of date"), core.ErrSwapchainOutOfDate)
	}
	image := uint32(m.nextImage % m.imageCount)
	m.nextImage++
	return image, nil
}

func (m *mockFrameDevice) Record(image uint32) error {
	m.calls = append(m.calls, fmt.Sprintf("record %d", image))
	return nil
}

func (m *mockFrameDevice) UpdateUniforms(image uint32) error {
	m.calls = append(m.calls, fmt.Sprintf("ubo %d", image))
	return nil
}

func (m *mockFrameDevice) Submit(slot int, image uint32) error {
	m.calls = append(m.calls, fmt.Sprintf("submit %d/%d", slot, image))
	if m.pending[slot] {
		m.t.Errorf("slot %d submitted twice without a wait", slot)
	}
	if owner, ok := m.imageOwner[image]; ok && m.pending[owner] {
		m.t.Errorf("image %d submitted by slot %d while slot %d still uses it", image, slot, owner)
	}
	m.pending[slot] = true
	m.imageOwner[image] = slot

	outstanding := 0
	for _, p := range m.pending {
		if p {
			outstanding++
		}
	}
	if outstanding > m.maxOutstanding {
		m.maxOutstanding = outstanding
	}
	return nil
}

func (m *mockFrameDevice) Present(slot int, image uint32) error {
	m.calls = append(m.calls, fmt.Sprintf("present %d/%d", slot, image))
	if m.presentOutOfDate > 0 {
		m.presentOutOfDate--
		return errors.Mark(errors.New("present: out of date"), core.ErrSwapchainOutOfDate)
	}
	return nil
}

func (m *mockFrameDevice) Rebuild() (bool, error) {
	m.calls = append(m.calls, "rebuild")
	if !m.rebuildOK {
		return false, nil
	}
	m.rebuilds++
	// A rebuild waits for the device to go idle.
	for i := range m.pending {
		m.pending[i] = false
	}
	m.imageOwner = make(map[uint32]int)
	m.nextImage = 0
	return true, nil
}

func TestFrameOrchestratorCallOrder(t *testing.T) {
	dev := newMockFrameDevice(t, 2, 3)
	fo := NewFrameOrchestrator(dev, 2)
	if err := fo.Draw(); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	want := []string{"wait 0", "acquire 0", "reset 0", "record 0", "ubo 0", "submit 0/0", "present 0/0"}
	if !reflect.DeepEqual(dev.calls, want) {
		t.Errorf("calls = %v, want %v", dev.calls, want)
	}
	if fo.CurrentFrame() != 1 {
		t.Errorf("current frame = %d, want 1", fo.CurrentFrame())
	}
}

func TestFrameOrchestratorBoundsFramesInFlight(t *testing.T) {
	for _, tc := range []struct{ frames, images int }{{2, 3}, {3, 2}, {1, 3}, {2, 2}} {
		t.Run(fmt.Sprintf("frames=%d,images=%d", tc.frames, tc.images), func(t *testing.T) {
			dev := newMockFrameDevice(t, tc.frames, tc.images)
			fo := NewFrameOrchestrator(dev, uint32(tc.frames))
			for i := 0; i < 20; i++ {
				if err := fo.Draw(); err != nil {
					t.Fatalf("Draw() #%d error = %v", i, err)
				}
			}
			if dev.maxOutstanding > tc.frames {
				t.Errorf("%d submissions outstanding, limit is %d", dev.maxOutstanding, tc.frames)
			}
			if want := 20 % tc.frames; fo.CurrentFrame() != want {
				t.Errorf("current frame = %d, want %d", fo.CurrentFrame(), want)
			}
		})
	}
}

func TestFrameOrchestratorAcquireOutOfDate(t *testing.T) {
	dev := newMockFrameDevice(t, 2, 3)
	dev.acquireOutOfDate = 1
	fo := NewFrameOrchestrator(dev, 2)

	if err := fo.Draw(); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	want := []string{"wait 0", "acquire 0", "rebuild"}
	if !reflect.DeepEqual(dev.calls, want) {
		t.Errorf("calls = %v, want %v", dev.calls, want)
	}
	if fo.CurrentFrame() != 0 {
		t.Errorf("skipped frame advanced the slot to %d", fo.CurrentFrame())
	}

	if err := fo.Draw(); err != nil {
		t.Fatalf("Draw() after rebuild error = %v", err)
	}
	if fo.CurrentFrame() != 1 {
		t.Errorf("current frame = %d, want 1", fo.CurrentFrame())
	}
}

func TestFrameOrchestratorPresentOutOfDate(t *testing.T) {
	dev := newMockFrameDevice(t, 2, 3)
	dev.presentOutOfDate = 1
	fo := NewFrameOrchestrator(dev, 2)

	if err := fo.Draw(); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if dev.rebuilds != 1 {
		t.Errorf("rebuilds = %d, want 1", dev.rebuilds)
	}
	if fo.CurrentFrame() != 1 {
		t.Errorf("current frame = %d, want 1", fo.CurrentFrame())
	}
}

func TestFrameOrchestratorMinimized(t *testing.T) {
	dev := newMockFrameDevice(t, 2, 3)
	dev.rebuildOK = false
	fo := NewFrameOrchestrator(dev, 2)
	fo.RequestRebuild()

	for i := 0; i < 3; i++ {
		if err := fo.Draw(); err != nil {
			t.Fatalf("Draw() error = %v", err)
		}
	}
	for _, c := range dev.calls {
		if c != "rebuild" {
			t.Fatalf("unexpected call %q while minimized", c)
		}
	}

	dev.rebuildOK = true
	dev.calls = nil
	if err := fo.Draw(); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if len(dev.calls) == 0 || dev.calls[0] != "rebuild" || dev.calls[len(dev.calls)-1] != "present 0/0" {
		t.Errorf("calls after restore = %v", dev.calls)
	}
}

func TestFrameOrchestratorDeviceLost(t *testing.T) {
	dev := newMockFrameDevice(t, 2, 3)
	dev.waitErr = errors.Mark(errors.New("wait: device lost"), core.ErrDeviceLost)
	fo := NewFrameOrchestrator(dev, 2)

	if err := fo.Draw(); !errors.Is(err, core.ErrDeviceLost) {
		t.Fatalf("Draw() error = %v, want ErrDeviceLost", err)
	}
}

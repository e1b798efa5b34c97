package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/leap/engine/core"
)

func TestDescriptorBudget(t *testing.T) {
	const capacity = 20
	tests := []struct {
		name     string
		requests int
		wantErr  bool
	}{
		{"none", 0, false},
		{"exactly capacity", capacity, false},
		{"one past capacity", capacity + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := descriptorBudget{capacity: capacity}
			var err error
			for i := 0; i < tt.requests; i++ {
				if err = b.reserve(); err != nil {
					if i != capacity {
						t.Fatalf("reserve #%d failed early: %v", i, err)
					}
					break
				}
			}
			if tt.wantErr {
				if !errors.Is(err, core.ErrDescriptorPoolExhausted) {
					t.Fatalf("error = %v, want ErrDescriptorPoolExhausted", err)
				}
				if b.used != capacity {
					t.Errorf("used = %d after failure, want %d", b.used, capacity)
				}
				return
			}
			if err != nil {
				t.Fatalf("reserve() error = %v", err)
			}
			if int(b.used) != tt.requests {
				t.Errorf("used = %d, want %d", b.used, tt.requests)
			}
		})
	}
}

func TestDescriptorBudgetRelease(t *testing.T) {
	b := descriptorBudget{capacity: 1}
	if err := b.reserve(); err != nil {
		t.Fatalf("reserve() error = %v", err)
	}
	b.release()
	if err := b.reserve(); err != nil {
		t.Fatalf("reserve() after release error = %v", err)
	}
	b.release()
	b.release()
	if b.used != 0 {
		t.Errorf("used = %d, want 0", b.used)
	}
}

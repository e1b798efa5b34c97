package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/leap/engine/core"
)

var (
	graphicsFlags        = vk.QueueFlags(vk.QueueGraphicsBit)
	graphicsComputeFlags = vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueComputeBit)
	computeFlags         = vk.QueueFlags(vk.QueueComputeBit)
)

func TestQueueFamilyIndicesIsValid(t *testing.T) {
	tests := []struct {
		indices QueueFamilyIndices
		want    bool
	}{
		{QueueFamilyIndices{Graphics: 0, Present: 0}, true},
		{QueueFamilyIndices{Graphics: 0, Present: 2}, true},
		{QueueFamilyIndices{Graphics: -1, Present: 0}, false},
		{QueueFamilyIndices{Graphics: 0, Present: -1}, false},
		{QueueFamilyIndices{Graphics: -1, Present: -1}, false},
	}
	for _, tt := range tests {
		if got := tt.indices.IsValid(); got != tt.want {
			t.Errorf("%+v.IsValid() = %v, want %v", tt.indices, got, tt.want)
		}
	}
}

func TestFindQueueFamilies(t *testing.T) {
	tests := []struct {
		name     string
		families []queueFamilyCapability
		want     QueueFamilyIndices
	}{
		{
			name:     "single family does both",
			families: []queueFamilyCapability{{Flags: graphicsFlags, QueueCount: 1, Present: true}},
			want:     QueueFamilyIndices{Graphics: 0, Present: 0},
		},
		{
			name: "split families",
			families: []queueFamilyCapability{
				{Flags: computeFlags, QueueCount: 1, Present: true},
				{Flags: graphicsFlags, QueueCount: 4},
			},
			want: QueueFamilyIndices{Graphics: 1, Present: 0},
		},
		{
			name: "first of each wins",
			families: []queueFamilyCapability{
				{Flags: graphicsFlags, QueueCount: 1},
				{Flags: graphicsFlags, QueueCount: 1, Present: true},
				{Flags: graphicsFlags, QueueCount: 1, Present: true},
			},
			want: QueueFamilyIndices{Graphics: 0, Present: 1},
		},
		{
			name:     "empty family ignored",
			families: []queueFamilyCapability{{Flags: graphicsFlags, QueueCount: 0, Present: true}},
			want:     QueueFamilyIndices{Graphics: -1, Present: -1},
		},
		{
			name:     "graphics and compute without present",
			families: []queueFamilyCapability{{Flags: graphicsComputeFlags, QueueCount: 1}},
			want:     QueueFamilyIndices{Graphics: 0, Present: -1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := findQueueFamilies(tt.families); got != tt.want {
				t.Errorf("findQueueFamilies() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func goodCandidate(name string) deviceCandidate {
	return deviceCandidate{
		Name:              name,
		Families:          []queueFamilyCapability{{Flags: graphicsFlags, QueueCount: 1, Present: true}},
		Extensions:        []string{vk.KhrSwapchainExtensionName},
		FormatCount:       2,
		PresentModeCount:  1,
		SamplerAnisotropy: true,
	}
}

func TestIsDeviceSuitable(t *testing.T) {
	required := []string{vk.KhrSwapchainExtensionName}

	noPresent := goodCandidate("no present")
	noPresent.Families = []queueFamilyCapability{{Flags: graphicsComputeFlags, QueueCount: 1}}

	noSwapchain := goodCandidate("no swapchain")
	noSwapchain.Extensions = nil

	noFormats := goodCandidate("no formats")
	noFormats.FormatCount = 0

	noModes := goodCandidate("no present modes")
	noModes.PresentModeCount = 0

	noAniso := goodCandidate("no anisotropy")
	noAniso.SamplerAnisotropy = false

	tests := []struct {
		c    deviceCandidate
		want bool
	}{
		{goodCandidate("good"), true},
		{noPresent, false},
		{noSwapchain, false},
		{noFormats, false},
		{noModes, false},
		{noAniso, false},
	}
	for _, tt := range tests {
		if _, got := isDeviceSuitable(tt.c, required); got != tt.want {
			t.Errorf("isDeviceSuitable(%s) = %v, want %v", tt.c.Name, got, tt.want)
		}
	}
}

func TestPickFirstSuitable(t *testing.T) {
	required := []string{vk.KhrSwapchainExtensionName}
	bad := goodCandidate("bad")
	bad.Families = []queueFamilyCapability{{Flags: graphicsComputeFlags, QueueCount: 1}}

	idx, indices, err := pickFirstSuitable([]deviceCandidate{bad, goodCandidate("a"), goodCandidate("b")}, required)
	if err != nil {
		t.Fatalf("pickFirstSuitable() error = %v", err)
	}
	if idx != 1 {
		t.Errorf("picked %d, want 1", idx)
	}
	if !indices.IsValid() {
		t.Errorf("indices %+v not valid", indices)
	}

	_, _, err = pickFirstSuitable([]deviceCandidate{bad}, required)
	if !errors.Is(err, core.ErrNoSuitableDevice) {
		t.Fatalf("error = %v, want ErrNoSuitableDevice", err)
	}
}

func TestPickDepthFormat(t *testing.T) {
	depth := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	supportOnly := func(supported ...vk.Format) func(vk.Format) vk.FormatFeatureFlags {
		return func(f vk.Format) vk.FormatFeatureFlags {
			for _, s := range supported {
				if s == f {
					return depth
				}
			}
			return 0
		}
	}

	if got, ok := pickDepthFormat(depthFormatCandidates, supportOnly(vk.FormatD24UnormS8Uint, vk.FormatD32Sfloat)); !ok || got != vk.FormatD32Sfloat {
		t.Errorf("pickDepthFormat() = %v, %v; want D32Sfloat", got, ok)
	}
	if got, ok := pickDepthFormat(depthFormatCandidates, supportOnly(depthFormatCandidates...)); !ok || got != vk.FormatD32SfloatS8Uint {
		t.Errorf("pickDepthFormat() = %v, %v; want D32SfloatS8Uint", got, ok)
	}
	if _, ok := pickDepthFormat(depthFormatCandidates, supportOnly()); ok {
		t.Errorf("pickDepthFormat() found a format with no support")
	}
}

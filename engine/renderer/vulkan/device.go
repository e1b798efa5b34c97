package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/leap/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice   vk.PhysicalDevice
	LogicalDevice    vk.Device
	SwapchainSupport VulkanSwapchainSupportInfo
	QueueFamilies    QueueFamilyIndices

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	DepthFormat vk.Format
}

// QueueFamilyIndices holds the queue families used by the renderer. -1
// marks a family that was not found.
type QueueFamilyIndices struct {
	Graphics int32
	Present  int32
}

func (q QueueFamilyIndices) IsValid() bool {
	return q.Graphics >= 0 && q.Present >= 0
}

// Shared reports whether graphics and presentation use the same family.
func (q QueueFamilyIndices) Shared() bool {
	return q.Graphics == q.Present
}

// queueFamilyCapability is what device selection needs to know about one
// queue family.
type queueFamilyCapability struct {
	Flags      vk.QueueFlags
	QueueCount uint32
	Present    bool
}

// findQueueFamilies takes the first family with graphics support and the
// first one able to present.
func findQueueFamilies(families []queueFamilyCapability) QueueFamilyIndices {
	indices := QueueFamilyIndices{Graphics: -1, Present: -1}
	for i, f := range families {
		if f.QueueCount == 0 {
			continue
		}
		if indices.Graphics < 0 && f.Flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			indices.Graphics = int32(i)
		}
		if indices.Present < 0 && f.Present {
			indices.Present = int32(i)
		}
		if indices.IsValid() {
			break
		}
	}
	return indices
}

// deviceCandidate is the host side snapshot of a physical device used to
// decide whether it can run the renderer.
type deviceCandidate struct {
	Name              string
	Families          []queueFamilyCapability
	Extensions        []string
	FormatCount       int
	PresentModeCount  int
	SamplerAnisotropy bool
}

func isDeviceSuitable(c deviceCandidate, requiredExtensions []string) (QueueFamilyIndices, bool) {
	indices := findQueueFamilies(c.Families)
	if !indices.IsValid() {
		core.LogInfo("Device '%s' lacks a graphics or present queue, skipping.", c.Name)
		return indices, false
	}
	for _, ext := range requiredExtensions {
		if !hasName(c.Extensions, ext) {
			core.LogInfo("Required extension not found: '%s', skipping device '%s'.", ext, c.Name)
			return indices, false
		}
	}
	if c.FormatCount == 0 || c.PresentModeCount == 0 {
		core.LogInfo("Required swapchain support not present on '%s', skipping device.", c.Name)
		return indices, false
	}
	if !c.SamplerAnisotropy {
		core.LogInfo("Device '%s' does not support samplerAnisotropy, skipping.", c.Name)
		return indices, false
	}
	return indices, true
}

// pickFirstSuitable returns the index of the first suitable candidate.
func pickFirstSuitable(candidates []deviceCandidate, requiredExtensions []string) (int, QueueFamilyIndices, error) {
	for i, c := range candidates {
		if indices, ok := isDeviceSuitable(c, requiredExtensions); ok {
			return i, indices, nil
		}
	}
	return -1, QueueFamilyIndices{Graphics: -1, Present: -1}, errors.Wrapf(core.ErrNoSuitableDevice, "%d device(s) checked", len(candidates))
}

func deviceExtensionNames(pd vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if err := check(vk.EnumerateDeviceExtensionProperties(pd, "", &count, nil), "vkEnumerateDeviceExtensionProperties"); err != nil {
		return nil, err
	}
	props := make([]vk.ExtensionProperties, count)
	if count > 0 {
		if err := check(vk.EnumerateDeviceExtensionProperties(pd, "", &count, props), "vkEnumerateDeviceExtensionProperties"); err != nil {
			return nil, err
		}
	}
	names := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		names = append(names, vk.ToString(props[i].ExtensionName[:]))
	}
	return names, nil
}

func queryCandidate(pd vk.PhysicalDevice, surface vk.Surface) (deviceCandidate, error) {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &properties)
	properties.Deref()

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(pd, &features)
	features.Deref()

	c := deviceCandidate{
		Name:              vk.ToString(properties.DeviceName[:]),
		SamplerAnisotropy: features.SamplerAnisotropy == vk.True,
	}

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, families)
	for i := range families {
		families[i].Deref()
		var supportsPresent vk.Bool32
		if err := check(vk.GetPhysicalDeviceSurfaceSupport(pd, uint32(i), surface, &supportsPresent), "vkGetPhysicalDeviceSurfaceSupport"); err != nil {
			return c, err
		}
		c.Families = append(c.Families, queueFamilyCapability{
			Flags:      families[i].QueueFlags,
			QueueCount: families[i].QueueCount,
			Present:    supportsPresent == vk.True,
		})
	}

	exts, err := deviceExtensionNames(pd)
	if err != nil {
		return c, err
	}
	c.Extensions = exts

	support, err := DeviceQuerySwapchainSupport(pd, surface)
	if err != nil {
		return c, err
	}
	c.FormatCount = len(support.Formats)
	c.PresentModeCount = len(support.PresentModes)
	return c, nil
}

// SelectPhysicalDevice enumerates the physical devices and keeps the first
// one that can render to the context's surface.
func SelectPhysicalDevice(context *VulkanContext) error {
	var count uint32
	if err := check(vk.EnumeratePhysicalDevices(context.Instance, &count, nil), "vkEnumeratePhysicalDevices"); err != nil {
		return err
	}
	if count == 0 {
		err := errors.Wrap(core.ErrNoSuitableDevice, "no devices which support Vulkan were found")
		core.LogError(err.Error())
		return err
	}
	physicalDevices := make([]vk.PhysicalDevice, count)
	if err := check(vk.EnumeratePhysicalDevices(context.Instance, &count, physicalDevices), "vkEnumeratePhysicalDevices"); err != nil {
		return err
	}

	candidates := make([]deviceCandidate, len(physicalDevices))
	for i, pd := range physicalDevices {
		c, err := queryCandidate(pd, context.Surface)
		if err != nil {
			return err
		}
		candidates[i] = c
	}

	idx, indices, err := pickFirstSuitable(candidates, []string{vk.KhrSwapchainExtensionName})
	if err != nil {
		core.LogError(err.Error())
		return err
	}

	pd := physicalDevices[idx]
	device := context.Device
	device.PhysicalDevice = pd
	device.QueueFamilies = indices

	vk.GetPhysicalDeviceProperties(pd, &device.Properties)
	device.Properties.Deref()
	device.Properties.Limits.Deref()
	vk.GetPhysicalDeviceFeatures(pd, &device.Features)
	device.Features.Deref()
	vk.GetPhysicalDeviceMemoryProperties(pd, &device.Memory)
	device.Memory.Deref()

	core.LogInfo("Selected device: '%s'.", candidates[idx].Name)
	switch device.Properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(device.Properties.ApiVersion).Major(),
		vk.Version(device.Properties.ApiVersion).Minor(),
		vk.Version(device.Properties.ApiVersion).Patch(),
	)
	core.LogDebug("Graphics Family Index: %d", indices.Graphics)
	core.LogDebug("Present Family Index:  %d", indices.Present)

	support, err := DeviceQuerySwapchainSupport(pd, context.Surface)
	if err != nil {
		return err
	}
	device.SwapchainSupport = support
	return nil
}

// DeviceCreate selects a physical device and creates the logical device,
// its queues and the graphics command pool.
func DeviceCreate(context *VulkanContext) error {
	context.Device = &VulkanDevice{QueueFamilies: QueueFamilyIndices{Graphics: -1, Present: -1}}
	if err := SelectPhysicalDevice(context); err != nil {
		return err
	}
	device := context.Device

	core.LogInfo("Creating logical device...")

	// Do not create additional queues for shared indices.
	families := []uint32{uint32(device.QueueFamilies.Graphics)}
	if !device.QueueFamilies.Shared() {
		families = append(families, uint32(device.QueueFamilies.Present))
	}
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, family := range families {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	available, err := deviceExtensionNames(device.PhysicalDevice)
	if err != nil {
		return err
	}
	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if hasName(available, VULKAN_PORTABILITY_SUBSET) {
		core.LogInfo("Adding required extension '%s'.", VULKAN_PORTABILITY_SUBSET)
		extensionNames = append(extensionNames, VULKAN_PORTABILITY_SUBSET)
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{
		SamplerAnisotropy: vk.True,
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var logicalDevice vk.Device
	if err := check(vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &logicalDevice), "vkCreateDevice"); err != nil {
		return err
	}
	device.LogicalDevice = logicalDevice
	core.LogInfo("Logical device created.")

	var graphicsQueue, presentQueue vk.Queue
	vk.GetDeviceQueue(device.LogicalDevice, uint32(device.QueueFamilies.Graphics), 0, &graphicsQueue)
	vk.GetDeviceQueue(device.LogicalDevice, uint32(device.QueueFamilies.Present), 0, &presentQueue)
	device.GraphicsQueue = graphicsQueue
	device.PresentQueue = presentQueue
	core.LogInfo("Queues obtained.")

	// Command buffers are re-recorded every frame, so they must be individually resettable.
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(device.QueueFamilies.Graphics),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if err := check(vk.CreateCommandPool(device.LogicalDevice, &poolCreateInfo, context.Allocator, &pool), "vkCreateCommandPool"); err != nil {
		return err
	}
	device.GraphicsCommandPool = pool
	core.LogInfo("Graphics command pool created.")

	return DeviceDetectDepthFormat(device)
}

func DeviceDestroy(context *VulkanContext) {
	device := context.Device
	if device == nil {
		return
	}
	device.GraphicsQueue = nil
	device.PresentQueue = nil

	if device.GraphicsCommandPool != vk.NullCommandPool {
		core.LogInfo("Destroying command pools...")
		vk.DestroyCommandPool(device.LogicalDevice, device.GraphicsCommandPool, context.Allocator)
		device.GraphicsCommandPool = vk.NullCommandPool
	}

	if device.LogicalDevice != nil {
		core.LogInfo("Destroying logical device...")
		vk.DestroyDevice(device.LogicalDevice, context.Allocator)
		device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	device.PhysicalDevice = nil
	device.SwapchainSupport = VulkanSwapchainSupportInfo{}
	device.QueueFamilies = QueueFamilyIndices{Graphics: -1, Present: -1}
}

// DeviceQuerySwapchainSupport reads the surface capabilities, formats and
// present modes of a physical device.
func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (VulkanSwapchainSupportInfo, error) {
	var info VulkanSwapchainSupportInfo

	if err := check(vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &info.Capabilities), "vkGetPhysicalDeviceSurfaceCapabilities"); err != nil {
		return info, err
	}
	info.Capabilities.Deref()
	info.Capabilities.CurrentExtent.Deref()
	info.Capabilities.MinImageExtent.Deref()
	info.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if err := check(vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil), "vkGetPhysicalDeviceSurfaceFormats"); err != nil {
		return info, err
	}
	if formatCount > 0 {
		info.Formats = make([]vk.SurfaceFormat, formatCount)
		if err := check(vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, info.Formats), "vkGetPhysicalDeviceSurfaceFormats"); err != nil {
			return info, err
		}
		for i := range info.Formats {
			info.Formats[i].Deref()
		}
	}

	var modeCount uint32
	if err := check(vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, nil), "vkGetPhysicalDeviceSurfacePresentModes"); err != nil {
		return info, err
	}
	if modeCount > 0 {
		info.PresentModes = make([]vk.PresentMode, modeCount)
		if err := check(vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, info.PresentModes), "vkGetPhysicalDeviceSurfacePresentModes"); err != nil {
			return info, err
		}
	}
	return info, nil
}

var depthFormatCandidates = []vk.Format{
	vk.FormatD32SfloatS8Uint,
	vk.FormatD32Sfloat,
	vk.FormatD24UnormS8Uint,
}

// pickDepthFormat returns the first candidate whose optimal tiling features
// allow a depth attachment.
func pickDepthFormat(candidates []vk.Format, optimalFeatures func(vk.Format) vk.FormatFeatureFlags) (vk.Format, bool) {
	want := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, f := range candidates {
		if optimalFeatures(f)&want == want {
			return f, true
		}
	}
	return vk.FormatUndefined, false
}

func DeviceDetectDepthFormat(device *VulkanDevice) error {
	format, ok := pickDepthFormat(depthFormatCandidates, func(f vk.Format) vk.FormatFeatureFlags {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, f, &properties)
		properties.Deref()
		return properties.OptimalTilingFeatures
	})
	if !ok {
		device.DepthFormat = vk.FormatUndefined
		err := errors.New("failed to find a supported depth format")
		core.LogError(err.Error())
		return err
	}
	device.DepthFormat = format
	return nil
}

package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/leap/engine/core"
	lmath "github.com/spaghettifunk/leap/engine/math"
)

type VulkanSwapchain struct {
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	Handle      vk.Swapchain
	ImageCount  uint32
	Images      []vk.Image
	Views       []vk.ImageView

	DepthAttachment *VulkanImage

	// framebuffers used for on-screen rendering.
	Framebuffers []*VulkanFramebuffer
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// chooseSurfaceFormat prefers an 8 bit RGBA or BGRA format in the sRGB
// non-linear colour space. A single UNDEFINED entry means the surface has
// no preference.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	preferred := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	if len(formats) == 0 {
		return preferred
	}
	if len(formats) == 1 && formats[0].Format == vk.FormatUndefined {
		return preferred
	}
	for _, f := range formats {
		if (f.Format == vk.FormatR8g8b8a8Unorm || f.Format == vk.FormatB8g8r8a8Unorm) &&
			f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	return formats[0]
}

// choosePresentMode uses mailbox when available. FIFO is always supported.
func choosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

// chooseSwapExtent returns the surface's current extent unless the surface
// lets the application decide, in which case the framebuffer size is clamped
// to the allowed range.
func chooseSwapExtent(caps vk.SurfaceCapabilities, framebufferWidth, framebufferHeight uint32) vk.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  lmath.Clamp(framebufferWidth, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: lmath.Clamp(framebufferHeight, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// chooseImageCount asks for one image more than the minimum. A maximum of 0
// means unlimited.
func chooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// SwapchainCreate builds the swapchain, its image views and the depth
// attachment for the given framebuffer size.
func SwapchainCreate(context *VulkanContext, width, height uint32) (*VulkanSwapchain, error) {
	device := context.Device

	support, err := DeviceQuerySwapchainSupport(device.PhysicalDevice, context.Surface)
	if err != nil {
		return nil, err
	}
	device.SwapchainSupport = support
	caps := support.Capabilities

	swapchain := &VulkanSwapchain{
		ImageFormat: chooseSurfaceFormat(support.Formats),
		PresentMode: choosePresentMode(support.PresentModes),
		Extent:      chooseSwapExtent(caps, width, height),
	}
	imageCount := chooseImageCount(caps)

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchain.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      swapchain.PresentMode,
		Clipped:          vk.True,
	}

	// Images are shared between the graphics and present families when they differ.
	if device.QueueFamilies.Shared() {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(device.QueueFamilies.Graphics),
			uint32(device.QueueFamilies.Present),
		}
	}

	var handle vk.Swapchain
	if err := check(vk.CreateSwapchain(device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &handle), "vkCreateSwapchainKHR"); err != nil {
		return nil, err
	}
	swapchain.Handle = handle

	if err := check(vk.GetSwapchainImages(device.LogicalDevice, handle, &swapchain.ImageCount, nil), "vkGetSwapchainImagesKHR"); err != nil {
		swapchain.Destroy(context)
		return nil, err
	}
	swapchain.Images = make([]vk.Image, swapchain.ImageCount)
	if err := check(vk.GetSwapchainImages(device.LogicalDevice, handle, &swapchain.ImageCount, swapchain.Images), "vkGetSwapchainImagesKHR"); err != nil {
		swapchain.Destroy(context)
		return nil, err
	}

	swapchain.Views = make([]vk.ImageView, swapchain.ImageCount)
	for i, img := range swapchain.Images {
		view, err := createImageView(context, img, swapchain.ImageFormat.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			swapchain.Destroy(context)
			return nil, err
		}
		swapchain.Views[i] = view
	}

	depth, err := ImageCreate(
		context,
		swapchain.Extent.Width,
		swapchain.Extent.Height,
		device.DepthFormat,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		true,
		vk.ImageAspectFlags(vk.ImageAspectDepthBit))
	if err != nil {
		swapchain.Destroy(context)
		return nil, err
	}
	swapchain.DepthAttachment = depth

	core.LogInfo("Swapchain created: %d images, %dx%d.", swapchain.ImageCount, swapchain.Extent.Width, swapchain.Extent.Height)
	return swapchain, nil
}

// Destroy releases the depth attachment, the views and the swapchain. The
// images themselves are owned by the swapchain.
func (vs *VulkanSwapchain) Destroy(context *VulkanContext) {
	if vs.DepthAttachment != nil {
		vs.DepthAttachment.Destroy(context)
		vs.DepthAttachment = nil
	}
	for i, view := range vs.Views {
		if view != vk.NullImageView {
			vk.DestroyImageView(context.Device.LogicalDevice, view, context.Allocator)
			vs.Views[i] = vk.NullImageView
		}
	}
	vs.Views = nil
	vs.Images = nil
	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = vk.NullSwapchain
	}
}

// AcquireNextImage returns the index of the next image to render to. A
// suboptimal swapchain is still used for this frame.
func (vs *VulkanSwapchain) AcquireNextImage(context *VulkanContext, imageAvailable vk.Semaphore) (uint32, error) {
	var imageIndex uint32
	result := vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, VULKAN_WAIT_FOREVER, imageAvailable, vk.NullFence, &imageIndex)
	if result == vk.Success || result == vk.Suboptimal {
		return imageIndex, nil
	}
	return 0, vkResultError(result, "vkAcquireNextImageKHR")
}

// Present queues the image for presentation once renderComplete signals.
// Out of date and suboptimal both report core.ErrSwapchainOutOfDate.
func (vs *VulkanSwapchain) Present(context *VulkanContext, renderComplete vk.Semaphore, imageIndex uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderComplete},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{imageIndex},
	}
	result := vk.QueuePresent(context.Device.PresentQueue, &presentInfo)
	if result == vk.Suboptimal {
		result = vk.ErrorOutOfDate
	}
	return vkResultError(result, "vkQueuePresentKHR")
}

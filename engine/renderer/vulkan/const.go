package vulkan

import "math"

/** @brief Upper bound for sampler anisotropy; clamped further by the device limit. */
const VULKAN_MAX_SAMPLER_ANISOTROPY float32 = 16

/** @brief Timeout used for fence waits and image acquisition. Effectively infinite. */
const VULKAN_WAIT_FOREVER uint64 = math.MaxUint64

/** @brief Name of the validation layer enabled by Renderer.Validation. */
const VULKAN_VALIDATION_LAYER = "VK_LAYER_KHRONOS_validation"

/** @brief Extension that must be enabled whenever a device advertises it (MoltenVK). */
const VULKAN_PORTABILITY_SUBSET = "VK_KHR_portability_subset"

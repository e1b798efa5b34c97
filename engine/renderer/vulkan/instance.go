package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/leap/engine/core"
)

const engineName = "Leap Engine"

// instanceExtensions lists the instance extensions to enable on top of what
// the platform requires.
func instanceExtensions(platformExtensions []string, validation bool, goos string) []string {
	extensions := []string{vk.KhrSurfaceExtensionName} // Generic surface extension
	for _, e := range platformExtensions {
		if !hasName(extensions, e) {
			extensions = append(extensions, e)
		}
	}
	if goos == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}
	if validation {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
	}
	return extensions
}

func availableLayerNames() ([]string, error) {
	var count uint32
	if err := check(vk.EnumerateInstanceLayerProperties(&count, nil), "vkEnumerateInstanceLayerProperties"); err != nil {
		return nil, err
	}
	layers := make([]vk.LayerProperties, count)
	if err := check(vk.EnumerateInstanceLayerProperties(&count, layers), "vkEnumerateInstanceLayerProperties"); err != nil {
		return nil, err
	}
	names := make([]string, len(layers))
	for i := range layers {
		layers[i].Deref()
		names[i] = vk.ToString(layers[i].LayerName[:])
	}
	return names, nil
}

// InstanceCreate creates the Vulkan instance and, with validation on, the
// validation layer and a debug report callback routed to the engine logger.
func InstanceCreate(context *VulkanContext, appName string, platformExtensions []string, validation bool) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		EngineVersion:      uint32(vk.MakeVersion(1, 0, 0)),
		PEngineName:        VulkanSafeString(engineName),
	}

	extensions := instanceExtensions(platformExtensions, validation, runtime.GOOS)
	core.LogDebug("Required extensions: %v", extensions)

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
	}
	if runtime.GOOS == "darwin" {
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var layers []string
	if validation {
		core.LogInfo("Validation layers enabled. Enumerating...")
		available, err := availableLayerNames()
		if err != nil {
			return err
		}
		if !hasName(available, VULKAN_VALIDATION_LAYER) {
			err := errors.Newf("required validation layer is missing: %s", VULKAN_VALIDATION_LAYER)
			core.LogError(err.Error())
			return err
		}
		layers = append(layers, VULKAN_VALIDATION_LAYER)
		core.LogInfo("All required validation layers are present.")
	}
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if err := check(vk.CreateInstance(&createInfo, context.Allocator, &instance), "vkCreateInstance"); err != nil {
		return err
	}
	context.Instance = instance
	if err := vk.InitInstance(instance); err != nil {
		err = errors.Wrap(err, "failed to load instance functions")
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan Instance created.")

	if !validation {
		return nil
	}

	core.LogDebug("Creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}
	var dbg vk.DebugReportCallback
	if err := check(vk.CreateDebugReportCallback(instance, &debugCreateInfo, context.Allocator, &dbg), "vkCreateDebugReportCallbackEXT"); err != nil {
		return err
	}
	context.debugMessenger = dbg
	core.LogDebug("Vulkan debugger created.")
	return nil
}

func InstanceDestroy(context *VulkanContext) {
	if context.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(context.Instance, context.debugMessenger, context.Allocator)
		context.debugMessenger = vk.NullDebugReportCallback
	}
	if context.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(context.Instance, context.Allocator)
		context.Instance = nil
	}
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}

package lai

import (
	"fmt"
	"log/slog"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// ValidationLayer is enabled when Config.Validation is set.
const ValidationLayer = "VK_LAYER_KHRONOS_validation"

// DebugReportExtension carries validation messages back to the log.
const DebugReportExtension = "VK_EXT_debug_report"

// InitializeLoader points vulkan-go at the platform's vkGetInstanceProcAddr
// and loads the global entry points. It must run before any instance is
// created.
func InitializeLoader(procAddr unsafe.Pointer) error {
	vk.SetGetInstanceProcAddr(procAddr)
	return vk.Init()
}

// Version is used to specify versions of components
type Version struct {
	Major int
	Minor int
	Patch int
}

// VKVersion returns a Vulkan compatible version representation
func (v Version) VKVersion() uint32 {
	return vk.MakeVersion(v.Major, v.Minor, v.Patch)
}

// APIVersion is the Vulkan version the instance is created for.
var APIVersion = Version{Major: 1, Minor: 2}

// CreateInstance creates the instance with the window's required
// extensions and, when validation is on, the Khronos validation layer.
func CreateInstance(ctx *Context, appName string, windowExtensions []string) error {
	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         APIVersion.VKVersion(),
		ApplicationVersion: Version{Major: 1}.VKVersion(),
		EngineVersion:      Version{Major: 1}.VKVersion(),
		PApplicationName:   safeString(appName),
		PEngineName:        safeString(ctx.Config.EngineName),
	}

	extensions := append([]string{}, windowExtensions...)
	var layers []string
	if ctx.Config.Validation {
		extensions = append(extensions, DebugReportExtension)

		available, res := ctx.Driver.EnumerateInstanceLayers()
		if res != vk.Success {
			return resultError("enumerating instance layers", res)
		}
		if !containsString(available, ValidationLayer) {
			Fatal("required validation layer is missing", "layer", ValidationLayer)
			return fmt.Errorf("validation layer %s not found", ValidationLayer)
		}
		layers = append(layers, ValidationLayer)
	}
	slog.Debug("instance extensions", "extensions", extensions, "layers", layers)

	extensions = safeStrings(extensions)
	layers = safeStrings(layers)
	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}

	instance, res := ctx.Driver.CreateInstance(&createInfo)
	if res != vk.Success {
		return resultError("creating instance", res)
	}
	ctx.Instance = instance
	slog.Info("vulkan instance created")

	if ctx.Config.Validation {
		return createDebugCallback(ctx)
	}
	return nil
}

func createDebugCallback(ctx *Context) error {
	slog.Debug("creating vulkan debug callback")
	callback, res := ctx.Driver.CreateDebugReportCallback(ctx.Instance, &vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit |
			vk.DebugReportPerformanceWarningBit | vk.DebugReportInformationBit),
		PfnCallback: DebugCallback,
	})
	if res != vk.Success {
		return resultError("creating debug report callback", res)
	}
	ctx.debugCallback = callback
	return nil
}

// DebugCallback routes validation layer reports into the default logger at
// the matching level.
func DebugCallback(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	args := []any{"layer", pLayerPrefix, "code", messageCode}
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		slog.Error(pMessage, args...)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		slog.Warn(pMessage, args...)
	case flags&vk.DebugReportFlags(vk.DebugReportInformationBit) != 0:
		slog.Info(pMessage, args...)
	default:
		slog.Debug(pMessage, args...)
	}
	return vk.Bool32(vk.False)
}

func DestroyInstance(ctx *Context) {
	if ctx.debugCallback != vk.NullDebugReportCallback {
		slog.Debug("destroying vulkan debug callback")
		ctx.Driver.DestroyDebugReportCallback(ctx.Instance, ctx.debugCallback)
		ctx.debugCallback = vk.NullDebugReportCallback
	}
	if ctx.Instance != nil {
		slog.Debug("destroying vulkan instance")
		ctx.Driver.DestroyInstance(ctx.Instance)
		ctx.Instance = nil
	}
}

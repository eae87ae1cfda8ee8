// Package platform opens the GLFW window the renderer draws into.
package platform

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/sametaylak/lai"
	"github.com/vulkan-go/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// Init initializes GLFW and the Vulkan loader. It locks the calling
// goroutine to its thread, which must be the one running the event loop.
func Init() error {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("unable to initialize glfw: %w", err)
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return fmt.Errorf("vulkan is unsupported")
	}
	if err := lai.InitializeLoader(glfw.GetVulkanGetInstanceProcAddress()); err != nil {
		glfw.Terminate()
		return fmt.Errorf("unable to initialize vulkan: %w", err)
	}
	return nil
}

func Terminate() {
	glfw.Terminate()
}

// Window is a GLFW window with no client API, usable as a lai.Window.
type Window struct {
	window *glfw.Window
}

var _ lai.Window = (*Window)(nil)

func NewWindow(title string, width, height int) (*Window, error) {
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create window: %w", err)
	}
	return &Window{window: window}, nil
}

func (w *Window) FramebufferSize() (int, int) {
	return w.window.GetFramebufferSize()
}

func (w *Window) RequiredInstanceExtensions() []string {
	return w.window.GetRequiredInstanceExtensions()
}

func (w *Window) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surface, err := w.window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, err
	}
	return vk.SurfaceFromPointer(surface), nil
}

// OnResize calls fn with the new framebuffer size whenever it changes.
// Sizes are clamped to what the renderer accepts.
func (w *Window) OnResize(fn func(width, height uint16)) {
	w.window.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		slog.Debug("framebuffer resized", "width", width, "height", height)
		fn(clampSize(width), clampSize(height))
	})
}

func clampSize(v int) uint16 {
	switch {
	case v < 0:
		return 0
	case v > 0xffff:
		return 0xffff
	}
	return uint16(v)
}

func (w *Window) ShouldClose() bool {
	return w.window.ShouldClose()
}

func (w *Window) SetShouldClose(v bool) {
	w.window.SetShouldClose(v)
}

// OnKey calls fn with every key press.
func (w *Window) OnKey(fn func(key glfw.Key)) {
	w.window.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action == glfw.Press {
			fn(key)
		}
	})
}

// PollEvents processes pending window events.
func PollEvents() {
	glfw.PollEvents()
}

// Time is seconds since Init.
func Time() float64 {
	return glfw.GetTime()
}

func (w *Window) Destroy() {
	w.window.Destroy()
}

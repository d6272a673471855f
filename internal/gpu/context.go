// Package gpu uploads instance meshes to OpenGL 4.1 core through an SDL2
// owned context.
package gpu

import (
	"fmt"
	"runtime"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/instancemesh/internal/logger"
)

func init() {
	// OpenGL calls must be made from the main thread
	runtime.LockOSThread()
}

// ContextConfig holds GL context configuration.
type ContextConfig struct {
	Title  string
	Width  int
	Height int
	// Visible shows the window; uploads only need a hidden one.
	Visible bool
}

// Context wraps an SDL2 window and its OpenGL context.
type Context struct {
	config    ContextConfig
	sdlWindow *sdl.Window
	glContext sdl.GLContext
}

// NewContext creates a window with an OpenGL 4.1 core context and loads the
// GL function pointers.
func NewContext(cfg ContextConfig) (*Context, error) {
	c := &Context{config: cfg}

	logger.Debug("initializing SDL2")
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("SDL_Init failed: %w", err)
	}

	// 4.1 core is the highest profile available on macOS
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MAJOR_VERSION, 4)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MINOR_VERSION, 1)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_CORE)
	sdl.GLSetAttribute(sdl.GL_DOUBLEBUFFER, 1)
	sdl.GLSetAttribute(sdl.GL_DEPTH_SIZE, 24)

	flags := uint32(sdl.WINDOW_OPENGL)
	if cfg.Visible {
		flags |= sdl.WINDOW_SHOWN
	} else {
		flags |= sdl.WINDOW_HIDDEN
	}

	var err error
	c.sdlWindow, err = sdl.CreateWindow(
		cfg.Title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(cfg.Width),
		int32(cfg.Height),
		flags,
	)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("SDL_CreateWindow failed: %w", err)
	}

	c.glContext, err = c.sdlWindow.GLCreateContext()
	if err != nil {
		c.sdlWindow.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("SDL_GL_CreateContext failed: %w", err)
	}

	if err := gl.Init(); err != nil {
		c.Close()
		return nil, fmt.Errorf("gl.Init failed: %w", err)
	}

	logger.Info("GL context created",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Bool("visible", cfg.Visible),
	)
	return c, nil
}

// Close destroys the context and window and shuts SDL2 down.
func (c *Context) Close() {
	logger.Debug("closing GL context")
	if c.glContext != nil {
		sdl.GLDeleteContext(c.glContext)
		c.glContext = nil
	}
	if c.sdlWindow != nil {
		c.sdlWindow.Destroy()
		c.sdlWindow = nil
	}
	sdl.Quit()
}

// SwapBuffers presents the back buffer.
func (c *Context) SwapBuffers() {
	c.sdlWindow.GLSwap()
}

// Size returns the drawable size.
func (c *Context) Size() (int, int) {
	w, h := c.sdlWindow.GLGetDrawableSize()
	return int(w), int(h)
}

package engine

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer"
)

type ApplicationConfig struct {
	// The application name used in windowing, if applicable.
	Name string `toml:"name"`
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"width"`
	// Window starting height, if applicable.
	StartHeight uint32 `toml:"height"`
	// Samples per pixel requested for multisampled attachments. 0 or 1
	// disables multisampling.
	SampleCount uint32 `toml:"sample_count"`
	LogLevel    string `toml:"log_level"`
	// "opengl" or "headless".
	Renderer string `toml:"renderer"`
	// Directory watched for asset changes.
	AssetsDir string `toml:"assets_dir"`
	// Render document with the attachments and layers.
	RenderConfig string `toml:"render_config"`
	// Reload the render document when it changes on disk.
	HotReload bool `toml:"hot_reload"`
	// Where screenshots are written, and the layer they capture.
	ScreenshotPath  string `toml:"screenshot_path"`
	ScreenshotLayer string `toml:"screenshot_layer"`
	// Stop after this many frames. 0 runs until the window closes.
	MaxFrames uint64 `toml:"max_frames"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Name:            "Anima",
		StartPosX:       100,
		StartPosY:       100,
		StartWidth:      1280,
		StartHeight:     720,
		SampleCount:     4,
		LogLevel:        "info",
		Renderer:        renderer.OpenGL.String(),
		AssetsDir:       "assets",
		RenderConfig:    "assets/render.json",
		HotReload:       true,
		ScreenshotPath:  "screenshot.bmp",
		ScreenshotLayer: "main",
	}
}

// ParseApplicationConfig decodes TOML on top of the defaults. Keys that are
// not present keep their default value, unknown keys are an error.
func ParseApplicationConfig(data []byte) (*ApplicationConfig, error) {
	cfg := DefaultApplicationConfig()
	d := toml.NewDecoder(bytes.NewReader(data))
	d.DisallowUnknownFields()
	if err := d.Decode(cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("%w: application config line %d column %d: %s", core.ErrConfig, row, col, derr.Error())
		}
		return nil, fmt.Errorf("%w: application config: %v", core.ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrConfig, err)
	}
	cfg, err := ParseApplicationConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *ApplicationConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: application name must not be empty", core.ErrConfig)
	}
	if c.StartWidth == 0 || c.StartHeight == 0 {
		return fmt.Errorf("%w: invalid window size %dx%d", core.ErrConfig, c.StartWidth, c.StartHeight)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrConfig, err)
	}
	if _, err := c.RendererType(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrConfig, err)
	}
	if c.RenderConfig == "" {
		return fmt.Errorf("%w: render_config must name a render document", core.ErrConfig)
	}
	return nil
}

func (c *ApplicationConfig) Level() (core.LogLevel, error) {
	return core.ParseLogLevel(c.LogLevel)
}

func (c *ApplicationConfig) RendererType() (renderer.RendererType, error) {
	return renderer.ParseRendererType(c.Renderer)
}

// Marshal encodes the configuration back to TOML.
func (c *ApplicationConfig) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

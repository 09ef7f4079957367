package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"runtime"
	"sync"

	"github.com/womp-app/womp/internal/config"
)

// IconConfig describes a generated tray glyph.
type IconConfig struct {
	Size        int
	FrameColor  color.RGBA
	ScreenColor color.RGBA
	StandColor  color.RGBA
	// Dual draws two side by side screens.
	Dual bool
	// Stand draws a monitor foot under the screen.
	Stand bool
}

var iconConfigs = map[config.TrayIcon]IconConfig{
	config.TrayIconWomp: {
		Size:        32,
		FrameColor:  color.RGBA{0, 120, 212, 255},
		ScreenColor: color.RGBA{153, 235, 255, 255},
		StandColor:  color.RGBA{0, 90, 158, 255},
		Dual:        true,
	},
	config.TrayIconDisplay: {
		Size:        32,
		FrameColor:  color.RGBA{224, 224, 224, 255},
		ScreenColor: color.RGBA{66, 66, 66, 255},
		StandColor:  color.RGBA{224, 224, 224, 255},
	},
	config.TrayIconMonitor: {
		Size:        32,
		FrameColor:  color.RGBA{224, 224, 224, 255},
		ScreenColor: color.RGBA{66, 66, 66, 255},
		StandColor:  color.RGBA{189, 189, 189, 255},
		Stand:       true,
	},
}

var (
	iconMu    sync.Mutex
	iconCache = map[config.TrayIcon][]byte{}
)

// IconFor returns the encoded tray icon for name. Unknown names get the
// womp icon. On Windows the PNG is wrapped in an ICO container.
func IconFor(name string) []byte {
	key := config.ParseTrayIcon(name)

	iconMu.Lock()
	defer iconMu.Unlock()
	if b, ok := iconCache[key]; ok {
		return b
	}
	b := Generate(iconConfigs[key])
	if runtime.GOOS == "windows" {
		b = wrapICO(b, iconConfigs[key].Size)
	}
	iconCache[key] = b
	return b
}

// Generate draws cfg and returns PNG bytes.
func Generate(cfg IconConfig) []byte {
	size := cfg.Size
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	if cfg.Dual {
		half := size / 2
		drawScreen(img, cfg, image.Rect(1, size/4, half+2, size*3/4))
		drawScreen(img, cfg, image.Rect(half-2, size/4-3, size-1, size*3/4-3))
	} else {
		bottom := size - 3
		if cfg.Stand {
			bottom = size * 3 / 4
		}
		drawScreen(img, cfg, image.Rect(2, 4, size-2, bottom))
	}
	if cfg.Stand {
		drawStand(img, cfg)
	}

	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

// drawScreen draws a framed rectangle; later screens overlap earlier ones.
func drawScreen(img *image.RGBA, cfg IconConfig, r image.Rectangle) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			border := x-r.Min.X < 2 || r.Max.X-x <= 2 || y-r.Min.Y < 2 || r.Max.Y-y <= 2
			if border {
				img.Set(x, y, cfg.FrameColor)
			} else {
				img.Set(x, y, cfg.ScreenColor)
			}
		}
	}
}

func drawStand(img *image.RGBA, cfg IconConfig) {
	size := cfg.Size
	cx := size / 2
	top := size * 3 / 4
	for y := top; y < size-3; y++ {
		for x := cx - 2; x < cx+2; x++ {
			img.Set(x, y, cfg.StandColor)
		}
	}
	for y := size - 3; y < size-1; y++ {
		for x := cx - size/4; x < cx+size/4; x++ {
			img.Set(x, y, cfg.StandColor)
		}
	}
}

// wrapICO embeds a PNG image in a single-entry ICO file.
func wrapICO(pngData []byte, size int) []byte {
	var buf bytes.Buffer
	dim := byte(size)
	if size >= 256 {
		dim = 0
	}
	binary.Write(&buf, binary.LittleEndian, struct {
		Reserved, Type, Count uint16
	}{0, 1, 1})
	binary.Write(&buf, binary.LittleEndian, struct {
		Width, Height, Colors, Reserved uint8
		Planes, BitCount                uint16
		Size, Offset                    uint32
	}{dim, dim, 0, 0, 1, 32, uint32(len(pngData)), 6 + 16})
	buf.Write(pngData)
	return buf.Bytes()
}

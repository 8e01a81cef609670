package sketchpad

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/hajimehoshi/ebiten/v2"
)

// ColorMatrix is a 4x5 color matrix in row-major order:
// [R_r, R_g, R_b, R_a, R_offset, G_r, ...]. Components are straight alpha in
// [0, 1].
type ColorMatrix [20]float64

// IdentityColorMatrix leaves colors unchanged.
var IdentityColorMatrix = ColorMatrix{
	1, 0, 0, 0, 0,
	0, 1, 0, 0, 0,
	0, 0, 1, 0, 0,
	0, 0, 0, 1, 0,
}

// BrightnessMatrix scales RGB by b/100.
func BrightnessMatrix(b float64) ColorMatrix {
	k := clamp(b, 0, 200) / 100
	return ColorMatrix{
		k, 0, 0, 0, 0,
		0, k, 0, 0, 0,
		0, 0, k, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// ContrastMatrix scales RGB around mid-gray by c/100.
func ContrastMatrix(c float64) ColorMatrix {
	k := clamp(c, 0, 200) / 100
	t := (1 - k) / 2
	return ColorMatrix{
		k, 0, 0, 0, t,
		0, k, 0, 0, t,
		0, 0, k, 0, t,
		0, 0, 0, 1, 0,
	}
}

// Tone is a brightness stage followed by a contrast stage. Each stage clamps
// its output to [0, 1] before the next one runs, as chained CSS filters do,
// so the two cannot be folded into one matrix.
type Tone struct {
	Brightness ColorMatrix
	Contrast   ColorMatrix
}

// IdentityTone leaves colors unchanged.
var IdentityTone = Tone{Brightness: IdentityColorMatrix, Contrast: IdentityColorMatrix}

// BrightnessContrast returns the tone for brightness b% followed by
// contrast c%, both 100 = unchanged.
func BrightnessContrast(b, c float64) Tone {
	return Tone{Brightness: BrightnessMatrix(b), Contrast: ContrastMatrix(c)}
}

// IsIdentity reports whether t leaves colors unchanged.
func (t Tone) IsIdentity() bool {
	return t.Brightness.IsIdentity() && t.Contrast.IsIdentity()
}

func (t Tone) apply(r, g, b, a float64) (float64, float64, float64, float64) {
	r, g, b, a = t.Brightness.apply(r, g, b, a)
	return t.Contrast.apply(r, g, b, a)
}

// IsIdentity reports whether m leaves colors unchanged.
func (m ColorMatrix) IsIdentity() bool {
	return m == IdentityColorMatrix
}

// apply transforms one straight-alpha color.
func (m ColorMatrix) apply(r, g, b, a float64) (float64, float64, float64, float64) {
	return clamp01(m[0]*r + m[1]*g + m[2]*b + m[3]*a + m[4]),
		clamp01(m[5]*r + m[6]*g + m[7]*b + m[8]*a + m[9]),
		clamp01(m[10]*r + m[11]*g + m[12]*b + m[13]*a + m[14]),
		clamp01(m[15]*r + m[16]*g + m[17]*b + m[18]*a + m[19])
}

// filterImage returns a straight-alpha copy of src with tone applied and
// alpha multiplied by opacity. This is the CPU path used by export.
func filterImage(src image.Image, tone Tone, opacity float64) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	opacity = clamp01(opacity)
	identity := tone.IsIdentity()
	if identity && opacity == 1 {
		return dst
	}
	for i := 0; i < len(dst.Pix); i += 4 {
		a8 := dst.Pix[i+3]
		if a8 == 0 {
			continue
		}
		r := float64(dst.Pix[i]) / 255
		g := float64(dst.Pix[i+1]) / 255
		bl := float64(dst.Pix[i+2]) / 255
		a := float64(a8) / 255
		if !identity {
			r, g, bl, a = tone.apply(r, g, bl, a)
		}
		dst.Pix[i] = to8(r)
		dst.Pix[i+1] = to8(g)
		dst.Pix[i+2] = to8(bl)
		dst.Pix[i+3] = to8(a * opacity)
	}
	return dst
}

// placeholderImage is drawn for features whose image failed to load.
func placeholderImage(w, h int) *image.NRGBA {
	if w < 2 {
		w = 2
	}
	if h < 2 {
		h = 2
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	fill := color.NRGBA{0xe5, 0xe7, 0xeb, 0xff}
	edge := color.NRGBA{0x9c, 0xa3, 0xaf, 0xff}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := fill
			if x == 0 || y == 0 || x == w-1 || y == h-1 || x*h/w == y || (w-1-x)*h/w == y {
				c = edge
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// --- Kage shader ---
// Ebitengine uses premultiplied alpha; the shader un-premultiplies before
// applying the stages and re-premultiplies the output.

const toneShaderSrc = `//kage:unit pixels
package main

var Brightness [20]float
var Contrast [20]float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c := imageSrc0At(src)
	if c.a > 0 {
		c.rgb /= c.a
	}
	r := clamp(Brightness[0]*c.r+Brightness[1]*c.g+Brightness[2]*c.b+Brightness[3]*c.a+Brightness[4], 0, 1)
	g := clamp(Brightness[5]*c.r+Brightness[6]*c.g+Brightness[7]*c.b+Brightness[8]*c.a+Brightness[9], 0, 1)
	b := clamp(Brightness[10]*c.r+Brightness[11]*c.g+Brightness[12]*c.b+Brightness[13]*c.a+Brightness[14], 0, 1)
	a := clamp(Brightness[15]*c.r+Brightness[16]*c.g+Brightness[17]*c.b+Brightness[18]*c.a+Brightness[19], 0, 1)
	r2 := clamp(Contrast[0]*r+Contrast[1]*g+Contrast[2]*b+Contrast[3]*a+Contrast[4], 0, 1)
	g2 := clamp(Contrast[5]*r+Contrast[6]*g+Contrast[7]*b+Contrast[8]*a+Contrast[9], 0, 1)
	b2 := clamp(Contrast[10]*r+Contrast[11]*g+Contrast[12]*b+Contrast[13]*a+Contrast[14], 0, 1)
	a2 := clamp(Contrast[15]*r+Contrast[16]*g+Contrast[17]*b+Contrast[18]*a+Contrast[19], 0, 1)
	return vec4(r2*a2, g2*a2, b2*a2, a2)
}
`

// Lazy shader compilation (no sync.Once: rendering happens on the game loop).
var toneShader *ebiten.Shader

func ensureToneShader() *ebiten.Shader {
	if toneShader == nil {
		s, err := ebiten.NewShader([]byte(toneShaderSrc))
		if err != nil {
			panic("sketchpad: failed to compile tone shader: " + err.Error())
		}
		toneShader = s
	}
	return toneShader
}

// ToneFilter applies a Tone on the GPU.
type ToneFilter struct {
	Tone       Tone
	uniforms   map[string]any
	brightness [20]float32 // persistent buffers to avoid per-frame slice escape
	contrast   [20]float32
	shaderOp   ebiten.DrawRectShaderOptions
}

// NewToneFilter creates a filter initialized to t.
func NewToneFilter(t Tone) *ToneFilter {
	f := &ToneFilter{Tone: t, uniforms: make(map[string]any, 2)}
	f.uniforms["Brightness"] = f.brightness[:]
	f.uniforms["Contrast"] = f.contrast[:]
	return f
}

// Apply renders src into dst with the tone applied.
func (f *ToneFilter) Apply(src, dst *ebiten.Image) {
	shader := ensureToneShader()
	for i := range f.Tone.Brightness {
		f.brightness[i] = float32(f.Tone.Brightness[i])
		f.contrast[i] = float32(f.Tone.Contrast[i])
	}
	bounds := src.Bounds()
	f.shaderOp.Images[0] = src
	f.shaderOp.Uniforms = f.uniforms
	dst.DrawRectShader(bounds.Dx(), bounds.Dy(), shader, &f.shaderOp)
}

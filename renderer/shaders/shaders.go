// Package shaders embeds the WGSL sources for every pass, keyed by
// logical pass name. The render graph treats these as opaque programs
// matched to each pass's declared bind group layouts; a mismatch is a
// setup-time error.
package shaders

import (
	_ "embed"
)

//go:embed geometry.wgsl
var GeometryWGSL string

//go:embed ambient.wgsl
var AmbientWGSL string

//go:embed lighting.wgsl
var LightingWGSL string

//go:embed shadow.wgsl
var ShadowWGSL string

//go:embed ssao.wgsl
var SsaoWGSL string

//go:embed skybox.wgsl
var SkyboxWGSL string

//go:embed tonemap.wgsl
var TonemapWGSL string

//go:embed fxaa.wgsl
var FxaaWGSL string

//go:embed hiz.wgsl
var HizWGSL string

//go:embed animate.wgsl
var AnimateWGSL string

//go:embed blit.wgsl
var BlitWGSL string

//go:embed overlay.wgsl
var OverlayWGSL string

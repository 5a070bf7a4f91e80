// Demo scene: a grid of spinning cubes under a moving sun, a handful
// of colored point lights, and an on-screen stats overlay.
package main

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/IcanDivideBy0/calva/overlay"
	"github.com/IcanDivideBy0/calva/renderer"
	"github.com/IcanDivideBy0/calva/renderer/pass"
)

const (
	windowWidth  = 1280
	windowHeight = 720
)

func main() {
	runtime.LockOSThread()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw init: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(windowWidth, windowHeight, "calva demo", nil, nil)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer win.Destroy()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(win))
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("request adapter: %w", err)
	}

	log := renderer.NewDefaultLogger("calva", os.Getenv("CALVA_DEBUG") != "")
	r, err := renderer.New(adapter, surface, windowWidth, windowHeight, log)
	if err != nil {
		return fmt.Errorf("renderer: %w", err)
	}

	graph, err := pass.NewGraph(r, windowWidth, windowHeight)
	if err != nil {
		return fmt.Errorf("pass graph: %w", err)
	}

	ui, err := overlay.New(r)
	if err != nil {
		return fmt.Errorf("overlay: %w", err)
	}
	graph.Overlay = ui

	var font *overlay.FontAtlas
	var fontTexture overlay.TextureId
	if path := os.Getenv("CALVA_FONT"); path != "" {
		if font, err = overlay.LoadFontAtlas(path, 18); err != nil {
			return fmt.Errorf("font: %w", err)
		}
		if fontTexture, err = ui.AddFontAtlas(font); err != nil {
			return fmt.Errorf("font texture: %w", err)
		}
	}

	scene, err := buildScene(r)
	if err != nil {
		return fmt.Errorf("scene: %w", err)
	}

	// Resize via polling: comparing framebuffer size per frame avoids
	// callback re-entrancy during live resizes.
	lastW, lastH := windowWidth, windowHeight

	last := time.Now()
	start := last
	for !win.ShouldClose() {
		glfw.PollEvents()

		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now
		elapsed := float32(now.Sub(start).Seconds())

		if w, h := win.GetFramebufferSize(); (w != lastW || h != lastH) && w > 0 && h > 0 {
			lastW, lastH = w, h
			r.Resize(uint32(w), uint32(h))
			if err := graph.Resize(uint32(w), uint32(h)); err != nil {
				return fmt.Errorf("resize: %w", err)
			}
		}

		updateScene(r, graph, scene, elapsed)

		aspect := float32(lastW) / float32(lastH)
		eye := mgl32.Vec3{
			float32(math.Cos(float64(elapsed*0.2))) * 14,
			8,
			float32(math.Sin(float64(elapsed*0.2))) * 14,
		}
		view := mgl32.LookAtV(eye, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 1, 0})
		proj := mgl32.Perspective(mgl32.DegToRad(60), aspect, 0.1, 200)
		r.Camera.Update(view, proj)
		r.UpdateConfig()

		if font != nil {
			ui.Submit(ui.Rect(8, 8, 260, 120, [4]float32{0, 0, 0, 0.55}))
			ui.Submit(font.Layout(fontTexture, r.Profiler.String(), 16, 16, 1, [4]float32{1, 1, 1, 1}))
		}

		if err := graph.Render(dt); err != nil {
			return fmt.Errorf("render: %w", err)
		}
	}

	return nil
}

type demoScene struct {
	cube   renderer.MeshHandle
	ground renderer.MeshHandle
	lights []renderer.LightHandle
}

func buildScene(r *renderer.Renderer) (*demoScene, error) {
	s := &demoScene{}

	material, err := r.Materials.Add(renderer.Material{})
	if err != nil {
		return nil, err
	}

	var cube cubeMesh
	cube.build(1)
	if s.cube, err = r.Meshes.Add(
		renderer.BoundingSphere{Radius: float32(math.Sqrt(3)) / 2},
		cube.positions, cube.normals, cube.tangents, cube.uv0, cube.indices,
		renderer.NoSkin,
	); err != nil {
		return nil, err
	}

	var ground cubeMesh
	ground.build(1)
	if s.ground, err = r.Meshes.Add(
		renderer.BoundingSphere{Radius: float32(math.Sqrt(3)) / 2},
		ground.positions, ground.normals, ground.tangents, ground.uv0, ground.indices,
		renderer.NoSkin,
	); err != nil {
		return nil, err
	}

	instances := make([]renderer.Instance, 0, 26)
	for x := -2; x <= 2; x++ {
		for z := -2; z <= 2; z++ {
			instances = append(instances, renderer.Instance{
				Transform: mgl32.Translate3D(float32(x)*2.5, 1, float32(z)*2.5),
				Mesh:      s.cube,
				Material:  material,
			})
		}
	}
	instances = append(instances, renderer.Instance{
		Transform: mgl32.Translate3D(0, -0.5, 0).Mul4(mgl32.Scale3D(20, 0.5, 20)),
		Mesh:      s.ground,
		Material:  material,
	})
	if err := r.Instances.Add(instances...); err != nil {
		return nil, err
	}

	colors := []mgl32.Vec3{{1, 0.3, 0.2}, {0.2, 0.8, 1}, {0.9, 0.9, 0.3}}
	for i, c := range colors {
		angle := float64(i) * 2 * math.Pi / float64(len(colors))
		light, err := r.PointLights.Add(renderer.PointLight{
			Position: mgl32.Vec3{float32(math.Cos(angle)) * 6, 3, float32(math.Sin(angle)) * 6},
			Radius:   12,
			Color:    c.Mul(4),
		})
		if err != nil {
			return nil, err
		}
		s.lights = append(s.lights, light)
	}

	return s, nil
}

func updateScene(r *renderer.Renderer, graph *pass.Graph, s *demoScene, elapsed float32) {
	sunAngle := elapsed * 0.1
	graph.Shadow.SetSun(
		mgl32.Vec3{float32(math.Cos(float64(sunAngle))), -1, float32(math.Sin(float64(sunAngle)))},
		mgl32.Vec3{1, 0.96, 0.9}, 3,
		mgl32.Vec3{0, 0, 0}, 30,
	)
}

// cubeMesh builds the attribute streams of a unit cube, 4 vertices per
// face so normals stay hard.
type cubeMesh struct {
	positions []byte
	normals   []byte
	tangents  []byte
	uv0       []byte
	indices   []uint32
}

func (c *cubeMesh) build(size float32) {
	h := size / 2
	faces := []struct {
		normal  mgl32.Vec3
		tangent mgl32.Vec3
		corners [4]mgl32.Vec3
	}{
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, [4]mgl32.Vec3{{-h, -h, h}, {h, -h, h}, {h, h, h}, {-h, h, h}}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, [4]mgl32.Vec3{{h, -h, -h}, {-h, -h, -h}, {-h, h, -h}, {h, h, -h}}},
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, [4]mgl32.Vec3{{h, -h, h}, {h, -h, -h}, {h, h, -h}, {h, h, h}}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, [4]mgl32.Vec3{{-h, -h, -h}, {-h, -h, h}, {-h, h, h}, {-h, h, -h}}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, [4]mgl32.Vec3{{-h, h, h}, {h, h, h}, {h, h, -h}, {-h, h, -h}}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, [4]mgl32.Vec3{{-h, -h, -h}, {h, -h, -h}, {h, -h, h}, {-h, -h, h}}},
	}
	uvs := [4]mgl32.Vec2{{0, 1}, {1, 1}, {1, 0}, {0, 0}}

	for f, face := range faces {
		base := uint32(f * 4)
		for i, corner := range face.corners {
			c.positions = appendFloats(c.positions, corner[0], corner[1], corner[2])
			c.normals = appendFloats(c.normals, face.normal[0], face.normal[1], face.normal[2])
			c.tangents = appendFloats(c.tangents, face.tangent[0], face.tangent[1], face.tangent[2], 1)
			c.uv0 = appendFloats(c.uv0, uvs[i][0], uvs[i][1])
		}
		c.indices = append(c.indices, base, base+1, base+2, base, base+2, base+3)
	}
}

func appendFloats(dst []byte, values ...float32) []byte {
	for _, v := range values {
		bits := math.Float32bits(v)
		dst = append(dst, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
	}
	return dst
}

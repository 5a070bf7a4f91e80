package renderer

import (
	"fmt"
	"math"
	"sort"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	MaxAnimations      = 64
	MaxJoints          = 64
	MaxAnimationFrames = 256

	// AnimationSampleRate is the bake rate of the joint-matrix texture,
	// in frames per second.
	AnimationSampleRate float32 = 60
)

type AnimationHandle uint16

// AnimationState is the mutable per-instance playback record. The
// Animate compute pass advances Time in place every frame.
type AnimationState struct {
	Animation AnimationHandle
	Time      float32
}

// Vec3Channel is an ordered (time, value) keyframe sequence for a
// translation or scale track. Times must be strictly increasing.
type Vec3Channel struct {
	Times  []float32
	Values []mgl32.Vec3
}

// QuatChannel is the rotation counterpart; interpolation is spherical.
type QuatChannel struct {
	Times  []float32
	Values []mgl32.Quat
}

// sampleSpan locates the interpolation span for time t: the index of
// the first keyframe strictly greater than t, following the
// clamp-clamp contract. Returns (i, i, 0) at the head, (n-1, n-1, 0)
// at the tail, and an interpolation factor in between. No
// extrapolation, no cyclic wraparound.
func sampleSpan(times []float32, t float32) (prev, next int, factor float32) {
	n := len(times)
	next = sort.Search(n, func(i int) bool { return times[i] > t })
	if next == n {
		return n - 1, n - 1, 0 // clamp at tail
	}
	if next == 0 {
		return 0, 0, 0 // clamp at head
	}
	prev = next - 1
	factor = (t - times[prev]) / (times[next] - times[prev])
	return prev, next, factor
}

func (c *Vec3Channel) Sample(t float32) (mgl32.Vec3, error) {
	if len(c.Times) == 0 {
		return mgl32.Vec3{}, ErrNoKeyframes
	}
	prev, next, factor := sampleSpan(c.Times, t)
	if prev == next {
		return c.Values[prev], nil
	}
	a, b := c.Values[prev], c.Values[next]
	return a.Add(b.Sub(a).Mul(factor)), nil
}

func (c *QuatChannel) Sample(t float32) (mgl32.Quat, error) {
	if len(c.Times) == 0 {
		return mgl32.Quat{}, ErrNoKeyframes
	}
	prev, next, factor := sampleSpan(c.Times, t)
	if prev == next {
		return c.Values[prev], nil
	}
	return mgl32.QuatSlerp(c.Values[prev], c.Values[next], factor), nil
}

// JointChannels holds the flattened global-space T/R/S tracks of one
// joint, as produced by the model-loading collaborator.
type JointChannels struct {
	Translation Vec3Channel
	Rotation    QuatChannel
	Scale       Vec3Channel
}

// SampleMatrix composes the joint's global transform at time t.
func (j *JointChannels) SampleMatrix(t float32) (mgl32.Mat4, error) {
	translation, err := j.Translation.Sample(t)
	if err != nil {
		return mgl32.Ident4(), err
	}
	rotation, err := j.Rotation.Sample(t)
	if err != nil {
		return mgl32.Ident4(), err
	}
	scale, err := j.Scale.Sample(t)
	if err != nil {
		return mgl32.Ident4(), err
	}
	m := mgl32.Translate3D(translation[0], translation[1], translation[2])
	m = m.Mul4(rotation.Mat4())
	m = m.Mul4(mgl32.Scale3D(scale[0], scale[1], scale[2]))
	return m, nil
}

// bakeRate returns the frame count and effective sample rate for one
// clip. A clip longer than the texture height allows is baked at a
// reduced rate so the frames still span the whole duration; the stored
// rate is what the shaders use for the time-to-frame mapping, so slow
// clips stay in sync with the wrapping playback clock.
func bakeRate(duration float32) (frames uint32, rate float32) {
	rate = AnimationSampleRate
	frames = uint32(math.Ceil(float64(duration*rate))) + 1
	if frames > MaxAnimationFrames {
		frames = MaxAnimationFrames
		rate = float32(frames-1) / duration
	}
	return frames, rate
}

// animationInfo is the per-animation GPU metadata record.
//
// Struct AnimationInfo {
//   frame_count: u32;  -- 4
//   joint_count: u32;  -- 8
//   rate: f32;         -- 12
//   duration: f32;     -- 16
// }
type animationInfo struct {
	FrameCount uint32
	JointCount uint32
	Rate       float32
	Duration   float32
}

const animationInfoSize = uint64(unsafe.Sizeof(animationInfo{}))

// AnimationManager bakes CPU keyframe channels into an RGBA32F
// joint-transform texture array, one layer per animation. Texel layout:
// x = joint*4 + matrix column, y = frame. The Animate pass and the
// skinned geometry pipeline index into it with (animation, time).
type AnimationManager struct {
	device *wgpu.Device
	queue  *wgpu.Queue
	log    Logger

	cursor  uint32
	texture *wgpu.Texture
	view    *wgpu.TextureView
	infos   *wgpu.Buffer

	durations [MaxAnimations]float32
}

func NewAnimationManager(device *wgpu.Device, log Logger) (*AnimationManager, error) {
	texture, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Animation joint matrices",
		Size: wgpu.Extent3D{
			Width:              MaxJoints * 4,
			Height:             MaxAnimationFrames,
			DepthOrArrayLayers: MaxAnimations,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA32Float,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	view, err := texture.CreateView(&wgpu.TextureViewDescriptor{
		Label:           "Animation joint matrices view",
		Format:          wgpu.TextureFormatRGBA32Float,
		Dimension:       wgpu.TextureViewDimension2DArray,
		MipLevelCount:   1,
		ArrayLayerCount: MaxAnimations,
	})
	if err != nil {
		return nil, err
	}
	infos, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "AnimationInfo",
		Size:  MaxAnimations * animationInfoSize,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}

	return &AnimationManager{
		device:  device,
		queue:   device.GetQueue(),
		log:     log,
		texture: texture,
		view:    view,
		infos:   infos,
	}, nil
}

// Add bakes one animation: samples every joint's channels at the fixed
// rate over [0, duration], multiplies by the joint's inverse bind
// matrix, and uploads the frames into the next free texture layer.
func (m *AnimationManager) Add(joints []JointChannels, inverseBind []mgl32.Mat4, duration float32) (AnimationHandle, error) {
	if len(joints) == 0 || len(joints) > MaxJoints {
		return 0, fmt.Errorf("animation must have 1..%d joints, got %d", MaxJoints, len(joints))
	}
	if len(inverseBind) != len(joints) {
		return 0, fmt.Errorf("inverse bind count %d does not match joint count %d", len(inverseBind), len(joints))
	}
	if m.cursor >= MaxAnimations {
		return 0, fmt.Errorf("%w: over %d", ErrAnimationCapacity, MaxAnimations)
	}

	frames, rate := bakeRate(duration)

	// One row per frame, 4 texels per joint matrix column-major.
	texels := make([]float32, frames*MaxJoints*4*4)
	for frame := uint32(0); frame < frames; frame++ {
		t := float32(frame) / rate
		if t > duration {
			t = duration
		}
		row := texels[frame*MaxJoints*4*4 : (frame+1)*MaxJoints*4*4]
		for j := range joints {
			global, err := joints[j].SampleMatrix(t)
			if err != nil {
				return 0, fmt.Errorf("joint %d: %w", j, err)
			}
			matrix := global.Mul4(inverseBind[j])
			copy(row[j*16:(j+1)*16], matrix[:])
		}
	}

	layer := m.cursor
	m.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  m.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{X: 0, Y: 0, Z: layer},
			Aspect:   wgpu.TextureAspectAll,
		},
		unsafe.Slice((*byte)(unsafe.Pointer(&texels[0])), len(texels)*4),
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  MaxJoints * 4 * 16,
			RowsPerImage: frames,
		},
		&wgpu.Extent3D{Width: MaxJoints * 4, Height: frames, DepthOrArrayLayers: 1},
	)

	info := animationInfo{
		FrameCount: frames,
		JointCount: uint32(len(joints)),
		Rate:       rate,
		Duration:   duration,
	}
	m.queue.WriteBuffer(m.infos, uint64(layer)*animationInfoSize, podBytes(&info))

	m.durations[layer] = duration
	m.cursor++
	m.log.Debugf("animation %d: %d joints, %d frames, %.2fs", layer, len(joints), frames, duration)
	return AnimationHandle(layer), nil
}

func (m *AnimationManager) Count() uint32 { return m.cursor }

func (m *AnimationManager) Duration(h AnimationHandle) float32 { return m.durations[h] }

func (m *AnimationManager) View() *wgpu.TextureView { return m.view }
func (m *AnimationManager) Infos() *wgpu.Buffer     { return m.infos }

package renderer

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleSpan_ClampsAtBothEnds(t *testing.T) {
	times := []float32{1.0, 2.0, 4.0}

	prev, next, factor := sampleSpan(times, 0.5)
	if prev != 0 || next != 0 || factor != 0 {
		t.Errorf("before head: got (%d, %d, %v), want (0, 0, 0)", prev, next, factor)
	}

	prev, next, factor = sampleSpan(times, 5.0)
	if prev != 2 || next != 2 || factor != 0 {
		t.Errorf("past tail: got (%d, %d, %v), want (2, 2, 0)", prev, next, factor)
	}

	prev, next, factor = sampleSpan(times, 1.5)
	if prev != 0 || next != 1 {
		t.Errorf("mid: got span (%d, %d), want (0, 1)", prev, next)
	}
	assert.InDelta(t, 0.5, factor, 1e-6)

	// Sampling exactly on a keyframe lands at the start of the next
	// span with factor 0.
	prev, next, factor = sampleSpan(times, 2.0)
	if prev != 1 || next != 2 || factor != 0 {
		t.Errorf("on keyframe: got (%d, %d, %v), want (1, 2, 0)", prev, next, factor)
	}
}

func TestVec3Channel_Sample(t *testing.T) {
	c := Vec3Channel{
		Times:  []float32{1.0, 2.0},
		Values: []mgl32.Vec3{{10, 0, 0}, {20, 0, 0}},
	}

	v, err := c.Sample(1.3)
	require.NoError(t, err)
	assert.InDelta(t, 13.0, v.X(), 1e-5)

	v, err = c.Sample(0)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{10, 0, 0}, v, "clamped at head")

	v, err = c.Sample(3)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{20, 0, 0}, v, "clamped at tail")
}

func TestVec3Channel_EmptyChannelFailsFast(t *testing.T) {
	var c Vec3Channel
	_, err := c.Sample(0)
	if !errors.Is(err, ErrNoKeyframes) {
		t.Fatalf("err = %v, want ErrNoKeyframes", err)
	}
}

func TestQuatChannel_SampleEndpoints(t *testing.T) {
	a := mgl32.QuatIdent()
	b := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	c := QuatChannel{Times: []float32{0, 1}, Values: []mgl32.Quat{a, b}}

	q, err := c.Sample(0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, float64(q.W), 1e-5)

	q, err = c.Sample(1)
	require.NoError(t, err)
	assert.InDelta(t, float64(b.W), float64(q.W), 1e-5)

	// Halfway is a 45 degree rotation about Y.
	q, err = c.Sample(0.5)
	require.NoError(t, err)
	rotated := q.Rotate(mgl32.Vec3{1, 0, 0})
	assert.InDelta(t, 0.7071, float64(rotated.X()), 1e-3)
	assert.InDelta(t, -0.7071, float64(rotated.Z()), 1e-3)
}

func TestJointChannels_SampleMatrix(t *testing.T) {
	j := JointChannels{
		Translation: Vec3Channel{
			Times:  []float32{0, 1},
			Values: []mgl32.Vec3{{0, 0, 0}, {4, 0, 0}},
		},
		Rotation: QuatChannel{
			Times:  []float32{0},
			Values: []mgl32.Quat{mgl32.QuatIdent()},
		},
		Scale: Vec3Channel{
			Times:  []float32{0},
			Values: []mgl32.Vec3{{2, 2, 2}},
		},
	}

	m, err := j.SampleMatrix(0.5)
	require.NoError(t, err)

	p := m.Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.InDelta(t, 4.0, float64(p.X()), 1e-5, "translate 2 plus scale 2")
	assert.InDelta(t, 0.0, float64(p.Y()), 1e-5)

	// A missing track propagates the error.
	j.Rotation = QuatChannel{}
	_, err = j.SampleMatrix(0.5)
	if !errors.Is(err, ErrNoKeyframes) {
		t.Fatalf("err = %v, want ErrNoKeyframes", err)
	}
}

func TestBakeRate(t *testing.T) {
	frames, rate := bakeRate(1)
	assert.Equal(t, uint32(61), frames)
	assert.Equal(t, AnimationSampleRate, rate)

	// A clip longer than the frame budget bakes at a reduced rate so
	// the last frame still lands on the clip's end instead of 60 fps
	// frames freezing after the budget runs out.
	frames, rate = bakeRate(10)
	assert.Equal(t, uint32(MaxAnimationFrames), frames)
	assert.InDelta(t, 25.5, float64(rate), 1e-5)
	assert.InDelta(t, 10.0, float64(float32(frames-1)/rate), 1e-4, "baked frames span the whole duration")

	// The shader's time-to-frame mapping pins the clip's end to the
	// last baked frame.
	lastFrame := uint32(10 * rate)
	assert.Equal(t, frames-1, lastFrame)
}

func TestAnimationManager_AddValidation(t *testing.T) {
	m := &AnimationManager{log: NewNopLogger()}

	_, err := m.Add(nil, nil, 1)
	assert.Error(t, err, "zero joints")

	joints := make([]JointChannels, 3)
	_, err = m.Add(joints, make([]mgl32.Mat4, 2), 1)
	assert.Error(t, err, "inverse bind count mismatch")

	m.cursor = MaxAnimations
	_, err = m.Add(joints, make([]mgl32.Mat4, 3), 1)
	if !errors.Is(err, ErrAnimationCapacity) {
		t.Fatalf("err = %v, want ErrAnimationCapacity", err)
	}
}

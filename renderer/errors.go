package renderer

import "errors"

// Capacity exhaustion is always a reported error at the Add call site,
// never a silent wraparound into another resource's range.
var (
	ErrMeshCapacity      = errors.New("mesh arena full")
	ErrVertexCapacity    = errors.New("vertex arena full")
	ErrIndexCapacity     = errors.New("index arena full")
	ErrSkinCapacity      = errors.New("skin arena full")
	ErrMaterialCapacity  = errors.New("material arena full")
	ErrTextureCapacity   = errors.New("texture array full")
	ErrLightCapacity     = errors.New("point light arena full")
	ErrInstanceCapacity  = errors.New("instance arena full")
	ErrAnimationCapacity = errors.New("animation arena full")

	// ErrNoKeyframes reports sampling of an animation channel that has
	// no keyframes at all. There is no sane default transform to guess.
	ErrNoKeyframes = errors.New("animation channel has no keyframes")

	// ErrSkyboxFaces reports a cubemap upload that is not six square
	// faces of the same size.
	ErrSkyboxFaces = errors.New("skybox needs six square faces of equal size")
)

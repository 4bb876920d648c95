package components

import (
	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

/**
 * @brief Represents a camera that can be used for
 * a variety of things, especially rendering. Ideally,
 * these are created and managed by the camera system.
 */
type Camera struct {
	/**
	 * @brief The position of this camera.
	 * NOTE: Do not set this directly, use camera_positon_set() instead
	 * so the view matrix is recalculated when needed.
	 */
	Position math.Vec3
	/**
	 * @brief The rotation of this camera using Euler angles (pitch, yaw, roll).
	 * NOTE: Do not set this directly, use camera_rotation_euler_set() instead
	 * so the view matrix is recalculated when needed.
	 */
	EulerRotation math.Vec3
	/** @brief Internal flag used to determine when the view matrix needs to be rebuilt. */
	IsDirty bool
	/**
	 * @brief The view matrix of this camera.
	 * NOTE: IMPORTANT: Do not get this directly, use camera_view_get() instead
	 * so the view matrix is recalculated when needed.
	 */
	ViewMatrix math.Mat4

	/** @brief Projection parameters used to derive GetProjectionMatrix/GetFrustum. */
	Projection CameraProjection
}

type CameraLookup struct {
	ID             uint16
	ReferenceCount uint16
	Camera         *Camera
}

/** @brief Camera projection parameters and derived frustum state, per spec.md §4.6. */
type CameraProjection struct {
	Type          metadata.ProjectionType
	FOVRadians    float32
	AspectRatio   float32
	NearClip      float32
	FarClip       float32 // 0 means infinite far
	OrthoWidth    float32
	OrthoHeight   float32
	ReverseZ      bool
}

func (c *Camera) SetProjection(p CameraProjection) {
	c.Projection = p
	c.IsDirty = true
}

// GetProjectionMatrix returns the clip-space projection matrix. When
// ReverseZ is enabled, it is post-multiplied by the reversal matrix that
// maps far->0, near->1 (spec.md §4.6 "Reverse-Z"), per DESIGN NOTES
// "the projection matrix for orthographic modes must still be composed
// with the reversal matrix when reverse-Z is active".
func (c *Camera) GetProjectionMatrix() math.Mat4 {
	p := c.Projection
	var proj math.Mat4
	switch p.Type {
	case metadata.ProjectionOrthographic, metadata.ProjectionDiagonalOrthographic:
		hw, hh := p.OrthoWidth*0.5, p.OrthoHeight*0.5
		if p.Type == metadata.ProjectionDiagonalOrthographic {
			// TODO: re-derive the true clip volume instead of the 2x
			// empirical over-estimate the original used here (spec open question).
			hw *= 2
			hh *= 2
		}
		proj = math.NewMat4Orthographic(-hw, hw, -hh, hh, p.NearClip, p.FarClip)
	case metadata.ProjectionIdentity:
		proj = math.NewMat4Identity()
	default:
		proj = math.NewMat4Perspective(p.FOVRadians, p.AspectRatio, p.NearClip, p.FarClip)
	}
	if p.ReverseZ {
		proj = reverseZMatrix().Mul(proj)
	}
	return proj
}

func reverseZMatrix() math.Mat4 {
	m := math.NewMat4Identity()
	m.Data[10] = -1
	m.Data[14] = 1
	return m
}

// GetFrustum derives the camera's view frustum plus a world-space AABB.
// The near plane is always included: orthographic, diagonal-ortho and
// finite-far perspective give 6 planes; infinite-far perspective
// (FarClip == 0) omits the far plane, giving 5, and bounds its AABB with
// far corners at NearClip*10000.
func (c *Camera) GetFrustum() math.Frustum {
	view := c.GetView()
	camToWorld := view.Inverse()
	p := c.Projection

	infiniteFar := p.Type == metadata.ProjectionPerspective && p.FarClip == 0
	far := p.FarClip
	if infiniteFar {
		far = p.NearClip * 10000
	}

	var hnx, hny, hfx, hfy float32
	switch p.Type {
	case metadata.ProjectionOrthographic, metadata.ProjectionDiagonalOrthographic:
		hnx, hny = p.OrthoWidth*0.5, p.OrthoHeight*0.5
		hfx, hfy = hnx, hny
	default:
		tanHalf := math.Tanf(p.FOVRadians * 0.5)
		hny = p.NearClip * tanHalf
		hnx = hny * p.AspectRatio
		hfy = far * tanHalf
		hfx = hfy * p.AspectRatio
	}

	corners := [8]math.Vec3{
		camSpacePoint(camToWorld, -hnx, -hny, -p.NearClip),
		camSpacePoint(camToWorld, hnx, -hny, -p.NearClip),
		camSpacePoint(camToWorld, -hnx, hny, -p.NearClip),
		camSpacePoint(camToWorld, hnx, hny, -p.NearClip),
		camSpacePoint(camToWorld, -hfx, -hfy, -far),
		camSpacePoint(camToWorld, hfx, -hfy, -far),
		camSpacePoint(camToWorld, -hfx, hfy, -far),
		camSpacePoint(camToWorld, hfx, hfy, -far),
	}
	return math.NewFrustumFromCorners(corners, infiniteFar)
}

func camSpacePoint(camToWorld math.Mat4, x, y, z float32) math.Vec3 {
	return math.Vec3{X: x, Y: y, Z: z}.Transform(camToWorld)
}

/** @brief The name of the default camera. */
const DEFAULT_CAMERA_NAME string = "default"

func NewCamera() *Camera {
	camera := &Camera{}
	camera.Reset()
	return camera
}

func (c *Camera) Reset() {
	c.EulerRotation = math.NewVec3Zero()
	c.Position = math.NewVec3Zero()
	c.IsDirty = false
	c.ViewMatrix = math.NewMat4Identity()
	c.Projection = CameraProjection{
		Type:        metadata.ProjectionPerspective,
		FOVRadians:  math.DegToRad(45.0),
		AspectRatio: 16.0 / 9.0,
		NearClip:    0.1,
		FarClip:     1000.0,
	}
}

func (c *Camera) GetPosition() math.Vec3 {
	return c.Position
}

func (c *Camera) SetPosition(position math.Vec3) {
	c.Position = position
	c.IsDirty = true
}

func (c *Camera) GetEulerRotation() math.Vec3 {
	return c.EulerRotation
}

func (c *Camera) SetEulerRotation(rotation math.Vec3) {
	c.EulerRotation = rotation
	c.IsDirty = true
}

func (c *Camera) GetView() math.Mat4 {
	if c.IsDirty {
		rotation := math.NewMat4EulerXYZ(c.EulerRotation.X, c.EulerRotation.Y, c.EulerRotation.Z)
		translation := math.NewMat4Translation(c.Position)

		c.ViewMatrix = rotation.Mul(translation)
		c.ViewMatrix = c.ViewMatrix.Inverse()

		c.IsDirty = false
	}
	return c.ViewMatrix

}

func (c *Camera) Forward() math.Vec3 {
	view := c.GetView()
	return view.Forward()
}

func (c *Camera) Backward() math.Vec3 {
	view := c.GetView()
	return view.Backward()

}

func (c *Camera) Left() math.Vec3 {
	view := c.GetView()
	return view.Left()
}

func (c *Camera) Right() math.Vec3 {
	view := c.GetView()
	return view.Right()
}

func (c *Camera) MoveForward(amount float32) {
	direction := c.Forward()
	direction = direction.MulScalar(amount)
	c.Position = c.Position.Add(direction)
	c.IsDirty = true

}

func (c *Camera) MoveBackward(amount float32) {
	direction := c.Backward()
	direction = direction.MulScalar(amount)
	c.Position = c.Position.Add(direction)
	c.IsDirty = true

}

func (c *Camera) MoveLeft(amount float32) {
	direction := c.Left()
	direction = direction.MulScalar(amount)
	c.Position = c.Position.Add(direction)
	c.IsDirty = true

}

func (c *Camera) MoveRight(amount float32) {
	direction := c.Right()
	direction = direction.MulScalar(amount)
	c.Position = c.Position.Add(direction)
	c.IsDirty = true

}

func (c *Camera) MoveUp(amount float32) {
	direction := math.NewVec3Up()
	direction = direction.MulScalar(amount)
	c.Position = c.Position.Add(direction)
	c.IsDirty = true

}

func (c *Camera) MoveDown(amount float32) {
	direction := math.NewVec3Down()
	direction = direction.MulScalar(amount)
	c.Position = c.Position.Add(direction)
	c.IsDirty = true

}

func (c *Camera) Yaw(amount float32) {
	c.EulerRotation.Y += amount
	c.IsDirty = true

}

func (c *Camera) Pitch(amount float32) {
	c.EulerRotation.X += amount

	// Clamp to avoid Gimbal lock.
	limit := float32(1.55334306) // 89 degrees, or equivalent to deg_to_rad(89.0f);
	c.EulerRotation.X = math.Clamp(c.EulerRotation.X, -limit, limit)

	c.IsDirty = true
}

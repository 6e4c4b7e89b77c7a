package ephysics

import (
	"github.com/go-gl/mathgl/mgl64"
)

// ProxyShape binds a CollisionShape to a body with a local transform. A body
// carries one proxy shape per attached shape, so a compound body is just a
// body with several proxies. The proxy is what the broad phase tracks.
type ProxyShape struct {
	body                 *CollisionBody
	shape                CollisionShape
	localToBody          Transform
	mass                 float64
	broadPhaseID         int
	cachedSeparatingAxis mgl64.Vec3

	// Collision filtering bits. A pair is tested only if each proxy's
	// category is in the other's mask.
	collisionCategoryBits uint16
	collideWithMaskBits   uint16

	userData interface{}

	// next in the body's intrusive list
	next *ProxyShape
}

func newProxyShape(body *CollisionBody, shape CollisionShape, transform Transform, mass float64) *ProxyShape {
	return &ProxyShape{
		body:                  body,
		shape:                 shape,
		localToBody:           transform,
		mass:                  mass,
		broadPhaseID:          -1,
		cachedSeparatingAxis:  mgl64.Vec3{1, 0, 0},
		collisionCategoryBits: 0x0001,
		collideWithMaskBits:   0xFFFF,
	}
}

func (p *ProxyShape) Body() *CollisionBody           { return p.body }
func (p *ProxyShape) CollisionShape() CollisionShape { return p.shape }
func (p *ProxyShape) Mass() float64                  { return p.mass }
func (p *ProxyShape) UserData() interface{}          { return p.userData }
func (p *ProxyShape) SetUserData(data interface{})   { p.userData = data }

func (p *ProxyShape) LocalToBodyTransform() Transform { return p.localToBody }

// SetLocalToBodyTransform moves the shape relative to its body and re-syncs
// the broad phase.
func (p *ProxyShape) SetLocalToBodyTransform(transform Transform) {
	p.localToBody = transform
	p.body.world.collisionDetection.updateProxyShape(p, mgl64.Vec3{})
	if body, ok := p.body.world.rigidBodyOf(p.body); ok {
		body.SetIsSleeping(false)
	}
}

// LocalToWorldTransform returns the shape-to-world transform.
func (p *ProxyShape) LocalToWorldTransform() Transform {
	return p.body.transform.Mul(p.localToBody)
}

func (p *ProxyShape) CollisionCategoryBits() uint16 { return p.collisionCategoryBits }

func (p *ProxyShape) SetCollisionCategoryBits(bits uint16) {
	p.collisionCategoryBits = bits
}

func (p *ProxyShape) CollideWithMaskBits() uint16 { return p.collideWithMaskBits }

func (p *ProxyShape) SetCollideWithMaskBits(bits uint16) {
	p.collideWithMaskBits = bits
}

// TestPointInside reports whether a world-space point is inside the shape.
func (p *ProxyShape) TestPointInside(worldPoint mgl64.Vec3) bool {
	local := p.LocalToWorldTransform().Inverse().Point(worldPoint)
	return p.shape.TestPointInside(local, p)
}

// Raycast tests a world-space ray against the shape. On a hit, info holds
// world-space point and normal plus the body and proxy that were hit.
func (p *ProxyShape) Raycast(ray Ray, info *RaycastInfo) bool {
	if p.broadPhaseID == -1 {
		return false
	}

	worldToLocal := p.LocalToWorldTransform().Inverse()
	localRay := Ray{
		Point1:      worldToLocal.Point(ray.Point1),
		Point2:      worldToLocal.Point(ray.Point2),
		MaxFraction: ray.MaxFraction,
	}
	if !p.shape.Raycast(localRay, info, p) {
		return false
	}

	localToWorld := p.LocalToWorldTransform()
	info.WorldPoint = localToWorld.Point(info.WorldPoint)
	info.WorldNormal = localToWorld.Vector(info.WorldNormal)
	info.Body = p.body
	info.ProxyShape = p
	return true
}

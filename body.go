package ephysics

import (
	"github.com/go-gl/mathgl/mgl64"
)

// CollisionBody is a body that takes part in collision detection but has no
// dynamics. RigidBody embeds it and adds mass, velocity and forces.
type CollisionBody struct {
	id        uint64
	world     *CollisionWorld
	transform Transform

	proxyShapes   *ProxyShape
	nbProxyShapes int

	contactsList *ContactManifoldListElement

	isActive bool
	userData interface{}

	// set when the body is the collision part of a RigidBody
	rigid *RigidBody
}

// bodyToRigid returns the rigid body a collision body belongs to, or nil
// for a collision-only body.
func bodyToRigid(b *CollisionBody) *RigidBody { return b.rigid }

// ContactManifoldListElement is a node of a body's intrusive list of the
// manifolds it currently touches.
type ContactManifoldListElement struct {
	Manifold *ContactManifold
	Next     *ContactManifoldListElement
}

func newCollisionBody(transform Transform, world *CollisionWorld, id uint64) *CollisionBody {
	return &CollisionBody{
		id:        id,
		world:     world,
		transform: transform,
		isActive:  true,
	}
}

func (b *CollisionBody) ID() uint64                { return b.id }
func (b *CollisionBody) Transform() Transform      { return b.transform }
func (b *CollisionBody) IsActive() bool            { return b.isActive }
func (b *CollisionBody) UserData() interface{}     { return b.userData }
func (b *CollisionBody) SetUserData(d interface{}) { b.userData = d }

// SetTransform teleports the body and re-syncs its proxies in the broad
// phase.
func (b *CollisionBody) SetTransform(transform Transform) {
	b.transform = transform
	b.updateProxyShapes(mgl64.Vec3{})
}

// AddCollisionShape attaches a shape to the body with a body-local transform
// and registers it with the broad phase. The returned proxy identifies the
// attachment for later removal.
func (b *CollisionBody) AddCollisionShape(shape CollisionShape, transform Transform) *ProxyShape {
	proxy := newProxyShape(b, shape, transform, 1.0)
	proxy.next = b.proxyShapes
	b.proxyShapes = proxy
	b.nbProxyShapes++

	if b.isActive {
		b.world.collisionDetection.addProxyShape(proxy)
	}
	return proxy
}

// RemoveCollisionShape detaches a proxy from the body and the broad phase.
func (b *CollisionBody) RemoveCollisionShape(proxy *ProxyShape) {
	prev := (*ProxyShape)(nil)
	for current := b.proxyShapes; current != nil; current = current.next {
		if current == proxy {
			if prev == nil {
				b.proxyShapes = current.next
			} else {
				prev.next = current.next
			}
			if b.isActive {
				b.world.collisionDetection.removeProxyShape(current)
			}
			b.nbProxyShapes--
			return
		}
		prev = current
	}
}

func (b *CollisionBody) removeAllCollisionShapes() {
	for current := b.proxyShapes; current != nil; current = current.next {
		if b.isActive {
			b.world.collisionDetection.removeProxyShape(current)
		}
	}
	b.proxyShapes = nil
	b.nbProxyShapes = 0
}

// ProxyShapesList returns the head of the body's proxy shape list.
func (b *CollisionBody) ProxyShapesList() *ProxyShape { return b.proxyShapes }
func (b *CollisionBody) NbProxyShapes() int           { return b.nbProxyShapes }

// ContactManifoldsList returns the head of the body's current manifold list.
func (b *CollisionBody) ContactManifoldsList() *ContactManifoldListElement {
	return b.contactsList
}

func (b *CollisionBody) resetContactManifoldsList() {
	b.contactsList = nil
}

// SetIsActive adds or removes the body's proxies from collision detection.
func (b *CollisionBody) SetIsActive(isActive bool) {
	if b.isActive == isActive {
		return
	}
	b.isActive = isActive
	for current := b.proxyShapes; current != nil; current = current.next {
		if isActive {
			b.world.collisionDetection.addProxyShape(current)
		} else {
			b.world.collisionDetection.removeProxyShape(current)
		}
	}
}

// updateProxyShapes re-syncs every proxy with the broad phase after the body
// moved. displacement biases the fat AABBs toward the motion.
func (b *CollisionBody) updateProxyShapes(displacement mgl64.Vec3) {
	for current := b.proxyShapes; current != nil; current = current.next {
		b.world.collisionDetection.updateProxyShape(current, displacement)
	}
}

// TestPointInside reports whether a world point is inside any of the body's
// shapes.
func (b *CollisionBody) TestPointInside(worldPoint mgl64.Vec3) bool {
	for current := b.proxyShapes; current != nil; current = current.next {
		if current.TestPointInside(worldPoint) {
			return true
		}
	}
	return false
}

// Raycast tests a world ray against all the body's shapes and keeps the
// closest hit.
func (b *CollisionBody) Raycast(ray Ray, info *RaycastInfo) bool {
	if !b.isActive {
		return false
	}
	hit := false
	clipped := ray
	for current := b.proxyShapes; current != nil; current = current.next {
		var shapeInfo RaycastInfo
		shapeInfo.HitFraction = clipped.MaxFraction
		if current.Raycast(clipped, &shapeInfo) {
			hit = true
			clipped.MaxFraction = shapeInfo.HitFraction
			*info = shapeInfo
		}
	}
	return hit
}

// AABB returns the merged world bounds of all the body's shapes.
func (b *CollisionBody) AABB() AABB {
	var aabb AABB
	first := true
	for current := b.proxyShapes; current != nil; current = current.next {
		shapeAABB := current.shape.ComputeAABB(b.transform.Mul(current.localToBody))
		if first {
			aabb = shapeAABB
			first = false
		} else {
			aabb = MergeTwoAABBs(aabb, shapeAABB)
		}
	}
	return aabb
}

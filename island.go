package ephysics

// Island is a connected set of awake bodies linked by contacts or joints.
// Each island is solved independently: impulses cannot cross a static body,
// so splitting at static boundaries loses nothing.
type Island struct {
	bodies    []*RigidBody
	manifolds []*ContactManifold
	joints    []Joint
}

func newIsland(nbMaxBodies int) *Island {
	return &Island{bodies: make([]*RigidBody, 0, nbMaxBodies)}
}

func (island *Island) addBody(body *RigidBody) {
	island.bodies = append(island.bodies, body)
}

func (island *Island) addManifold(manifold *ContactManifold) {
	island.manifolds = append(island.manifolds, manifold)
}

func (island *Island) addJoint(joint Joint) {
	island.joints = append(island.joints, joint)
}

func (island *Island) NbBodies() int                 { return len(island.bodies) }
func (island *Island) NbManifolds() int              { return len(island.manifolds) }
func (island *Island) NbJoints() int                 { return len(island.joints) }
func (island *Island) Bodies() []*RigidBody          { return island.bodies }
func (island *Island) Manifolds() []*ContactManifold { return island.manifolds }

package ephysics

// ContactPointPool recycles contact points across steps. Contacts churn
// every frame while bodies settle, so points go back on a free list instead
// of being reallocated.
type ContactPointPool struct {
	free []*ContactPoint

	nbAllocated int
	nbInUse     int
}

func newContactPointPool() *ContactPointPool {
	return &ContactPointPool{}
}

// NewContactPoint returns an initialized contact point, reusing a released
// one when available.
func (p *ContactPointPool) NewContactPoint(info ContactPointInfo, transform1, transform2 Transform) *ContactPoint {
	var point *ContactPoint
	if n := len(p.free); n > 0 {
		point = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		point = &ContactPoint{}
		p.nbAllocated++
	}
	p.nbInUse++

	*point = ContactPoint{
		normal:           info.Normal,
		penetrationDepth: info.PenetrationDepth,
		localPointBody1:  info.LocalPoint1,
		localPointBody2:  info.LocalPoint2,
		worldPointBody1:  transform1.Point(info.LocalPoint1),
		worldPointBody2:  transform2.Point(info.LocalPoint2),
	}
	return point
}

// Release puts a contact point back on the free list.
func (p *ContactPointPool) Release(point *ContactPoint) {
	p.free = append(p.free, point)
	p.nbInUse--
}

// NbAllocated returns how many points were ever allocated by the pool.
func (p *ContactPointPool) NbAllocated() int { return p.nbAllocated }

// NbInUse returns how many points are currently held by manifolds.
func (p *ContactPointPool) NbInUse() int { return p.nbInUse }

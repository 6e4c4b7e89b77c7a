package ephysics

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// broadPhasePair is a candidate pair of proxy shapes whose fat AABBs overlap,
// keyed by broad phase IDs with shape1ID < shape2ID.
type broadPhasePair struct {
	shape1ID int
	shape2ID int
}

// BroadPhaseAlgorithm finds candidate collision pairs with a dynamic AABB
// tree. Shapes that moved since the last pass are queried against the tree
// and the resulting pairs are handed, deduplicated, to the narrow phase.
type BroadPhaseAlgorithm struct {
	tree *DynamicAABBTree

	// broad phase IDs of the proxies that moved or were added this step
	movedShapes []int

	potentialPairs []broadPhasePair

	collisionDetection *collisionDetection
}

func newBroadPhaseAlgorithm(collisionDetection *collisionDetection) *BroadPhaseAlgorithm {
	return &BroadPhaseAlgorithm{
		tree:               NewDynamicAABBTree(DYNAMIC_TREE_AABB_GAP),
		collisionDetection: collisionDetection,
	}
}

func (b *BroadPhaseAlgorithm) addMovedShape(broadPhaseID int) {
	b.movedShapes = append(b.movedShapes, broadPhaseID)
}

func (b *BroadPhaseAlgorithm) removeMovedShape(broadPhaseID int) {
	for i, id := range b.movedShapes {
		if id == broadPhaseID {
			b.movedShapes = append(b.movedShapes[:i], b.movedShapes[i+1:]...)
			return
		}
	}
}

// addProxyShape registers a shape with the tree using its current world AABB.
func (b *BroadPhaseAlgorithm) addProxyShape(proxy *ProxyShape, aabb AABB) {
	proxy.broadPhaseID = b.tree.AddObject(aabb, proxy)
	b.addMovedShape(proxy.broadPhaseID)
}

func (b *BroadPhaseAlgorithm) removeProxyShape(proxy *ProxyShape) {
	b.removeMovedShape(proxy.broadPhaseID)
	b.tree.RemoveObject(proxy.broadPhaseID)
	proxy.broadPhaseID = -1
}

// updateProxyShape refits the shape's leaf. The shape is flagged as moved
// only if the tree had to reinsert it, so resting shapes cost nothing.
func (b *BroadPhaseAlgorithm) updateProxyShape(proxy *ProxyShape, aabb AABB, displacement mgl64.Vec3) {
	if b.tree.UpdateObject(proxy.broadPhaseID, aabb, displacement, false) {
		b.addMovedShape(proxy.broadPhaseID)
	}
}

func (b *BroadPhaseAlgorithm) proxyShapeOf(nodeID int) *ProxyShape {
	return b.tree.GetNodeData(nodeID).(*ProxyShape)
}

// testOverlappingShapes reports whether the fat AABBs of two proxies overlap.
func (b *BroadPhaseAlgorithm) testOverlappingShapes(proxy1, proxy2 *ProxyShape) bool {
	if proxy1.broadPhaseID == -1 || proxy2.broadPhaseID == -1 {
		return false
	}
	return b.tree.GetFatAABB(proxy1.broadPhaseID).TestCollision(
		b.tree.GetFatAABB(proxy2.broadPhaseID))
}

// computeOverlappingPairs queries the tree for every moved shape and reports
// each new overlapping pair once to the narrow phase pair set.
func (b *BroadPhaseAlgorithm) computeOverlappingPairs() {
	b.potentialPairs = b.potentialPairs[:0]

	for _, shapeID := range b.movedShapes {
		if shapeID == -1 {
			continue
		}
		fatAABB := b.tree.GetFatAABB(shapeID)
		b.tree.ReportAllShapesOverlappingWithAABB(fatAABB, func(nodeID int) {
			if nodeID == shapeID {
				return
			}
			pair := broadPhasePair{shape1ID: shapeID, shape2ID: nodeID}
			if pair.shape1ID > pair.shape2ID {
				pair.shape1ID, pair.shape2ID = pair.shape2ID, pair.shape1ID
			}
			b.potentialPairs = append(b.potentialPairs, pair)
		})
	}
	b.movedShapes = b.movedShapes[:0]

	sort.Slice(b.potentialPairs, func(i, j int) bool {
		if b.potentialPairs[i].shape1ID != b.potentialPairs[j].shape1ID {
			return b.potentialPairs[i].shape1ID < b.potentialPairs[j].shape1ID
		}
		return b.potentialPairs[i].shape2ID < b.potentialPairs[j].shape2ID
	})

	for i, pair := range b.potentialPairs {
		if i > 0 && pair == b.potentialPairs[i-1] {
			continue
		}
		proxy1 := b.proxyShapeOf(pair.shape1ID)
		proxy2 := b.proxyShapeOf(pair.shape2ID)
		b.collisionDetection.broadPhaseNotifyOverlappingPair(proxy1, proxy2)
	}
}

// raycast walks the tree and tests every leaf crossed by the ray, clipping
// the ray to the closest hit found so far.
func (b *BroadPhaseAlgorithm) raycast(ray Ray, callback RaycastCallback, categoryMask uint16) {
	b.tree.Raycast(ray, func(nodeID int, clipped Ray) float64 {
		proxy := b.proxyShapeOf(nodeID)
		if proxy.collisionCategoryBits&categoryMask == 0 {
			return clipped.MaxFraction
		}
		var info RaycastInfo
		info.HitFraction = clipped.MaxFraction
		if proxy.Raycast(clipped, &info) {
			return callback(&info)
		}
		return clipped.MaxFraction
	})
}

package ephysics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func aabbAt(center mgl64.Vec3, halfExtent float64) AABB {
	e := mgl64.Vec3{halfExtent, halfExtent, halfExtent}
	return NewAABB(center.Sub(e), center.Add(e))
}

func TestDynamicAABBTree_AddRemove(t *testing.T) {
	tree := NewDynamicAABBTree(0)

	ids := make([]int, 0, 10)
	for i := 0; i < 10; i++ {
		id := tree.AddObject(aabbAt(mgl64.Vec3{float64(i) * 3, 0, 0}, 1), i)
		ids = append(ids, id)
	}
	tree.check()

	for _, id := range ids {
		if tree.GetNodeData(id).(int) < 0 {
			t.Error("bad node data")
		}
	}

	for _, id := range ids {
		tree.RemoveObject(id)
	}
	tree.check()
}

func TestDynamicAABBTree_FatAABB(t *testing.T) {
	tree := NewDynamicAABBTree(0.2)
	id := tree.AddObject(aabbAt(mgl64.Vec3{}, 1), 0)

	fat := tree.GetFatAABB(id)
	if !fat.Contains(aabbAt(mgl64.Vec3{}, 1)) {
		t.Error("fat AABB should contain the original")
	}
	if fat.Max.X() < 1.2-1e-12 {
		t.Error("fat AABB missing the gap", fat.Max)
	}
}

func TestDynamicAABBTree_Overlap(t *testing.T) {
	tree := NewDynamicAABBTree(0)
	a := tree.AddObject(aabbAt(mgl64.Vec3{0, 0, 0}, 1), "a")
	tree.AddObject(aabbAt(mgl64.Vec3{10, 0, 0}, 1), "b")
	tree.AddObject(aabbAt(mgl64.Vec3{0.5, 0, 0}, 1), "c")

	var found []string
	tree.ReportAllShapesOverlappingWithAABB(aabbAt(mgl64.Vec3{0, 0, 0}, 1.1), func(nodeID int) {
		found = append(found, tree.GetNodeData(nodeID).(string))
	})
	if len(found) != 2 {
		t.Fatal("expected 2 overlaps, got", found)
	}
	for _, name := range found {
		if name == "b" {
			t.Error("far box reported as overlapping")
		}
	}
	_ = a
}

func TestDynamicAABBTree_Update(t *testing.T) {
	tree := NewDynamicAABBTree(0.1)
	id := tree.AddObject(aabbAt(mgl64.Vec3{}, 1), 0)

	// Small move stays inside the fat AABB, no reinsert.
	if tree.UpdateObject(id, aabbAt(mgl64.Vec3{0.01, 0, 0}, 1), mgl64.Vec3{0.01, 0, 0}, false) {
		t.Error("tiny move should not reinsert")
	}
	// Large move leaves the fat AABB and must reinsert.
	if !tree.UpdateObject(id, aabbAt(mgl64.Vec3{5, 0, 0}, 1), mgl64.Vec3{5, 0, 0}, false) {
		t.Error("large move should reinsert")
	}
	tree.check()
}

func TestDynamicAABBTree_Raycast(t *testing.T) {
	tree := NewDynamicAABBTree(0)
	tree.AddObject(aabbAt(mgl64.Vec3{5, 0, 0}, 1), "near")
	tree.AddObject(aabbAt(mgl64.Vec3{20, 0, 0}, 1), "far")
	tree.AddObject(aabbAt(mgl64.Vec3{5, 10, 0}, 1), "off")

	var visited []string
	ray := NewRay(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{30, 0, 0})
	tree.Raycast(ray, func(nodeID int, r Ray) float64 {
		visited = append(visited, tree.GetNodeData(nodeID).(string))
		return r.MaxFraction
	})

	if len(visited) != 2 {
		t.Fatal("expected to visit 2 nodes, got", visited)
	}
	for _, name := range visited {
		if name == "off" {
			t.Error("ray should not visit the offset box")
		}
	}
}

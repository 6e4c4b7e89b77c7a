package ephysics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const nullTreeNode = -1

// treeNode is one slot of the broad-phase tree arena. A node is either an
// internal node (two children, height >= 1) or a leaf carrying user data
// (height == 0). Free slots are threaded into a free list through next and
// marked with height == -1.
type treeNode struct {
	// parent when allocated, next free slot when on the free list
	parent int
	next   int

	children [2]int
	height   int

	// fat aabb: the exact shape AABB inflated by the tree gap
	aabb AABB

	data interface{}
}

func (n *treeNode) isLeaf() bool {
	return n.children[0] == nullTreeNode
}

// DynamicAABBTree is the broad-phase spatial index: a height-balanced binary
// tree of fattened AABBs. Nodes live in a growable arena and are addressed by
// integer IDs so that releasing and reusing slots never invalidates
// references held by proxy shapes.
type DynamicAABBTree struct {
	nodes      []treeNode
	rootID     int
	freeNodeID int
	nbNodes    int

	extraGap float64
}

func NewDynamicAABBTree(extraGap float64) *DynamicAABBTree {
	tree := &DynamicAABBTree{extraGap: extraGap}
	tree.init()
	return tree
}

func (tree *DynamicAABBTree) init() {
	tree.rootID = nullTreeNode
	tree.nbNodes = 0
	tree.nodes = make([]treeNode, 8)
	for i := 0; i < len(tree.nodes)-1; i++ {
		tree.nodes[i].next = i + 1
		tree.nodes[i].height = -1
	}
	tree.nodes[len(tree.nodes)-1].next = nullTreeNode
	tree.nodes[len(tree.nodes)-1].height = -1
	tree.freeNodeID = 0
}

// Reset clears the tree and releases every node.
func (tree *DynamicAABBTree) Reset() {
	tree.init()
}

func (tree *DynamicAABBTree) allocateNode() int {
	if tree.freeNodeID == nullTreeNode {
		// Arena exhausted, double it and thread the new slots into the
		// free list.
		oldCapacity := len(tree.nodes)
		newNodes := make([]treeNode, 2*oldCapacity)
		copy(newNodes, tree.nodes)
		tree.nodes = newNodes
		for i := oldCapacity; i < len(tree.nodes)-1; i++ {
			tree.nodes[i].next = i + 1
			tree.nodes[i].height = -1
		}
		tree.nodes[len(tree.nodes)-1].next = nullTreeNode
		tree.nodes[len(tree.nodes)-1].height = -1
		tree.freeNodeID = oldCapacity
	}

	nodeID := tree.freeNodeID
	node := &tree.nodes[nodeID]
	tree.freeNodeID = node.next
	node.parent = nullTreeNode
	node.height = 0
	node.children[0] = nullTreeNode
	node.children[1] = nullTreeNode
	node.data = nil
	tree.nbNodes++
	return nodeID
}

func (tree *DynamicAABBTree) releaseNode(nodeID int) {
	node := &tree.nodes[nodeID]
	node.next = tree.freeNodeID
	node.height = -1
	node.data = nil
	tree.freeNodeID = nodeID
	tree.nbNodes--
}

// AddObject inserts a leaf for the given AABB and returns its node ID. The
// stored AABB is fattened by the tree gap so small motions do not force a
// reinsertion.
func (tree *DynamicAABBTree) AddObject(aabb AABB, data interface{}) int {
	nodeID := tree.allocateNode()

	node := &tree.nodes[nodeID]
	node.aabb = aabb.Inflate(tree.extraGap)
	node.data = data
	node.height = 0

	tree.insertLeafNode(nodeID)
	return nodeID
}

// RemoveObject removes a leaf from the tree and releases its slot.
func (tree *DynamicAABBTree) RemoveObject(nodeID int) {
	tree.removeLeafNode(nodeID)
	tree.releaseNode(nodeID)
}

// GetFatAABB returns the fattened AABB stored for a leaf.
func (tree *DynamicAABBTree) GetFatAABB(nodeID int) AABB {
	return tree.nodes[nodeID].aabb
}

// GetNodeData returns the user data attached to a leaf.
func (tree *DynamicAABBTree) GetNodeData(nodeID int) interface{} {
	return tree.nodes[nodeID].data
}

// UpdateObject refits a leaf after its object moved. If the new exact AABB
// still fits inside the stored fat AABB nothing is done and false is
// returned. Otherwise the leaf is removed, its fat AABB is rebuilt from the
// new AABB plus the gap plus a displacement-biased inflation, and the leaf is
// reinserted; true is returned. displacement is the motion of the object
// since the last update (velocity times elapsed time).
func (tree *DynamicAABBTree) UpdateObject(nodeID int, newAABB AABB, displacement mgl64.Vec3, forceReinsert bool) bool {
	node := &tree.nodes[nodeID]

	if !forceReinsert && node.aabb.Contains(newAABB) {
		return false
	}

	tree.removeLeafNode(nodeID)

	fat := newAABB.Inflate(tree.extraGap)
	for c := 0; c < 3; c++ {
		d := DYNAMIC_TREE_AABB_LIN_GAP_MULTIPLIER * displacement[c]
		if d < 0 {
			fat.Min[c] += d
		} else {
			fat.Max[c] += d
		}
	}
	node.aabb = fat

	tree.insertLeafNode(nodeID)
	return true
}

// insertLeafNode walks down from the root choosing the cheaper child by the
// merged-volume cost heuristic, synthesizes a new parent over the chosen
// sibling, then re-unions AABBs and rebalances on the way back up.
func (tree *DynamicAABBTree) insertLeafNode(nodeID int) {
	if tree.rootID == nullTreeNode {
		tree.rootID = nodeID
		tree.nodes[nodeID].parent = nullTreeNode
		return
	}

	newNodeAABB := tree.nodes[nodeID].aabb
	currentNodeID := tree.rootID
	for !tree.nodes[currentNodeID].isLeaf() {
		leftChild := tree.nodes[currentNodeID].children[0]
		rightChild := tree.nodes[currentNodeID].children[1]

		volume := tree.nodes[currentNodeID].aabb.Volume()
		mergedVolume := MergeTwoAABBs(tree.nodes[currentNodeID].aabb, newNodeAABB).Volume()

		// Cost of making the current node the sibling of the new leaf vs
		// the inherited cost of pushing the leaf further down.
		costS := 2.0 * mergedVolume
		costI := 2.0 * (mergedVolume - volume)

		costLeft := MergeTwoAABBs(newNodeAABB, tree.nodes[leftChild].aabb).Volume() + costI
		if !tree.nodes[leftChild].isLeaf() {
			costLeft -= tree.nodes[leftChild].aabb.Volume()
		}

		costRight := MergeTwoAABBs(newNodeAABB, tree.nodes[rightChild].aabb).Volume() + costI
		if !tree.nodes[rightChild].isLeaf() {
			costRight -= tree.nodes[rightChild].aabb.Volume()
		}

		if costS < costLeft && costS < costRight {
			break
		}
		if costLeft < costRight {
			currentNodeID = leftChild
		} else {
			currentNodeID = rightChild
		}
	}

	siblingNode := currentNodeID

	oldParentNode := tree.nodes[siblingNode].parent
	newParentNode := tree.allocateNode()
	tree.nodes[newParentNode].parent = oldParentNode
	tree.nodes[newParentNode].aabb = MergeTwoAABBs(tree.nodes[siblingNode].aabb, newNodeAABB)
	tree.nodes[newParentNode].height = tree.nodes[siblingNode].height + 1

	if oldParentNode != nullTreeNode {
		if tree.nodes[oldParentNode].children[0] == siblingNode {
			tree.nodes[oldParentNode].children[0] = newParentNode
		} else {
			tree.nodes[oldParentNode].children[1] = newParentNode
		}
	} else {
		tree.rootID = newParentNode
	}
	tree.nodes[newParentNode].children[0] = siblingNode
	tree.nodes[newParentNode].children[1] = nodeID
	tree.nodes[siblingNode].parent = newParentNode
	tree.nodes[nodeID].parent = newParentNode

	// Fix AABBs and heights from the new parent up to the root, rebalancing
	// every unbalanced ancestor.
	currentNodeID = tree.nodes[nodeID].parent
	for currentNodeID != nullTreeNode {
		currentNodeID = tree.balanceSubTreeAtNode(currentNodeID)

		leftChild := tree.nodes[currentNodeID].children[0]
		rightChild := tree.nodes[currentNodeID].children[1]
		tree.nodes[currentNodeID].height = 1 + maxInt(tree.nodes[leftChild].height, tree.nodes[rightChild].height)
		tree.nodes[currentNodeID].aabb = MergeTwoAABBs(tree.nodes[leftChild].aabb, tree.nodes[rightChild].aabb)

		currentNodeID = tree.nodes[currentNodeID].parent
	}
}

// removeLeafNode splices out the leaf's parent, reattaching the sibling
// to the grandparent, then refits and rebalances up to the root.
func (tree *DynamicAABBTree) removeLeafNode(nodeID int) {
	if tree.rootID == nodeID {
		tree.rootID = nullTreeNode
		return
	}

	parentNodeID := tree.nodes[nodeID].parent
	grandParentNodeID := tree.nodes[parentNodeID].parent
	var siblingNodeID int
	if tree.nodes[parentNodeID].children[0] == nodeID {
		siblingNodeID = tree.nodes[parentNodeID].children[1]
	} else {
		siblingNodeID = tree.nodes[parentNodeID].children[0]
	}

	if grandParentNodeID != nullTreeNode {
		if tree.nodes[grandParentNodeID].children[0] == parentNodeID {
			tree.nodes[grandParentNodeID].children[0] = siblingNodeID
		} else {
			tree.nodes[grandParentNodeID].children[1] = siblingNodeID
		}
		tree.nodes[siblingNodeID].parent = grandParentNodeID
		tree.releaseNode(parentNodeID)

		currentNodeID := grandParentNodeID
		for currentNodeID != nullTreeNode {
			currentNodeID = tree.balanceSubTreeAtNode(currentNodeID)

			leftChild := tree.nodes[currentNodeID].children[0]
			rightChild := tree.nodes[currentNodeID].children[1]
			tree.nodes[currentNodeID].aabb = MergeTwoAABBs(tree.nodes[leftChild].aabb, tree.nodes[rightChild].aabb)
			tree.nodes[currentNodeID].height = 1 + maxInt(tree.nodes[leftChild].height, tree.nodes[rightChild].height)

			currentNodeID = tree.nodes[currentNodeID].parent
		}
	} else {
		// The parent was the root, the sibling becomes the new root.
		tree.rootID = siblingNodeID
		tree.nodes[siblingNodeID].parent = nullTreeNode
		tree.releaseNode(parentNodeID)
	}
}

// balanceSubTreeAtNode applies a single or double AVL rotation when the
// heights of the node's children differ by more than one. It returns the ID
// of the new subtree root.
func (tree *DynamicAABBTree) balanceSubTreeAtNode(nodeID int) int {
	nodeA := &tree.nodes[nodeID]
	if nodeA.isLeaf() || nodeA.height < 2 {
		return nodeID
	}

	nodeBID := nodeA.children[0]
	nodeCID := nodeA.children[1]
	nodeB := &tree.nodes[nodeBID]
	nodeC := &tree.nodes[nodeCID]

	balanceFactor := nodeC.height - nodeB.height

	// Right child C is two levels higher than left child B.
	if balanceFactor > 1 {
		nodeFID := nodeC.children[0]
		nodeGID := nodeC.children[1]
		nodeF := &tree.nodes[nodeFID]
		nodeG := &tree.nodes[nodeGID]

		nodeC.children[0] = nodeID
		nodeC.parent = nodeA.parent
		nodeA.parent = nodeCID

		if nodeC.parent != nullTreeNode {
			if tree.nodes[nodeC.parent].children[0] == nodeID {
				tree.nodes[nodeC.parent].children[0] = nodeCID
			} else {
				tree.nodes[nodeC.parent].children[1] = nodeCID
			}
		} else {
			tree.rootID = nodeCID
		}

		if nodeF.height > nodeG.height {
			nodeC.children[1] = nodeFID
			nodeA.children[1] = nodeGID
			nodeG.parent = nodeID

			nodeA.aabb = MergeTwoAABBs(nodeB.aabb, nodeG.aabb)
			nodeC.aabb = MergeTwoAABBs(nodeA.aabb, nodeF.aabb)
			nodeA.height = 1 + maxInt(nodeB.height, nodeG.height)
			nodeC.height = 1 + maxInt(nodeA.height, nodeF.height)
		} else {
			nodeC.children[1] = nodeGID
			nodeA.children[1] = nodeFID
			nodeF.parent = nodeID

			nodeA.aabb = MergeTwoAABBs(nodeB.aabb, nodeF.aabb)
			nodeC.aabb = MergeTwoAABBs(nodeA.aabb, nodeG.aabb)
			nodeA.height = 1 + maxInt(nodeB.height, nodeF.height)
			nodeC.height = 1 + maxInt(nodeA.height, nodeG.height)
		}
		return nodeCID
	}

	// Left child B is two levels higher than right child C.
	if balanceFactor < -1 {
		nodeFID := nodeB.children[0]
		nodeGID := nodeB.children[1]
		nodeF := &tree.nodes[nodeFID]
		nodeG := &tree.nodes[nodeGID]

		nodeB.children[0] = nodeID
		nodeB.parent = nodeA.parent
		nodeA.parent = nodeBID

		if nodeB.parent != nullTreeNode {
			if tree.nodes[nodeB.parent].children[0] == nodeID {
				tree.nodes[nodeB.parent].children[0] = nodeBID
			} else {
				tree.nodes[nodeB.parent].children[1] = nodeBID
			}
		} else {
			tree.rootID = nodeBID
		}

		if nodeF.height > nodeG.height {
			nodeB.children[1] = nodeFID
			nodeA.children[0] = nodeGID
			nodeG.parent = nodeID

			nodeA.aabb = MergeTwoAABBs(nodeC.aabb, nodeG.aabb)
			nodeB.aabb = MergeTwoAABBs(nodeA.aabb, nodeF.aabb)
			nodeA.height = 1 + maxInt(nodeC.height, nodeG.height)
			nodeB.height = 1 + maxInt(nodeA.height, nodeF.height)
		} else {
			nodeB.children[1] = nodeGID
			nodeA.children[0] = nodeFID
			nodeF.parent = nodeID

			nodeA.aabb = MergeTwoAABBs(nodeC.aabb, nodeF.aabb)
			nodeB.aabb = MergeTwoAABBs(nodeA.aabb, nodeG.aabb)
			nodeA.height = 1 + maxInt(nodeC.height, nodeF.height)
			nodeB.height = 1 + maxInt(nodeA.height, nodeG.height)
		}
		return nodeBID
	}

	return nodeID
}

// ReportAllShapesOverlappingWithAABB calls the callback with the node ID of
// every leaf whose fat AABB overlaps the given AABB. Traversal uses an
// explicit stack.
func (tree *DynamicAABBTree) ReportAllShapesOverlappingWithAABB(aabb AABB, callback func(nodeID int)) {
	stack := make([]int, 0, 64)
	stack = append(stack, tree.rootID)

	for len(stack) > 0 {
		nodeID := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if nodeID == nullTreeNode {
			continue
		}

		node := &tree.nodes[nodeID]
		if aabb.TestCollision(node.aabb) {
			if node.isLeaf() {
				callback(nodeID)
			} else {
				stack = append(stack, node.children[0], node.children[1])
			}
		}
	}
}

// Raycast walks the tree along a ray. For each leaf whose fat AABB the ray
// hits, callback is invoked and may clip the ray by returning a smaller hit
// fraction: zero stops the traversal, a negative value leaves the ray as is.
func (tree *DynamicAABBTree) Raycast(ray Ray, callback func(nodeID int, ray Ray) float64) {
	maxFraction := ray.MaxFraction

	stack := make([]int, 0, 128)
	stack = append(stack, tree.rootID)

	for len(stack) > 0 {
		nodeID := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if nodeID == nullTreeNode {
			continue
		}

		node := &tree.nodes[nodeID]
		rayTemp := Ray{Point1: ray.Point1, Point2: ray.Point2, MaxFraction: maxFraction}
		if !node.aabb.TestRayIntersect(rayTemp) {
			continue
		}

		if node.isLeaf() {
			hitFraction := callback(nodeID, rayTemp)
			if hitFraction == 0.0 {
				return
			}
			if hitFraction > 0.0 && hitFraction < maxFraction {
				maxFraction = hitFraction
			}
		} else {
			stack = append(stack, node.children[0], node.children[1])
		}
	}
}

// Height returns the height of the tree (0 for a single leaf, -1 if empty).
func (tree *DynamicAABBTree) Height() int {
	if tree.rootID == nullTreeNode {
		return -1
	}
	return tree.computeHeight(tree.rootID)
}

func (tree *DynamicAABBTree) computeHeight(nodeID int) int {
	node := &tree.nodes[nodeID]
	if node.isLeaf() {
		return 0
	}
	return 1 + maxInt(tree.computeHeight(node.children[0]), tree.computeHeight(node.children[1]))
}

// check walks the whole tree verifying the structural invariants: parent
// links, heights, AABB unions and the free-list accounting. Test helper.
func (tree *DynamicAABBTree) check() bool {
	if !tree.checkNode(tree.rootID) {
		return false
	}

	nbFreeNodes := 0
	freeNodeID := tree.freeNodeID
	for freeNodeID != nullTreeNode {
		freeNodeID = tree.nodes[freeNodeID].next
		nbFreeNodes++
	}
	return tree.nbNodes+nbFreeNodes == len(tree.nodes)
}

func (tree *DynamicAABBTree) checkNode(nodeID int) bool {
	if nodeID == nullTreeNode {
		return true
	}
	node := &tree.nodes[nodeID]
	if nodeID == tree.rootID && node.parent != nullTreeNode {
		return false
	}
	if node.isLeaf() {
		return node.height == 0
	}

	leftChild := node.children[0]
	rightChild := node.children[1]
	if tree.nodes[leftChild].parent != nodeID || tree.nodes[rightChild].parent != nodeID {
		return false
	}
	if node.height != 1+maxInt(tree.nodes[leftChild].height, tree.nodes[rightChild].height) {
		return false
	}
	if math.Abs(float64(tree.nodes[leftChild].height-tree.nodes[rightChild].height)) > 1 {
		return false
	}
	merged := MergeTwoAABBs(tree.nodes[leftChild].aabb, tree.nodes[rightChild].aabb)
	if merged.Min != node.aabb.Min || merged.Max != node.aabb.Max {
		return false
	}
	return tree.checkNode(leftChild) && tree.checkNode(rightChild)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

package scene

// SwitchInvalidChild disables every child of a SwitchNode.
const SwitchInvalidChild = -1

// SwitchNode is a Node that contributes only its active child to the
// visible set. All children are still updated and bounded.
type SwitchNode struct {
	Node
	active int
}

// NewSwitchNode creates a switch with no active child.
func NewSwitchNode(name string) *SwitchNode {
	return &SwitchNode{Node: Node{spatial: newSpatial(name)}, active: SwitchInvalidChild}
}

// Update recomputes world transforms and bounds of the subtree. See Spatial.
func (sw *SwitchNode) Update(appTime float64, initiator bool) {
	update(sw, appTime, initiator)
}

// ActiveChild returns the active slot or SwitchInvalidChild.
func (sw *SwitchNode) ActiveChild() int {
	return sw.active
}

// SetActiveChild selects slot i. Out of range values disable the switch.
func (sw *SwitchNode) SetActiveChild(i int) {
	if i < 0 || i >= len(sw.children) {
		i = SwitchInvalidChild
	}
	sw.active = i
}

func (sw *SwitchNode) getVisibleSet(c *Culler, noCull bool) {
	if child := sw.Child(sw.active); child != nil {
		onGetVisibleSet(child, c, noCull)
	}
}

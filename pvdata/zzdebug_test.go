package pvdata

import (
	"fmt"
	"testing"
)

func TestDebugCategory(t *testing.T) {
	elemBuilder := NewStructBuilder("test:fs/Point:1.0").
		AddScalar("x", Float64)
	container := NewStructBuilder("test:fs/Holder:1.0").
		AddStructArray("points", elemBuilder).
		Build()

	v := NewValue(container)
	for i, n := range container.Nodes {
		fmt.Printf("node %d: code=%v id=%q index=%d parent=%d numindex=%d offset=%d miter=%v mlookup=%v\n",
			i, n.Code, n.ID, n.Index, n.Parent, n.NumIndex, n.Offset, n.Miter, n.Mlookup)
	}
	pointsDesc := v.Child("points").Desc()
	fmt.Printf("pointsDesc: %+v\n", pointsDesc)
	elemDesc := v.Type().Child(pointsDesc, pointsDesc.Miter[0])
	fmt.Printf("elemDesc: %+v\n", elemDesc)
	elem := newSubtreeValue(v.Type(), elemDesc)
	fmt.Printf("elem desc: %+v\n", elem.Desc())
	xv := elem.Child("x")
	fmt.Printf("x desc: %+v cell cat=%v\n", xv.Desc(), xv.cell().Category)
	fmt.Printf("elem.tree.base=%d rootIndex=%d cells=%+v\n", elem.tree.base, elem.tree.rootIndex, elem.tree.cells)
}

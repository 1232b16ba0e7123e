package memledger

import "xdao.co/tokenrec/proof"

// tree is a binary Merkle tree stored level by level. An unpaired node is
// promoted to the next level unchanged.
type tree struct {
	levels [][][]byte
}

func buildTree(leaves [][]byte) *tree {
	t := &tree{levels: [][][]byte{leaves}}
	cur := leaves
	for len(cur) > 1 {
		next := make([][]byte, 0, (len(cur)+1)/2)
		for i := 0; i < len(cur); i += 2 {
			if i+1 == len(cur) {
				next = append(next, cur[i])
				continue
			}
			next = append(next, proof.NodeHash(cur[i], cur[i+1]))
		}
		t.levels = append(t.levels, next)
		cur = next
	}
	return t
}

func (t *tree) root() []byte {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// path returns the sibling steps from leaf i to the root.
func (t *tree) path(i int) []proof.MerkleStep {
	steps := []proof.MerkleStep{}
	for _, level := range t.levels[:len(t.levels)-1] {
		sib := i ^ 1
		if sib < len(level) {
			steps = append(steps, proof.MerkleStep{
				Sibling: append([]byte(nil), level[sib]...),
				Left:    sib < i,
			})
		}
		i /= 2
	}
	return steps
}

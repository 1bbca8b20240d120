// Package tree は勾配・ヘッセ行列に基づく回帰木を提供します。
// ランダムフォレストと勾配ブースティングの両方がこの木を共有します。
package tree

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Node は木のノードです。Leftが-1のノードは葉です。
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64 // 葉の出力値
	Gain      float64
	Count     int
}

// IsLeaf は葉ノードかどうかを返します。
func (n *Node) IsLeaf() bool { return n.Left < 0 }

// Tree は学習済みの回帰木です。Nodes[0]が根です。
type Tree struct {
	Nodes []Node
}

// Predict は1行分の特徴量に対する木の出力を返します。
func (t *Tree) Predict(row []float64) float64 {
	idx := 0
	for {
		n := &t.Nodes[idx]
		if n.IsLeaf() {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
}

// NumLeaves は葉の数を返します。
func (t *Tree) NumLeaves() int {
	count := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			count++
		}
	}
	return count
}

// Depth は木の深さを返します。根だけの木の深さは0です。
func (t *Tree) Depth() int {
	var walk func(idx int) int
	walk = func(idx int) int {
		n := &t.Nodes[idx]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(0)
}

// Params は木の成長を制御します。
type Params struct {
	// MaxDepth が0以下なら深さ無制限
	MaxDepth int
	// MinRows は葉に必要な最小行数
	MinRows float64
	// MTries は分割ごとに試す特徴量の数。0以下なら全特徴量
	MTries int
	// Lambda は葉の値に対するL2正則化
	Lambda float64
	// MinGain 未満の分割は行わない
	MinGain float64
}

// Builder は1本の木を構築します。並行に使う場合は木ごとに別のBuilderを作ります。
type Builder struct {
	params Params
	rng    *rand.Rand

	X     *mat.Dense
	grad  []float64
	hess  []float64
	nFeat int
}

// NewBuilder は新しいBuilderを作成します。
func NewBuilder(params Params, seed int64) *Builder {
	if params.MinRows < 1 {
		params.MinRows = 1
	}
	return &Builder{params: params, rng: rand.New(rand.NewSource(seed))}
}

// Build は indices の行に対して grad, hess を当てはめる木を構築します。
// 葉の値は -G/(H+λ) です。
func (b *Builder) Build(X *mat.Dense, grad, hess []float64, indices []int) *Tree {
	b.X, b.grad, b.hess = X, grad, hess
	_, b.nFeat = X.Dims()

	t := &Tree{}
	b.buildNode(t, indices, 0)
	b.X, b.grad, b.hess = nil, nil, nil
	return t
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

func (b *Builder) buildNode(t *Tree, indices []int, depth int) int {
	nodeIdx := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{Left: -1, Right: -1, Count: len(indices)})

	if (b.params.MaxDepth > 0 && depth >= b.params.MaxDepth) ||
		float64(len(indices)) < 2*b.params.MinRows {
		t.Nodes[nodeIdx].Value = b.leafValue(indices)
		return nodeIdx
	}

	best := b.findBestSplit(indices)
	if best.feature < 0 || best.gain <= b.params.MinGain {
		t.Nodes[nodeIdx].Value = b.leafValue(indices)
		return nodeIdx
	}

	leftIdx, rightIdx := b.splitData(indices, best)
	left := b.buildNode(t, leftIdx, depth+1)
	right := b.buildNode(t, rightIdx, depth+1)

	n := &t.Nodes[nodeIdx]
	n.Feature = best.feature
	n.Threshold = best.threshold
	n.Gain = best.gain
	n.Left = left
	n.Right = right
	return nodeIdx
}

func (b *Builder) candidateFeatures() []int {
	m := b.params.MTries
	if m <= 0 || m >= b.nFeat {
		all := make([]int, b.nFeat)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return b.rng.Perm(b.nFeat)[:m]
}

func (b *Builder) findBestSplit(indices []int) split {
	best := split{feature: -1, gain: -math.MaxFloat64}
	for _, f := range b.candidateFeatures() {
		s := b.findBestSplitForFeature(indices, f)
		if s.feature >= 0 && s.gain > best.gain {
			best = s
		}
	}
	return best
}

func (b *Builder) findBestSplitForFeature(indices []int, feature int) split {
	type entry struct {
		value float64
		idx   int
	}
	values := make([]entry, len(indices))
	totalGrad, totalHess := 0.0, 0.0
	for i, idx := range indices {
		values[i] = entry{value: b.X.At(idx, feature), idx: idx}
		totalGrad += b.grad[idx]
		totalHess += b.hess[idx]
	}
	sort.Slice(values, func(i, j int) bool { return values[i].value < values[j].value })

	best := split{feature: -1, gain: -math.MaxFloat64}
	leftGrad, leftHess := 0.0, 0.0
	minRows := b.params.MinRows

	for i := 0; i < len(values)-1; i++ {
		leftGrad += b.grad[values[i].idx]
		leftHess += b.hess[values[i].idx]

		// 同じ値の間では分割しない
		if values[i].value == values[i+1].value {
			continue
		}
		leftCount := float64(i + 1)
		rightCount := float64(len(values)) - leftCount
		if leftCount < minRows || rightCount < minRows {
			continue
		}

		gain := b.splitGain(leftGrad, leftHess, totalGrad-leftGrad, totalHess-leftHess, totalGrad, totalHess)
		if gain > best.gain {
			best = split{
				feature:   feature,
				threshold: (values[i].value + values[i+1].value) / 2,
				gain:      gain,
			}
		}
	}
	return best
}

func (b *Builder) splitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess float64) float64 {
	lambda := b.params.Lambda
	leftScore := (leftGrad * leftGrad) / (leftHess + lambda)
	rightScore := (rightGrad * rightGrad) / (rightHess + lambda)
	totalScore := (totalGrad * totalGrad) / (totalHess + lambda)
	return 0.5 * (leftScore + rightScore - totalScore)
}

func (b *Builder) splitData(indices []int, s split) ([]int, []int) {
	var left, right []int
	for _, idx := range indices {
		if b.X.At(idx, s.feature) <= s.threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	return left, right
}

func (b *Builder) leafValue(indices []int) float64 {
	sumGrad, sumHess := 0.0, 0.0
	for _, idx := range indices {
		sumGrad += b.grad[idx]
		sumHess += b.hess[idx]
	}
	const epsilon = 1e-10
	return -sumGrad / (sumHess + b.params.Lambda + epsilon)
}

package ml

import (
	"encoding/json"
	"errors"
	"math"
	"os"
)

// RegressionTree is a CART-style tree stored as a flat node slice.
// Splits minimize weighted variance of the target; leaves predict the
// mean target of their samples.
type RegressionTree struct {
	maxDepth        int
	minSamplesSplit int
	featureCount    int
	nodes           []regNode
}

type regNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

type treeFile struct {
	MaxDepth        int       `json:"max_depth"`
	MinSamplesSplit int       `json:"min_samples_split"`
	FeatureCount    int       `json:"feature_count"`
	Nodes           []regNode `json:"nodes"`
}

func NewRegressionTree(maxDepth int) *RegressionTree {
	if maxDepth <= 0 {
		maxDepth = 12
	}
	return &RegressionTree{maxDepth: maxDepth, minSamplesSplit: 5}
}

func (t *RegressionTree) Train(features [][]float64, targets []float64) error {
	if len(features) == 0 || len(targets) == 0 {
		return errors.New("features or targets empty")
	}
	if len(features) != len(targets) {
		return errors.New("features and targets size mismatch")
	}
	t.featureCount = len(features[0])
	t.nodes = t.buildNode(features, targets, 0)
	return nil
}

func (t *RegressionTree) Predict(features []float64) (float64, error) {
	if len(t.nodes) == 0 {
		return 0, errors.New("model not trained")
	}
	idx := 0
	for {
		node := t.nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(t.nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
}

func (t *RegressionTree) NumFeatures() int {
	return t.featureCount
}

func (t *RegressionTree) Save(path string) error {
	if len(t.nodes) == 0 {
		return errors.New("model not trained")
	}
	payload, err := json.Marshal(treeFile{
		MaxDepth:        t.maxDepth,
		MinSamplesSplit: t.minSamplesSplit,
		FeatureCount:    t.featureCount,
		Nodes:           t.nodes,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (t *RegressionTree) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file treeFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return err
	}
	if len(file.Nodes) == 0 {
		return errors.New("empty tree file")
	}
	t.maxDepth = file.MaxDepth
	t.minSamplesSplit = file.MinSamplesSplit
	t.featureCount = file.FeatureCount
	t.nodes = file.Nodes
	return nil
}

func (t *RegressionTree) buildNode(features [][]float64, targets []float64, depth int) []regNode {
	leaf := func() []regNode {
		return []regNode{{
			FeatureIdx: -1,
			LeftChild:  -1,
			RightChild: -1,
			Value:      mean(targets),
			IsLeaf:     true,
		}}
	}

	if depth >= t.maxDepth || len(targets) < t.minSamplesSplit || variance(targets) == 0 {
		return leaf()
	}

	bestFeature, threshold, ok := t.findBestSplit(features, targets)
	if !ok {
		return leaf()
	}

	leftX, leftY, rightX, rightY := splitSamples(features, targets, bestFeature, threshold)
	if len(leftY) == 0 || len(rightY) == 0 {
		return leaf()
	}

	leftNodes := t.buildNode(leftX, leftY, depth+1)
	rightNodes := t.buildNode(rightX, rightY, depth+1)

	root := regNode{
		FeatureIdx: bestFeature,
		Threshold:  threshold,
		LeftChild:  1,
		RightChild: 1 + len(leftNodes),
		Value:      mean(targets),
		IsLeaf:     false,
	}

	nodes := make([]regNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = append(nodes, leftNodes...)
	nodes = append(nodes, rightNodes...)

	// child indices are local to each subtree slice; shift them into the
	// flat layout
	for i := range nodes {
		if i == 0 || nodes[i].IsLeaf {
			continue
		}
		offset := 1
		if i >= 1+len(leftNodes) {
			offset = 1 + len(leftNodes)
		}
		nodes[i].LeftChild += offset
		nodes[i].RightChild += offset
	}
	return nodes
}

func (t *RegressionTree) findBestSplit(features [][]float64, targets []float64) (int, float64, bool) {
	featureCount := len(features[0])
	bestFeature := -1
	bestThreshold := 0.0
	bestScore := math.MaxFloat64

	values := make([]float64, len(features))
	for featureIdx := 0; featureIdx < featureCount; featureIdx++ {
		for i := range features {
			values[i] = features[i][featureIdx]
		}
		threshold := median(values)
		leftY, rightY := splitTargets(features, targets, featureIdx, threshold)
		if len(leftY) == 0 || len(rightY) == 0 {
			continue
		}
		score := weightedVariance(leftY, rightY)
		if score < bestScore {
			bestScore = score
			bestFeature = featureIdx
			bestThreshold = threshold
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func splitSamples(features [][]float64, targets []float64, featureIdx int, threshold float64) ([][]float64, []float64, [][]float64, []float64) {
	leftX := make([][]float64, 0)
	leftY := make([]float64, 0)
	rightX := make([][]float64, 0)
	rightY := make([]float64, 0)
	for i, row := range features {
		if row[featureIdx] <= threshold {
			leftX = append(leftX, row)
			leftY = append(leftY, targets[i])
		} else {
			rightX = append(rightX, row)
			rightY = append(rightY, targets[i])
		}
	}
	return leftX, leftY, rightX, rightY
}

func splitTargets(features [][]float64, targets []float64, featureIdx int, threshold float64) ([]float64, []float64) {
	left := make([]float64, 0)
	right := make([]float64, 0)
	for i, row := range features {
		if row[featureIdx] <= threshold {
			left = append(left, targets[i])
		} else {
			right = append(right, targets[i])
		}
	}
	return left, right
}

func weightedVariance(left, right []float64) float64 {
	total := float64(len(left) + len(right))
	return (float64(len(left))/total)*variance(left) + (float64(len(right))/total)*variance(right)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	total := 0.0
	for _, v := range values {
		diff := v - m
		total += diff * diff
	}
	return total / float64(len(values))
}

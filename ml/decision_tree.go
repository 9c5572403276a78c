package ml

import (
	"encoding/json"
	"errors"
	"math"
	"os"
)

// DecisionTree is a CART-style classifier. Leaves keep the class counts of
// the training samples they received, so the tree can answer both a class
// decision and a probability vector.
type DecisionTree struct {
	nodes      []TreeNode
	numClasses int
	maxDepth   int
}

type TreeNode struct {
	FeatureIdx  int     `json:"feature_idx"`
	Threshold   float64 `json:"threshold"`
	LeftChild   int     `json:"left_child"`
	RightChild  int     `json:"right_child"`
	ClassCounts []int   `json:"class_counts"`
	IsLeaf      bool    `json:"is_leaf"`
}

type treeArtifact struct {
	NumClasses int        `json:"num_classes"`
	Nodes      []TreeNode `json:"nodes"`
}

func NewDecisionTree(maxDepth int) *DecisionTree {
	if maxDepth <= 0 {
		maxDepth = 5
	}
	return &DecisionTree{maxDepth: maxDepth}
}

func (dt *DecisionTree) Train(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}

	dt.numClasses = 0
	for _, label := range labels {
		if label < 0 {
			return errors.New("labels must be non-negative")
		}
		if label+1 > dt.numClasses {
			dt.numClasses = label + 1
		}
	}

	dt.nodes = dt.buildNode(features, labels, 0)
	return nil
}

// Predict walks the tree and returns the majority class of the reached leaf.
func (dt *DecisionTree) Predict(features []float64) (int, error) {
	leaf, err := dt.findLeaf(features)
	if err != nil {
		return 0, err
	}
	return argmax(leaf.ClassCounts), nil
}

// PredictProba returns the class distribution of the reached leaf, normalized
// over all classes seen at training time.
func (dt *DecisionTree) PredictProba(features []float64) ([]float64, error) {
	leaf, err := dt.findLeaf(features)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, count := range leaf.ClassCounts {
		total += count
	}
	if total == 0 {
		return nil, errors.New("leaf has no training samples")
	}

	probabilities := make([]float64, dt.numClasses)
	for class, count := range leaf.ClassCounts {
		probabilities[class] = float64(count) / float64(total)
	}
	return probabilities, nil
}

func (dt *DecisionTree) findLeaf(features []float64) (TreeNode, error) {
	if len(dt.nodes) == 0 {
		return TreeNode{}, errors.New("model not trained")
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return TreeNode{}, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return TreeNode{}, errors.New("invalid tree state")
		}
	}
}

func (dt *DecisionTree) Save(path string) error {
	if len(dt.nodes) == 0 {
		return errors.New("model not trained")
	}
	payload, err := json.Marshal(treeArtifact{NumClasses: dt.numClasses, Nodes: dt.nodes})
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (dt *DecisionTree) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var artifact treeArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return err
	}
	if artifact.NumClasses <= 0 || len(artifact.Nodes) == 0 {
		return errors.New("artifact is empty or corrupt")
	}
	dt.numClasses = artifact.NumClasses
	dt.nodes = artifact.Nodes
	return nil
}

func (dt *DecisionTree) buildNode(features [][]float64, labels []int, depth int) []TreeNode {
	counts := dt.countClasses(labels)
	if depth >= dt.maxDepth || isPure(labels) {
		return []TreeNode{leafNode(counts)}
	}

	bestFeature, threshold, ok := findBestSplit(features, labels)
	if !ok {
		return []TreeNode{leafNode(counts)}
	}

	leftFeatures, leftLabels, rightFeatures, rightLabels := splitData(features, labels, bestFeature, threshold)
	if len(leftLabels) == 0 || len(rightLabels) == 0 {
		return []TreeNode{leafNode(counts)}
	}

	leftNodes := dt.buildNode(leftFeatures, leftLabels, depth+1)
	rightNodes := dt.buildNode(rightFeatures, rightLabels, depth+1)

	root := TreeNode{
		FeatureIdx:  bestFeature,
		Threshold:   threshold,
		LeftChild:   1,
		RightChild:  1 + len(leftNodes),
		ClassCounts: counts,
		IsLeaf:      false,
	}

	// Subtree child indices are local to the subtree slice; rebase them onto
	// their position in the combined slice.
	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	for _, node := range leftNodes {
		if !node.IsLeaf {
			node.LeftChild++
			node.RightChild++
		}
		nodes = append(nodes, node)
	}
	for _, node := range rightNodes {
		if !node.IsLeaf {
			node.LeftChild += 1 + len(leftNodes)
			node.RightChild += 1 + len(leftNodes)
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func (dt *DecisionTree) countClasses(labels []int) []int {
	counts := make([]int, dt.numClasses)
	for _, label := range labels {
		counts[label]++
	}
	return counts
}

func leafNode(counts []int) TreeNode {
	return TreeNode{
		FeatureIdx:  -1,
		LeftChild:   -1,
		RightChild:  -1,
		ClassCounts: counts,
		IsLeaf:      true,
	}
}

func findBestSplit(features [][]float64, labels []int) (int, float64, bool) {
	featureCount := len(features[0])
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	for featureIdx := 0; featureIdx < featureCount; featureIdx++ {
		values := make([]float64, len(features))
		for i := range features {
			values[i] = features[i][featureIdx]
		}
		threshold := median(values)
		leftLabels, rightLabels := splitLabels(features, labels, featureIdx, threshold)
		if len(leftLabels) == 0 || len(rightLabels) == 0 {
			continue
		}
		impurity := weightedGini(leftLabels, rightLabels)
		if impurity < bestImpurity {
			bestImpurity = impurity
			bestFeature = featureIdx
			bestThreshold = threshold
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func splitData(features [][]float64, labels []int, featureIdx int, threshold float64) ([][]float64, []int, [][]float64, []int) {
	leftFeatures := make([][]float64, 0)
	leftLabels := make([]int, 0)
	rightFeatures := make([][]float64, 0)
	rightLabels := make([]int, 0)
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftFeatures = append(leftFeatures, feature)
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightFeatures = append(rightFeatures, feature)
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftFeatures, leftLabels, rightFeatures, rightLabels
}

func splitLabels(features [][]float64, labels []int, featureIdx int, threshold float64) ([]int, []int) {
	leftLabels := make([]int, 0)
	rightLabels := make([]int, 0)
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftLabels, rightLabels
}

func weightedGini(leftLabels, rightLabels []int) float64 {
	leftWeight := float64(len(leftLabels))
	rightWeight := float64(len(rightLabels))
	total := leftWeight + rightWeight
	return (leftWeight/total)*gini(leftLabels) + (rightWeight/total)*gini(rightLabels)
}

func gini(labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	counts := make(map[int]int)
	for _, label := range labels {
		counts[label]++
	}
	impurity := 1.0
	for _, count := range counts {
		prob := float64(count) / float64(len(labels))
		impurity -= prob * prob
	}
	return impurity
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sortFloats(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func sortFloats(values []float64) {
	for i := 1; i < len(values); i++ {
		j := i
		for j > 0 && values[j-1] > values[j] {
			values[j-1], values[j] = values[j], values[j-1]
			j--
		}
	}
}

func argmax(counts []int) int {
	best := 0
	bestCount := -1
	for class, count := range counts {
		if count > bestCount {
			bestCount = count
			best = class
		}
	}
	return best
}

func isPure(labels []int) bool {
	if len(labels) == 0 {
		return true
	}
	first := labels[0]
	for _, label := range labels[1:] {
		if label != first {
			return false
		}
	}
	return true
}

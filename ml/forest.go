package ml

import (
	"encoding/json"
	"errors"
	"math/rand"
	"os"
)

// RandomForest bags seeded bootstrap samples over regression trees and
// averages their predictions. The seed is fixed so a retrain over the
// same corpus reproduces the same model.
type RandomForest struct {
	numTrees int
	maxDepth int
	seed     int64
	trees    []*RegressionTree
}

type forestFile struct {
	NumTrees int        `json:"num_trees"`
	MaxDepth int        `json:"max_depth"`
	Seed     int64      `json:"seed"`
	Trees    []treeFile `json:"trees"`
}

func NewRandomForest(numTrees, maxDepth int, seed int64) *RandomForest {
	if numTrees <= 0 {
		numTrees = 50
	}
	if maxDepth <= 0 {
		maxDepth = 10
	}
	return &RandomForest{numTrees: numTrees, maxDepth: maxDepth, seed: seed}
}

func (f *RandomForest) Train(features [][]float64, targets []float64) error {
	if len(features) == 0 || len(targets) == 0 {
		return errors.New("features or targets empty")
	}
	if len(features) != len(targets) {
		return errors.New("features and targets size mismatch")
	}

	rng := rand.New(rand.NewSource(f.seed))
	f.trees = make([]*RegressionTree, 0, f.numTrees)
	n := len(features)
	for i := 0; i < f.numTrees; i++ {
		sampleX := make([][]float64, n)
		sampleY := make([]float64, n)
		for j := 0; j < n; j++ {
			idx := rng.Intn(n)
			sampleX[j] = features[idx]
			sampleY[j] = targets[idx]
		}
		tree := NewRegressionTree(f.maxDepth)
		if err := tree.Train(sampleX, sampleY); err != nil {
			return err
		}
		f.trees = append(f.trees, tree)
	}
	return nil
}

func (f *RandomForest) Predict(features []float64) (float64, error) {
	if len(f.trees) == 0 {
		return 0, errors.New("model not trained")
	}
	sum := 0.0
	for _, tree := range f.trees {
		pred, err := tree.Predict(features)
		if err != nil {
			return 0, err
		}
		sum += pred
	}
	return sum / float64(len(f.trees)), nil
}

func (f *RandomForest) NumFeatures() int {
	if len(f.trees) == 0 {
		return 0
	}
	return f.trees[0].NumFeatures()
}

func (f *RandomForest) Save(path string) error {
	if len(f.trees) == 0 {
		return errors.New("model not trained")
	}
	file := forestFile{NumTrees: f.numTrees, MaxDepth: f.maxDepth, Seed: f.seed}
	for _, tree := range f.trees {
		file.Trees = append(file.Trees, treeFile{
			MaxDepth:        tree.maxDepth,
			MinSamplesSplit: tree.minSamplesSplit,
			FeatureCount:    tree.featureCount,
			Nodes:           tree.nodes,
		})
	}
	payload, err := json.Marshal(file)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (f *RandomForest) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file forestFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return err
	}
	if len(file.Trees) == 0 {
		return errors.New("empty forest file")
	}
	f.numTrees = file.NumTrees
	f.maxDepth = file.MaxDepth
	f.seed = file.Seed
	f.trees = make([]*RegressionTree, 0, len(file.Trees))
	for _, tf := range file.Trees {
		f.trees = append(f.trees, &RegressionTree{
			maxDepth:        tf.MaxDepth,
			minSamplesSplit: tf.MinSamplesSplit,
			featureCount:    tf.FeatureCount,
			nodes:           tf.Nodes,
		})
	}
	return nil
}

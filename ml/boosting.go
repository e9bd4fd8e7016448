package ml

import (
	"encoding/json"
	"errors"
	"os"
)

// GradientBoosting fits shallow regression trees to the residuals of the
// running prediction, starting from the target mean.
type GradientBoosting struct {
	numRounds    int
	maxDepth     int
	learningRate float64
	basePred     float64
	trees        []*RegressionTree
}

type boostingFile struct {
	NumRounds    int        `json:"num_rounds"`
	MaxDepth     int        `json:"max_depth"`
	LearningRate float64    `json:"learning_rate"`
	BasePred     float64    `json:"base_pred"`
	Trees        []treeFile `json:"trees"`
}

func NewGradientBoosting(numRounds, maxDepth int, learningRate float64) *GradientBoosting {
	if numRounds <= 0 {
		numRounds = 100
	}
	if maxDepth <= 0 {
		maxDepth = 4
	}
	if learningRate <= 0 || learningRate > 1 {
		learningRate = 0.1
	}
	return &GradientBoosting{numRounds: numRounds, maxDepth: maxDepth, learningRate: learningRate}
}

func (g *GradientBoosting) Train(features [][]float64, targets []float64) error {
	if len(features) == 0 || len(targets) == 0 {
		return errors.New("features or targets empty")
	}
	if len(features) != len(targets) {
		return errors.New("features and targets size mismatch")
	}

	g.basePred = mean(targets)
	g.trees = make([]*RegressionTree, 0, g.numRounds)

	current := make([]float64, len(targets))
	for i := range current {
		current[i] = g.basePred
	}

	residuals := make([]float64, len(targets))
	for round := 0; round < g.numRounds; round++ {
		for i := range targets {
			residuals[i] = targets[i] - current[i]
		}
		tree := NewRegressionTree(g.maxDepth)
		if err := tree.Train(features, residuals); err != nil {
			return err
		}
		g.trees = append(g.trees, tree)
		for i, row := range features {
			pred, err := tree.Predict(row)
			if err != nil {
				return err
			}
			current[i] += g.learningRate * pred
		}
	}
	return nil
}

func (g *GradientBoosting) Predict(features []float64) (float64, error) {
	if len(g.trees) == 0 {
		return 0, errors.New("model not trained")
	}
	pred := g.basePred
	for _, tree := range g.trees {
		p, err := tree.Predict(features)
		if err != nil {
			return 0, err
		}
		pred += g.learningRate * p
	}
	return pred, nil
}

func (g *GradientBoosting) NumFeatures() int {
	if len(g.trees) == 0 {
		return 0
	}
	return g.trees[0].NumFeatures()
}

func (g *GradientBoosting) Save(path string) error {
	if len(g.trees) == 0 {
		return errors.New("model not trained")
	}
	file := boostingFile{
		NumRounds:    g.numRounds,
		MaxDepth:     g.maxDepth,
		LearningRate: g.learningRate,
		BasePred:     g.basePred,
	}
	for _, tree := range g.trees {
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

func (g *GradientBoosting) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file boostingFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return err
	}
	if len(file.Trees) == 0 {
		return errors.New("empty boosting file")
	}
	g.numRounds = file.NumRounds
	g.maxDepth = file.MaxDepth
	g.learningRate = file.LearningRate
	g.basePred = file.BasePred
	g.trees = make([]*RegressionTree, 0, len(file.Trees))
	for _, tf := range file.Trees {
		g.trees = append(g.trees, &RegressionTree{
			maxDepth:        tf.MaxDepth,
			minSamplesSplit: tf.MinSamplesSplit,
			featureCount:    tf.FeatureCount,
			nodes:           tf.Nodes,
		})
	}
	return nil
}

// Command train_model trains the iris classifier, records the run and its
// metrics in the artifact registry, and moves the serving alias to it.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/saradindusengupta/mlops-workshop/ml"
	"github.com/saradindusengupta/mlops-workshop/registry"
)

func main() {
	dataPath := flag.String("data", "./data/iris.csv", "labeled iris dataset")
	registryPath := flag.String("registry", "./mlruns/registry.db", "registry database path")
	artifactDir := flag.String("artifact_dir", "./mlruns/artifacts", "artifact output directory")
	experiment := flag.String("experiment", "iris-classification", "experiment name")
	alias := flag.String("alias", "latest", "alias to move to the new run")
	maxDepth := flag.Int("max_depth", 5, "max tree depth")
	testRatio := flag.Float64("test_ratio", 0.2, "test ratio")
	seed := flag.Int64("seed", 42, "shuffle seed")
	flag.Parse()

	features, labels, err := ml.LoadIrisCSV(*dataPath)
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}
	log.Printf("loaded %d samples from %s", len(features), *dataPath)

	trainX, trainY, testX, testY := splitDataset(features, labels, *testRatio, *seed)

	model := ml.NewDecisionTree(*maxDepth)
	if err := model.Train(trainX, trainY); err != nil {
		log.Fatalf("failed to train model: %v", err)
	}

	accuracy, precision, recall := evaluateModel(model, testX, testY)
	log.Printf("accuracy=%.4f precision=%.4f recall=%.4f", accuracy, precision, recall)

	store, err := registry.Open(registry.Config{
		Path:        *registryPath,
		ArtifactDir: *artifactDir,
		Experiment:  *experiment,
		Alias:       *alias,
	}, nil)
	if err != nil {
		log.Fatalf("failed to open registry: %v", err)
	}
	defer store.Close()

	run := registry.Run{
		ID:         registry.NewRunID(),
		Experiment: *experiment,
		StartTime:  time.Now().UTC(),
		Accuracy:   accuracy,
		Precision:  precision,
		Recall:     recall,
		DataPoints: len(features),
	}
	run.ArtifactPath = store.ArtifactPath(run.ID)

	if err := model.Save(run.ArtifactPath); err != nil {
		log.Fatalf("failed to save artifact: %v", err)
	}
	if err := store.CreateRun(run); err != nil {
		log.Fatalf("failed to record run: %v", err)
	}
	if err := store.SetAlias(*alias, run.ID); err != nil {
		log.Fatalf("failed to move alias: %v", err)
	}

	fmt.Printf("run %s registered, alias %q updated\n", run.ID, *alias)
	fmt.Printf("artifact saved to %s\n", run.ArtifactPath)
}

func splitDataset(features [][]float64, labels []int, testRatio float64, seed int64) (trainX [][]float64, trainY []int, testX [][]float64, testY []int) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(len(features))

	split := len(features) - int(float64(len(features))*testRatio)
	for i, idx := range indices {
		if i < split {
			trainX = append(trainX, features[idx])
			trainY = append(trainY, labels[idx])
		} else {
			testX = append(testX, features[idx])
			testY = append(testY, labels[idx])
		}
	}
	return trainX, trainY, testX, testY
}

// evaluateModel reports accuracy plus macro-averaged precision and recall
// over the known classes.
func evaluateModel(model *ml.DecisionTree, testX [][]float64, testY []int) (accuracy, precision, recall float64) {
	if len(testX) == 0 {
		return 0, 0, 0
	}

	correct := 0
	truePositive := make([]int, ml.NumSpecies)
	predicted := make([]int, ml.NumSpecies)
	actual := make([]int, ml.NumSpecies)

	for i, feature := range testX {
		label, err := model.Predict(feature)
		if err != nil {
			continue
		}
		if label == testY[i] {
			correct++
		}
		if label >= 0 && label < ml.NumSpecies {
			predicted[label]++
			if label == testY[i] {
				truePositive[label]++
			}
		}
		if testY[i] >= 0 && testY[i] < ml.NumSpecies {
			actual[testY[i]]++
		}
	}

	accuracy = float64(correct) / float64(len(testX))

	var precisionSum, recallSum float64
	for class := 0; class < ml.NumSpecies; class++ {
		if predicted[class] > 0 {
			precisionSum += float64(truePositive[class]) / float64(predicted[class])
		}
		if actual[class] > 0 {
			recallSum += float64(truePositive[class]) / float64(actual[class])
		}
	}
	precision = precisionSum / float64(ml.NumSpecies)
	recall = recallSum / float64(ml.NumSpecies)
	return accuracy, precision, recall
}

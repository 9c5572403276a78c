package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
)

var irisColumns = []string{"sepal_length", "sepal_width", "petal_length", "petal_width", "species"}

// LoadIrisCSV reads a labeled iris dataset. The file must carry the header
// sepal_length,sepal_width,petal_length,petal_width,species and species names
// from the known label space.
func LoadIrisCSV(path string) ([][]float64, []int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) != len(irisColumns) {
		return nil, nil, errors.New("unexpected column count")
	}
	for i, column := range irisColumns {
		if header[i] != column {
			return nil, nil, fmt.Errorf("unexpected column %q, want %q", header[i], column)
		}
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, errors.New("dataset is empty")
	}

	features := make([][]float64, 0, len(records))
	labels := make([]int, 0, len(records))
	for line, record := range records {
		vector := make([]float64, 4)
		for i := 0; i < 4; i++ {
			value, err := strconv.ParseFloat(record[i], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d: column %s: %w", line+2, irisColumns[i], err)
			}
			vector[i] = value
		}
		label, ok := SpeciesIndex(record[4])
		if !ok {
			return nil, nil, fmt.Errorf("row %d: unknown species %q", line+2, record[4])
		}
		features = append(features, vector)
		labels = append(labels, label)
	}
	return features, labels, nil
}

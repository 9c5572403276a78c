package contract

// FieldSchema describes one field (or nested object) of the contract.
type FieldSchema struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description,omitempty"`
	Minimum     *float64               `json:"minimum,omitempty"`
	Maximum     *float64               `json:"maximum,omitempty"`
	Properties  map[string]FieldSchema `json:"properties,omitempty"`
	Required    []string               `json:"required,omitempty"`
}

// Document is the full request/response contract served by /contract.
type Document struct {
	InputSchema  FieldSchema `json:"input_schema"`
	OutputSchema FieldSchema `json:"output_schema"`
}

// DescribeSchema returns the declared input and output schemas. It is pure
// introspection over the contract; the constraints mirror the ones
// ParseRequest enforces.
func DescribeSchema() Document {
	measurement := func(description string) FieldSchema {
		return FieldSchema{
			Type:        "number",
			Description: description,
			Minimum:     floatPtr(MinFeatureValue),
			Maximum:     floatPtr(MaxFeatureValue),
		}
	}

	return Document{
		InputSchema: FieldSchema{
			Type: "object",
			Properties: map[string]FieldSchema{
				"features": {
					Type: "object",
					Properties: map[string]FieldSchema{
						"sepal_length": measurement("Sepal length in cm"),
						"sepal_width":  measurement("Sepal width in cm"),
						"petal_length": measurement("Petal length in cm"),
						"petal_width":  measurement("Petal width in cm"),
					},
					Required: []string{"sepal_length", "sepal_width", "petal_length", "petal_width"},
				},
			},
			Required: []string{"features"},
		},
		OutputSchema: FieldSchema{
			Type: "object",
			Properties: map[string]FieldSchema{
				"prediction": {
					Type:        "integer",
					Description: "Predicted class (0=setosa, 1=versicolor, 2=virginica)",
				},
				"prediction_label": {
					Type:        "string",
					Description: "Human-readable class name",
				},
				"confidence": {
					Type:        "number",
					Description: "Probability of the predicted class",
					Minimum:     floatPtr(0),
					Maximum:     floatPtr(1),
				},
				"model_version": {
					Type:        "string",
					Description: "Model version used for the prediction",
				},
			},
			Required: []string{"prediction", "prediction_label", "confidence", "model_version"},
		},
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

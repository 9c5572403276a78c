package ml

// speciesNames is the closed, ordered label space. The class index a model
// emits is an index into this slice.
var speciesNames = []string{"setosa", "versicolor", "virginica"}

// NumSpecies is the number of known classes.
const NumSpecies = 3

// SpeciesLabel maps a class index to its label. Indices outside the known
// set resolve to "unknown" rather than failing.
func SpeciesLabel(index int) string {
	if index < 0 || index >= len(speciesNames) {
		return "unknown"
	}
	return speciesNames[index]
}

// SpeciesIndex maps a label back to its class index.
func SpeciesIndex(name string) (int, bool) {
	for i, species := range speciesNames {
		if species == name {
			return i, true
		}
	}
	return 0, false
}

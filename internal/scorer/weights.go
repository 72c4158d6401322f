// Package scorer ranks housing candidates by weighted proximity and
// affordability criteria.
package scorer

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Weights holds the relative importance of the four scoring criteria.
// Values are free-scale; they are normalized to shares before use.
type Weights struct {
	MRT           float64 `json:"mrt" yaml:"mrt"`
	School        float64 `json:"school" yaml:"school"`
	Hospital      float64 `json:"hospital" yaml:"hospital"`
	Affordability float64 `json:"affordability" yaml:"affordability"`
}

// DefaultWeights returns the stock weighting.
func DefaultWeights() Weights {
	return Weights{MRT: 7, School: 6, Hospital: 3, Affordability: 8}
}

// Shares is a normalized weight set: each value is the criterion's
// fraction of the total, summing to 1.
type Shares struct {
	MRT           float64
	School        float64
	Hospital      float64
	Affordability float64
}

// NormalizeWeights clamps negative weights to zero and converts the
// set to fractional shares. A non-positive sum degenerates to equal
// quarter shares.
func NormalizeWeights(w Weights) Shares {
	mrt := max(0.0, w.MRT)
	school := max(0.0, w.School)
	hospital := max(0.0, w.Hospital)
	afford := max(0.0, w.Affordability)

	sum := mrt + school + hospital + afford
	if sum <= 0 {
		return Shares{MRT: 0.25, School: 0.25, Hospital: 0.25, Affordability: 0.25}
	}
	return Shares{
		MRT:           mrt / sum,
		School:        school / sum,
		Hospital:      hospital / sum,
		Affordability: afford / sum,
	}
}

// LoadWeightsFile reads a YAML weight preset. Criteria absent from the
// file keep their default values.
func LoadWeightsFile(path string) (Weights, error) {
	w := DefaultWeights()

	data, err := os.ReadFile(path)
	if err != nil {
		return w, eris.Wrapf(err, "scorer: read weights file %s", path)
	}
	if err := yaml.Unmarshal(data, &w); err != nil {
		return w, eris.Wrapf(err, "scorer: parse weights file %s", path)
	}
	return w, nil
}

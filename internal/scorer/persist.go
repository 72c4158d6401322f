package scorer

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/flatfind-sg/flatfind-cli/internal/store"
)

// SaveRun persists a scored batch. The store assigns the run ID.
func SaveRun(ctx context.Context, st store.Store, cands []Candidate, w Weights, profile *Profile, flatType string, towns []string, results []ScoreResult) (*store.ScoreRun, error) {
	weightsJSON, err := json.Marshal(w)
	if err != nil {
		return nil, eris.Wrap(err, "scorer: marshal weights")
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return nil, eris.Wrap(err, "scorer: marshal results")
	}

	run := &store.ScoreRun{
		Fingerprint: Fingerprint(cands, w, profile),
		FlatType:    flatType,
		Towns:       towns,
		Weights:     weightsJSON,
		Results:     resultsJSON,
	}
	if err := st.SaveScoreRun(ctx, run); err != nil {
		return nil, eris.Wrap(err, "scorer: save run")
	}

	zap.L().Info("saved score run",
		zap.String("run_id", run.ID),
		zap.Int("results", len(results)),
	)
	return run, nil
}

// LoadRunResults decodes the results payload of a stored run.
func LoadRunResults(run *store.ScoreRun) ([]ScoreResult, error) {
	var results []ScoreResult
	if err := json.Unmarshal(run.Results, &results); err != nil {
		return nil, eris.Wrapf(err, "scorer: decode results for run %s", run.ID)
	}
	return results, nil
}

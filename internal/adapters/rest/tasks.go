package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ewilliams-labs/cadence/internal/core/cluster"
	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/core/sequence"
	"github.com/ewilliams-labs/cadence/internal/core/services"
)

const defaultListLimit = 50

// submitTaskRequest is the body of POST /tasks. Params depend on Kind.
type submitTaskRequest struct {
	Kind   domain.TaskKind `json:"kind"`
	Tracks []domain.Track  `json:"tracks"`
	Params json.RawMessage `json:"params"`
}

type submitTaskResponse struct {
	ID     string            `json:"id"`
	Status domain.TaskStatus `json:"status"`
}

type graphParams struct {
	Weights []float64 `json:"weights"`
}

type centroidParams struct {
	K        int   `json:"k"`
	Search   bool  `json:"search"`
	MaxK     int   `json:"max_k"`
	MaxIter  int   `json:"max_iter"`
	Seed     int64 `json:"seed"`
	Outgoing bool  `json:"outgoing"`
}

type densityParams struct {
	Weights []float64           `json:"weights"`
	Eps     float64             `json:"eps"`
	MinPts  int                 `json:"min_pts"`
	Policy  cluster.NoisePolicy `json:"policy"`
	Shuffle bool                `json:"shuffle"`
	Seed    int64               `json:"seed"`
}

type pathParams struct {
	Weights       []float64 `json:"weights"`
	MaxIterations int       `json:"max_iterations"`
	MaxStall      int       `json:"max_stall"`
	Strength      int       `json:"strength"`
	TimeLimit     string    `json:"time_limit"`
	Seed          int64     `json:"seed"`
}

// SubmitTask handles POST /tasks
func (h *Handler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var req submitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, domain.ErrMissingFeatureData) {
			writeDomainError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !req.Kind.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown task kind %q", req.Kind))
		return
	}

	spec, err := decodeSpec(req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidWeights) {
			writeDomainError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.pool.Submit(r.Context(), spec)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/tasks/"+id)
	writeJSON(w, http.StatusAccepted, submitTaskResponse{ID: id, Status: domain.StatusQueued})
}

// ListTasks handles GET /tasks?limit=n
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	recs, err := h.pool.List(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if recs == nil {
		recs = []domain.TaskRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// GetTask handles GET /tasks/{id}
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	rec, err := h.pool.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetTaskResult handles GET /tasks/{id}/result
func (h *Handler) GetTaskResult(w http.ResponseWriter, r *http.Request) {
	res, err := h.pool.Result(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CancelTask handles DELETE /tasks/{id}
func (h *Handler) CancelTask(w http.ResponseWriter, r *http.Request) {
	rec, err := h.pool.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, rec)
}

// decodeSpec turns a request into the typed spec for its kind. Unknown
// parameter names are rejected.
func decodeSpec(req submitTaskRequest) (services.TaskSpec, error) {
	switch req.Kind {
	case domain.KindStandardize:
		return services.StandardizeTask{Tracks: req.Tracks}, nil
	case domain.KindBuildGraph:
		var p graphParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		weights, err := domain.WeightsFromSlice(p.Weights)
		if err != nil {
			return nil, err
		}
		return services.BuildGraphTask{Tracks: req.Tracks, Weights: weights}, nil
	case domain.KindClusterCentroid:
		var p centroidParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return services.CentroidClusterTask{
			Tracks:   req.Tracks,
			K:        p.K,
			Search:   p.Search,
			MaxK:     p.MaxK,
			MaxIter:  p.MaxIter,
			Seed:     p.Seed,
			Outgoing: p.Outgoing,
		}, nil
	case domain.KindClusterDensity:
		var p densityParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		weights, err := domain.WeightsFromSlice(p.Weights)
		if err != nil {
			return nil, err
		}
		return services.DensityClusterTask{
			Tracks:  req.Tracks,
			Weights: weights,
			Eps:     p.Eps,
			MinPts:  p.MinPts,
			Policy:  p.Policy,
			Shuffle: p.Shuffle,
			Seed:    p.Seed,
		}, nil
	case domain.KindApproximatePath:
		var p pathParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		weights, err := domain.WeightsFromSlice(p.Weights)
		if err != nil {
			return nil, err
		}
		var limit time.Duration
		if p.TimeLimit != "" {
			d, err := time.ParseDuration(p.TimeLimit)
			if err != nil {
				return nil, fmt.Errorf("invalid time_limit: %w", err)
			}
			limit = d
		}
		return services.PathTask{
			Tracks:  req.Tracks,
			Weights: weights,
			Options: sequence.Options{
				MaxIterations: p.MaxIterations,
				MaxStall:      p.MaxStall,
				Strength:      p.Strength,
				TimeLimit:     limit,
				Seed:          p.Seed,
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown task kind %q", req.Kind)
}

func decodeParams(raw json.RawMessage, into any) error {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

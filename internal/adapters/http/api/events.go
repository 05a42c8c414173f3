package api

import (
	"context"
	"net/http"
	"strconv"

	service "github.com/okian/courtside/internal/app"
	"github.com/okian/courtside/internal/domain/model"
)

// EventDependencies defines the event lifecycle operations.
type EventDependencies interface {
	CreateEvent(ctx context.Context, in service.NewEvent) (model.Event, error)
	Event(ctx context.Context, id string) (service.EventView, error)
	Generate(ctx context.Context, eventID, seed string) (model.Schedule, error)
	Regenerate(ctx context.Context, eventID, seed string) (model.Schedule, error)
	EnqueueGeneration(ctx context.Context, eventID, seed string, regenerate bool) (service.JobStatus, error)
	Job(ctx context.Context, id string) (service.JobStatus, error)
	Swap(ctx context.Context, eventID string, round int, a, b string) (service.SwapResult, error)
	CompleteEvent(ctx context.Context, eventID string) ([]model.RatingUpdate, error)
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

type generateRequest struct {
	Seed  string `json:"seed"`
	Async bool   `json:"async"`
}

type swapRequest struct {
	A string `json:"a"`
	B string `json:"b"`
}

type completeResponse struct {
	RatingUpdates []model.RatingUpdate `json:"ratingUpdates"`
}

// HandlePostEvent handles POST /events.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	var req service.NewEvent
	if err := decode(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	ev, err := h.deps.CreateEvent(r.Context(), req)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// HandleGetEvent handles GET /events/{id}.
func (h *EventsHandler) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_event"
	view, err := h.deps.Event(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleGenerate handles POST /events/{id}/generate.
func (h *EventsHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, "api.generate", false)
}

// HandleRegenerate handles POST /events/{id}/regenerate.
func (h *EventsHandler) HandleRegenerate(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, "api.regenerate", true)
}

func (h *EventsHandler) generate(w http.ResponseWriter, r *http.Request, op string, regenerate bool) {
	var req generateRequest
	if err := decode(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	id := r.PathValue("id")

	if req.Async {
		job, err := h.deps.EnqueueGeneration(r.Context(), id, req.Seed, regenerate)
		if err != nil {
			writeFailure(w, op, err)
			return
		}
		w.Header().Set("Location", "/jobs/"+job.ID)
		writeJSON(w, http.StatusAccepted, job)
		return
	}

	run := h.deps.Generate
	if regenerate {
		run = h.deps.Regenerate
	}
	sched, err := run(r.Context(), id, req.Seed)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

// HandleSwap handles POST /events/{id}/rounds/{round}/swap.
func (h *EventsHandler) HandleSwap(w http.ResponseWriter, r *http.Request) {
	const op = "api.swap"
	round, err := strconv.Atoi(r.PathValue("round"))
	if err != nil || round < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	var req swapRequest
	if err := decode(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.Swap(r.Context(), r.PathValue("id"), round, req.A, req.B)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleComplete handles POST /events/{id}/complete.
func (h *EventsHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	const op = "api.complete"
	updates, err := h.deps.CompleteEvent(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, completeResponse{RatingUpdates: updates})
}

// HandleGetJob handles GET /jobs/{id}.
func (h *EventsHandler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_job"
	job, err := h.deps.Job(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

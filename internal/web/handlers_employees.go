package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/staffdesk/internal/core"
	"github.com/JonMunkholm/staffdesk/internal/core/tables"
)

// maxJSONBody bounds create/update payloads.
const maxJSONBody = 1 << 20

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListTables returns the registered tables.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, core.Tables())
}

// handleListEmployees serves grid requests.
//
// With a filters parameter the JSON request is paged, sorted and filtered
// and the response is {data, total}. Without one every employee is
// returned in surname order.
func (s *Server) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	svc := s.service()

	raw := r.URL.Query().Get("filters")
	if raw == "" {
		list, err := svc.List(ctx)
		if err != nil {
			respondError(w, r, err)
			return
		}
		if list == nil {
			list = []*tables.Employee{}
		}
		writeJSON(w, r, http.StatusOK, list)
		return
	}

	req, err := core.ParseRequest([]byte(raw))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if max := s.cfg.Query.MaxTake; req.Take > max {
		req.Take = max
	}

	result, err := svc.Query(ctx, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if result.Data == nil {
		result.Data = []*tables.Employee{}
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleGetEmployee returns one employee.
func (s *Server) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	e, err := s.service().GetSingle(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, e)
}

// handleCreateEmployee inserts the posted employee. Any id or version in the
// body is ignored.
func (s *Server) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := withRequestMetadata(r)

	e, err := decodeEmployee(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	created, err := s.service().Create(ctx, e)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, created)
}

// handleUpdateEmployee overwrites the employee named in the path. A version
// in the body makes the write conditional on it. An unknown id is 404; a row
// removed or changed between the lookup and the write is 409.
func (s *Server) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := withRequestMetadata(r)

	id, err := parseID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	e, err := decodeEmployee(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	e.ID = id

	svc := s.service()
	if _, err := svc.GetSingle(ctx, id); err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := svc.Update(ctx, e); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, e)
}

// handleDeleteEmployee removes the employee named in the path.
func (s *Server) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := withRequestMetadata(r)

	id, err := parseID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	ok, err := s.service().Delete(ctx, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !ok {
		respondError(w, r, core.NotFoundError(tables.EmployeesKey, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseID reads the {id} path parameter.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// decodeEmployee reads a JSON employee from the request body.
func decodeEmployee(w http.ResponseWriter, r *http.Request) (*tables.Employee, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var e tables.Employee
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			return nil, verr
		}
		if errors.Is(err, io.EOF) {
			return nil, &core.ValidationError{Message: "request body is empty"}
		}
		return nil, &core.ValidationError{Message: "malformed employee: " + err.Error()}
	}
	return &e, nil
}

package simulator

import (
	"net/http"
	"strconv"

	"github.com/couchbase/faultcheck/pkg/api"
	"github.com/couchbase/faultcheck/pkg/errors"
	"github.com/couchbase/faultcheck/pkg/util"

	"github.com/julienschmidt/httprouter"
)

// PAPIHandler returns the package API.
func (s *Simulator) PAPIHandler() http.Handler {
	router := httprouter.New()
	router.GET("/ping", s.handlePing)
	router.GET("/packages", s.handleListPackages)
	router.GET("/packages/:uuid", s.handleReadPackage)
	router.PUT("/packages/:uuid", s.handleUpdatePackage)

	return &loggingHandler{name: "PAPI", Handler: router}
}

// handlePing reports liveness.
func (s *Simulator) handlePing(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	util.JSONResponse(w, http.StatusOK, map[string]string{
		"pid":     "1",
		"backend": "up",
	})
}

// handleListPackages lists packages matching the filter query parameter.
func (s *Simulator) handleListPackages(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	records, err := s.store.ListPackages(r.URL.Query().Get("filter"))
	if err != nil {
		util.JSONError(w, err)
		return
	}

	w.Header().Set(api.HeaderResourceCount, strconv.Itoa(len(records)))

	util.JSONResponse(w, http.StatusOK, records)
}

// handleReadPackage returns a single package.
func (s *Simulator) handleReadPackage(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	record, err := s.store.GetPackage(params.ByName("uuid"))
	if err != nil {
		util.JSONError(w, err)
		return
	}

	util.JSONResponse(w, http.StatusOK, record)
}

// handleUpdatePackage replaces fields of a package.
func (s *Simulator) handleUpdatePackage(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	update := api.Record{}
	if err := util.JSONRequest(r, &update); err != nil {
		util.JSONError(w, err)
		return
	}

	if len(update) == 0 {
		util.JSONError(w, errors.NewParameterError("no fields to update"))
		return
	}

	record, err := s.store.UpdatePackage(params.ByName("uuid"), update)
	if err != nil {
		util.JSONError(w, err)
		return
	}

	util.JSONResponse(w, http.StatusOK, record)
}

package handlers

import "net/http"

func (r *Router) connectScanner(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, r.sim.ConnectScanner(req.Context()))
}

func (r *Router) connectPrinter(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, r.sim.ConnectPrinter(req.Context()))
}

func (r *Router) connectSensors(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, r.sim.ConnectSensors(req.Context()))
}

func (r *Router) hardwareStatus(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, r.sim.Status())
}

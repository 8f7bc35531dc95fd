// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ManuGH/castlog/internal/activation"
	"github.com/ManuGH/castlog/internal/domain/activation/model"
	"github.com/ManuGH/castlog/internal/log"
	pnet "github.com/ManuGH/castlog/internal/platform/net"
)

const maxBodyBytes = 64 << 10

// StateResponse is the body of GET /api/v1/state.
type StateResponse = model.Snapshot

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, StateResponse(s.activation.Snapshot()))
}

func (s *Server) handleAttribution(w http.ResponseWriter, r *http.Request) {
	var payload model.Attribution
	if !decodeBody(w, r, &payload) {
		return
	}
	if err := s.activation.IngestAttribution(r.Context(), payload); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, s.activation.Snapshot())
}

func (s *Server) handleDeeplink(w http.ResponseWriter, r *http.Request) {
	var payload model.Attribution
	if !decodeBody(w, r, &payload) {
		return
	}
	if err := s.activation.IngestDeeplink(payload); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGrant(w http.ResponseWriter, r *http.Request) {
	if err := s.activation.GrantPermission(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, s.activation.Snapshot())
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	if err := s.activation.RejectPermission(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, s.activation.Snapshot())
}

type pushTokenRequest struct {
	Token string `json:"token"`
}

func (s *Server) handlePushToken(w http.ResponseWriter, r *http.Request) {
	var req pushTokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "token must not be empty")
		return
	}
	if err := s.activation.SetPushToken(r.Context(), req.Token); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type temporaryDestinationRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleTemporaryDestination(w http.ResponseWriter, r *http.Request) {
	var req temporaryDestinationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if _, ok := pnet.ParseAbsoluteURL(req.URL); !ok {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "url must be an absolute URL")
		return
	}
	if err := s.activation.SetTemporaryDestination(r.Context(), req.URL); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeBody reads one JSON value into dst, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", fmt.Sprintf("decode body: %v", err))
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, activation.ErrClosed):
		status, code = http.StatusServiceUnavailable, "shutting_down"
	case errors.Is(err, activation.ErrNoAuthority):
		status, code = http.StatusNotImplemented, "no_authority"
	}
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Warn().Err(err).Int(log.FieldStatus, status).Msg("request failed")
	writeError(w, r, status, code, err.Error())
}

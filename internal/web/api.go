package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/julienschmidt/httprouter"

	"github.com/rickgao/huddle/internal/model"
)

const maxServerNameLen = 100

type createServerRequest struct {
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
}

type createServerResponse struct {
	Server  model.Server  `json:"server"`
	Channel model.Channel `json:"channel"`
}

func (h *Handler) handleListServers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	p, err := h.profiles.Current(r)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if p == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	servers, err := h.store.ServersForProfile(r.Context(), p.ID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if servers == nil {
		servers = []model.Server{}
	}
	writeJSON(w, http.StatusOK, servers)
}

func (h *Handler) handleCreateServer(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	p, err := h.profiles.Current(r)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if p == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createServerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "server name is required")
		return
	}
	if utf8.RuneCountInString(name) > maxServerNameLen {
		writeError(w, http.StatusBadRequest, "server name is too long")
		return
	}

	server := model.NewServer(name, strings.TrimSpace(req.ImageURL), p.ID, h.now().UTC())
	channel, err := h.store.CreateServer(r.Context(), server)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	h.logger.Info("server created", "server_id", server.ID, "profile_id", p.ID)
	writeJSON(w, http.StatusCreated, createServerResponse{Server: server, Channel: *channel})
}

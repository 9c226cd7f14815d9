package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"github.com/rickgao/huddle/internal/model"
	"github.com/rickgao/huddle/internal/profile"
	"github.com/rickgao/huddle/internal/store"
)

// SetupView is rendered when a profile has no servers yet.
type SetupView struct {
	Profile *model.Profile `json:"profile"`
}

// ServerView is the server sidebar (channels and members) plus the
// navigation list of every server the profile belongs to.
type ServerView struct {
	Servers  []model.Server  `json:"servers"`
	Server   *model.Server   `json:"server"`
	Member   *model.Member   `json:"member"`
	Channels []model.Channel `json:"channels"`
	Members  []model.Member  `json:"members"`
}

// ChannelView is a channel page inside its server.
type ChannelView struct {
	ServerView
	Channel *model.Channel `json:"channel"`
}

func (h *Handler) handleSetup(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	p, err := h.profiles.Initial(r)
	if errors.Is(err, profile.ErrNoSession) {
		h.redirectToSignIn(w, r)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	server, err := h.store.FirstServerForProfile(r.Context(), p.ID)
	switch {
	case err == nil:
		redirect(w, r, serverPath(server.ID))
		return
	case !errors.Is(err, store.ErrNotFound):
		h.serverError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SetupView{Profile: p})
}

func (h *Handler) handleServer(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	p, server, ok := h.memberServer(w, r, ps)
	if !ok {
		return
	}

	general, err := h.store.DefaultChannel(r.Context(), server.ID)
	switch {
	case err == nil:
		redirect(w, r, channelPath(server.ID, general.ID))
		return
	case !errors.Is(err, store.ErrNotFound):
		h.serverError(w, r, err)
		return
	}

	view, err := h.serverView(r, p, server)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleChannel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	p, server, ok := h.memberServer(w, r, ps)
	if !ok {
		return
	}

	channelID, err := uuid.Parse(ps.ByName("channelId"))
	if err != nil {
		redirect(w, r, serverPath(server.ID))
		return
	}

	channel, err := h.store.ChannelInServer(r.Context(), server.ID, channelID)
	if errors.Is(err, store.ErrNotFound) {
		redirect(w, r, serverPath(server.ID))
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	view, err := h.serverView(r, p, server)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ChannelView{ServerView: *view, Channel: channel})
}

func (h *Handler) handleInvite(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	p, err := h.profiles.Current(r)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if p == nil {
		h.redirectToSignIn(w, r)
		return
	}

	code := ps.ByName("inviteCode")
	if code == "" {
		redirect(w, r, "/")
		return
	}

	server, err := h.store.ServerByInviteCode(r.Context(), code)
	if errors.Is(err, store.ErrNotFound) {
		redirect(w, r, "/")
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	member := model.NewMember(server.ID, p.ID, model.RoleGuest, h.now().UTC())
	if err := h.store.AddMember(r.Context(), member); err != nil && !errors.Is(err, store.ErrDuplicateMember) {
		h.serverError(w, r, err)
		return
	} else if err == nil {
		h.logger.Info("member joined", "server_id", server.ID, "profile_id", p.ID)
	}

	redirect(w, r, serverPath(server.ID))
}

// memberServer applies the server layout guards: a profile must exist and be a
// member of :serverId. On false the response has already been written.
func (h *Handler) memberServer(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (*model.Profile, *model.Server, bool) {
	p, err := h.profiles.Current(r)
	if err != nil {
		h.serverError(w, r, err)
		return nil, nil, false
	}
	if p == nil {
		h.redirectToSignIn(w, r)
		return nil, nil, false
	}

	serverID, err := uuid.Parse(ps.ByName("serverId"))
	if err != nil {
		redirect(w, r, "/")
		return nil, nil, false
	}

	server, err := h.store.ServerForMember(r.Context(), serverID, p.ID)
	if errors.Is(err, store.ErrNotFound) {
		redirect(w, r, "/")
		return nil, nil, false
	}
	if err != nil {
		h.serverError(w, r, err)
		return nil, nil, false
	}

	return p, server, true
}

func (h *Handler) serverView(r *http.Request, p *model.Profile, server *model.Server) (*ServerView, error) {
	ctx := r.Context()

	channels, err := h.store.Channels(ctx, server.ID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	members, err := h.store.Members(ctx, server.ID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	member, err := h.store.MemberForProfile(ctx, server.ID, p.ID)
	if err != nil {
		return nil, fmt.Errorf("lookup member: %w", err)
	}
	servers, err := h.store.ServersForProfile(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}

	if channels == nil {
		channels = []model.Channel{}
	}
	if members == nil {
		members = []model.Member{}
	}

	return &ServerView{
		Servers:  servers,
		Server:   server,
		Member:   member,
		Channels: channels,
		Members:  members,
	}, nil
}

func serverPath(id uuid.UUID) string {
	return "/servers/" + id.String()
}

func channelPath(serverID, channelID uuid.UUID) string {
	return serverPath(serverID) + "/channels/" + channelID.String()
}

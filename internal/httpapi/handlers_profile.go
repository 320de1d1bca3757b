package httpapi

import (
	"net/http"

	"villageserver/internal/domain"
)

type createProfileRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	Location string `json:"location"`
	Birthday string `json:"birthday"`
}

func (a *api) handleProfileCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	var req createProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	p, err := a.profilesSvc.Create(r.Context(), user.ID, domain.Profile{
		Username: req.Username,
		Name:     req.Name,
		Avatar:   req.Avatar,
		Location: req.Location,
		Birthday: req.Birthday,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, p)
}

func (a *api) handleProfileGet(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	p, err := a.profilesSvc.Get(r.Context(), user.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, p)
}

type updateProfileRequest struct {
	Username     *string `json:"username"`
	Name         *string `json:"name"`
	Avatar       *string `json:"avatar"`
	Location     *string `json:"location"`
	Birthday     *string `json:"birthday"`
	Notification *struct {
		NudgesEnabled  bool `json:"nudges_enabled"`
		UpdatesEnabled bool `json:"updates_enabled"`
	} `json:"notification_settings"`
}

func (a *api) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	patch := domain.ProfilePatch{
		Username: req.Username,
		Name:     req.Name,
		Avatar:   req.Avatar,
		Location: req.Location,
		Birthday: req.Birthday,
	}
	if req.Notification != nil {
		patch.Notification = &domain.NotificationSettings{
			NudgesEnabled:  req.Notification.NudgesEnabled,
			UpdatesEnabled: req.Notification.UpdatesEnabled,
		}
	}

	p, err := a.profilesSvc.Update(r.Context(), user.ID, patch)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, p)
}

func (a *api) handleUserProfileGet(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	targetID, err := pathID(r, "id")
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	p, err := a.profilesSvc.GetPublic(r.Context(), user.ID, targetID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, p)
}

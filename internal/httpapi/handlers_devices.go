package httpapi

import (
	"net/http"
	"strings"

	"villageserver/internal/domain"
)

type registerDeviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

func (a *api) handleDeviceRegister(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	var req registerDeviceRequest
	if err := decodeJSONAllowUnknownFields(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	d, err := a.notificationsSvc.RegisterDevice(r.Context(), user.ID, req.Token, req.Platform)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, d)
}

func (a *api) handleDevicesList(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	devices, err := a.notificationsSvc.ListDevices(r.Context(), user.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string][]domain.Device{"devices": devices})
}

type removeDeviceRequest struct {
	Token string `json:"token"`
}

func (a *api) handleDeviceRemove(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	var req removeDeviceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"token": "required"}))
		return
	}

	if err := a.notificationsSvc.RemoveDevice(r.Context(), user.ID, req.Token); err != nil {
		WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleNudge(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	targetID, err := pathID(r, "id")
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	if err := a.notificationsSvc.Nudge(r.Context(), user.ID, targetID); err != nil {
		WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

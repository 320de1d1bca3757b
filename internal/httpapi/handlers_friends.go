package httpapi

import (
	"net/http"
	"strings"

	"villageserver/internal/domain"
)

func (a *api) handleFriendsOverview(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	overview, err := a.friendsSvc.Overview(r.Context(), user.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, overview)
}

type friendRequestRequest struct {
	UserID string `json:"user_id"`
}

func (a *api) handleFriendRequest(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	var req friendRequestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"user_id": "required"}))
		return
	}

	f, err := a.friendsSvc.Request(r.Context(), user.ID, req.UserID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, f)
}

func (a *api) handleFriendAccept(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	counterpartID, err := pathID(r, "id")
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	if err := a.friendsSvc.Accept(r.Context(), user.ID, counterpartID); err != nil {
		WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

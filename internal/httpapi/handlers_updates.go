package httpapi

import (
	"net/http"

	"villageserver/internal/domain"
)

type createUpdateRequest struct {
	Content   string   `json:"content"`
	Sentiment string   `json:"sentiment"`
	FriendIDs []string `json:"friend_ids"`
	GroupIDs  []string `json:"group_ids"`
}

func (a *api) handleUpdateCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	var req createUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	u, err := a.updatesSvc.Create(r.Context(), user.ID, domain.Update{
		Content:   req.Content,
		Sentiment: req.Sentiment,
		FriendIDs: req.FriendIDs,
		GroupIDs:  req.GroupIDs,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, u)
}

func (a *api) handleOwnUpdates(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	page, err := parsePage(r)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	updates, err := a.updatesSvc.OwnUpdates(r.Context(), user.ID, page)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, updates)
}

func (a *api) handleFeed(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	page, err := parsePage(r)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	feed, err := a.updatesSvc.Feed(r.Context(), user.ID, page)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, feed)
}

func (a *api) handleUserUpdates(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	targetID, err := pathID(r, "id")
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	page, err := parsePage(r)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	updates, err := a.updatesSvc.UserUpdates(r.Context(), user.ID, targetID, page)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, updates)
}

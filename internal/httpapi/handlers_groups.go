package httpapi

import (
	"net/http"

	"villageserver/internal/domain"
)

type createGroupRequest struct {
	Name    string   `json:"name"`
	Icon    string   `json:"icon"`
	Members []string `json:"members"`
}

func (a *api) handleGroupCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	var req createGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	g, err := a.groupsSvc.Create(r.Context(), user.ID, req.Name, req.Icon, req.Members)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, g)
}

func (a *api) handleGroupsList(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	groups, err := a.groupsSvc.ListForUser(r.Context(), user.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string][]domain.Group{"groups": groups})
}

func (a *api) handleGroupMembersList(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	groupID, err := pathID(r, "id")
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	members, err := a.groupsSvc.Members(r.Context(), user.ID, groupID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string][]domain.ProfileSnapshot{"members": members})
}

type addGroupMembersRequest struct {
	Members []string `json:"members"`
}

func (a *api) handleGroupMembersAdd(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	groupID, err := pathID(r, "id")
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	var req addGroupMembersRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}
	if len(req.Members) == 0 {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"members": "required"}))
		return
	}

	g, err := a.groupsSvc.AddMembers(r.Context(), user.ID, groupID, req.Members)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, g)
}

func (a *api) handleGroupFeed(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	groupID, err := pathID(r, "id")
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	page, err := parsePage(r)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	feed, err := a.updatesSvc.GroupFeed(r.Context(), user.ID, groupID, page)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, feed)
}

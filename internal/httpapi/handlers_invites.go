package httpapi

import (
	"net/http"

	"villageserver/internal/domain"
)

func (a *api) handleInvitationCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	inv, err := a.invitesSvc.Create(r.Context(), user.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, inv)
}

func (a *api) handleInvitationsList(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	invitations, err := a.invitesSvc.List(r.Context(), user.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string][]domain.Invitation{"invitations": invitations})
}

func (a *api) handleInvitationResend(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	invitationID, err := pathID(r, "id")
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	inv, err := a.invitesSvc.Resend(r.Context(), user.ID, invitationID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, inv)
}

// Reset is addressed to the caller's current invitation, not a path id.
func (a *api) handleInvitationReset(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	invitations, err := a.invitesSvc.List(r.Context(), user.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	if len(invitations) == 0 {
		WriteDomainError(w, domain.ErrNotFound)
		return
	}

	inv, err := a.invitesSvc.Reset(r.Context(), user.ID, invitations[0].ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, inv)
}

func (a *api) handleInvitationJoin(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	invitationID, err := pathID(r, "id")
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	jr, err := a.invitesSvc.RequestJoin(r.Context(), user.ID, invitationID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, jr)
}

func (a *api) handleJoinRequestsList(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	requests, err := a.invitesSvc.PendingRequests(r.Context(), user.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string][]domain.JoinRequest{"requests": requests})
}

func (a *api) handleJoinRequestAccept(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	requestID, err := pathID(r, "id")
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	if err := a.invitesSvc.AcceptJoin(r.Context(), user.ID, requestID); err != nil {
		WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleJoinRequestReject(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	requestID, err := pathID(r, "id")
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	if err := a.invitesSvc.RejectJoin(r.Context(), user.ID, requestID); err != nil {
		WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

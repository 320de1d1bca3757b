package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"villageserver/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Fields  map[string]string      `json:"fields,omitempty"`
	Pairs   []domain.NonFriendPair `json:"non_friend_pairs,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: message}})
}

func WriteDomainError(w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		WriteJSON(w, http.StatusBadRequest, errorEnvelope{Error: apiError{
			Code:    "validation_error",
			Message: "invalid request",
			Fields:  vErr.Fields,
		}})
		return
	}

	var cErr *domain.CliqueError
	if errors.As(err, &cErr) {
		WriteJSON(w, http.StatusBadRequest, errorEnvelope{Error: apiError{
			Code:    "not_all_friends",
			Message: "group members must all be friends with each other",
			Pairs:   cErr.Pairs,
		}})
		return
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		WriteError(w, http.StatusBadRequest, "validation_error", "invalid request")
	case errors.Is(err, domain.ErrUsernameTaken):
		WriteError(w, http.StatusConflict, "username_taken", "username already taken")
	case errors.Is(err, domain.ErrEmailTaken):
		WriteError(w, http.StatusConflict, "email_taken", "email already taken")
	case errors.Is(err, domain.ErrProfileExists):
		WriteError(w, http.StatusConflict, "profile_exists", "profile already exists")
	case errors.Is(err, domain.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	case errors.Is(err, domain.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		WriteError(w, http.StatusForbidden, "forbidden", "forbidden")
	case errors.Is(err, domain.ErrUserDisabled):
		WriteError(w, http.StatusForbidden, "user_disabled", "user is disabled")
	case errors.Is(err, domain.ErrAlreadyFriends):
		WriteError(w, http.StatusConflict, "already_friends", "you are already friends with this user")
	case errors.Is(err, domain.ErrRequestAlreadySent):
		WriteError(w, http.StatusConflict, "request_already_sent", "friend request already sent to this user")
	case errors.Is(err, domain.ErrRequestFromThem):
		WriteError(w, http.StatusConflict, "request_from_them", "you have a pending friend request from this user")
	case errors.Is(err, domain.ErrNoPendingRequest):
		WriteError(w, http.StatusBadRequest, "no_pending_request", "no pending request to act on")
	case errors.Is(err, domain.ErrInvitationNotActive):
		WriteError(w, http.StatusBadRequest, "invitation_not_active", "invitation is expired or no longer active")
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "not found")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

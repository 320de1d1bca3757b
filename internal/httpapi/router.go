package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"villageserver/internal/auth"
	"villageserver/internal/service"
)

// tokenVerifier checks an external id token and returns its claims.
type tokenVerifier func(ctx context.Context, token string) (*auth.ExternalTokenClaims, error)

type RouterOpts struct {
	Logger *slog.Logger
	IsProd bool

	DBPing func(context.Context) error

	Auth          *service.AuthService
	Profiles      *service.ProfilesService
	Friends       *service.FriendsService
	Groups        *service.GroupsService
	Invites       *service.InvitesService
	Updates       *service.UpdatesService
	Notifications *service.NotificationsService

	TokenCodec auth.TokenCodec

	// OAuth audiences for external sign-in. Empty disables the provider.
	GoogleClientID string
	AppleClientID  string
}

func NewRouter(opts RouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	api := &api{
		logger:           logger,
		isProd:           opts.IsProd,
		dbPing:           opts.DBPing,
		authSvc:          opts.Auth,
		profilesSvc:      opts.Profiles,
		friendsSvc:       opts.Friends,
		groupsSvc:        opts.Groups,
		invitesSvc:       opts.Invites,
		updatesSvc:       opts.Updates,
		notificationsSvc: opts.Notifications,
		tokenCodec:       opts.TokenCodec,
		loginLimiter:     newLoginLimiter(),
	}

	if opts.GoogleClientID != "" {
		aud := opts.GoogleClientID
		api.verifyGoogle = func(ctx context.Context, token string) (*auth.ExternalTokenClaims, error) {
			return auth.VerifyGoogleIDToken(ctx, token, aud)
		}
	}
	if opts.AppleClientID != "" {
		aud := opts.AppleClientID
		api.verifyApple = func(ctx context.Context, token string) (*auth.ExternalTokenClaims, error) {
			return auth.VerifyAppleIDToken(ctx, token, aud)
		}
	}

	publicMux := http.NewServeMux()
	apiMux := http.NewServeMux()

	publicMux.HandleFunc("GET /healthz", api.handleHealthz)

	if api.authSvc == nil {
		apiMux.HandleFunc("POST /v1/auth/register", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/login", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/google", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/apple", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/logout", handleNotImplemented)
	} else {
		apiMux.HandleFunc("POST /v1/auth/register", api.handleAuthRegister)
		apiMux.HandleFunc("POST /v1/auth/login", api.handleAuthLogin)
		apiMux.HandleFunc("POST /v1/auth/google", api.handleAuthLoginGoogle)
		apiMux.HandleFunc("POST /v1/auth/apple", api.handleAuthLoginApple)
		apiMux.HandleFunc("POST /v1/auth/logout", api.requireAuth(api.handleAuthLogout))

		if api.profilesSvc != nil {
			apiMux.HandleFunc("POST /v1/me/profile", api.requireAuth(api.handleProfileCreate))
			apiMux.HandleFunc("GET /v1/me/profile", api.requireAuth(api.handleProfileGet))
			apiMux.HandleFunc("PUT /v1/me/profile", api.requireAuth(api.handleProfileUpdate))
			apiMux.HandleFunc("GET /v1/users/{id}/profile", api.requireAuth(api.handleUserProfileGet))
		}

		if api.friendsSvc != nil {
			apiMux.HandleFunc("GET /v1/me/friends", api.requireAuth(api.handleFriendsOverview))
			apiMux.HandleFunc("POST /v1/friends", api.requireAuth(api.handleFriendRequest))
			apiMux.HandleFunc("POST /v1/friends/{id}/accept", api.requireAuth(api.handleFriendAccept))
		}

		if api.groupsSvc != nil {
			apiMux.HandleFunc("POST /v1/groups", api.requireAuth(api.handleGroupCreate))
			apiMux.HandleFunc("GET /v1/groups", api.requireAuth(api.handleGroupsList))
			apiMux.HandleFunc("GET /v1/groups/{id}/members", api.requireAuth(api.handleGroupMembersList))
			apiMux.HandleFunc("POST /v1/groups/{id}/members", api.requireAuth(api.handleGroupMembersAdd))
			if api.updatesSvc != nil {
				apiMux.HandleFunc("GET /v1/groups/{id}/feed", api.requireAuth(api.handleGroupFeed))
			}
		}

		if api.invitesSvc != nil {
			apiMux.HandleFunc("POST /v1/invitations", api.requireAuth(api.handleInvitationCreate))
			apiMux.HandleFunc("GET /v1/invitations", api.requireAuth(api.handleInvitationsList))
			apiMux.HandleFunc("POST /v1/invitations/{id}/resend", api.requireAuth(api.handleInvitationResend))
			apiMux.HandleFunc("POST /v1/invitations/reset", api.requireAuth(api.handleInvitationReset))
			apiMux.HandleFunc("POST /v1/invitations/{id}/join", api.requireAuth(api.handleInvitationJoin))
			apiMux.HandleFunc("GET /v1/me/requests", api.requireAuth(api.handleJoinRequestsList))
			apiMux.HandleFunc("POST /v1/me/requests/{id}/accept", api.requireAuth(api.handleJoinRequestAccept))
			apiMux.HandleFunc("POST /v1/me/requests/{id}/reject", api.requireAuth(api.handleJoinRequestReject))
		}

		if api.updatesSvc != nil {
			apiMux.HandleFunc("POST /v1/updates", api.requireAuth(api.handleUpdateCreate))
			apiMux.HandleFunc("GET /v1/me/updates", api.requireAuth(api.handleOwnUpdates))
			apiMux.HandleFunc("GET /v1/me/feed", api.requireAuth(api.handleFeed))
			apiMux.HandleFunc("GET /v1/users/{id}/updates", api.requireAuth(api.handleUserUpdates))
		}

		if api.notificationsSvc != nil {
			apiMux.HandleFunc("PUT /v1/device", api.requireAuth(api.handleDeviceRegister))
			apiMux.HandleFunc("GET /v1/device", api.requireAuth(api.handleDevicesList))
			apiMux.HandleFunc("DELETE /v1/device", api.requireAuth(api.handleDeviceRemove))
			apiMux.HandleFunc("POST /v1/users/{id}/nudge", api.requireAuth(api.handleNudge))
		}
	}

	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, pattern := apiMux.Handler(r)
		if pattern == "" {
			handleV1NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})

	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/") || r.URL.Path == "/v1" {
			apiHandler.ServeHTTP(w, r)
			return
		}
		publicMux.ServeHTTP(w, r)
	})

	var h http.Handler = root
	h = RequestLogger(logger)(h)
	h = RequestID(h)
	h = Recoverer(logger, opts.IsProd)(h)
	return h
}

func handleNotImplemented(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotImplemented, "not_implemented", "not implemented")
}

func handleV1NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotFound, "not_found", "not found")
}

type api struct {
	logger *slog.Logger
	isProd bool

	dbPing func(context.Context) error

	authSvc          *service.AuthService
	profilesSvc      *service.ProfilesService
	friendsSvc       *service.FriendsService
	groupsSvc        *service.GroupsService
	invitesSvc       *service.InvitesService
	updatesSvc       *service.UpdatesService
	notificationsSvc *service.NotificationsService

	tokenCodec   auth.TokenCodec
	verifyGoogle tokenVerifier
	verifyApple  tokenVerifier

	loginLimiter *loginLimiter
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if a.dbPing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()
		if err := a.dbPing(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db down"))
			return
		}
	}

	_, _ = w.Write([]byte("ok"))
}

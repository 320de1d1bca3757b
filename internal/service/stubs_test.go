package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"villageserver/internal/domain"
	"villageserver/internal/notifications"
)

type stubUsersStore struct {
	t *testing.T

	createUserFunc         func(context.Context, string, string) (domain.User, error)
	getUserByIDFunc        func(context.Context, string) (domain.User, error)
	getUserByEmailFunc     func(context.Context, string) (domain.UserWithPassword, error)
	getUserByExternalFunc  func(context.Context, string, string) (domain.User, error)
	createExternalUserFunc func(context.Context, string, string, string) (domain.User, error)
	setLastLoginFunc       func(context.Context, string, time.Time) error
}

func (s *stubUsersStore) CreateUser(ctx context.Context, email, passwordHash string) (domain.User, error) {
	if s.createUserFunc != nil {
		return s.createUserFunc(ctx, email, passwordHash)
	}
	s.t.Fatalf("CreateUser called unexpectedly")
	return domain.User{}, errors.New("unexpected call")
}

func (s *stubUsersStore) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	if s.getUserByIDFunc != nil {
		return s.getUserByIDFunc(ctx, id)
	}
	s.t.Fatalf("GetUserByID called unexpectedly")
	return domain.User{}, errors.New("unexpected call")
}

func (s *stubUsersStore) GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error) {
	if s.getUserByEmailFunc != nil {
		return s.getUserByEmailFunc(ctx, email)
	}
	s.t.Fatalf("GetUserByEmail called unexpectedly")
	return domain.UserWithPassword{}, errors.New("unexpected call")
}

func (s *stubUsersStore) GetUserByExternal(ctx context.Context, provider, providerID string) (domain.User, error) {
	if s.getUserByExternalFunc != nil {
		return s.getUserByExternalFunc(ctx, provider, providerID)
	}
	s.t.Fatalf("GetUserByExternal called unexpectedly")
	return domain.User{}, errors.New("unexpected call")
}

func (s *stubUsersStore) CreateExternalUser(ctx context.Context, provider, providerID, email string) (domain.User, error) {
	if s.createExternalUserFunc != nil {
		return s.createExternalUserFunc(ctx, provider, providerID, email)
	}
	s.t.Fatalf("CreateExternalUser called unexpectedly")
	return domain.User{}, errors.New("unexpected call")
}

func (s *stubUsersStore) SetLastLogin(ctx context.Context, userID string, when time.Time) error {
	if s.setLastLoginFunc != nil {
		return s.setLastLoginFunc(ctx, userID, when)
	}
	return nil
}

type stubSessionsStore struct {
	t *testing.T

	createSessionFunc func(context.Context, string, time.Time, string, string) (string, error)
	getSessionFunc    func(context.Context, string) (domain.Session, error)
	revokeSessionFunc func(context.Context, string, time.Time) error
}

func (s *stubSessionsStore) CreateSession(ctx context.Context, userID string, expiresAt time.Time, ip, userAgent string) (string, error) {
	if s.createSessionFunc != nil {
		return s.createSessionFunc(ctx, userID, expiresAt, ip, userAgent)
	}
	s.t.Fatalf("CreateSession called unexpectedly")
	return "", errors.New("unexpected call")
}

func (s *stubSessionsStore) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	if s.getSessionFunc != nil {
		return s.getSessionFunc(ctx, sessionID)
	}
	s.t.Fatalf("GetSession called unexpectedly")
	return domain.Session{}, errors.New("unexpected call")
}

func (s *stubSessionsStore) RevokeSession(ctx context.Context, sessionID string, when time.Time) error {
	if s.revokeSessionFunc != nil {
		return s.revokeSessionFunc(ctx, sessionID, when)
	}
	s.t.Fatalf("RevokeSession called unexpectedly")
	return errors.New("unexpected call")
}

type stubProfilesStore struct {
	t *testing.T

	getProfileFunc    func(context.Context, string) (domain.Profile, error)
	getProfilesFunc   func(context.Context, []string) ([]domain.Profile, error)
	createProfileFunc func(context.Context, domain.Profile) (domain.Profile, error)
}

func (s *stubProfilesStore) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	if s.getProfileFunc != nil {
		return s.getProfileFunc(ctx, userID)
	}
	s.t.Fatalf("GetProfile called unexpectedly")
	return domain.Profile{}, errors.New("unexpected call")
}

func (s *stubProfilesStore) GetProfiles(ctx context.Context, userIDs []string) ([]domain.Profile, error) {
	if s.getProfilesFunc != nil {
		return s.getProfilesFunc(ctx, userIDs)
	}
	s.t.Fatalf("GetProfiles called unexpectedly")
	return nil, errors.New("unexpected call")
}

func (s *stubProfilesStore) CreateProfile(ctx context.Context, p domain.Profile) (domain.Profile, error) {
	if s.createProfileFunc != nil {
		return s.createProfileFunc(ctx, p)
	}
	s.t.Fatalf("CreateProfile called unexpectedly")
	return domain.Profile{}, errors.New("unexpected call")
}

type stubFriendshipsStore struct {
	t *testing.T

	getByPairKeyFunc      func(context.Context, string) (domain.Friendship, error)
	createPendingFunc     func(context.Context, domain.Friendship) (domain.Friendship, error)
	upsertAcceptedFunc    func(context.Context, domain.Friendship, time.Time) error
	acceptFunc            func(context.Context, string, time.Time) error
	listForUserFunc       func(context.Context, string) ([]domain.Friendship, error)
	listAcceptedAmongFunc func(context.Context, []string) ([]domain.Friendship, error)
}

func (s *stubFriendshipsStore) GetByPairKey(ctx context.Context, pairKey string) (domain.Friendship, error) {
	if s.getByPairKeyFunc != nil {
		return s.getByPairKeyFunc(ctx, pairKey)
	}
	s.t.Fatalf("GetByPairKey called unexpectedly")
	return domain.Friendship{}, errors.New("unexpected call")
}

func (s *stubFriendshipsStore) CreatePending(ctx context.Context, f domain.Friendship) (domain.Friendship, error) {
	if s.createPendingFunc != nil {
		return s.createPendingFunc(ctx, f)
	}
	s.t.Fatalf("CreatePending called unexpectedly")
	return domain.Friendship{}, errors.New("unexpected call")
}

func (s *stubFriendshipsStore) UpsertAccepted(ctx context.Context, f domain.Friendship, when time.Time) error {
	if s.upsertAcceptedFunc != nil {
		return s.upsertAcceptedFunc(ctx, f, when)
	}
	s.t.Fatalf("UpsertAccepted called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubFriendshipsStore) Accept(ctx context.Context, pairKey string, when time.Time) error {
	if s.acceptFunc != nil {
		return s.acceptFunc(ctx, pairKey, when)
	}
	s.t.Fatalf("Accept called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubFriendshipsStore) ListForUser(ctx context.Context, userID string) ([]domain.Friendship, error) {
	if s.listForUserFunc != nil {
		return s.listForUserFunc(ctx, userID)
	}
	s.t.Fatalf("ListForUser called unexpectedly")
	return nil, errors.New("unexpected call")
}

func (s *stubFriendshipsStore) ListAcceptedAmong(ctx context.Context, probe []string) ([]domain.Friendship, error) {
	if s.listAcceptedAmongFunc != nil {
		return s.listAcceptedAmongFunc(ctx, probe)
	}
	s.t.Fatalf("ListAcceptedAmong called unexpectedly")
	return nil, errors.New("unexpected call")
}

type stubGroupsStore struct {
	t *testing.T

	getGroupFunc    func(context.Context, string) (domain.Group, error)
	listForUserFunc func(context.Context, string) ([]domain.Group, error)
}

func (s *stubGroupsStore) GetGroup(ctx context.Context, id string) (domain.Group, error) {
	if s.getGroupFunc != nil {
		return s.getGroupFunc(ctx, id)
	}
	s.t.Fatalf("GetGroup called unexpectedly")
	return domain.Group{}, errors.New("unexpected call")
}

func (s *stubGroupsStore) ListForUser(ctx context.Context, userID string) ([]domain.Group, error) {
	if s.listForUserFunc != nil {
		return s.listForUserFunc(ctx, userID)
	}
	s.t.Fatalf("ListForUser called unexpectedly")
	return nil, errors.New("unexpected call")
}

type stubGroupsTx struct {
	t *testing.T

	createGroupFunc func(context.Context, domain.Group) (domain.Group, error)
	addMembersFunc  func(context.Context, string, []string, []domain.ProfileSnapshot) error
}

func (s *stubGroupsTx) CreateGroupWithMembership(ctx context.Context, g domain.Group) (domain.Group, error) {
	if s.createGroupFunc != nil {
		return s.createGroupFunc(ctx, g)
	}
	s.t.Fatalf("CreateGroupWithMembership called unexpectedly")
	return domain.Group{}, errors.New("unexpected call")
}

func (s *stubGroupsTx) AddGroupMembers(ctx context.Context, groupID string, memberIDs []string, profiles []domain.ProfileSnapshot) error {
	if s.addMembersFunc != nil {
		return s.addMembersFunc(ctx, groupID, memberIDs, profiles)
	}
	s.t.Fatalf("AddGroupMembers called unexpectedly")
	return errors.New("unexpected call")
}

type stubInvitationsStore struct {
	t *testing.T

	upsertFunc      func(context.Context, domain.Invitation) (domain.Invitation, error)
	getFunc         func(context.Context, string) (domain.Invitation, error)
	listFunc        func(context.Context, string) ([]domain.Invitation, error)
	markExpiredFunc func(context.Context, []string) error
	refreshFunc     func(context.Context, string, time.Time, time.Time) error
}

func (s *stubInvitationsStore) UpsertInvitation(ctx context.Context, inv domain.Invitation) (domain.Invitation, error) {
	if s.upsertFunc != nil {
		return s.upsertFunc(ctx, inv)
	}
	s.t.Fatalf("UpsertInvitation called unexpectedly")
	return domain.Invitation{}, errors.New("unexpected call")
}

func (s *stubInvitationsStore) GetInvitation(ctx context.Context, id string) (domain.Invitation, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, id)
	}
	s.t.Fatalf("GetInvitation called unexpectedly")
	return domain.Invitation{}, errors.New("unexpected call")
}

func (s *stubInvitationsStore) ListBySender(ctx context.Context, senderID string) ([]domain.Invitation, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, senderID)
	}
	s.t.Fatalf("ListBySender called unexpectedly")
	return nil, errors.New("unexpected call")
}

func (s *stubInvitationsStore) MarkExpired(ctx context.Context, ids []string) error {
	if s.markExpiredFunc != nil {
		return s.markExpiredFunc(ctx, ids)
	}
	s.t.Fatalf("MarkExpired called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubInvitationsStore) Refresh(ctx context.Context, id string, createdAt, expiresAt time.Time) error {
	if s.refreshFunc != nil {
		return s.refreshFunc(ctx, id, createdAt, expiresAt)
	}
	s.t.Fatalf("Refresh called unexpectedly")
	return errors.New("unexpected call")
}

type stubJoinRequestsStore struct {
	t *testing.T

	createFunc    func(context.Context, domain.JoinRequest) (domain.JoinRequest, error)
	getFunc       func(context.Context, string) (domain.JoinRequest, error)
	listFunc      func(context.Context, string) ([]domain.JoinRequest, error)
	setStatusFunc func(context.Context, string, domain.JoinRequestStatus) error
}

func (s *stubJoinRequestsStore) CreateJoinRequest(ctx context.Context, jr domain.JoinRequest) (domain.JoinRequest, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, jr)
	}
	s.t.Fatalf("CreateJoinRequest called unexpectedly")
	return domain.JoinRequest{}, errors.New("unexpected call")
}

func (s *stubJoinRequestsStore) GetJoinRequest(ctx context.Context, id string) (domain.JoinRequest, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, id)
	}
	s.t.Fatalf("GetJoinRequest called unexpectedly")
	return domain.JoinRequest{}, errors.New("unexpected call")
}

func (s *stubJoinRequestsStore) ListForReceiver(ctx context.Context, receiverID string) ([]domain.JoinRequest, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, receiverID)
	}
	s.t.Fatalf("ListForReceiver called unexpectedly")
	return nil, errors.New("unexpected call")
}

func (s *stubJoinRequestsStore) SetStatus(ctx context.Context, id string, status domain.JoinRequestStatus) error {
	if s.setStatusFunc != nil {
		return s.setStatusFunc(ctx, id, status)
	}
	s.t.Fatalf("SetStatus called unexpectedly")
	return errors.New("unexpected call")
}

type stubInvitesTx struct {
	t *testing.T

	acceptFunc func(context.Context, string, domain.Friendship, time.Time) error
	resetFunc  func(context.Context, string, domain.Invitation) (domain.Invitation, error)
}

func (s *stubInvitesTx) AcceptJoinRequest(ctx context.Context, requestID string, f domain.Friendship, when time.Time) error {
	if s.acceptFunc != nil {
		return s.acceptFunc(ctx, requestID, f, when)
	}
	s.t.Fatalf("AcceptJoinRequest called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubInvitesTx) ResetInvitation(ctx context.Context, oldID string, fresh domain.Invitation) (domain.Invitation, error) {
	if s.resetFunc != nil {
		return s.resetFunc(ctx, oldID, fresh)
	}
	s.t.Fatalf("ResetInvitation called unexpectedly")
	return domain.Invitation{}, errors.New("unexpected call")
}

type stubProfilesTx struct {
	t *testing.T

	saveFunc func(context.Context, domain.Profile, domain.IdentityChange, time.Time) error
}

func (s *stubProfilesTx) SaveProfileWithFanOut(ctx context.Context, p domain.Profile, change domain.IdentityChange, when time.Time) error {
	if s.saveFunc != nil {
		return s.saveFunc(ctx, p, change, when)
	}
	s.t.Fatalf("SaveProfileWithFanOut called unexpectedly")
	return errors.New("unexpected call")
}

type stubUpdatesStore struct {
	t *testing.T

	createFunc                 func(context.Context, domain.Update) (domain.Update, error)
	getFunc                    func(context.Context, string) (domain.Update, error)
	listByCreatorFunc          func(context.Context, string, domain.Page) ([]domain.Update, error)
	listVisibleToFunc          func(context.Context, string, domain.Page) ([]domain.Update, error)
	listVisibleToAnyFunc       func(context.Context, []string, domain.Page) ([]domain.Update, error)
	listByCreatorVisibleToFunc func(context.Context, string, string, domain.Page) ([]domain.Update, error)
}

func (s *stubUpdatesStore) CreateUpdate(ctx context.Context, u domain.Update) (domain.Update, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, u)
	}
	s.t.Fatalf("CreateUpdate called unexpectedly")
	return domain.Update{}, errors.New("unexpected call")
}

func (s *stubUpdatesStore) GetUpdate(ctx context.Context, id string) (domain.Update, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, id)
	}
	s.t.Fatalf("GetUpdate called unexpectedly")
	return domain.Update{}, errors.New("unexpected call")
}

func (s *stubUpdatesStore) ListByCreator(ctx context.Context, creatorID string, page domain.Page) ([]domain.Update, error) {
	if s.listByCreatorFunc != nil {
		return s.listByCreatorFunc(ctx, creatorID, page)
	}
	s.t.Fatalf("ListByCreator called unexpectedly")
	return nil, errors.New("unexpected call")
}

func (s *stubUpdatesStore) ListVisibleTo(ctx context.Context, token string, page domain.Page) ([]domain.Update, error) {
	if s.listVisibleToFunc != nil {
		return s.listVisibleToFunc(ctx, token, page)
	}
	s.t.Fatalf("ListVisibleTo called unexpectedly")
	return nil, errors.New("unexpected call")
}

func (s *stubUpdatesStore) ListVisibleToAny(ctx context.Context, tokens []string, page domain.Page) ([]domain.Update, error) {
	if s.listVisibleToAnyFunc != nil {
		return s.listVisibleToAnyFunc(ctx, tokens, page)
	}
	s.t.Fatalf("ListVisibleToAny called unexpectedly")
	return nil, errors.New("unexpected call")
}

func (s *stubUpdatesStore) ListByCreatorVisibleTo(ctx context.Context, creatorID, token string, page domain.Page) ([]domain.Update, error) {
	if s.listByCreatorVisibleToFunc != nil {
		return s.listByCreatorVisibleToFunc(ctx, creatorID, token, page)
	}
	s.t.Fatalf("ListByCreatorVisibleTo called unexpectedly")
	return nil, errors.New("unexpected call")
}

type stubEnqueuer struct {
	enqueueFunc func(context.Context, string) error
}

func (s *stubEnqueuer) Enqueue(ctx context.Context, updateID string) error {
	if s.enqueueFunc != nil {
		return s.enqueueFunc(ctx, updateID)
	}
	return nil
}

type stubPairsStore struct {
	t *testing.T

	getFunc func(context.Context, string) (domain.PairSummary, error)
}

func (s *stubPairsStore) GetPairSummary(ctx context.Context, pairKey string) (domain.PairSummary, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, pairKey)
	}
	s.t.Fatalf("GetPairSummary called unexpectedly")
	return domain.PairSummary{}, errors.New("unexpected call")
}

type stubSummariesTx struct {
	t *testing.T

	applyFunc func(context.Context, []domain.PairSummary, string, string, string, domain.Insights, time.Time) error
}

func (s *stubSummariesTx) ApplyPairSummaries(ctx context.Context, summaries []domain.PairSummary, creatorID, summary, suggestions string, insights domain.Insights, when time.Time) error {
	if s.applyFunc != nil {
		return s.applyFunc(ctx, summaries, creatorID, summary, suggestions, insights, when)
	}
	s.t.Fatalf("ApplyPairSummaries called unexpectedly")
	return errors.New("unexpected call")
}

type stubGenerator struct {
	summaryFunc     func(context.Context, string, string, string) (string, error)
	suggestionsFunc func(context.Context, string, string, string) (string, error)
	insightsFunc    func(context.Context, string, string, string) (string, error)
}

func (s *stubGenerator) Summary(ctx context.Context, previous, update, sentiment string) (string, error) {
	if s.summaryFunc != nil {
		return s.summaryFunc(ctx, previous, update, sentiment)
	}
	return "summary of " + update, nil
}

func (s *stubGenerator) Suggestions(ctx context.Context, previous, update, sentiment string) (string, error) {
	if s.suggestionsFunc != nil {
		return s.suggestionsFunc(ctx, previous, update, sentiment)
	}
	return "suggestions for " + update, nil
}

func (s *stubGenerator) Insights(ctx context.Context, previous, update, sentiment string) (string, error) {
	if s.insightsFunc != nil {
		return s.insightsFunc(ctx, previous, update, sentiment)
	}
	return "insights for " + update, nil
}

type stubDevicesStore struct {
	t *testing.T

	upsertFunc func(context.Context, string, string, string, time.Time) (domain.Device, error)
	deleteFunc func(context.Context, string, string) error
	listFunc   func(context.Context, string) ([]domain.Device, error)
}

func (s *stubDevicesStore) UpsertDevice(ctx context.Context, userID, token, platform string, when time.Time) (domain.Device, error) {
	if s.upsertFunc != nil {
		return s.upsertFunc(ctx, userID, token, platform, when)
	}
	s.t.Fatalf("UpsertDevice called unexpectedly")
	return domain.Device{}, errors.New("unexpected call")
}

func (s *stubDevicesStore) DeleteDevice(ctx context.Context, userID, token string) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, userID, token)
	}
	s.t.Fatalf("DeleteDevice called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubDevicesStore) ListDevices(ctx context.Context, userID string) ([]domain.Device, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, userID)
	}
	s.t.Fatalf("ListDevices called unexpectedly")
	return nil, errors.New("unexpected call")
}

type stubPushSender struct {
	sendFunc func(context.Context, string, notifications.Message) error
}

func (s *stubPushSender) Send(ctx context.Context, token string, msg notifications.Message) error {
	if s.sendFunc != nil {
		return s.sendFunc(ctx, token, msg)
	}
	return nil
}

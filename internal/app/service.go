package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hearth/api/internal/auth"
	"hearth/api/internal/config"
	"hearth/api/internal/email"
	"hearth/api/internal/search"
	"hearth/api/internal/store"
	"hearth/api/internal/util"
)

type Session struct {
	Token     string
	AccountID string
	Name      string
	Email     string
	JTI       string
	ExpiresAt time.Time
}

var allowedRecordTypes = map[string]struct{}{
	store.RecordTask:    {},
	store.RecordHealth:  {},
	store.RecordNote:    {},
	store.RecordFinance: {},
}

type dataStore interface {
	GetAccountByEmail(ctx context.Context, email string) (store.Account, error)
	UpdateAccountName(ctx context.Context, accountID, displayName string) error

	GetPerson(ctx context.Context, personID string) (store.Person, error)
	InsertPerson(ctx context.Context, person store.Person) error
	GetSelfPerson(ctx context.Context, accountID string) (*store.Person, error)
	ListOwnedPersons(ctx context.Context, accountID string) ([]store.Person, error)
	ListSharedPersons(ctx context.Context, accountID, email string) ([]store.Person, error)
	SetPersonLinkedAccount(ctx context.Context, personID, accountID string) error
	DeletePerson(ctx context.Context, personID, ownerAccountID string) (bool, error)
	FindContactName(ctx context.Context, ownerAccountID, contactAccountID, contactEmail string) (string, error)

	InsertCollaborationRequest(ctx context.Context, request store.CollaborationRequest) error
	GetCollaborationRequest(ctx context.Context, requestID string) (store.CollaborationRequest, error)
	GetCollaborationRequestByToken(ctx context.Context, token string) (store.CollaborationRequest, error)
	ListIncomingRequests(ctx context.Context, accountID, email string) ([]store.CollaborationRequest, error)
	ResolveCollaborationRequest(ctx context.Context, requestID, status string, mergedIntoPersonID *string, targetAccountID string) (bool, error)

	InsertProfileLink(ctx context.Context, link store.ProfileLink) (bool, error)
	ListActiveLinksForPerson(ctx context.Context, personID string) ([]store.ProfileLink, error)
	DeactivateLinksWithAccount(ctx context.Context, personID, accountID string) (int64, error)

	InsertPersonShare(ctx context.Context, share store.PersonShare) (bool, error)
	ListActivePersonShares(ctx context.Context, personID string) ([]store.PersonShare, error)
	ListViewerShares(ctx context.Context, personID, accountID, email string) ([]store.PersonShare, error)
	RevokePersonShare(ctx context.Context, personID, accountID string) (bool, error)

	ReplaceItemShares(ctx context.Context, recordType, recordID string, shares []store.ItemShare) error
	ListItemSharesForShares(ctx context.Context, personShareIDs []string) ([]store.ItemShare, error)

	InsertTask(ctx context.Context, item store.Task) error
	ListTasksForPersons(ctx context.Context, personIDs []string) ([]store.Task, error)
	InsertHealthEntry(ctx context.Context, item store.HealthEntry) error
	ListHealthEntriesForPersons(ctx context.Context, personIDs []string) ([]store.HealthEntry, error)
	InsertNote(ctx context.Context, item store.Note) error
	ListNotesForPersons(ctx context.Context, personIDs []string) ([]store.Note, error)
	InsertFinancialEntry(ctx context.Context, item store.FinancialEntry) error
	ListFinancialEntriesForPersons(ctx context.Context, personIDs []string) ([]store.FinancialEntry, error)

	Ping(ctx context.Context) error
}

// AccountDirectory resolves account display info. Backed by the store
// directly or by the Redis cache in front of it.
type AccountDirectory interface {
	GetAccountByID(ctx context.Context, accountID string) (store.Account, error)
}

// AccountCache is the extra surface a caching directory exposes beyond
// lookups. The Redis-backed directory implements it; the plain store does not.
type AccountCache interface {
	Invalidate(ctx context.Context, accountID string) error
	Ping(ctx context.Context) error
}

// searchIndex is what the service needs from the search layer.
type searchIndex interface {
	Search(ctx context.Context, q search.Query) search.Response
	IndexAsync(doc search.Document)
	DeleteAsync(recordType, id string)
}

type Service struct {
	cfg       config.Config
	store     dataStore
	directory AccountDirectory
	cache     AccountCache
	mail      *email.Service
	search    searchIndex
}

func New(cfg config.Config, dataStore *store.PostgresStore) *Service {
	return &Service{cfg: cfg, store: dataStore, directory: dataStore}
}

// NewWithDeps wires the optional collaborators: a caching account directory,
// invite email dispatch, and record search.
func NewWithDeps(cfg config.Config, dataStore *store.PostgresStore, directory AccountDirectory, mailService *email.Service, searchService *search.Service) *Service {
	svc := &Service{cfg: cfg, store: dataStore, directory: directory, mail: mailService}
	if svc.directory == nil {
		svc.directory = dataStore
	}
	if cache, ok := svc.directory.(AccountCache); ok {
		svc.cache = cache
	}
	if searchService != nil {
		svc.search = searchService
	}
	return svc
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ---- sessions ----

func (s *Service) CreateSession(ctx context.Context, accountID string) (Session, error) {
	account, err := s.directory.GetAccountByID(ctx, accountID)
	if err != nil {
		return Session{}, fmt.Errorf("load account: %w", err)
	}
	jti := util.NewID("")
	expiresAt := time.Now().Add(s.cfg.AccessTTL)
	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:   account.ID,
		Name:  account.DisplayName,
		Email: account.Email,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		AccountID: account.ID,
		Name:      account.DisplayName,
		Email:     account.Email,
		JTI:       jti,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		AccountID: claims.Sub,
		Name:      claims.Name,
		Email:     claims.Email,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

// ---- account profile ----

// UpdateAccountName renames the calling account and drops its cached
// directory entry so attribution and collaborator lists pick the new name up
// right away. The session token keeps the old name until it is reissued.
func (s *Service) UpdateAccountName(ctx context.Context, session Session, displayName string) (store.Account, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return store.Account{}, domainError(422, "VALIDATION_ERROR", "displayName is required", nil)
	}
	if err := s.store.UpdateAccountName(ctx, session.AccountID, name); err != nil {
		return store.Account{}, err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, session.AccountID); err != nil {
			slog.Warn("account cache invalidation failed", "account_id", session.AccountID, "error", err)
		}
	}
	return s.directory.GetAccountByID(ctx, session.AccountID)
}

// ---- self profile ----

// EnsureSelfProfile provisions the account's self profile idempotently: the
// one Person owned by and linked to the same account. Safe to call on every
// sign-in; a concurrent duplicate insert loses to the partial unique index
// and the winner is re-read.
func (s *Service) EnsureSelfProfile(ctx context.Context, accountID string) (store.Person, error) {
	if existing, err := s.store.GetSelfPerson(ctx, accountID); err != nil {
		return store.Person{}, err
	} else if existing != nil {
		return *existing, nil
	}

	account, err := s.directory.GetAccountByID(ctx, accountID)
	if err != nil {
		return store.Person{}, fmt.Errorf("load account: %w", err)
	}

	person := store.Person{
		ID:                util.NewID("per"),
		OwnerAccountID:    accountID,
		LinkedAccountID:   &accountID,
		Name:              account.DisplayName,
		Relation:          "Self",
		Email:             account.Email,
		SharingPreference: store.SharingAskEveryTime,
	}
	if err := s.store.InsertPerson(ctx, person); err != nil {
		if existing, getErr := s.store.GetSelfPerson(ctx, accountID); getErr == nil && existing != nil {
			return *existing, nil
		}
		return store.Person{}, err
	}

	created, err := s.store.GetSelfPerson(ctx, accountID)
	if err != nil {
		return store.Person{}, err
	}
	if created == nil {
		// lost the insert race; the winner row must exist by now
		return store.Person{}, fmt.Errorf("self profile missing after provisioning for account %s", accountID)
	}
	return *created, nil
}

// ---- persons ----

type PersonInput struct {
	Name              string
	Relation          string
	Email             string
	Phone             string
	DateOfBirth       *time.Time
	Gender            string
	Birthday          string
	AvatarColor       string
	Theme             string
	SharingPreference string
}

func (s *Service) CreatePerson(ctx context.Context, session Session, input PersonInput) (store.Person, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return store.Person{}, domainError(422, "VALIDATION_ERROR", "name is required", nil)
	}
	preference := input.SharingPreference
	if preference == "" {
		preference = store.SharingAskEveryTime
	}
	if preference != store.SharingAskEveryTime && preference != store.SharingAlwaysShare {
		return store.Person{}, domainError(422, "VALIDATION_ERROR", "invalid sharing preference", nil)
	}
	person := store.Person{
		ID:                util.NewID("per"),
		OwnerAccountID:    session.AccountID,
		Name:              name,
		Relation:          strings.TrimSpace(input.Relation),
		Email:             strings.TrimSpace(input.Email),
		Phone:             strings.TrimSpace(input.Phone),
		DateOfBirth:       input.DateOfBirth,
		Gender:            input.Gender,
		Birthday:          input.Birthday,
		AvatarColor:       input.AvatarColor,
		Theme:             input.Theme,
		SharingPreference: preference,
	}
	if err := s.store.InsertPerson(ctx, person); err != nil {
		return store.Person{}, err
	}
	return person, nil
}

func (s *Service) DeletePerson(ctx context.Context, session Session, personID string) error {
	// Record ids have to be collected before the cascading delete; the
	// search documents are dropped only once the delete is confirmed.
	refs := s.listRecordRefs(ctx, personID)
	deleted, err := s.store.DeletePerson(ctx, personID, session.AccountID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrPersonNotFound
	}
	s.deindexRecords(refs)
	return nil
}

// LinkAccountToPerson asserts that a Person represents an already-known
// account. An identity assertion only: no grant rows are touched.
func (s *Service) LinkAccountToPerson(ctx context.Context, session Session, personID, accountID string) error {
	person, err := s.store.GetPerson(ctx, personID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPersonNotFound
		}
		return err
	}
	if person.OwnerAccountID != session.AccountID {
		return ErrPersonNotFound
	}
	if err := s.store.SetPersonLinkedAccount(ctx, personID, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPersonNotFound
		}
		return err
	}
	return nil
}

// ---- collaboration requests ----

// Invite tokens draw from an alphabet without visually ambiguous glyphs
// (0/O, 1/l/I, o). 54 symbols at length 20 is far beyond guessability.
const inviteTokenAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"
const inviteTokenLength = 20

func newInviteToken() string {
	token := make([]byte, 0, inviteTokenLength)
	buf := make([]byte, 32)
	for len(token) < inviteTokenLength {
		_, _ = rand.Read(buf)
		for _, b := range buf {
			// reject bytes >= 216 (4*54) so the modulo stays uniform
			if int(b) >= 4*len(inviteTokenAlphabet) {
				continue
			}
			token = append(token, inviteTokenAlphabet[int(b)%len(inviteTokenAlphabet)])
			if len(token) == inviteTokenLength {
				break
			}
		}
	}
	return string(token)
}

func snapshotPerson(person store.Person) store.ProfileSnapshot {
	return store.ProfileSnapshot{
		Name:        person.Name,
		Relation:    person.Relation,
		Email:       person.Email,
		Phone:       person.Phone,
		DateOfBirth: person.DateOfBirth,
		Gender:      person.Gender,
		Birthday:    person.Birthday,
		AvatarColor: person.AvatarColor,
		Theme:       person.Theme,
	}
}

func (s *Service) loadOwnedPersonForSharing(ctx context.Context, personID, requesterAccountID string) (store.Person, error) {
	person, err := s.store.GetPerson(ctx, personID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Person{}, ErrPersonNotFound
		}
		return store.Person{}, err
	}
	if person.OwnerAccountID != requesterAccountID {
		return store.Person{}, ErrPersonNotFound
	}
	// Email is the de-duplication key matching a snapshot to a future
	// account; sharing is gated on it.
	if strings.TrimSpace(person.Email) == "" {
		return store.Person{}, ErrMissingEmail
	}
	return person, nil
}

// CreateCollaborationRequestByLink creates a pending request addressed to the
// Person's own email and returns a shareable URL embedding the invite token.
func (s *Service) CreateCollaborationRequestByLink(ctx context.Context, session Session, personID string) (string, error) {
	person, err := s.loadOwnedPersonForSharing(ctx, personID, session.AccountID)
	if err != nil {
		return "", err
	}
	request := store.CollaborationRequest{
		ID:                 util.NewID("req"),
		PersonID:           person.ID,
		RequesterAccountID: session.AccountID,
		TargetEmail:        person.Email,
		InviteToken:        newInviteToken(),
		Snapshot:           snapshotPerson(person),
		Status:             store.RequestPending,
	}
	if err := s.store.InsertCollaborationRequest(ctx, request); err != nil {
		return "", err
	}
	return s.InviteURL(request.InviteToken), nil
}

func (s *Service) InviteURL(token string) string {
	return strings.TrimRight(s.cfg.InviteBaseURL, "/") + "/" + token
}

type TargetInput struct {
	AccountID string
	Email     string
}

// CreateCollaborationRequestByTarget addresses a request to a specific
// account, or to an email that may match an account later. A missing match
// for the email is not an error; the request waits.
func (s *Service) CreateCollaborationRequestByTarget(ctx context.Context, session Session, personID string, target TargetInput) (store.CollaborationRequest, error) {
	if target.AccountID == "" && strings.TrimSpace(target.Email) == "" {
		return store.CollaborationRequest{}, domainError(422, "VALIDATION_ERROR", "target account or email is required", nil)
	}
	person, err := s.loadOwnedPersonForSharing(ctx, personID, session.AccountID)
	if err != nil {
		return store.CollaborationRequest{}, err
	}

	targetAccountID := target.AccountID
	targetEmail := strings.TrimSpace(target.Email)
	if targetAccountID == "" && targetEmail != "" {
		if account, err := s.store.GetAccountByEmail(ctx, targetEmail); err == nil {
			targetAccountID = account.ID
		} else if !errors.Is(err, sql.ErrNoRows) {
			return store.CollaborationRequest{}, err
		}
	}

	request := store.CollaborationRequest{
		ID:                 util.NewID("req"),
		PersonID:           person.ID,
		RequesterAccountID: session.AccountID,
		TargetEmail:        targetEmail,
		InviteToken:        newInviteToken(),
		Snapshot:           snapshotPerson(person),
		Status:             store.RequestPending,
	}
	if targetAccountID != "" {
		request.TargetAccountID = &targetAccountID
	}
	if err := s.store.InsertCollaborationRequest(ctx, request); err != nil {
		return store.CollaborationRequest{}, err
	}

	if targetEmail != "" && s.mail != nil && s.mail.IsConfigured() {
		if err := s.mail.SendInvite(targetEmail, session.Name, person.Name, s.InviteURL(request.InviteToken)); err != nil {
			slog.Warn("invite email failed", "request_id", request.ID, "error", err)
		}
	}
	return request, nil
}

// GetInviteByToken resolves an invite token to its request and snapshot.
// Serves the pre-acceptance preview, so it needs no session.
func (s *Service) GetInviteByToken(ctx context.Context, token string) (store.CollaborationRequest, string, error) {
	request, err := s.store.GetCollaborationRequestByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.CollaborationRequest{}, "", ErrRequestNotFound
		}
		return store.CollaborationRequest{}, "", err
	}
	requesterName := ""
	if account, err := s.directory.GetAccountByID(ctx, request.RequesterAccountID); err == nil {
		requesterName = account.DisplayName
	}
	return request, requesterName, nil
}

type IncomingRequest struct {
	ID             string
	PersonName     string
	RequesterID    string
	RequesterName  string
	RequesterEmail string
	Snapshot       store.ProfileSnapshot
	CreatedAt      time.Time
}

// ListIncomingCollaborationRequests returns pending requests addressed to the
// account, newest first. The requester's display name prefers the viewer's
// own saved contact for that account, like a phone showing a stored contact
// name over a raw caller id.
func (s *Service) ListIncomingCollaborationRequests(ctx context.Context, session Session) ([]IncomingRequest, error) {
	requests, err := s.store.ListIncomingRequests(ctx, session.AccountID, session.Email)
	if err != nil {
		return nil, err
	}

	items := make([]IncomingRequest, 0, len(requests))
	for _, request := range requests {
		requesterName := ""
		requesterEmail := ""
		if account, err := s.directory.GetAccountByID(ctx, request.RequesterAccountID); err == nil {
			requesterName = account.DisplayName
			requesterEmail = account.Email
		}
		if contactName, err := s.store.FindContactName(ctx, session.AccountID, request.RequesterAccountID, requesterEmail); err == nil && contactName != "" {
			requesterName = contactName
		}
		items = append(items, IncomingRequest{
			ID:             request.ID,
			PersonName:     request.Snapshot.Name,
			RequesterID:    request.RequesterAccountID,
			RequesterName:  requesterName,
			RequesterEmail: requesterEmail,
			Snapshot:       request.Snapshot,
			CreatedAt:      request.CreatedAt,
		})
	}
	return items, nil
}

type AcceptOptions struct {
	MergeIntoPersonID string
	CreateNew         bool
	// InviteToken authorizes acceptance of a link-based request when the
	// session is not the addressed account.
	InviteToken string
}

func (s *Service) authorizeResolution(request store.CollaborationRequest, session Session, inviteToken string) error {
	if request.TargetAccountID != nil && *request.TargetAccountID == session.AccountID {
		return nil
	}
	if request.TargetEmail != "" && strings.EqualFold(request.TargetEmail, session.Email) {
		return nil
	}
	if inviteToken != "" && inviteToken == request.InviteToken {
		return nil
	}
	return ErrForbidden
}

// AcceptCollaborationRequest resolves a pending request in one of two modes:
// merge into an existing Person owned by the acceptor, or create a new Person
// seeded from the snapshot. Grant inserts are duplicate-tolerant so a retry
// after partial failure converges; the reciprocal grant and link are required
// to succeed or the whole call fails with ErrGrantInconsistency.
func (s *Service) AcceptCollaborationRequest(ctx context.Context, session Session, requestID string, opts AcceptOptions) (store.Person, error) {
	request, err := s.store.GetCollaborationRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Person{}, ErrRequestNotFound
		}
		return store.Person{}, err
	}
	if request.Status != store.RequestPending {
		return store.Person{}, ErrRequestAlreadyResolved
	}
	if err := s.authorizeResolution(request, session, opts.InviteToken); err != nil {
		return store.Person{}, err
	}
	if (opts.MergeIntoPersonID == "") == !opts.CreateNew {
		return store.Person{}, domainError(422, "VALIDATION_ERROR", "specify exactly one of mergeIntoPersonId or createNew", nil)
	}

	var target store.Person
	if opts.MergeIntoPersonID != "" {
		target, err = s.store.GetPerson(ctx, opts.MergeIntoPersonID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.Person{}, ErrPersonNotFound
			}
			return store.Person{}, err
		}
		if target.OwnerAccountID != session.AccountID {
			return store.Person{}, ErrPersonNotFound
		}
	} else {
		snapshot := request.Snapshot
		target = store.Person{
			ID:                util.NewID("per"),
			OwnerAccountID:    session.AccountID,
			Name:              snapshot.Name,
			Relation:          snapshot.Relation,
			Email:             snapshot.Email,
			Phone:             snapshot.Phone,
			DateOfBirth:       snapshot.DateOfBirth,
			Gender:            snapshot.Gender,
			Birthday:          snapshot.Birthday,
			AvatarColor:       snapshot.AvatarColor,
			Theme:             snapshot.Theme,
			SharingPreference: store.SharingAskEveryTime,
		}
		if err := s.store.InsertPerson(ctx, target); err != nil {
			return store.Person{}, err
		}
	}

	// Step 1: grant the acceptor access to the requester's person. A
	// duplicate grant from a previous attempt is fine.
	if _, err := s.store.InsertPersonShare(ctx, store.PersonShare{
		ID:           util.NewID("shr"),
		PersonID:     request.PersonID,
		AccountID:    &session.AccountID,
		AccountEmail: session.Email,
	}); err != nil {
		return store.Person{}, err
	}

	// Step 2: reciprocal grant plus the link itself. Failure here leaves a
	// one-sided share; surface it so the caller retries the whole accept.
	requesterEmail := ""
	if account, err := s.directory.GetAccountByID(ctx, request.RequesterAccountID); err == nil {
		requesterEmail = account.Email
	}
	requesterID := request.RequesterAccountID
	if _, err := s.store.InsertPersonShare(ctx, store.PersonShare{
		ID:           util.NewID("shr"),
		PersonID:     target.ID,
		AccountID:    &requesterID,
		AccountEmail: requesterEmail,
	}); err != nil {
		return store.Person{}, fmt.Errorf("%w: reciprocal share: %v", ErrGrantInconsistency, err)
	}
	requestRef := request.ID
	if _, err := s.store.InsertProfileLink(ctx, store.ProfileLink{
		ID:                     util.NewID("lnk"),
		ProfileAID:             request.PersonID,
		ProfileBID:             target.ID,
		AccountAID:             request.RequesterAccountID,
		AccountBID:             session.AccountID,
		CollaborationRequestID: &requestRef,
	}); err != nil {
		return store.Person{}, fmt.Errorf("%w: profile link: %v", ErrGrantInconsistency, err)
	}

	// Step 3: terminal transition, conditional on PENDING. Zero rows means a
	// concurrent resolution won.
	resolved, err := s.store.ResolveCollaborationRequest(ctx, request.ID, store.RequestAccepted, &target.ID, session.AccountID)
	if err != nil {
		return store.Person{}, err
	}
	if !resolved {
		return store.Person{}, ErrRequestAlreadyResolved
	}
	return target, nil
}

func (s *Service) DeclineCollaborationRequest(ctx context.Context, session Session, requestID string, inviteToken string) error {
	request, err := s.store.GetCollaborationRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRequestNotFound
		}
		return err
	}
	if request.Status != store.RequestPending {
		return ErrRequestAlreadyResolved
	}
	if err := s.authorizeResolution(request, session, inviteToken); err != nil {
		return err
	}
	resolved, err := s.store.ResolveCollaborationRequest(ctx, request.ID, store.RequestDeclined, nil, session.AccountID)
	if err != nil {
		return err
	}
	if !resolved {
		return ErrRequestAlreadyResolved
	}
	return nil
}

// ---- collaborator management ----

// RemoveCollaborator revokes an account's standing access to a person:
// active links to that account's persons are deactivated and the person
// share is soft-deleted. Item shares already granted are left untouched;
// revocation is forward-only, never retroactive.
func (s *Service) RemoveCollaborator(ctx context.Context, session Session, personID, collaboratorAccountID string) error {
	person, err := s.store.GetPerson(ctx, personID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPersonNotFound
		}
		return err
	}
	if person.OwnerAccountID != session.AccountID {
		return ErrPersonNotFound
	}
	if _, err := s.store.DeactivateLinksWithAccount(ctx, personID, collaboratorAccountID); err != nil {
		return err
	}
	if _, err := s.store.RevokePersonShare(ctx, personID, collaboratorAccountID); err != nil {
		return err
	}
	return nil
}

// ---- item shares ----

// SetItemShares replaces the full share set for one record. Callers supply
// the complete desired set; an empty set makes the record private. Share ids
// are not validated against active grants here; a revoked grant simply stops
// matching at read time.
func (s *Service) SetItemShares(ctx context.Context, session Session, recordType, recordID string, personShareIDs []string) error {
	if _, ok := allowedRecordTypes[recordType]; !ok {
		return domainError(422, "VALIDATION_ERROR", "invalid record type", nil)
	}
	shares := make([]store.ItemShare, 0, len(personShareIDs))
	for _, shareID := range personShareIDs {
		shares = append(shares, store.ItemShare{
			ID:                 util.NewID("ishr"),
			RecordType:         recordType,
			RecordID:           recordID,
			PersonShareID:      shareID,
			CreatedByAccountID: session.AccountID,
		})
	}
	return s.store.ReplaceItemShares(ctx, recordType, recordID, shares)
}

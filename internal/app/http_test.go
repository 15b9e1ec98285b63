package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hearth/api/internal/identity"
	"hearth/api/internal/store"
)

func (f *fakeStore) CreateAccount(ctx context.Context, account store.Account) error {
	if f.createAccountFn != nil {
		return f.createAccountFn(ctx, account)
	}
	return nil
}

func newTestHTTPServer(fs *fakeStore) *HTTPServer {
	service := newTestService(fs)
	return NewHTTPServer(service, identity.NewService(fs), "*")
}

func doRequest(t *testing.T, server *HTTPServer, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)
	return recorder
}

func decodeResponse(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.NewDecoder(recorder.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestHTTPServer(&fakeStore{})

	recorder := doRequest(t, server, http.MethodGet, "/api/health", "", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	payload := decodeResponse(t, recorder)
	if payload["ok"] != true {
		t.Errorf("payload = %v", payload)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	server := newTestHTTPServer(&fakeStore{})

	for _, path := range []string{"/api/people", "/api/collaboration-requests/incoming", "/api/search?q=x"} {
		recorder := doRequest(t, server, http.MethodGet, path, "", "")
		if recorder.Code != http.StatusUnauthorized {
			t.Errorf("GET %s status = %d, want 401", path, recorder.Code)
		}
	}
}

func TestSignUpThenListPeople(t *testing.T) {
	var created store.Account
	fs := &fakeStore{
		createAccountFn: func(_ context.Context, account store.Account) error {
			created = account
			return nil
		},
	}
	fs.getAccountByIDFn = func(_ context.Context, accountID string) (store.Account, error) {
		return created, nil
	}
	server := newTestHTTPServer(fs)

	recorder := doRequest(t, server, http.MethodPost, "/api/auth/signup", "",
		`{"email":"ana@example.com","password":"correcthorse","displayName":"Ana"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("signup status = %d: %s", recorder.Code, recorder.Body.String())
	}
	payload := decodeResponse(t, recorder)
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatal("signup returned no token")
	}
	if created.PasswordHash == "correcthorse" {
		t.Fatal("password stored in plaintext")
	}

	recorder = doRequest(t, server, http.MethodGet, "/api/people", token, "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("list people status = %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestSignInRejectsWrongPassword(t *testing.T) {
	fs := &fakeStore{}
	server := newTestHTTPServer(fs)

	recorder := doRequest(t, server, http.MethodPost, "/api/auth/signin", "",
		`{"email":"ana@example.com","password":"nope"}`)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", recorder.Code)
	}
}

func TestInvitePreviewNeedsNoSession(t *testing.T) {
	fs := &fakeStore{
		getRequestByTokenFn: func(_ context.Context, token string) (store.CollaborationRequest, error) {
			request := pendingRequestTo("acc-2")
			request.InviteToken = token
			return request, nil
		},
	}
	server := newTestHTTPServer(fs)

	recorder := doRequest(t, server, http.MethodGet, "/api/invites/sometoken", "", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", recorder.Code, recorder.Body.String())
	}
	payload := decodeResponse(t, recorder)
	snapshot, _ := payload["snapshot"].(map[string]any)
	if snapshot["name"] != "Mom" {
		t.Errorf("snapshot = %v, want the profile copy", payload)
	}
}

func TestAcceptEndpointMapsConflict(t *testing.T) {
	fs := &fakeStore{
		getRequestFn: func(context.Context, string) (store.CollaborationRequest, error) {
			request := pendingRequestTo("acc-1")
			request.Status = store.RequestDeclined
			return request, nil
		},
	}
	server := newTestHTTPServer(fs)
	service := newTestService(fs)

	session, err := service.CreateSession(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	recorder := doRequest(t, server, http.MethodPost, "/api/collaboration-requests/req-1/accept", session.Token, `{"createNew":true}`)
	if recorder.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", recorder.Code)
	}
	payload := decodeResponse(t, recorder)
	if payload["code"] != "REQUEST_ALREADY_RESOLVED" {
		t.Errorf("code = %v", payload["code"])
	}
}

func TestInviteLinkEndpointMapsMissingEmail(t *testing.T) {
	fs := &fakeStore{
		getPersonFn: func(_ context.Context, personID string) (store.Person, error) {
			return store.Person{ID: personID, OwnerAccountID: "acc-1", Name: "Mom"}, nil
		},
	}
	server := newTestHTTPServer(fs)
	service := newTestService(fs)

	session, err := service.CreateSession(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	recorder := doRequest(t, server, http.MethodPost, "/api/people/per-1/invite-link", session.Token, "")
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", recorder.Code)
	}
	payload := decodeResponse(t, recorder)
	if payload["code"] != "MISSING_EMAIL" {
		t.Errorf("code = %v", payload["code"])
	}
}

func TestSetItemSharesEndpoint(t *testing.T) {
	var replaced []store.ItemShare
	fs := &fakeStore{
		replaceItemSharesFn: func(_ context.Context, _, _ string, shares []store.ItemShare) error {
			replaced = shares
			return nil
		},
	}
	server := newTestHTTPServer(fs)
	service := newTestService(fs)

	session, err := service.CreateSession(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	recorder := doRequest(t, server, http.MethodPut, "/api/records/NOTE/nte-1/shares", session.Token, `{"shareIds":["shr-1"]}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", recorder.Code, recorder.Body.String())
	}
	if len(replaced) != 1 || replaced[0].PersonShareID != "shr-1" {
		t.Errorf("replaced = %+v", replaced)
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	fs := &fakeStore{}
	server := newTestHTTPServer(fs)
	service := newTestService(fs)

	session, err := service.CreateSession(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	recorder := doRequest(t, server, http.MethodGet, "/api/nope", session.Token, "")
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", recorder.Code)
	}
}

func TestDeclineEndpointAcceptsEmptyBody(t *testing.T) {
	var resolvedStatus string
	fs := &fakeStore{
		getRequestFn: func(context.Context, string) (store.CollaborationRequest, error) {
			return pendingRequestTo("acc-2"), nil
		},
		resolveRequestFn: func(_ context.Context, _, status string, _ *string, _ string) (bool, error) {
			resolvedStatus = status
			return true, nil
		},
	}
	server := newTestHTTPServer(fs)
	service := newTestService(fs)

	session, err := service.CreateSession(context.Background(), "acc-2")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// A bare POST without a payload; declining takes no arguments.
	req := httptest.NewRequest(http.MethodPost, "/api/collaboration-requests/req-1/decline", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", recorder.Code, recorder.Body.String())
	}
	if resolvedStatus != store.RequestDeclined {
		t.Errorf("resolved status = %q, want DECLINED", resolvedStatus)
	}
}

func TestUpdateAccountEndpoint(t *testing.T) {
	var storedName string
	fs := &fakeStore{
		updateAccountNameFn: func(_ context.Context, _, displayName string) error {
			storedName = displayName
			return nil
		},
		getAccountByIDFn: func(_ context.Context, accountID string) (store.Account, error) {
			name := "Account " + accountID
			if storedName != "" {
				name = storedName
			}
			return store.Account{ID: accountID, DisplayName: name, Email: accountID + "@example.com"}, nil
		},
	}
	service := newTestService(fs)
	cache := &fakeAccountCache{}
	service.cache = cache
	server := NewHTTPServer(service, identity.NewService(fs), "*")

	session, err := service.CreateSession(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	recorder := doRequest(t, server, http.MethodPut, "/api/account", session.Token, `{"displayName":"Ana Renamed"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", recorder.Code, recorder.Body.String())
	}
	payload := decodeResponse(t, recorder)
	if payload["name"] != "Ana Renamed" {
		t.Errorf("name = %v", payload["name"])
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != "acc-1" {
		t.Errorf("invalidated = %v, want [acc-1]", cache.invalidated)
	}
}

func TestReadyReportsCacheStatus(t *testing.T) {
	fs := &fakeStore{}
	service := newTestService(fs)
	service.cache = &fakeAccountCache{pingErr: errors.New("redis down")}
	server := NewHTTPServer(service, identity.NewService(fs), "*")

	recorder := doRequest(t, server, http.MethodGet, "/api/ready", "", "")
	// A dead cache degrades to direct store reads, so readiness holds.
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", recorder.Code, recorder.Body.String())
	}
	payload := decodeResponse(t, recorder)
	checks, _ := payload["checks"].(map[string]any)
	cacheCheck, _ := checks["cache"].(map[string]any)
	if cacheCheck["status"] != "error" {
		t.Errorf("cache check = %v, want error status", cacheCheck)
	}
}

package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hearth/api/internal/auth"
	"hearth/api/internal/identity"
)

type HTTPServer struct {
	service    *Service
	identity   *identity.Service
	corsOrigin string
}

func NewHTTPServer(service *Service, identityService *identity.Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, identity: identityService, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		// The account cache falls back to the store when Redis is down, so
		// its health is reported without flipping readiness.
		if s.service.cache != nil {
			cacheCheck := map[string]any{"status": "ok"}
			if err := s.service.cache.Ping(ctx); err != nil {
				cacheCheck = map[string]any{
					"status": "error",
					"error":  err.Error(),
				}
			}
			checks["cache"] = cacheCheck
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	// Auth routes (no session required)
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signup" {
		s.handleAuthSignUp(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signin" {
		s.handleAuthSignIn(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "name": nil})
			return
		}
		session, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "name": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"accountId":     session.AccountID,
			"name":          session.Name,
			"email":         session.Email,
		})
		return
	}

	parts := splitPath(r.URL.Path)

	// Invite preview by token (no session required; the token itself is the
	// capability)
	if len(parts) == 3 && parts[0] == "api" && parts[1] == "invites" && r.Method == http.MethodGet {
		s.handleInvitePreview(w, r, parts[2])
		return
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	if len(parts) == 2 && parts[0] == "api" && parts[1] == "account" && r.Method == http.MethodPut {
		s.handleUpdateAccount(w, r, session)
		return
	}

	if len(parts) == 2 && parts[0] == "api" && parts[1] == "people" {
		switch r.Method {
		case http.MethodGet:
			s.handleListPeople(w, r, session)
		case http.MethodPost:
			s.handleCreatePerson(w, r, session)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "people" {
		personID := parts[2]
		rest := parts[3:]
		s.routePerson(w, r, session, personID, rest)
		return
	}

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "collaboration-requests" && parts[2] == "incoming" && r.Method == http.MethodGet {
		items, err := s.service.ListIncomingCollaborationRequests(r.Context(), session)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"requests": incomingPayload(items)})
		return
	}

	if len(parts) == 4 && parts[0] == "api" && parts[1] == "collaboration-requests" && r.Method == http.MethodPost {
		requestID := parts[2]
		switch parts[3] {
		case "accept":
			s.handleAcceptRequest(w, r, session, requestID)
			return
		case "decline":
			s.handleDeclineRequest(w, r, session, requestID)
			return
		}
	}

	if len(parts) == 5 && parts[0] == "api" && parts[1] == "records" && parts[4] == "shares" && r.Method == http.MethodPut {
		s.handleSetItemShares(w, r, session, parts[2], parts[3])
		return
	}

	if len(parts) == 2 && parts[0] == "api" && parts[1] == "search" && r.Method == http.MethodGet {
		s.handleSearch(w, r, session)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) routePerson(w http.ResponseWriter, r *http.Request, session Session, personID string, rest []string) {
	if len(rest) == 0 {
		if r.Method == http.MethodDelete {
			if err := s.service.DeletePerson(r.Context(), session, personID); err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		}
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	switch {
	case len(rest) == 1 && rest[0] == "view" && r.Method == http.MethodGet:
		view, err := s.service.BuildPersonView(r.Context(), session, personID)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, view)

	case len(rest) == 1 && rest[0] == "invite-link" && r.Method == http.MethodPost:
		inviteURL, err := s.service.CreateCollaborationRequestByLink(r.Context(), session, personID)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"inviteUrl": inviteURL})

	case len(rest) == 1 && rest[0] == "collaboration-requests" && r.Method == http.MethodPost:
		var body struct {
			TargetAccountID string `json:"targetAccountId"`
			TargetEmail     string `json:"targetEmail"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		request, err := s.service.CreateCollaborationRequestByTarget(r.Context(), session, personID, TargetInput{
			AccountID: body.TargetAccountID,
			Email:     body.TargetEmail,
		})
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":        request.ID,
			"status":    request.Status,
			"inviteUrl": s.service.InviteURL(request.InviteToken),
		})

	case len(rest) == 2 && rest[0] == "collaborators" && r.Method == http.MethodDelete:
		if err := s.service.RemoveCollaborator(r.Context(), session, personID, rest[1]); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(rest) == 1 && rest[0] == "link-account" && r.Method == http.MethodPost:
		var body struct {
			AccountID string `json:"accountId"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if body.AccountID == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "accountId is required", nil)
			return
		}
		if err := s.service.LinkAccountToPerson(r.Context(), session, personID, body.AccountID); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(rest) == 1 && rest[0] == "tasks" && r.Method == http.MethodPost:
		s.handleAddTask(w, r, session, personID)

	case len(rest) == 1 && rest[0] == "health-entries" && r.Method == http.MethodPost:
		s.handleAddHealthEntry(w, r, session, personID)

	case len(rest) == 1 && rest[0] == "notes" && r.Method == http.MethodPost:
		s.handleAddNote(w, r, session, personID)

	case len(rest) == 1 && rest[0] == "financial-entries" && r.Method == http.MethodPost:
		s.handleAddFinancialEntry(w, r, session, personID)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleAuthSignUp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	account, err := s.identity.SignUp(r.Context(), identity.SignUpRequest{
		Email:       body.Email,
		Password:    body.Password,
		DisplayName: body.DisplayName,
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "SIGNUP_FAILED", err.Error(), nil)
		return
	}
	if _, err := s.service.EnsureSelfProfile(r.Context(), account.ID); err != nil {
		slog.Error("self profile provisioning failed", "account_id", account.ID, "error", err)
	}
	session, err := s.service.CreateSession(r.Context(), account.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not create session", nil)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(session))
}

func (s *HTTPServer) handleAuthSignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	account, err := s.identity.SignIn(r.Context(), identity.SignInRequest{
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
			return
		}
		writeError(w, http.StatusUnprocessableEntity, "SIGNIN_FAILED", err.Error(), nil)
		return
	}
	if _, err := s.service.EnsureSelfProfile(r.Context(), account.ID); err != nil {
		slog.Error("self profile provisioning failed", "account_id", account.ID, "error", err)
	}
	session, err := s.service.CreateSession(r.Context(), account.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not create session", nil)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(session))
}

func sessionPayload(session Session) map[string]any {
	return map[string]any{
		"token":     session.Token,
		"accountId": session.AccountID,
		"name":      session.Name,
		"email":     session.Email,
		"expiresAt": session.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

func (s *HTTPServer) handleUpdateAccount(w http.ResponseWriter, r *http.Request, session Session) {
	var body struct {
		DisplayName string `json:"displayName"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	account, err := s.service.UpdateAccountName(r.Context(), session, body.DisplayName)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accountId": account.ID,
		"name":      account.DisplayName,
		"email":     account.Email,
	})
}

func (s *HTTPServer) handleInvitePreview(w http.ResponseWriter, r *http.Request, token string) {
	request, requesterName, err := s.service.GetInviteByToken(r.Context(), token)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":            request.ID,
		"status":        request.Status,
		"requesterName": requesterName,
		"snapshot":      request.Snapshot,
	})
}

func (s *HTTPServer) handleListPeople(w http.ResponseWriter, r *http.Request, session Session) {
	summaries, err := s.service.ListPersons(r.Context(), session)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"people": summaries})
}

func (s *HTTPServer) handleCreatePerson(w http.ResponseWriter, r *http.Request, session Session) {
	var body struct {
		Name              string     `json:"name"`
		Relation          string     `json:"relation"`
		Email             string     `json:"email"`
		Phone             string     `json:"phone"`
		DateOfBirth       *time.Time `json:"dateOfBirth"`
		Gender            string     `json:"gender"`
		Birthday          string     `json:"birthday"`
		AvatarColor       string     `json:"avatarColor"`
		Theme             string     `json:"theme"`
		SharingPreference string     `json:"sharingPreference"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	person, err := s.service.CreatePerson(r.Context(), session, PersonInput{
		Name:              body.Name,
		Relation:          body.Relation,
		Email:             body.Email,
		Phone:             body.Phone,
		DateOfBirth:       body.DateOfBirth,
		Gender:            body.Gender,
		Birthday:          body.Birthday,
		AvatarColor:       body.AvatarColor,
		Theme:             body.Theme,
		SharingPreference: body.SharingPreference,
	})
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"person": person})
}

func incomingPayload(items []IncomingRequest) []map[string]any {
	payload := make([]map[string]any, 0, len(items))
	for _, item := range items {
		payload = append(payload, map[string]any{
			"id":             item.ID,
			"personName":     item.PersonName,
			"requesterId":    item.RequesterID,
			"requesterName":  item.RequesterName,
			"requesterEmail": item.RequesterEmail,
			"snapshot":       item.Snapshot,
			"createdAt":      item.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return payload
}

func (s *HTTPServer) handleAcceptRequest(w http.ResponseWriter, r *http.Request, session Session, requestID string) {
	var body struct {
		MergeIntoPersonID string `json:"mergeIntoPersonId"`
		CreateNew         bool   `json:"createNew"`
		InviteToken       string `json:"inviteToken"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	person, err := s.service.AcceptCollaborationRequest(r.Context(), session, requestID, AcceptOptions{
		MergeIntoPersonID: body.MergeIntoPersonID,
		CreateNew:         body.CreateNew,
		InviteToken:       body.InviteToken,
	})
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"person": person})
}

func (s *HTTPServer) handleDeclineRequest(w http.ResponseWriter, r *http.Request, session Session, requestID string) {
	var body struct {
		InviteToken string `json:"inviteToken"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.DeclineCollaborationRequest(r.Context(), session, requestID, body.InviteToken); err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleSetItemShares(w http.ResponseWriter, r *http.Request, session Session, recordType, recordID string) {
	var body struct {
		ShareIDs []string `json:"shareIds"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.SetItemShares(r.Context(), session, recordType, recordID, body.ShareIDs); err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleAddTask(w http.ResponseWriter, r *http.Request, session Session, personID string) {
	var body struct {
		Title     string     `json:"title"`
		Notes     string     `json:"notes"`
		DueDate   *time.Time `json:"dueDate"`
		ShareWith []string   `json:"shareWith"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	task, err := s.service.AddTask(r.Context(), session, personID, TaskInput{
		Title:            body.Title,
		Notes:            body.Notes,
		DueDate:          body.DueDate,
		RecordShareInput: RecordShareInput{ShareWith: body.ShareWith},
	})
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": task})
}

func (s *HTTPServer) handleAddHealthEntry(w http.ResponseWriter, r *http.Request, session Session, personID string) {
	var body struct {
		Title      string     `json:"title"`
		Kind       string     `json:"kind"`
		Value      string     `json:"value"`
		Unit       string     `json:"unit"`
		RecordedAt *time.Time `json:"recordedAt"`
		ShareWith  []string   `json:"shareWith"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	entry, err := s.service.AddHealthEntry(r.Context(), session, personID, HealthEntryInput{
		Title:            body.Title,
		Kind:             body.Kind,
		Value:            body.Value,
		Unit:             body.Unit,
		RecordedAt:       body.RecordedAt,
		RecordShareInput: RecordShareInput{ShareWith: body.ShareWith},
	})
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"healthEntry": entry})
}

func (s *HTTPServer) handleAddNote(w http.ResponseWriter, r *http.Request, session Session, personID string) {
	var body struct {
		Title     string   `json:"title"`
		Body      string   `json:"body"`
		Pinned    bool     `json:"pinned"`
		ShareWith []string `json:"shareWith"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	note, err := s.service.AddNote(r.Context(), session, personID, NoteInput{
		Title:            body.Title,
		Body:             body.Body,
		Pinned:           body.Pinned,
		RecordShareInput: RecordShareInput{ShareWith: body.ShareWith},
	})
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"note": note})
}

func (s *HTTPServer) handleAddFinancialEntry(w http.ResponseWriter, r *http.Request, session Session, personID string) {
	var body struct {
		Title       string     `json:"title"`
		AmountCents int64      `json:"amountCents"`
		Currency    string     `json:"currency"`
		Category    string     `json:"category"`
		OccurredAt  *time.Time `json:"occurredAt"`
		ShareWith   []string   `json:"shareWith"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	entry, err := s.service.AddFinancialEntry(r.Context(), session, personID, FinancialEntryInput{
		Title:            body.Title,
		AmountCents:      body.AmountCents,
		Currency:         body.Currency,
		Category:         body.Category,
		OccurredAt:       body.OccurredAt,
		RecordShareInput: RecordShareInput{ShareWith: body.ShareWith},
	})
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"financialEntry": entry})
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request, session Session) {
	query := r.URL.Query().Get("q")
	filterType := r.URL.Query().Get("type")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	response, err := s.service.SearchRecords(r.Context(), session, query, filterType, limit)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return Session{}, false
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		elapsed := time.Since(started)
		path := metricsPath(splitPath(r.URL.Path))
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(writer.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(elapsed.Seconds())

		slog.Info("request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", writer.status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		// An absent body is fine; some operations take no arguments.
		if errors.Is(err, io.EOF) || errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	switch {
	case errors.Is(err, ErrMissingEmail):
		return http.StatusUnprocessableEntity, "MISSING_EMAIL", "Person has no email address", nil
	case errors.Is(err, ErrPersonNotFound):
		return http.StatusNotFound, "PERSON_NOT_FOUND", "Person not found", nil
	case errors.Is(err, ErrRequestNotFound):
		return http.StatusNotFound, "REQUEST_NOT_FOUND", "Collaboration request not found", nil
	case errors.Is(err, ErrRequestAlreadyResolved):
		return http.StatusConflict, "REQUEST_ALREADY_RESOLVED", "Collaboration request already resolved", nil
	case errors.Is(err, ErrGrantInconsistency):
		return http.StatusConflict, "GRANT_INCOMPLETE", "Collaboration grant incomplete, retry the operation", nil
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN", "Forbidden", nil
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

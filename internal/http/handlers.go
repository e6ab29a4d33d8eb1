package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/controlboxthe-coder/THE-BOX/internal/assistant"
	"github.com/controlboxthe-coder/THE-BOX/internal/backup"
	"github.com/controlboxthe-coder/THE-BOX/internal/core"
	"github.com/controlboxthe-coder/THE-BOX/internal/identity"
	"github.com/controlboxthe-coder/THE-BOX/internal/log"
	"github.com/controlboxthe-coder/THE-BOX/internal/session"
)

type userView struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type stateView struct {
	User         *userView            `json:"user,omitempty"`
	Transactions []core.Transaction   `json:"transactions"`
	Categories   []string             `json:"categories"`
	Recurring    []core.RecurringItem `json:"recurring"`
	IsPro        bool                 `json:"isPro"`
}

func viewOf(state session.ApplicationState) stateView {
	view := stateView{
		Transactions: state.Transactions,
		Categories:   state.Categories,
		Recurring:    state.Recurring,
		IsPro:        state.IsPro(),
	}
	if view.Transactions == nil {
		view.Transactions = []core.Transaction{}
	}
	if view.Recurring == nil {
		view.Recurring = []core.RecurringItem{}
	}
	if state.User != nil {
		view.User = &userView{
			Name:  state.User.Name,
			Email: state.User.Email,
			Phone: state.User.Phone,
		}
	}
	return view
}

// authenticatedState returns the current state, or replies 401 and reports
// false when no session is active.
func (s *Server) authenticatedState(w http.ResponseWriter) (session.ApplicationState, bool) {
	state := s.controller.State()
	if !state.IsAuthenticated() {
		respondError(w, http.StatusUnauthorized, "not logged in")
		return session.ApplicationState{}, false
	}
	return state, true
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.identities.Register(r.Context(), core.User{
		Name:  sanitizeInput(req.Name),
		Email: sanitizeInput(req.Email),
		Phone: sanitizeInput(req.Phone),
	}, req.Password)
	switch {
	case errors.Is(err, identity.ErrUserExists):
		respondError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, identity.ErrPasswordTooShort), errors.Is(err, core.ErrEmptyEmail):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		s.logger.ErrorContext(r.Context(), "Registration failed", log.FieldError, err)
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	if err := s.controller.Login(r.Context(), user); err != nil {
		s.respondLoginError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, viewOf(s.controller.State()))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.identities.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Authentication failed", log.FieldError, err)
		respondError(w, http.StatusInternalServerError, "authentication failed")
		return
	}

	if err := s.controller.Login(r.Context(), user); err != nil {
		s.respondLoginError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, viewOf(s.controller.State()))
}

func (s *Server) respondLoginError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrLoginInProgress):
		respondError(w, http.StatusConflict, "a session is already active")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusRequestTimeout, "login cancelled")
	default:
		s.logger.ErrorContext(r.Context(), "Login failed", log.FieldError, err)
		respondError(w, http.StatusInternalServerError, "login failed")
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.Logout(r.Context()); err != nil {
		s.logger.ErrorContext(r.Context(), "Logout failed", log.FieldError, err)
		respondError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, viewOf(s.controller.State()))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	state, ok := s.authenticatedState(w)
	if !ok {
		return
	}

	breakdown := core.CategoryBreakdown(state.Transactions)
	if breakdown == nil {
		breakdown = []core.CategoryAmount{}
	}
	recent := core.RecentActivity(state.Transactions)
	if recent == nil {
		recent = []core.Transaction{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"totals":    core.Summarize(state.Transactions),
		"breakdown": breakdown,
		"recent":    recent,
	})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	state, ok := s.authenticatedState(w)
	if !ok {
		return
	}
	txs := state.Transactions
	if txs == nil {
		txs = []core.Transaction{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type        string          `json:"type"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Amount      json.RawMessage `json:"amount"`
		Date        string          `json:"date"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Clients send the amount either as a JSON number or as the raw form
	// string; both go through the same decimal parser.
	amount := strings.Trim(strings.TrimSpace(string(req.Amount)), `"`)
	cents, err := core.ParseDecimalToCents(amount)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	date := core.Today()
	if strings.TrimSpace(req.Date) != "" {
		date, err = core.ParseDate(req.Date)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, "invalid date, expected YYYY-MM-DD")
			return
		}
	}

	tx, err := s.controller.AddTransaction(r.Context(), core.Transaction{
		Type:        core.TransactionType(strings.TrimSpace(req.Type)),
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
		Amount:      core.Money{Cents: cents},
		Date:        date,
	})
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		respondError(w, http.StatusUnauthorized, "not logged in")
		return
	case err != nil:
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{"transaction": tx})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	confirmed := r.URL.Query().Get("confirmed") == "true"

	err := s.controller.DeleteTransaction(r.Context(), id, confirmed)
	switch {
	case errors.Is(err, session.ErrNotConfirmed):
		respondError(w, http.StatusPreconditionRequired, "deletion requires confirmed=true")
	case errors.Is(err, session.ErrNotAuthenticated):
		respondError(w, http.StatusUnauthorized, "not logged in")
	case errors.Is(err, session.ErrTransactionNotFound):
		respondError(w, http.StatusNotFound, "transaction not found")
	case err != nil:
		s.logger.ErrorContext(r.Context(), "Delete failed", log.FieldError, err)
		respondError(w, http.StatusInternalServerError, "delete failed")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	state, ok := s.authenticatedState(w)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"categories": state.Categories})
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := s.controller.AddCategory(r.Context(), sanitizeInput(req.Name))
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		respondError(w, http.StatusUnauthorized, "not logged in")
	case errors.Is(err, session.ErrDuplicateCategory):
		respondError(w, http.StatusConflict, "category already exists")
	case errors.Is(err, core.ErrEmptyCategory):
		respondError(w, http.StatusUnprocessableEntity, "category name cannot be empty")
	case err != nil:
		s.logger.ErrorContext(r.Context(), "Add category failed", log.FieldError, err)
		respondError(w, http.StatusInternalServerError, "add category failed")
	default:
		respondJSON(w, http.StatusCreated, map[string]any{"categories": s.controller.State().Categories})
	}
}

func (s *Server) handleActivateLicense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	pro, err := s.controller.SetLicenseKey(r.Context(), req.Key)
	if errors.Is(err, session.ErrNotAuthenticated) {
		respondError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "License activation failed", log.FieldError, err)
		respondError(w, http.StatusInternalServerError, "license activation failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"pro": pro})
}

// requirePro replies 403 unless the session unlocked the PRO tier.
func (s *Server) requirePro(w http.ResponseWriter) (session.ApplicationState, bool) {
	state, ok := s.authenticatedState(w)
	if !ok {
		return session.ApplicationState{}, false
	}
	if !state.IsPro() {
		respondError(w, http.StatusForbidden, "PRO license required")
		return session.ApplicationState{}, false
	}
	return state, true
}

func (s *Server) handleExportBackup(w http.ResponseWriter, r *http.Request) {
	state, ok := s.requirePro(w)
	if !ok {
		return
	}

	data, err := backup.Export(core.Snapshot{
		Transactions: state.Transactions,
		Categories:   state.Categories,
		Recurring:    state.Recurring,
		LicenseKey:   state.LicenseKey,
	}, time.Now())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Backup export failed", log.FieldError, err)
		respondError(w, http.StatusInternalServerError, "backup export failed")
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="thebox-backup.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requirePro(w); !ok {
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	patch, err := backup.Parse(body)
	if err != nil {
		var vErr *backup.ValidationError
		if errors.As(err, &vErr) {
			respondError(w, http.StatusUnprocessableEntity, vErr.Error())
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.controller.Restore(r.Context(), patch); err != nil {
		s.logger.ErrorContext(r.Context(), "Restore failed", log.FieldError, err)
		respondError(w, http.StatusInternalServerError, "restore failed")
		return
	}

	respondJSON(w, http.StatusOK, viewOf(s.controller.State()))
}

func (s *Server) handleAssistant(w http.ResponseWriter, r *http.Request) {
	state, ok := s.requirePro(w)
	if !ok {
		return
	}
	if s.assistant == nil {
		respondError(w, http.StatusServiceUnavailable, "assistant not configured")
		return
	}

	var req struct {
		Transcript string `json:"transcript"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := s.assistant.Interpret(r.Context(), req.Transcript, state.Categories)

	// The client went away while the model was thinking. Discard the result
	// instead of applying it to the session.
	if r.Context().Err() != nil {
		s.logger.WarnContext(r.Context(), "Assistant result discarded, request cancelled")
		return
	}

	switch result.Kind {
	case assistant.ResultParsed:
		tx, err := s.controller.AddTransaction(r.Context(), core.Transaction{
			Type:        result.Intent.Type,
			Category:    result.Intent.Category,
			Description: result.Intent.Description,
			Amount:      result.Intent.Amount,
			Date:        result.Intent.Date,
		})
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Assistant transaction rejected", log.FieldError, err)
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondJSON(w, http.StatusCreated, map[string]any{
			"status":      "added",
			"transaction": tx,
		})
	case assistant.ResultUnrecognized:
		respondJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"status":  "unrecognized",
			"message": result.Message,
		})
	case assistant.ResultTransportFailure:
		respondJSON(w, http.StatusBadGateway, map[string]string{
			"status":  "unavailable",
			"message": result.Message,
		})
	}
}

package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"novoape/internal/core"
	"novoape/internal/identity"
	"novoape/internal/log"
	"novoape/internal/session"
)

type ctxKey string

const ctxKeySession ctxKey = "session"

type authResponse struct {
	Token string    `json:"token"`
	User  core.User `json:"user"`
}

func bearerTokenFromHeader(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", identity.ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

// authMiddleware validates the bearer token and attaches the user's
// session, opening it on first use.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearerTokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing bearer token")
			return
		}
		claims, err := s.tokens.Validate(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid or expired token")
			return
		}

		ctx := r.Context()
		user := claims.User()
		sess, err := s.sessions.Open(ctx, user)
		if errors.Is(err, session.ErrNoUser) {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid or expired token")
			return
		}
		if err != nil {
			// the session holds the defaults; the next write still reaches the store
			log.FromContext(ctx).WarnContext(ctx, "Project load failed",
				log.FieldUserID, user.ID,
				log.FieldError, err.Error())
		}

		logger := log.FromContext(ctx).With(log.FieldUserID, user.ID)
		ctx = log.WithLogger(ctx, logger)
		ctx = context.WithValue(ctx, ctxKeySession, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	sess, _ := r.Context().Value(ctxKeySession).(*session.Session)
	return sess
}

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	user, err := s.identity.SignUp(r.Context(), sanitizeInput(req.Name), req.Email, req.Password)
	if err != nil {
		writeMappedError(r.Context(), w, "sign_up", err)
		return
	}
	s.issue(w, r, http.StatusCreated, user)
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	user, err := s.identity.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeMappedError(r.Context(), w, "sign_in", err)
		return
	}
	s.issue(w, r, http.StatusOK, user)
}

// issue signs a token and opens the session so the project is loaded
// before the first authenticated request.
func (s *Server) issue(w http.ResponseWriter, r *http.Request, status int, user core.User) {
	token, err := s.tokens.Generate(user)
	if err != nil {
		writeMappedError(r.Context(), w, "issue_token", err)
		return
	}
	if _, err := s.sessions.Open(r.Context(), user); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Project load failed",
			log.FieldUserID, user.ID,
			log.FieldError, err.Error())
	}
	writeJSON(w, status, authResponse{Token: token, User: user})
}

// signOut flushes the user's queued writes and drops the session. The
// token itself stays valid until it expires; using it again reloads the
// project from the store.
func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	if user, ok := sessionFrom(r).User(); ok {
		s.sessions.Close(user.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}

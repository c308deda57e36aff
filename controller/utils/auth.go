package utils

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"
)

const sessionName = "aquamon-session"

// AuthConfig guards the REST API with a single local account.
type AuthConfig struct {
	Enable       bool   `yaml:"enable"`
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"` // bcrypt
	CookieSecret string `yaml:"cookie_secret"`
}

// Auth performs cookie-session authentication for the API.
type Auth struct {
	config AuthConfig
	store  *sessions.CookieStore
}

func NewAuth(c AuthConfig) *Auth {
	return &Auth{
		config: c,
		store:  sessions.NewCookieStore([]byte(c.CookieSecret)),
	}
}

// HashPassword returns the bcrypt hash to place in the settings file.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// SignIn checks credentials and establishes a session cookie.
func (a *Auth) SignIn(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		User     string `json:"user"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if creds.User != a.config.Username {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.config.PasswordHash), []byte(creds.Password)); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	session, _ := a.store.Get(r, sessionName)
	session.Values["user"] = creds.User
	if err := session.Save(r, w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// SignOut clears the session.
func (a *Auth) SignOut(w http.ResponseWriter, r *http.Request) {
	session, _ := a.store.Get(r, sessionName)
	delete(session.Values, "user")
	session.Options.MaxAge = -1
	_ = session.Save(r, w)
	w.WriteHeader(http.StatusOK)
}

// Middleware protects a whole router with the session check.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	if !a.config.Enable {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := a.store.Get(r, sessionName)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if _, ok := session.Values["user"]; !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/examhall/internal/exam"
	"github.com/mind-engage/examhall/internal/platform/logger"
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

const minPasswordLen = 8

// Credentials registers users and exchanges passwords for tokens.
type Credentials struct {
	store  exam.Store
	tokens *AuthService
	cost   int
	log    *logger.Logger
}

type CredentialsOption func(*Credentials)

func WithBcryptCost(cost int) CredentialsOption { return func(c *Credentials) { c.cost = cost } }
func WithLogger(l *logger.Logger) CredentialsOption {
	return func(c *Credentials) { c.log = l }
}

func NewCredentials(store exam.Store, tokens *AuthService, opts ...CredentialsOption) *Credentials {
	c := &Credentials{store: store, tokens: tokens, cost: 12, log: logger.Nop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

type RegisterInput struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is the login response.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt int64       `json:"expiresAt"`
	User      SessionUser `json:"user"`
}

type SessionUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

func (c *Credentials) Register(ctx context.Context, in RegisterInput) (Session, error) {
	u := exam.User{
		Username: strings.TrimSpace(in.Username),
		Name:     strings.TrimSpace(in.Name),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
	}
	if !usernameRe.MatchString(u.Username) {
		return Session{}, fmt.Errorf("%w: username must be 3-32 letters, digits, '.', '_' or '-'", exam.ErrValidation)
	}
	if u.Name == "" {
		u.Name = u.Username
	}
	if addr, err := mail.ParseAddress(u.Email); err != nil || addr.Address != u.Email {
		return Session{}, fmt.Errorf("%w: invalid email", exam.ErrValidation)
	}
	if len(in.Password) < minPasswordLen {
		return Session{}, fmt.Errorf("%w: password must be at least %d characters", exam.ErrValidation, minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), c.cost)
	if err != nil {
		return Session{}, err
	}
	u.PasswordHash = string(hash)

	created, err := c.store.CreateUser(ctx, u)
	if err != nil {
		return Session{}, err
	}
	c.log.Info("user registered", "user_id", created.ID, "username", created.Username)
	return c.session(created)
}

// Login accepts a username or an email address as identifier.
func (c *Credentials) Login(ctx context.Context, identifier, password string) (Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return Session{}, fmt.Errorf("%w: username and password are required", exam.ErrValidation)
	}
	var (
		u   exam.User
		err error
	)
	if strings.Contains(identifier, "@") {
		u, err = c.store.GetUserByEmail(ctx, strings.ToLower(identifier))
	} else {
		u, err = c.store.GetUserByUsername(ctx, identifier)
	}
	if errors.Is(err, exam.ErrNotFound) {
		return Session{}, fmt.Errorf("%w: invalid username or password", ErrUnauthenticated)
	}
	if err != nil {
		return Session{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		c.log.Warn("login failed", "user_id", u.ID)
		return Session{}, fmt.Errorf("%w: invalid username or password", ErrUnauthenticated)
	}
	return c.session(u)
}

func (c *Credentials) session(u exam.User) (Session, error) {
	tok, exp, err := c.tokens.IssueJWT(u)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     tok,
		ExpiresAt: exp.Unix(),
		User:      SessionUser{ID: u.ID, Username: u.Username, Name: u.Name, Email: u.Email},
	}, nil
}

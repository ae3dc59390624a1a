package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"servicequote/logging"
)

// SessionKind says who is using the app.
type SessionKind string

const (
	SessionAnonymous     SessionKind = "anonymous"
	SessionAuthenticated SessionKind = "authenticated"
	SessionDemo          SessionKind = "demo"
)

const demoSessionToken = "demo"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNotSignedIn        = errors.New("not signed in")
)

// Session is an immutable snapshot of the current user. Transitions return a
// new value and leave the receiver untouched.
type Session struct {
	Kind       SessionKind `json:"kind"`
	UserID     string      `json:"userId,omitempty"`
	Email      string      `json:"email,omitempty"`
	BusinessID string      `json:"businessId,omitempty"`
}

// AnonymousSession is the session of a visitor who has not signed in.
func AnonymousSession() Session {
	return Session{Kind: SessionAnonymous}
}

// IsDemo reports whether the session browses the demo catalog.
func (s Session) IsDemo() bool { return s.Kind == SessionDemo }

// SignedIn reports whether the session may use the dashboard.
func (s Session) SignedIn() bool {
	return s.Kind == SessionAuthenticated || s.Kind == SessionDemo
}

// DemoLogin switches to the demo account.
func (s Session) DemoLogin() Session {
	return Session{Kind: SessionDemo, UserID: DemoUserID, Email: DemoUserEmail, BusinessID: DemoBusinessID}
}

// SignOut returns an anonymous session.
func (s Session) SignOut() Session {
	return AnonymousSession()
}

// Credentials are an email and password pair submitted by a user.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the shape of the credentials, not their correctness.
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required, is.EmailFormat),
		validation.Field(&c.Password, validation.Required, validation.Length(8, 72)),
	)
}

// Authenticator checks credentials against the users auth collection.
type Authenticator struct {
	App *pocketbase.PocketBase
}

// SignIn verifies the credentials and returns an authenticated session.
func (a Authenticator) SignIn(ctx context.Context, s Session, c Credentials) (Session, error) {
	if err := ctx.Err(); err != nil {
		return s, err
	}
	c.Email = strings.TrimSpace(c.Email)
	if err := c.Validate(); err != nil {
		return s, err
	}
	user, err := a.App.FindAuthRecordByEmail("users", c.Email)
	if err != nil || !user.ValidatePassword(c.Password) {
		return s, ErrInvalidCredentials
	}
	return a.sessionFor(user), nil
}

// SignUp registers a user with their own business and signs them in.
func (a Authenticator) SignUp(ctx context.Context, s Session, c Credentials, businessName string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return s, err
	}
	c.Email = strings.TrimSpace(c.Email)
	if err := c.Validate(); err != nil {
		return s, err
	}
	if _, err := a.App.FindAuthRecordByEmail("users", c.Email); err == nil {
		return s, ErrEmailTaken
	}

	users, err := a.App.FindCollectionByNameOrId("users")
	if err != nil {
		return s, fmt.Errorf("users collection not found: %w", err)
	}
	businesses, err := a.App.FindCollectionByNameOrId("businesses")
	if err != nil {
		return s, fmt.Errorf("businesses collection not found: %w", err)
	}

	user := core.NewRecord(users)
	user.SetEmail(c.Email)
	user.SetPassword(c.Password)

	name := strings.TrimSpace(businessName)
	if name == "" {
		name = fallbackBusinessName
	}
	biz := core.NewRecord(businesses)
	biz.Set("name", name)
	biz.Set("contact_email", c.Email)
	biz.Set("brand_color", DefaultBrandColorHex)

	err = a.App.RunInTransaction(func(txApp core.App) error {
		if err := txApp.Save(user); err != nil {
			return fmt.Errorf("saving user: %w", err)
		}
		biz.Set("owner", user.Id)
		if err := txApp.Save(biz); err != nil {
			return fmt.Errorf("saving business: %w", err)
		}
		return nil
	})
	if err != nil {
		return s, err
	}

	logging.Default().Info("session: user signed up", "user", user.Id, "business", biz.Id)
	return Session{Kind: SessionAuthenticated, UserID: user.Id, Email: user.Email(), BusinessID: biz.Id}, nil
}

// Token encodes a session for a cookie. Anonymous sessions have no token.
func (a Authenticator) Token(s Session) (string, error) {
	switch s.Kind {
	case SessionDemo:
		return demoSessionToken, nil
	case SessionAuthenticated:
		user, err := a.App.FindRecordById("users", s.UserID)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrNotSignedIn, s.UserID)
		}
		return user.NewAuthToken()
	default:
		return "", ErrNotSignedIn
	}
}

// Restore decodes a cookie token. Anything unreadable yields an anonymous session.
func (a Authenticator) Restore(token string) Session {
	switch token {
	case "":
		return AnonymousSession()
	case demoSessionToken:
		return AnonymousSession().DemoLogin()
	}
	user, err := a.App.FindAuthRecordByToken(token, core.TokenTypeAuth)
	if err != nil {
		return AnonymousSession()
	}
	return a.sessionFor(user)
}

func (a Authenticator) sessionFor(user *core.Record) Session {
	s := Session{Kind: SessionAuthenticated, UserID: user.Id, Email: user.Email()}
	biz, err := a.App.FindFirstRecordByFilter("businesses", "owner = {:owner}", map[string]any{"owner": user.Id})
	if err == nil {
		s.BusinessID = biz.Id
	}
	return s
}

// Package services holds the server's business logic.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophid/internal/common"
	"github.com/dmitrijs2005/gophid/internal/dbx"
	"github.com/dmitrijs2005/gophid/internal/logging"
	"github.com/dmitrijs2005/gophid/internal/server/auth"
	"github.com/dmitrijs2005/gophid/internal/server/models"
	"github.com/dmitrijs2005/gophid/internal/server/repositories/repomanager"
)

// Client-facing messages.
const (
	MsgAlreadyRegistered  = "User already registered."
	MsgInvalidCredentials = "Invalid email or password."
	MsgUserNotFound       = "User not found."
)

// dummyPassword is hashed once at startup and compared against when the
// email is unknown, so unknown emails cost one bcrypt comparison too.
const dummyPassword = "gophid-no-such-user"

// DB is what UserService needs from a database handle. *sql.DB satisfies it.
type DB interface {
	dbx.DBTX
	dbx.TxBeginner
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hashed string) bool
}

// FieldEncryptor is the deterministic transform applied to emails.
type FieldEncryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(token string) (string, error)
}

type SessionIssuer interface {
	IssueSession(userID int64) (auth.Session, error)
}

// Profile is what callers get back about a user. Email is in clear text.
// Token is set by SignUp and SignIn only.
type Profile struct {
	ID         int64
	GivenName  string
	FamilyName string
	Email      string
	Token      string
}

// UserService implements signup, signin and current-user lookup.
// It keeps no per-request state and is safe for concurrent use.
type UserService struct {
	db          DB
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	encryptor   FieldEncryptor
	tokens      SessionIssuer
	logger      logging.Logger
	dummyHash   string
}

func NewUserService(db DB, m repomanager.RepositoryManager, h PasswordHasher, e FieldEncryptor,
	t SessionIssuer, l logging.Logger) (*UserService, error) {

	dummy, err := h.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}

	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      h,
		encryptor:   e,
		tokens:      t,
		logger:      l.With("module", "users"),
		dummyHash:   dummy,
	}, nil
}

// SignUp registers a new user and returns its profile with a session token.
//
// The pre-check and the insert share a transaction, but the unique constraint
// on users.email decides: a concurrent signup that loses the race gets the
// same AlreadyExists error as one caught by the pre-check.
func (s *UserService) SignUp(ctx context.Context, req SignUpRequest) (*Profile, error) {
	if v := req.normalize(); len(v) > 0 {
		return nil, common.NewServiceError(common.ErrorValidation, v.message())
	}

	email, err := s.encryptor.Encrypt(req.Email)
	if err != nil {
		return nil, fmt.Errorf("encrypt email: %w", err)
	}

	// bcrypt runs before the transaction opens.
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var user *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		n, err := repo.CountByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		if n > 0 {
			return common.NewServiceError(common.ErrorAlreadyExists, MsgAlreadyRegistered)
		}

		user, err = repo.Create(ctx, &models.User{
			GivenName:    req.GivenName,
			FamilyName:   req.FamilyName,
			Email:        email,
			PasswordHash: hash,
		})
		if errors.Is(err, common.ErrorAlreadyExists) {
			return common.NewServiceError(common.ErrorAlreadyExists, MsgAlreadyRegistered)
		}
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	profile, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user signed up", "user_id", user.ID)
	return profile, nil
}

// SignIn checks credentials and returns the profile with a fresh token.
// Unknown email, wrong password and inactive account are indistinguishable.
func (s *UserService) SignIn(ctx context.Context, req SignInRequest) (*Profile, error) {
	if v := req.normalize(); len(v) > 0 {
		return nil, common.NewServiceError(common.ErrorValidation, v.message())
	}

	email, err := s.encryptor.Encrypt(req.Email)
	if err != nil {
		return nil, fmt.Errorf("encrypt email: %w", err)
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if errors.Is(err, common.ErrorNotFound) {
		s.hasher.Verify(req.Password, s.dummyHash)
		return nil, s.invalidCredentials(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) || !user.Active {
		return nil, s.invalidCredentials(ctx)
	}

	profile, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user signed in", "user_id", user.ID)
	return profile, nil
}

// Me resolves the active user named by sess.
func (s *UserService) Me(ctx context.Context, sess auth.Session) (*Profile, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, sess.UserID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.NewServiceError(common.ErrorNotFound, MsgUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.Active {
		return nil, common.NewServiceError(common.ErrorNotFound, MsgUserNotFound)
	}

	return s.profile(user)
}

func (s *UserService) invalidCredentials(ctx context.Context) error {
	s.logger.Warn(ctx, "sign in rejected")
	return common.NewServiceError(common.ErrorNotFound, MsgInvalidCredentials)
}

func (s *UserService) issue(user *models.User) (*Profile, error) {
	profile, err := s.profile(user)
	if err != nil {
		return nil, err
	}

	sess, err := s.tokens.IssueSession(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	profile.Token = sess.Token
	return profile, nil
}

func (s *UserService) profile(user *models.User) (*Profile, error) {
	email, err := s.encryptor.Decrypt(user.Email)
	if err != nil {
		return nil, fmt.Errorf("decrypt email of user %d: %w", user.ID, err)
	}

	return &Profile{
		ID:         user.ID,
		GivenName:  user.GivenName,
		FamilyName: user.FamilyName,
		Email:      email,
	}, nil
}

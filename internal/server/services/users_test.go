package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophid/internal/common"
	"github.com/dmitrijs2005/gophid/internal/cryptox"
	"github.com/dmitrijs2005/gophid/internal/dbx"
	"github.com/dmitrijs2005/gophid/internal/logging"
	"github.com/dmitrijs2005/gophid/internal/server/auth"
	"github.com/dmitrijs2005/gophid/internal/server/models"
	usersrepo "github.com/dmitrijs2005/gophid/internal/server/repositories/users"
	"github.com/dmitrijs2005/gophid/internal/server/repositories/users/userstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

// --- fakes ---

// raceRepo reports no existing users from CountByEmail, so only the unique
// index in Create can catch a duplicate.
type raceRepo struct {
	*userstest.MemoryRepository
}

func (raceRepo) CountByEmail(context.Context, string) (int64, error) { return 0, nil }

func withRace(r *userstest.MemoryRepository) usersrepo.Repository { return raceRepo{r} }

// failingRepo fails every call with err.
type failingRepo struct {
	err error
}

func (f failingRepo) Create(context.Context, *models.User) (*models.User, error)  { return nil, f.err }
func (f failingRepo) CountByEmail(context.Context, string) (int64, error)         { return 0, f.err }
func (f failingRepo) GetByEmail(context.Context, string) (*models.User, error)    { return nil, f.err }
func (f failingRepo) GetByID(context.Context, int64) (*models.User, error)        { return nil, f.err }

// corruptEmailRepo returns users whose stored email cannot be decrypted.
type corruptEmailRepo struct {
	*userstest.MemoryRepository
}

func (r corruptEmailRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := r.MemoryRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Email = "garbage"
	return u, nil
}

type fakeRepoManager struct {
	u usersrepo.Repository
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }

type brokenHasher struct{}

// flakyHasher succeeds for the startup dummy hash and fails afterwards.
type flakyHasher struct {
	*cryptox.Hasher
	calls int
	err   error
}

func (h *flakyHasher) Hash(password string) (string, error) {
	h.calls++
	if h.calls > 1 {
		return "", h.err
	}
	return h.Hasher.Hash(password)
}

func (brokenHasher) Hash(string) (string, error) { return "", errors.New("no entropy") }
func (brokenHasher) Verify(string, string) bool  { return false }

// --- helpers ---

func newSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// one connection: every :memory: connection is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

type fixture struct {
	svc    *UserService
	repo   *userstest.MemoryRepository
	tokens *auth.TokenService
	enc    *cryptox.LookupEncryptor
}

func newFixture(t *testing.T, db DB) *fixture {
	t.Helper()
	return newFixtureWith(t, db, nil)
}

// newFixtureWith builds a service over a MemoryRepository, or over
// wrap(repo) when wrap is set.
func newFixtureWith(t *testing.T, db DB, wrap func(*userstest.MemoryRepository) usersrepo.Repository) *fixture {
	t.Helper()

	hasher, err := cryptox.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	enc, err := cryptox.NewLookupEncryptor(cryptox.NewSecret("pw"), cryptox.NewSecret("AAECAwQFBgcICQoLDA0ODw=="))
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(cryptox.NewSecret("k"))
	require.NoError(t, err)

	if db == nil {
		db = newSQLiteDB(t)
	}

	repo := userstest.NewMemoryRepository()
	var r usersrepo.Repository = repo
	if wrap != nil {
		r = wrap(repo)
	}

	svc, err := NewUserService(db, &fakeRepoManager{u: r}, hasher, enc, tokens, logging.Nop())
	require.NoError(t, err)

	return &fixture{svc: svc, repo: repo, tokens: tokens, enc: enc}
}

func signUpReq(email, password string) SignUpRequest {
	return SignUpRequest{GivenName: "Ann", FamilyName: "Lee", Email: email, Password: password}
}

func requireKind(t *testing.T, err error, kind error, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, kind)
	got, ok := common.PublicMessage(err)
	require.True(t, ok, "expected a ServiceError, got %v", err)
	if msg != "" {
		assert.Equal(t, msg, got)
	}
}

// --- tests ---

func TestSignUp_Success(t *testing.T) {
	f := newFixture(t, nil)

	p, err := f.svc.SignUp(context.Background(), signUpReq("  A@X.com ", "secret1"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "Ann", p.GivenName)
	assert.Equal(t, "Lee", p.FamilyName)
	assert.Equal(t, "a@x.com", p.Email)
	require.NotEmpty(t, p.Token)

	sess, err := f.tokens.VerifySession(p.Token)
	require.NoError(t, err)
	assert.Equal(t, p.ID, sess.UserID)

	stored, err := f.repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	wantEmail, _ := f.enc.Encrypt("a@x.com")
	assert.Equal(t, wantEmail, stored.Email)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))
}

func TestSignUp_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  SignUpRequest
		want string
	}{
		{"empty given name", SignUpRequest{FamilyName: "L", Email: "a@x.com", Password: "secret1"}, "givenName should not be empty"},
		{"blank family name", SignUpRequest{GivenName: "A", FamilyName: "  ", Email: "a@x.com", Password: "secret1"}, "familyName should not be empty"},
		{"long given name", SignUpRequest{GivenName: strings.Repeat("a", 21), FamilyName: "L", Email: "a@x.com", Password: "secret1"}, "givenName must be shorter"},
		{"bad email", SignUpRequest{GivenName: "A", FamilyName: "L", Email: "not-an-email", Password: "secret1"}, "email must be an email"},
		{"display name email", SignUpRequest{GivenName: "A", FamilyName: "L", Email: "Ann <a@x.com>", Password: "secret1"}, "email must be an email"},
		{"empty email", SignUpRequest{GivenName: "A", FamilyName: "L", Password: "secret1"}, "email should not be empty"},
		{"short password", SignUpRequest{GivenName: "A", FamilyName: "L", Email: "a@x.com", Password: "12345"}, "password must be longer"},
		{"long password", SignUpRequest{GivenName: "A", FamilyName: "L", Email: "a@x.com", Password: strings.Repeat("p", 73)}, "password must be shorter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)

			_, err := f.svc.SignUp(context.Background(), tt.req)
			requireKind(t, err, common.ErrorValidation, "")

			msg, _ := common.PublicMessage(err)
			assert.Contains(t, msg, tt.want)
			assert.Zero(t, f.repo.Len())
		})
	}
}

func TestSignUp_ValidationReportsAllProblems(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.SignUp(context.Background(), SignUpRequest{})
	msg, _ := common.PublicMessage(err)
	assert.Contains(t, msg, "givenName")
	assert.Contains(t, msg, "familyName")
	assert.Contains(t, msg, "email")
	assert.Contains(t, msg, "password")
}

func TestSignUp_Duplicate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, signUpReq("a@x.com", "secret1"))
	require.NoError(t, err)

	for _, email := range []string{"a@x.com", "A@X.COM", " a@x.com"} {
		_, err = f.svc.SignUp(ctx, signUpReq(email, "other1"))
		requireKind(t, err, common.ErrorAlreadyExists, MsgAlreadyRegistered)
	}
	assert.Equal(t, 1, f.repo.Len())
}

func TestSignUp_StoreLevelDuplicate(t *testing.T) {
	f := newFixtureWith(t, nil, withRace)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, signUpReq("a@x.com", "secret1"))
	require.NoError(t, err)

	_, err = f.svc.SignUp(ctx, signUpReq("a@x.com", "secret2"))
	requireKind(t, err, common.ErrorAlreadyExists, MsgAlreadyRegistered)
	assert.Equal(t, 1, f.repo.Len())
}

func TestSignUp_ConcurrentSameEmail(t *testing.T) {
	for _, wrap := range []func(*userstest.MemoryRepository) usersrepo.Repository{nil, withRace} {
		f := newFixtureWith(t, nil, wrap)

		const n = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			conflicts int
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.svc.SignUp(context.Background(), signUpReq("race@x.com", "secret1"))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case errors.Is(err, common.ErrorAlreadyExists):
					conflicts++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, n-1, conflicts)
		assert.Equal(t, 1, f.repo.Len())
	}
}

func TestSignUp_DistinctEmailsDistinctIDs(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	seen := map[int64]bool{}
	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		p, err := f.svc.SignUp(ctx, signUpReq(email, "secret1"))
		require.NoError(t, err)
		assert.False(t, seen[p.ID])
		seen[p.ID] = true

		sess, err := f.tokens.VerifySession(p.Token)
		require.NoError(t, err)
		me, err := f.svc.Me(ctx, sess)
		require.NoError(t, err)
		assert.Equal(t, email, me.Email)
	}
}

func TestSignUp_RollsBackOnConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	f := newFixture(t, db)

	mock.ExpectBegin()
	mock.ExpectCommit()
	_, err = f.svc.SignUp(context.Background(), signUpReq("a@x.com", "secret1"))
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = f.svc.SignUp(context.Background(), signUpReq("a@x.com", "secret1"))
	requireKind(t, err, common.ErrorAlreadyExists, MsgAlreadyRegistered)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignUp_StoreFailureIsInternal(t *testing.T) {
	f := newFixtureWith(t, nil, func(*userstest.MemoryRepository) usersrepo.Repository {
		return failingRepo{err: errors.New("db error: connection reset")}
	})

	_, err := f.svc.SignUp(context.Background(), signUpReq("a@x.com", "secret1"))
	require.Error(t, err)
	_, public := common.PublicMessage(err)
	assert.False(t, public)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestSignIn_Success(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	up, err := f.svc.SignUp(ctx, signUpReq("a@x.com", "secret1"))
	require.NoError(t, err)

	in, err := f.svc.SignIn(ctx, SignInRequest{Email: "A@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, up.ID, in.ID)
	assert.Equal(t, "a@x.com", in.Email)
	assert.Equal(t, "Lee", in.FamilyName)

	sess, err := f.tokens.VerifySession(in.Token)
	require.NoError(t, err)
	assert.Equal(t, up.ID, sess.UserID)
}

func TestSignIn_FailuresLookIdentical(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	p, err := f.svc.SignUp(ctx, signUpReq("a@x.com", "secret1"))
	require.NoError(t, err)

	_, wrongPassword := f.svc.SignIn(ctx, SignInRequest{Email: "a@x.com", Password: "secret2"})
	_, unknownEmail := f.svc.SignIn(ctx, SignInRequest{Email: "b@x.com", Password: "secret1"})

	require.NoError(t, f.repo.SetActive(ctx, p.ID, false))
	_, inactive := f.svc.SignIn(ctx, SignInRequest{Email: "a@x.com", Password: "secret1"})

	for _, err := range []error{wrongPassword, unknownEmail, inactive} {
		requireKind(t, err, common.ErrorNotFound, MsgInvalidCredentials)
	}
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	assert.Equal(t, wrongPassword.Error(), inactive.Error())
}

func TestSignIn_Validation(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.SignIn(context.Background(), SignInRequest{Email: "a@x.com"})
	requireKind(t, err, common.ErrorValidation, "password should not be empty")

	_, err = f.svc.SignIn(context.Background(), SignInRequest{Password: "x"})
	requireKind(t, err, common.ErrorValidation, "email should not be empty")
}

func TestSignIn_StoreFailureIsInternal(t *testing.T) {
	f := newFixtureWith(t, nil, func(*userstest.MemoryRepository) usersrepo.Repository {
		return failingRepo{err: errors.New("db error: timeout")}
	})

	_, err := f.svc.SignIn(context.Background(), SignInRequest{Email: "a@x.com", Password: "secret1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorNotFound)
}

func TestMe(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	p, err := f.svc.SignUp(ctx, signUpReq("a@x.com", "secret1"))
	require.NoError(t, err)

	me, err := f.svc.Me(ctx, auth.Session{UserID: p.ID})
	require.NoError(t, err)
	assert.Equal(t, &Profile{ID: p.ID, GivenName: "Ann", FamilyName: "Lee", Email: "a@x.com"}, me)

	_, err = f.svc.Me(ctx, auth.Session{UserID: 999})
	requireKind(t, err, common.ErrorNotFound, MsgUserNotFound)

	require.NoError(t, f.repo.SetActive(ctx, p.ID, false))
	_, err = f.svc.Me(ctx, auth.Session{UserID: p.ID})
	requireKind(t, err, common.ErrorNotFound, MsgUserNotFound)
}

func TestMe_CorruptEmailIsInternal(t *testing.T) {
	f := newFixtureWith(t, nil, func(r *userstest.MemoryRepository) usersrepo.Repository { return corruptEmailRepo{r} })
	ctx := context.Background()

	p, err := f.svc.SignUp(ctx, signUpReq("a@x.com", "secret1"))
	require.NoError(t, err)

	_, err = f.svc.Me(ctx, auth.Session{UserID: p.ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDecode)
	_, public := common.PublicMessage(err)
	assert.False(t, public)
}

func TestNewUserService_HasherFailure(t *testing.T) {
	_, err := NewUserService(newSQLiteDB(t), &fakeRepoManager{u: userstest.NewMemoryRepository()}, brokenHasher{}, nil, nil, logging.Nop())
	assert.Error(t, err)
}

func TestSignUp_HashesBeforeTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	inner, err := cryptox.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	enc, err := cryptox.NewLookupEncryptor(cryptox.NewSecret("pw"), cryptox.NewSecret("AAECAwQFBgcICQoLDA0ODw=="))
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(cryptox.NewSecret("k"))
	require.NoError(t, err)

	hashErr := errors.New("no entropy")
	hasher := &flakyHasher{Hasher: inner, err: hashErr}
	svc, err := NewUserService(db, &fakeRepoManager{u: userstest.NewMemoryRepository()}, hasher, enc, tokens, logging.Nop())
	require.NoError(t, err)

	// no ExpectBegin: opening a transaction would fail the call with a
	// sqlmock error instead of hashErr
	_, err = svc.SignUp(context.Background(), signUpReq("a@x.com", "secret1"))
	require.ErrorIs(t, err, hashErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repositories

import (
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"nxt-tipbot/domain"
	"nxt-tipbot/errors"
)

func testRepository(t *testing.T) IAccountRepository {
	t.Helper()
	options := badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	return NewAccountRepository(db)
}

func testAccount(userID string) domain.Account {
	return domain.Account{
		ID:         "id-" + userID,
		UserID:     userID,
		Address:    "NXT-MRCC-2YLS-8M54-3CMAJ",
		PublicKey:  "3e5f8a",
		Passphrase: "passphrase-" + userID,
		CreatedAt:  time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
	}
}

func Test_Insert_Then_Get(t *testing.T) {
	req := require.New(t)
	repo := testRepository(t)
	account := testAccount("U1")

	req.NoError(repo.Insert(account))

	got, err := repo.Get("U1")
	req.NoError(err)
	req.Equal(account, got)
}

func Test_Get_Missing_Account(t *testing.T) {
	req := require.New(t)
	repo := testRepository(t)

	_, err := repo.Get("UNOBODY")
	req.ErrorIs(err, errors.ErrAccountNotFound)
}

func Test_Insert_Enforces_One_Account_Per_User(t *testing.T) {
	req := require.New(t)
	repo := testRepository(t)

	req.NoError(repo.Insert(testAccount("U1")))

	duplicate := testAccount("U1")
	duplicate.Address = "NXT-OTHER"
	err := repo.Insert(duplicate)
	req.ErrorIs(err, errors.ErrAccountAlreadyExists)

	// The original record is untouched.
	got, err := repo.Get("U1")
	req.NoError(err)
	req.Equal(testAccount("U1"), got)
}

func Test_Update(t *testing.T) {
	req := require.New(t)
	repo := testRepository(t)
	account := testAccount("U1")

	req.NoError(repo.Insert(account))
	account.PublicKey = "9b2c4d"
	req.NoError(repo.Update(account))

	got, err := repo.Get("U1")
	req.NoError(err)
	req.Equal("9b2c4d", got.PublicKey)
}

func Test_Update_Missing_Account(t *testing.T) {
	req := require.New(t)
	repo := testRepository(t)

	err := repo.Update(testAccount("UNOBODY"))
	req.ErrorIs(err, errors.ErrAccountNotFound)
}

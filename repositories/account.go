//go:generate go run go.uber.org/mock/mockgen -source=account.go -destination=../mocks/mock_account_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"nxt-tipbot/domain"
	"nxt-tipbot/errors"
)

type IAccountRepository interface {
	Get(userID string) (domain.Account, error)
	Insert(account domain.Account) error
	Update(account domain.Account) error
}

// AccountRepository persists custodial accounts in BadgerDB, keyed by the
// chat-platform user id. Insert enforces one account per user id inside a
// single transaction, which is the store-level uniqueness guarantee the
// concurrency model leans on.
type AccountRepository struct {
	db *badger.DB
}

func NewAccountRepository(db *badger.DB) IAccountRepository {
	return &AccountRepository{db: db}
}

func accountKey(userID string) []byte {
	return []byte("account:" + userID)
}

func (r *AccountRepository) Get(userID string) (domain.Account, error) {
	var account domain.Account
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(accountKey(userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &account)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Account{}, fmt.Errorf("%w: user %s", errors.ErrAccountNotFound, userID)
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("account get: %w", err)
	}
	return account, nil
}

func (r *AccountRepository) Insert(account domain.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("account marshal: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		key := accountKey(account.UserID)
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("%w: user %s", errors.ErrAccountAlreadyExists, account.UserID)
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(key, data)
	})
}

// Update overwrites an existing record; accounts are only ever mutated to
// fill in ledger fields after creation, never deleted.
func (r *AccountRepository) Update(account domain.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("account marshal: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		key := accountKey(account.UserID)
		if _, err := txn.Get(key); err == badger.ErrKeyNotFound {
			return fmt.Errorf("%w: user %s", errors.ErrAccountNotFound, account.UserID)
		} else if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

package inmemdb

import (
	"context"
	"time"

	"github.com/gablilli/selfhosted-classeviva/core/session"
)

type userRecord struct {
	session.User
}

type userRepository struct {
	db *userTable
}

var _ session.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) session.Repository {
	return &userRepository{db: db.users}
}

func (repo *userRepository) UpsertUser(ctx context.Context, usr session.User) (session.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if usr.UpdatedAt.IsZero() {
		usr.UpdatedAt = time.Now().UTC()
	}
	if rec, ok := repo.db.table[usr.Username]; ok {
		usr.ID = rec.ID
	} else {
		repo.db.pk++
		usr.ID = repo.db.pk
	}
	repo.db.table[usr.Username] = &userRecord{User: usr}
	return usr, nil
}

func (repo *userRepository) GetUserByUsername(ctx context.Context, username string) (session.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rec, ok := repo.db.table[username]; ok {
		return rec.User, nil
	}
	return session.User{}, session.ErrUserNotFound
}

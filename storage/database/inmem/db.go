package inmemdb

import "sync"

// DB is an in-memory stand-in for the PostgreSQL cache.
type DB struct {
	users  *userTable
	grades *gradeTable
}

type userTable struct {
	mutex sync.RWMutex
	pk    int64
	table map[string]*userRecord // by username
}

type gradeTable struct {
	mutex sync.RWMutex
	pk    int64
	table map[gradeKey]*gradeRecord
}

func NewDB() *DB {
	return &DB{
		users:  &userTable{table: make(map[string]*userRecord)},
		grades: &gradeTable{table: make(map[gradeKey]*gradeRecord)},
	}
}

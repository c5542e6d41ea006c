package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Users    *UserRepository
	Profiles *ProfileRepository
	Activity *ActivityRepository
	Tx       *TxManager
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Users:    NewUserRepository(pool),
		Profiles: NewProfileRepository(pool),
		Activity: NewActivityRepository(pool),
		Tx:       NewTxManager(pool),
	}
}

package domain

import "context"

// UnitOfWork coordinates a set of repository operations within a single
// database transaction. The publish pipeline uses one per item so the
// published-row insert and the staging status flip commit together; the
// batch as a whole is deliberately not atomic, so partial progress persists.
//
// Typical usage:
//
//	uow, err := factory.Begin(ctx)
//	if err != nil { ... }
//	defer uow.Rollback()
//	if _, err := uow.InsertPublishedCtx(ctx, e); err != nil { ... }
//	if _, err := uow.UpdateStatusCtx(ctx, ids, from, to); err != nil { ... }
//	if err := uow.Commit(); err != nil { ... }
//
// Keep the transaction as short as possible.
type UnitOfWork interface {
	Commit() error
	Rollback() error

	StagingRepository
	PublishedRepository
}

// UnitOfWorkFactory starts new UnitOfWork instances. A returned UnitOfWork
// is already begun.
type UnitOfWorkFactory interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}

package persistence

import (
	"context"

	"github.com/google/uuid"

	"github.com/schoolms/backend/internal/domain/school"
	"github.com/schoolms/backend/internal/infrastructure/persistence/scope"
)

// GormAccountLinkRepository implements AccountLinkRepository on the
// tenant-scoped query surface
type GormAccountLinkRepository struct {
	sdb *scope.ScopedDB
}

// NewGormAccountLinkRepository creates a repository bound to one tenant
func NewGormAccountLinkRepository(sdb *scope.ScopedDB) *GormAccountLinkRepository {
	return &GormAccountLinkRepository{sdb: sdb}
}

// FindByStudentIDs returns all links for the given student records
func (r *GormAccountLinkRepository) FindByStudentIDs(ctx context.Context, studentIDs []uuid.UUID) ([]*school.AccountLink, error) {
	if len(studentIDs) == 0 {
		return []*school.AccountLink{}, nil
	}

	var links []*school.AccountLink
	if err := r.sdb.Find(ctx, &links, "student_id IN ?", studentIDs); err != nil {
		return nil, err
	}
	return links, nil
}

// Save creates or updates a link
func (r *GormAccountLinkRepository) Save(ctx context.Context, link *school.AccountLink) error {
	return r.sdb.Save(ctx, link)
}

// Ensure GormAccountLinkRepository implements AccountLinkRepository
var _ school.AccountLinkRepository = (*GormAccountLinkRepository)(nil)

// Package scope provides the tenant-scoped query surface for GORM.
//
// A ScopedDB is the only sanctioned path from repositories to the data
// store. It cannot be constructed without a resolved tenant id (fail
// closed), every read and write narrows to tenant_id = X, and every read is
// followed by validation that each returned row actually carries X. A row
// with a different tenant id fails the whole result as an isolation
// violation instead of being filtered out silently, since silent filtering
// could mask a backend bug that is actively leaking cross-tenant data.
package scope

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/schoolms/backend/internal/domain/identity"
	"github.com/schoolms/backend/internal/infrastructure/logger"
)

// ErrTenantIDRequired is returned when a ScopedDB is constructed without a tenant id
var ErrTenantIDRequired = errors.New("tenant_id is required to construct a scoped query")

// TenantOwned is implemented by entities that carry a tenant column.
// The returned value is what post-read validation compares against.
type TenantOwned interface {
	OwnerTenantID() uuid.UUID
}

// ScopedDB is a guarded query builder bound to one tenant
type ScopedDB struct {
	db       *gorm.DB
	tenantID uuid.UUID
}

// New creates a ScopedDB for the given tenant. Returns ErrTenantIDRequired
// when tenantID is nil; there is no unscoped escape hatch on this type.
func New(db *gorm.DB, tenantID uuid.UUID) (*ScopedDB, error) {
	if tenantID == uuid.Nil {
		return nil, ErrTenantIDRequired
	}
	return &ScopedDB{db: db, tenantID: tenantID}, nil
}

// TenantID returns the tenant this query surface is bound to
func (s *ScopedDB) TenantID() uuid.UUID {
	return s.tenantID
}

// scoped returns the underlying DB with context and the tenant filter applied
func (s *ScopedDB) scoped(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Where("tenant_id = ?", s.tenantID)
}

// Find retrieves rows into dest (a pointer to a slice) and validates that
// every returned row belongs to the bound tenant.
func (s *ScopedDB) Find(ctx context.Context, dest any, conds ...any) error {
	if err := s.scoped(ctx).Find(dest, conds...).Error; err != nil {
		return err
	}
	return s.validate(ctx, dest)
}

// First retrieves a single row into dest and validates its tenant field.
// Returns gorm.ErrRecordNotFound when no row matches.
func (s *ScopedDB) First(ctx context.Context, dest any, conds ...any) error {
	if err := s.scoped(ctx).First(dest, conds...).Error; err != nil {
		return err
	}
	return s.validate(ctx, dest)
}

// FindPage retrieves an ordered, limited set of rows into dest and
// validates them like Find
func (s *ScopedDB) FindPage(ctx context.Context, dest any, orderBy string, limit int, conds ...any) error {
	q := s.scoped(ctx)
	if len(conds) > 0 {
		q = q.Where(conds[0], conds[1:]...)
	}
	if orderBy != "" {
		q = q.Order(orderBy)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(dest).Error; err != nil {
		return err
	}
	return s.validate(ctx, dest)
}

// Count counts rows of the given model matching conds
func (s *ScopedDB) Count(ctx context.Context, model any, count *int64, conds ...any) error {
	q := s.scoped(ctx).Model(model)
	if len(conds) > 0 {
		q = q.Where(conds[0], conds[1:]...)
	}
	return q.Count(count).Error
}

// Create inserts value after checking it is stamped with the bound tenant.
// Inserting a row for another tenant is refused, not corrected.
func (s *ScopedDB) Create(ctx context.Context, value any) error {
	if err := s.checkOwnership(value); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(value).Error
}

// Save upserts value after checking it is stamped with the bound tenant
func (s *ScopedDB) Save(ctx context.Context, value any) error {
	if err := s.checkOwnership(value); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Save(value).Error
}

// Updates applies column updates to rows of model matching conds, always
// narrowed to the bound tenant
func (s *ScopedDB) Updates(ctx context.Context, model any, values map[string]any, conds ...any) (int64, error) {
	q := s.scoped(ctx).Model(model)
	if len(conds) > 0 {
		q = q.Where(conds[0], conds[1:]...)
	}
	result := q.Updates(values)
	return result.RowsAffected, result.Error
}

// Delete removes rows of model matching conds within the bound tenant
func (s *ScopedDB) Delete(ctx context.Context, model any, conds ...any) (int64, error) {
	result := s.scoped(ctx).Delete(model, conds...)
	return result.RowsAffected, result.Error
}

// Transaction runs fn inside a database transaction. The ScopedDB passed to
// fn is bound to the same tenant.
func (s *ScopedDB) Transaction(ctx context.Context, fn func(tx *ScopedDB) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ScopedDB{db: tx, tenantID: s.tenantID})
	})
}

// checkOwnership verifies that value (or every element of a slice) is
// stamped with the bound tenant id
func (s *ScopedDB) checkOwnership(value any) error {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}

	if rv.Kind() == reflect.Slice {
		for i := 0; i < rv.Len(); i++ {
			if err := s.checkOwnership(rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		return nil
	}

	owned, ok := ownedValue(rv)
	if !ok {
		return fmt.Errorf("scope: %T does not carry a tenant field", value)
	}
	if owned.OwnerTenantID() != s.tenantID {
		return &identity.IsolationViolationError{
			Expected:   s.tenantID,
			Collection: tableName(rv),
			BadRows:    1,
		}
	}
	return nil
}

// validate checks that every row read into dest carries the bound tenant
// id. The whole result is rejected on the first mismatch.
func (s *ScopedDB) validate(ctx context.Context, dest any) error {
	rv := reflect.ValueOf(dest)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}

	var badRows int
	var collection string

	check := func(elem reflect.Value) error {
		owned, ok := ownedValue(elem)
		if !ok {
			return fmt.Errorf("scope: %s does not carry a tenant field", elem.Type())
		}
		if collection == "" {
			collection = tableName(elem)
		}
		if owned.OwnerTenantID() != s.tenantID {
			badRows++
		}
		return nil
	}

	switch rv.Kind() {
	case reflect.Slice:
		for i := 0; i < rv.Len(); i++ {
			if err := check(rv.Index(i)); err != nil {
				return err
			}
		}
	case reflect.Struct:
		if err := check(rv); err != nil {
			return err
		}
	default:
		return fmt.Errorf("scope: unsupported destination type %T", dest)
	}

	if badRows > 0 {
		violation := &identity.IsolationViolationError{
			Expected:   s.tenantID,
			Collection: collection,
			BadRows:    badRows,
		}
		logger.L(ctx).Error("cross-tenant rows in scoped result, discarding",
			zap.String("collection", collection),
			zap.String("expected_tenant", s.tenantID.String()),
			zap.Int("bad_rows", badRows),
		)
		// Discard the leaked data before surfacing the error
		zeroOut(dest)
		return violation
	}
	return nil
}

// ownedValue extracts the TenantOwned view of a struct or pointer element
func ownedValue(rv reflect.Value) (TenantOwned, bool) {
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		owned, ok := rv.Interface().(TenantOwned)
		return owned, ok
	}
	if rv.CanAddr() {
		owned, ok := rv.Addr().Interface().(TenantOwned)
		return owned, ok
	}
	// Non-addressable copy: take a pointer to a copy
	ptr := reflect.New(rv.Type())
	ptr.Elem().Set(rv)
	owned, ok := ptr.Interface().(TenantOwned)
	return owned, ok
}

// tableName reports the storage name for an element, for error messages
func tableName(rv reflect.Value) string {
	type tabler interface{ TableName() string }

	v := rv
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return v.Type().String()
		}
		v = v.Elem()
	}
	ptr := reflect.New(v.Type())
	ptr.Elem().Set(v)
	if t, ok := ptr.Interface().(tabler); ok {
		return t.TableName()
	}
	return v.Type().String()
}

// zeroOut clears dest so leaked rows never reach the caller
func zeroOut(dest any) {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return
	}
	rv.Elem().Set(reflect.Zero(rv.Elem().Type()))
}

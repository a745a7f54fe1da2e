package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/course-ledger-api/internal/models"
)

// Ledger is the transactional store behind enrollment and grading.
// Lookups that find nothing return sql.ErrNoRows.
type Ledger interface {
	// WithinTx runs fn in one READ COMMITTED transaction, committing when fn returns nil.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error

	FindCourse(ctx context.Context, id string) (*models.Course, error)
	ListCourses(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	FindEnrollment(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	ListEnrollments(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error)
	FindGrade(ctx context.Context, key models.GradeKey) (*models.Grade, error)
	ListGrades(ctx context.Context, filter models.GradeFilter) ([]models.GradeDetail, error)
	DeleteGrade(ctx context.Context, key models.GradeKey) error
}

// LedgerTx is the set of operations available inside a ledger transaction.
// forUpdate takes a row lock held until the transaction ends.
type LedgerTx interface {
	GetCourse(ctx context.Context, id string, forUpdate bool) (*models.Course, error)
	// TryIncrementSeats takes one seat if the course is open and not full.
	TryIncrementSeats(ctx context.Context, courseID string) (bool, error)
	// DecrementSeats releases one seat; it reports false when the counter is already zero.
	DecrementSeats(ctx context.Context, courseID string) (bool, error)

	GetEnrollment(ctx context.Context, studentID, courseID string, forUpdate bool) (*models.Enrollment, error)
	ListEnrollments(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error)
	InsertEnrollment(ctx context.Context, enrollment *models.Enrollment) error
	SetEnrollmentStatus(ctx context.Context, id string, status models.EnrollmentStatus, at time.Time) error

	GetGrade(ctx context.Context, key models.GradeKey, forUpdate bool) (*models.Grade, error)
	UpsertGrade(ctx context.Context, grade *models.Grade) error
}

// SQLLedger implements Ledger on PostgreSQL.
type SQLLedger struct {
	db        *sqlx.DB
	txTimeout time.Duration
	logger    *zap.Logger
}

// NewSQLLedger constructs the PostgreSQL ledger. A zero txTimeout leaves transactions unbounded.
func NewSQLLedger(db *sqlx.DB, txTimeout time.Duration, logger *zap.Logger) *SQLLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLLedger{db: db, txTimeout: txTimeout, logger: logger}
}

// WithinTx implements Ledger.
func (l *SQLLedger) WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) (err error) {
	if l.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.txTimeout)
		defer cancel()
	}

	tx, err := l.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin ledger transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(ctx, &sqlLedgerTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			l.logger.Warn("ledger rollback failed", zap.Error(rbErr))
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger transaction: %w", err)
	}
	return nil
}

// FindCourse implements Ledger.
func (l *SQLLedger) FindCourse(ctx context.Context, id string) (*models.Course, error) {
	return getCourse(ctx, l.db, id, false)
}

// ListCourses implements Ledger.
func (l *SQLLedger) ListCourses(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	return listCourses(ctx, l.db, filter)
}

// FindEnrollment implements Ledger.
func (l *SQLLedger) FindEnrollment(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	return getEnrollment(ctx, l.db, studentID, courseID, false)
}

// ListEnrollments implements Ledger.
func (l *SQLLedger) ListEnrollments(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	return listEnrollments(ctx, l.db, filter)
}

// FindGrade implements Ledger.
func (l *SQLLedger) FindGrade(ctx context.Context, key models.GradeKey) (*models.Grade, error) {
	return getGrade(ctx, l.db, key, false)
}

// ListGrades implements Ledger.
func (l *SQLLedger) ListGrades(ctx context.Context, filter models.GradeFilter) ([]models.GradeDetail, error) {
	return listGrades(ctx, l.db, filter)
}

// DeleteGrade implements Ledger.
func (l *SQLLedger) DeleteGrade(ctx context.Context, key models.GradeKey) error {
	return deleteGrade(ctx, l.db, key)
}

type sqlLedgerTx struct {
	tx *sqlx.Tx
}

func (t *sqlLedgerTx) GetCourse(ctx context.Context, id string, forUpdate bool) (*models.Course, error) {
	return getCourse(ctx, t.tx, id, forUpdate)
}

func (t *sqlLedgerTx) TryIncrementSeats(ctx context.Context, courseID string) (bool, error) {
	return tryIncrementSeats(ctx, t.tx, courseID)
}

func (t *sqlLedgerTx) DecrementSeats(ctx context.Context, courseID string) (bool, error) {
	return decrementSeats(ctx, t.tx, courseID)
}

func (t *sqlLedgerTx) GetEnrollment(ctx context.Context, studentID, courseID string, forUpdate bool) (*models.Enrollment, error) {
	return getEnrollment(ctx, t.tx, studentID, courseID, forUpdate)
}

func (t *sqlLedgerTx) ListEnrollments(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	return listEnrollments(ctx, t.tx, filter)
}

func (t *sqlLedgerTx) InsertEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	return insertEnrollment(ctx, t.tx, enrollment)
}

func (t *sqlLedgerTx) SetEnrollmentStatus(ctx context.Context, id string, status models.EnrollmentStatus, at time.Time) error {
	return setEnrollmentStatus(ctx, t.tx, id, status, at)
}

func (t *sqlLedgerTx) GetGrade(ctx context.Context, key models.GradeKey, forUpdate bool) (*models.Grade, error) {
	return getGrade(ctx, t.tx, key, forUpdate)
}

func (t *sqlLedgerTx) UpsertGrade(ctx context.Context, grade *models.Grade) error {
	return upsertGrade(ctx, t.tx, grade)
}

// lockClause appends a row lock to single-row selects.
func lockClause(forUpdate bool) string {
	if forUpdate {
		return " FOR UPDATE"
	}
	return ""
}

// requireOneRow maps a zero-row write to sql.ErrNoRows.
func requireOneRow(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

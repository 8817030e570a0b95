package helpers

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/osool/allowance-gateway/internal/model"
	"github.com/osool/allowance-gateway/internal/repository"
	"github.com/osool/allowance-gateway/pkg/pg"
	"github.com/osool/allowance-gateway/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func SetupTestDB(t *testing.T) *pg.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// One shared connection: a second pool connection would see its own
	// empty in-memory database, and it also serializes concurrent
	// transactions the way postgres row locks do.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&repository.ProgramEntity{},
		&repository.HolderEntity{},
		&repository.ClassEntity{},
		&repository.EnrollmentEntity{},
		&repository.AllowanceEntity{},
		&repository.TransactionEntity{},
		&repository.SessionEntity{},
		&repository.RecordEntity{},
	)
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return pgDB
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	adapter, err := redis.NewRedisAdapter("test-"+uuid.New().String(), "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestProgram(t *testing.T, db *pg.DB, defaultAllowance string) *repository.ProgramEntity {
	ctx := context.Background()
	program := &repository.ProgramEntity{
		ID:               uuid.New(),
		Name:             "Test Program",
		CostCenterCode:   "CC-100",
		DefaultAllowance: decimal.RequireFromString(defaultAllowance),
		Active:           true,
	}
	err := db.Write(ctx).Create(program).Error
	require.NoError(t, err)
	return program
}

func CreateTestHolder(t *testing.T, db *pg.DB, programID uuid.UUID, kind model.HolderKind, active bool) *repository.HolderEntity {
	ctx := context.Background()
	holder := &repository.HolderEntity{
		ID:        uuid.New(),
		Kind:      string(kind),
		FullName:  "Test " + string(kind),
		ProgramID: programID,
		IsActive:  active,
		CreatedAt: time.Now().UTC(),
	}
	err := db.Write(ctx).Create(holder).Error
	require.NoError(t, err)
	if !active {
		// gorm replaces a zero-value field with its default:true tag at
		// create time, so an inactive holder must be flipped afterwards.
		err = db.Write(ctx).Model(holder).Update("is_active", false).Error
		require.NoError(t, err)
		holder.IsActive = false
	}
	return holder
}

func CreateTestClass(t *testing.T, db *pg.DB, programID, teacherID uuid.UUID) *repository.ClassEntity {
	ctx := context.Background()
	class := &repository.ClassEntity{
		ID:        uuid.New(),
		Name:      "Test Class",
		ProgramID: programID,
		TeacherID: teacherID,
		Active:    true,
	}
	err := db.Write(ctx).Create(class).Error
	require.NoError(t, err)
	return class
}

func EnrollHolder(t *testing.T, db *pg.DB, classID, holderID uuid.UUID) {
	ctx := context.Background()
	err := db.Write(ctx).Create(&repository.EnrollmentEntity{
		ClassID:  classID,
		HolderID: holderID,
	}).Error
	require.NoError(t, err)
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

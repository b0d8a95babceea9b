package pg

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type note struct {
	Model
	Body string
}

func openSQLite(t *testing.T) *DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&note{}))
	return New(db, db)
}

func TestConfig_DSN(t *testing.T) {
	c := Config{User: "u", Host: "h", Port: "5432", Password: "p", Database: "d"}
	assert.Equal(t, "host=h user=u password=p dbname=d port=5432 sslmode=disable", c.DSN())

	c.SSLMode = "require"
	assert.Contains(t, c.DSN(), "sslmode=require")
}

func TestModel_AssignsID(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	n := &note{Body: "hello"}
	require.NoError(t, db.Write(ctx).Create(n).Error)
	assert.Len(t, n.ID, 36)
	assert.False(t, n.CreatedAt.IsZero())

	kept := &note{Model: Model{ID: "fixed-id"}, Body: "kept"}
	require.NoError(t, db.Write(ctx).Create(kept).Error)
	assert.Equal(t, "fixed-id", kept.ID)
}

func TestDB_WithinTransaction(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		err := db.WithinTransaction(ctx, func(ctx context.Context) error {
			return db.Write(ctx).Create(&note{Body: "committed"}).Error
		})
		require.NoError(t, err)

		var count int64
		require.NoError(t, db.Read(ctx).Model(&note{}).Where("body = ?", "committed").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("rollback", func(t *testing.T) {
		boom := errors.New("boom")
		err := db.WithinTransaction(ctx, func(ctx context.Context) error {
			if err := db.Write(ctx).Create(&note{Body: "rolled back"}).Error; err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		var count int64
		require.NoError(t, db.Read(ctx).Model(&note{}).Where("body = ?", "rolled back").Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("nested joins outer transaction", func(t *testing.T) {
		boom := errors.New("outer failure")
		err := db.WithinTransaction(ctx, func(ctx context.Context) error {
			if err := db.WithinTransaction(ctx, func(ctx context.Context) error {
				return db.Write(ctx).Create(&note{Body: "inner"}).Error
			}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		var count int64
		require.NoError(t, db.Read(ctx).Model(&note{}).Where("body = ?", "inner").Count(&count).Error)
		assert.Zero(t, count)
	})
}

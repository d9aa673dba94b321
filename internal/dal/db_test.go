package dal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adaptbtc/adaptbtc-server/config"
	"github.com/adaptbtc/adaptbtc-server/internal/models"
)

func TestOpen_SQLiteMigrate(t *testing.T) {
	conn, err := Open(config.Database{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "portal.db")})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(conn))

	for _, table := range []string{"courses", "lessons", "course_progress", "quiz_attempts", "certificates", "consulting_requests"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}

	require.NoError(t, conn.Create(&models.CourseProgress{LearnerID: "l1", CourseID: "bitcoin-101", Completed: []int{1, 3}, LastLesson: 3}).Error)
	var got models.CourseProgress
	require.NoError(t, conn.First(&got, "learner_id = ?", "l1").Error)
	assert.Equal(t, []int{1, 3}, got.Completed)

	assert.NoError(t, Pinger{DB: conn}.Ping(context.Background()))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(config.Database{Driver: "postgres", DSN: "x"})
	assert.ErrorContains(t, err, "unsupported database driver")
}

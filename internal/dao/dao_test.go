package dao

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/adaptbtc/adaptbtc-server/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "dao.db")), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Course{},
		&models.Lesson{},
		&models.CourseProgress{},
		&models.QuizAttempt{},
		&models.Certificate{},
		&models.ConsultingRequest{},
	)
	require.NoError(t, err)
	return db
}

func lessons(courseID string, titles ...string) []*models.Lesson {
	list := make([]*models.Lesson, 0, len(titles))
	for i, title := range titles {
		list = append(list, &models.Lesson{CourseID: courseID, LessonOrder: i + 1, Title: title, Content: title})
	}
	return list
}

func TestCourseDAO_SeedReplacesLessons(t *testing.T) {
	d := NewCourseDAO(setupTestDB(t))

	require.NoError(t, d.SeedCourse(&models.Course{ID: "ops", Title: "Operations", Summary: "v1"}, lessons("ops", "a", "b", "c")))
	require.NoError(t, d.SeedCourse(&models.Course{ID: "ops", Title: "Operations", Summary: "v2"}, lessons("ops", "x", "y")))

	course, err := d.GetCourse("ops")
	require.NoError(t, err)
	require.NotNil(t, course)
	assert.Equal(t, "v2", course.Summary)

	list, err := d.ListLessons("ops")
	require.NoError(t, err)
	assert.Equal(t, []LessonSummary{{1, "x"}, {2, "y"}}, list)

	counts, err := d.CountLessons()
	require.NoError(t, err)
	assert.Equal(t, 2, counts["ops"])
}

func TestCourseDAO_ListCoursesByTitle(t *testing.T) {
	d := NewCourseDAO(setupTestDB(t))
	require.NoError(t, d.SeedCourse(&models.Course{ID: "s", Title: "Security"}, nil))
	require.NoError(t, d.SeedCourse(&models.Course{ID: "b", Title: "Bitcoin"}, nil))

	courses, err := d.ListCourses()
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "b", courses[0].ID)
	assert.Equal(t, "s", courses[1].ID)
}

func TestCourseDAO_Missing(t *testing.T) {
	d := NewCourseDAO(setupTestDB(t))

	course, err := d.GetCourse("nope")
	assert.NoError(t, err)
	assert.Nil(t, course)

	lesson, err := d.GetLesson("nope", 1)
	assert.NoError(t, err)
	assert.Nil(t, lesson)
}

func TestProgressDAO_Upsert(t *testing.T) {
	d := NewProgressDAO(setupTestDB(t))

	require.NoError(t, d.Upsert(&models.CourseProgress{LearnerID: "l", CourseID: "c", Completed: []int{1}, LastLesson: 1}))
	require.NoError(t, d.Upsert(&models.CourseProgress{LearnerID: "l", CourseID: "c", Completed: []int{1, 2}, LastLesson: 2}))

	p, err := d.Get("l", "c")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, []int{1, 2}, p.Completed)
	assert.Equal(t, 2, p.LastLesson)

	list, err := d.ListByLearner("l")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestQuizAttemptDAO_KeepsNewest(t *testing.T) {
	d := NewQuizAttemptDAO(setupTestDB(t))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		require.NoError(t, d.CreateAndTrim(&models.QuizAttempt{
			LearnerID: "l", CourseID: "c", Correct: i, Total: 10,
			Score: float64(i) / 10, TakenAt: base.Add(time.Duration(i) * time.Minute),
		}, 5))
	}

	list, err := d.ListRecent("l", "c", 10)
	require.NoError(t, err)
	require.Len(t, list, 5)
	assert.Equal(t, 6, list[0].Correct)
	assert.Equal(t, 2, list[4].Correct)
}

func TestQuizAttemptDAO_BestPassing(t *testing.T) {
	d := NewQuizAttemptDAO(setupTestDB(t))

	best, err := d.BestPassing("l", "c")
	require.NoError(t, err)
	assert.Nil(t, best)

	now := time.Now()
	require.NoError(t, d.CreateAndTrim(&models.QuizAttempt{LearnerID: "l", CourseID: "c", Score: 0.8, Passed: true, TakenAt: now}, 5))
	require.NoError(t, d.CreateAndTrim(&models.QuizAttempt{LearnerID: "l", CourseID: "c", Score: 0.4, TakenAt: now.Add(time.Second)}, 5))
	require.NoError(t, d.CreateAndTrim(&models.QuizAttempt{LearnerID: "l", CourseID: "c", Score: 0.9, Passed: true, TakenAt: now.Add(2 * time.Second)}, 5))

	best, err = d.BestPassing("l", "c")
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.InDelta(t, 0.9, best.Score, 1e-9)
}

func TestQuizAttemptDAO_TrimAll(t *testing.T) {
	db := setupTestDB(t)
	d := NewQuizAttemptDAO(db)

	now := time.Now()
	for i := 0; i < 8; i++ {
		require.NoError(t, db.Create(&models.QuizAttempt{LearnerID: "l", CourseID: "c", TakenAt: now.Add(time.Duration(i) * time.Second)}).Error)
	}
	require.NoError(t, db.Create(&models.QuizAttempt{LearnerID: "m", CourseID: "c", TakenAt: now}).Error)

	deleted, err := d.TrimAll(5)
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)
}

func TestCertificateDAO(t *testing.T) {
	d := NewCertificateDAO(setupTestDB(t))

	cert := &models.Certificate{ID: "id-1", LearnerID: "l", CourseID: "c", CourseTitle: "Course", Score: 0.9, IssuedAt: time.Now()}
	require.NoError(t, d.Create(cert))

	got, err := d.Get("id-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Course", got.CourseTitle)

	got, err = d.GetByLearnerCourse("l", "c")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "id-1", got.ID)

	// 同一学习者同一课程只能有一张
	assert.Error(t, d.Create(&models.Certificate{ID: "id-2", LearnerID: "l", CourseID: "c", IssuedAt: time.Now()}))

	got, err = d.Get("missing")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestConsultingDAO(t *testing.T) {
	db := setupTestDB(t)
	d := NewConsultingDAO(db)

	req := &models.ConsultingRequest{Name: "Ada", Email: "ada@example.com", Engagement: "Custody", TeamSize: "1-5", Status: models.ConsultingStatusPending}
	require.NoError(t, d.Create(req))
	require.NotZero(t, req.ID)

	require.NoError(t, d.UpdateStatus(req.ID, models.ConsultingStatusFailed, "nats: no servers available"))
	got, err := d.Get(req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ConsultingStatusFailed, got.Status)
	assert.Equal(t, "nats: no servers available", got.Error)

	old := &models.ConsultingRequest{Name: "Old", Email: "o@example.com", Engagement: "x", TeamSize: "y", Status: models.ConsultingStatusSent}
	require.NoError(t, d.Create(old))
	require.NoError(t, db.Model(old).UpdateColumn("created_at", time.Now().AddDate(0, 0, -120)).Error)

	counts, err := d.CountByStatus()
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts[models.ConsultingStatusFailed])
	assert.EqualValues(t, 1, counts[models.ConsultingStatusSent])

	deleted, err := d.DeleteBefore(time.Now().AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}

func TestInitDAO(t *testing.T) {
	InitDAO(setupTestDB(t))

	assert.NotNil(t, Course())
	assert.NotNil(t, Progress())
	assert.NotNil(t, QuizAttempt())
	assert.NotNil(t, Certificate())
	assert.NotNil(t, Consulting())
}

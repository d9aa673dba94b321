package dao

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adaptbtc/adaptbtc-server/internal/models"
)

type CourseDAO struct {
	db *gorm.DB
}

func NewCourseDAO(db *gorm.DB) *CourseDAO {
	return &CourseDAO{db: db}
}

// SeedCourse 在一个事务内 upsert 课程并整体替换其课时
func (d *CourseDAO) SeedCourse(course *models.Course, lessons []*models.Lesson) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ?", course.ID).Delete(&models.Lesson{}).Error; err != nil {
			return err
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "summary", "updated_at"}),
		}).Create(course).Error
		if err != nil {
			return err
		}
		if len(lessons) == 0 {
			return nil
		}
		return tx.CreateInBatches(lessons, 50).Error
	})
}

// ListCourses 按标题排序
func (d *CourseDAO) ListCourses() ([]*models.Course, error) {
	var courses []*models.Course
	err := d.db.Order("title").Find(&courses).Error
	return courses, err
}

// GetCourse 不存在返回 nil, nil
func (d *CourseDAO) GetCourse(id string) (*models.Course, error) {
	var course models.Course
	err := d.db.Where("id = ?", id).First(&course).Error
	return notFound(&course, err)
}

// LessonSummary 课时目录项
type LessonSummary struct {
	LessonOrder int    `json:"lesson_order"`
	Title       string `json:"title"`
}

// ListLessons 课程目录，按序号升序
func (d *CourseDAO) ListLessons(courseID string) ([]LessonSummary, error) {
	var lessons []LessonSummary
	err := d.db.Model(&models.Lesson{}).
		Select("lesson_order", "title").
		Where("course_id = ?", courseID).
		Order("lesson_order").
		Scan(&lessons).Error
	return lessons, err
}

// GetLesson 不存在返回 nil, nil
func (d *CourseDAO) GetLesson(courseID string, order int) (*models.Lesson, error) {
	var lesson models.Lesson
	err := d.db.Where("course_id = ? AND lesson_order = ?", courseID, order).First(&lesson).Error
	return notFound(&lesson, err)
}

// CountLessons 每门课程的课时数
func (d *CourseDAO) CountLessons() (map[string]int, error) {
	var rows []struct {
		CourseID string
		Total    int
	}
	err := d.db.Model(&models.Lesson{}).
		Select("course_id, COUNT(*) AS total").
		Group("course_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.CourseID] = r.Total
	}
	return counts, nil
}

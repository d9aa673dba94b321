package dao

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adaptbtc/adaptbtc-server/internal/models"
)

type ProgressDAO struct {
	db *gorm.DB
}

func NewProgressDAO(db *gorm.DB) *ProgressDAO {
	return &ProgressDAO{db: db}
}

// Get 不存在返回 nil, nil
func (d *ProgressDAO) Get(learnerID, courseID string) (*models.CourseProgress, error) {
	var p models.CourseProgress
	err := d.db.Where("learner_id = ? AND course_id = ?", learnerID, courseID).First(&p).Error
	return notFound(&p, err)
}

// Upsert 按 (learner_id, course_id) 写入
func (d *ProgressDAO) Upsert(p *models.CourseProgress) error {
	return d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "learner_id"}, {Name: "course_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"completed", "last_lesson", "updated_at"}),
	}).Create(p).Error
}

// ListByLearner 学习者的全部课程进度
func (d *ProgressDAO) ListByLearner(learnerID string) ([]*models.CourseProgress, error) {
	var list []*models.CourseProgress
	err := d.db.Where("learner_id = ?", learnerID).Order("course_id").Find(&list).Error
	return list, err
}

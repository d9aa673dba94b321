package dao

import (
	"gorm.io/gorm"

	"github.com/adaptbtc/adaptbtc-server/internal/models"
)

type QuizAttemptDAO struct {
	db *gorm.DB
}

func NewQuizAttemptDAO(db *gorm.DB) *QuizAttemptDAO {
	return &QuizAttemptDAO{db: db}
}

// CreateAndTrim 写入记录，并只保留该学习者该课程最新的 keep 条
func (d *QuizAttemptDAO) CreateAndTrim(attempt *models.QuizAttempt, keep int) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(attempt).Error; err != nil {
			return err
		}
		return trimAttempts(tx, attempt.LearnerID, attempt.CourseID, keep)
	})
}

func trimAttempts(tx *gorm.DB, learnerID, courseID string, keep int) error {
	var stale []uint
	err := tx.Model(&models.QuizAttempt{}).
		Where("learner_id = ? AND course_id = ?", learnerID, courseID).
		Order("taken_at DESC, id DESC").
		Offset(keep).
		Limit(1000).
		Pluck("id", &stale).Error
	if err != nil || len(stale) == 0 {
		return err
	}
	return tx.Where("id IN ?", stale).Delete(&models.QuizAttempt{}).Error
}

// ListRecent 最新在前
func (d *QuizAttemptDAO) ListRecent(learnerID, courseID string, limit int) ([]*models.QuizAttempt, error) {
	var list []*models.QuizAttempt
	err := d.db.Where("learner_id = ? AND course_id = ?", learnerID, courseID).
		Order("taken_at DESC, id DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// BestPassing 最高分的通过记录，没有返回 nil, nil
func (d *QuizAttemptDAO) BestPassing(learnerID, courseID string) (*models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	err := d.db.Where("learner_id = ? AND course_id = ? AND passed = ?", learnerID, courseID, true).
		Order("score DESC, taken_at DESC").
		First(&attempt).Error
	return notFound(&attempt, err)
}

// TrimAll 所有 (学习者, 课程) 只保留最新 keep 条，返回删除数
func (d *QuizAttemptDAO) TrimAll(keep int) (int64, error) {
	var groups []struct {
		LearnerID string
		CourseID  string
	}
	err := d.db.Model(&models.QuizAttempt{}).
		Select("learner_id, course_id").
		Group("learner_id, course_id").
		Having("COUNT(*) > ?", keep).
		Scan(&groups).Error
	if err != nil {
		return 0, err
	}

	var before, after int64
	if err = d.db.Model(&models.QuizAttempt{}).Count(&before).Error; err != nil {
		return 0, err
	}
	for _, g := range groups {
		if err = trimAttempts(d.db, g.LearnerID, g.CourseID, keep); err != nil {
			return 0, err
		}
	}
	if err = d.db.Model(&models.QuizAttempt{}).Count(&after).Error; err != nil {
		return 0, err
	}
	return before - after, nil
}

package models

import "time"

// CourseProgress 学习者在单门课程上的进度
type CourseProgress struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	LearnerID  string    `gorm:"type:varchar(64);not null;uniqueIndex:uidx_learner_course" json:"learner_id"`
	CourseID   string    `gorm:"type:varchar(64);not null;uniqueIndex:uidx_learner_course" json:"course_id"`
	Completed  []int     `gorm:"type:text;serializer:json;comment:已完成课时序号(升序)" json:"completed"`
	LastLesson int       `gorm:"not null;default:1" json:"last_lesson"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CourseProgress) TableName() string {
	return "course_progress"
}

// QuizAttempt 测验记录
type QuizAttempt struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	LearnerID string    `gorm:"type:varchar(64);not null;index:idx_learner_course" json:"-"`
	CourseID  string    `gorm:"type:varchar(64);not null;index:idx_learner_course" json:"-"`
	Correct   int       `gorm:"not null" json:"correct"`
	Total     int       `gorm:"not null" json:"total"`
	Score     float64   `gorm:"not null" json:"score"`
	Passed    bool      `gorm:"not null;default:false" json:"passed"`
	Answers   []int     `gorm:"type:text;serializer:json" json:"-"`
	TakenAt   time.Time `gorm:"not null;index" json:"taken_at"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// Certificate 结业证书
type Certificate struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	LearnerID   string    `gorm:"type:varchar(64);not null;uniqueIndex:uidx_cert_learner_course" json:"learner"`
	CourseID    string    `gorm:"type:varchar(64);not null;uniqueIndex:uidx_cert_learner_course" json:"course_id"`
	CourseTitle string    `gorm:"type:varchar(255);not null" json:"course_title"`
	Score       float64   `gorm:"not null" json:"score"`
	IssuedAt    time.Time `gorm:"not null" json:"issued_at"`
}

func (Certificate) TableName() string {
	return "certificates"
}

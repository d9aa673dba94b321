package models

import "time"

// Course 课程
type Course struct {
	ID        string    `gorm:"type:varchar(64);primaryKey;comment:课程标识" json:"id"`
	Title     string    `gorm:"type:varchar(255);not null;index:idx_title" json:"title"`
	Summary   string    `gorm:"type:text;not null" json:"summary"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (Course) TableName() string {
	return "courses"
}

// Lesson 课时，文本字段按存储格式保存：
// Content 段落以空行分隔，Examples/Takeaways 按行分隔，Glossary 为 "术语:释义" 行
type Lesson struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	CourseID    string `gorm:"type:varchar(64);not null;uniqueIndex:uidx_course_order" json:"course_id"`
	LessonOrder int    `gorm:"not null;uniqueIndex:uidx_course_order" json:"lesson_order"`
	Title       string `gorm:"type:varchar(255);not null" json:"title"`
	Content     string `gorm:"type:text;not null" json:"content"`
	Examples    string `gorm:"type:text;not null" json:"examples"`
	Glossary    string `gorm:"type:text;not null" json:"glossary"`
	Takeaways   string `gorm:"type:text;not null" json:"takeaways"`
	Diagram     string `gorm:"type:text;not null" json:"diagram"`
}

func (Lesson) TableName() string {
	return "lessons"
}

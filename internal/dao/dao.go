package dao

import (
	"errors"
	"sync"

	"gorm.io/gorm"
)

var (
	_course      *CourseDAO
	_progress    *ProgressDAO
	_quizAttempt *QuizAttemptDAO
	_certificate *CertificateDAO
	_consulting  *ConsultingDAO
	initOnce     sync.Once
)

// InitDAO 初始化所有 DAO（应用启动时调用）
func InitDAO(db *gorm.DB) {
	initOnce.Do(func() {
		_course = NewCourseDAO(db)
		_progress = NewProgressDAO(db)
		_quizAttempt = NewQuizAttemptDAO(db)
		_certificate = NewCertificateDAO(db)
		_consulting = NewConsultingDAO(db)
	})
}

// Course 获取 CourseDAO 单例
func Course() *CourseDAO { return _course }

// Progress 获取 ProgressDAO 单例
func Progress() *ProgressDAO { return _progress }

// QuizAttempt 获取 QuizAttemptDAO 单例
func QuizAttempt() *QuizAttemptDAO { return _quizAttempt }

// Certificate 获取 CertificateDAO 单例
func Certificate() *CertificateDAO { return _certificate }

// Consulting 获取 ConsultingDAO 单例
func Consulting() *ConsultingDAO { return _consulting }

// notFound 把 gorm.ErrRecordNotFound 转成 (nil, nil)
func notFound[T any](v *T, err error) (*T, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

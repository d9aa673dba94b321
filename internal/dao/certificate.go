package dao

import (
	"gorm.io/gorm"

	"github.com/adaptbtc/adaptbtc-server/internal/models"
)

type CertificateDAO struct {
	db *gorm.DB
}

func NewCertificateDAO(db *gorm.DB) *CertificateDAO {
	return &CertificateDAO{db: db}
}

func (d *CertificateDAO) Create(cert *models.Certificate) error {
	return d.db.Create(cert).Error
}

// Get 不存在返回 nil, nil
func (d *CertificateDAO) Get(id string) (*models.Certificate, error) {
	var cert models.Certificate
	err := d.db.Where("id = ?", id).First(&cert).Error
	return notFound(&cert, err)
}

// GetByLearnerCourse 不存在返回 nil, nil
func (d *CertificateDAO) GetByLearnerCourse(learnerID, courseID string) (*models.Certificate, error) {
	var cert models.Certificate
	err := d.db.Where("learner_id = ? AND course_id = ?", learnerID, courseID).First(&cert).Error
	return notFound(&cert, err)
}

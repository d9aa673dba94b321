package dao

import (
	"time"

	"gorm.io/gorm"

	"github.com/adaptbtc/adaptbtc-server/internal/models"
)

type ConsultingDAO struct {
	db *gorm.DB
}

func NewConsultingDAO(db *gorm.DB) *ConsultingDAO {
	return &ConsultingDAO{db: db}
}

func (d *ConsultingDAO) Create(req *models.ConsultingRequest) error {
	return d.db.Create(req).Error
}

// UpdateStatus 更新投递状态
func (d *ConsultingDAO) UpdateStatus(id uint, status, errMsg string) error {
	if len(errMsg) > 512 {
		errMsg = errMsg[:512]
	}
	return d.db.Model(&models.ConsultingRequest{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "error": errMsg}).Error
}

func (d *ConsultingDAO) Get(id uint) (*models.ConsultingRequest, error) {
	var req models.ConsultingRequest
	err := d.db.Where("id = ?", id).First(&req).Error
	return notFound(&req, err)
}

// DeleteBefore 删除早于 t 的记录，返回删除数
func (d *ConsultingDAO) DeleteBefore(t time.Time) (int64, error) {
	result := d.db.Where("created_at < ?", t).Delete(&models.ConsultingRequest{})
	return result.RowsAffected, result.Error
}

// CountByStatus 各状态数量
func (d *ConsultingDAO) CountByStatus() (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := d.db.Model(&models.ConsultingRequest{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}

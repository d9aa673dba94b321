package cleaner

import (
	"time"

	"github.com/adaptbtc/adaptbtc-server/internal/dao"
	"github.com/adaptbtc/adaptbtc-server/pkg/goplus"
	"github.com/adaptbtc/adaptbtc-server/pkg/logger"
)

// ConsultingStore 咨询请求清理
type ConsultingStore interface {
	DeleteBefore(t time.Time) (int64, error)
}

// AttemptStore 测验记录清理
type AttemptStore interface {
	TrimAll(keep int) (int64, error)
}

// Cleaner 数据清理器，定时清理历史数据
type Cleaner struct {
	consulting ConsultingStore
	attempts   AttemptStore
	interval   time.Duration // 清理间隔
	retention  time.Duration // 咨询请求保留时长
	keep       int           // 每个学习者每门课保留的测验记录数
	now        func() time.Time
	done       chan struct{} // 停止信号
}

// NewCleaner 创建清理器
func NewCleaner(consulting ConsultingStore, attempts AttemptStore, interval, retention time.Duration, keep int) *Cleaner {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Cleaner{
		consulting: consulting,
		attempts:   attempts,
		interval:   interval,
		retention:  retention,
		keep:       keep,
		now:        time.Now,
		done:       make(chan struct{}),
	}
}

// NewDefaultCleaner 使用 DAO 单例
func NewDefaultCleaner(interval, retention time.Duration, keep int) *Cleaner {
	return NewCleaner(dao.Consulting(), dao.QuizAttempt(), interval, retention, keep)
}

// Start 启动清理任务
func (c *Cleaner) Start() {
	goplus.Go(func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		logger.Info().Dur("interval", c.interval).Dur("retention", c.retention).Msg("cleaner started")

		// 启动时立即执行一次
		c.clean()

		for {
			select {
			case <-ticker.C:
				c.clean()
			case <-c.done:
				logger.Info().Msg("cleaner stopped")
				return
			}
		}
	})
}

// Stop 停止清理器
func (c *Cleaner) Stop() {
	close(c.done)
}

// clean 执行清理任务
func (c *Cleaner) clean() {
	logger.Debug().Msg("running cleanup task")

	if err := c.cleanConsulting(); err != nil {
		logger.Error().Err(err).Msg("clean consulting requests failed")
	}

	if err := c.trimAttempts(); err != nil {
		logger.Error().Err(err).Msg("trim quiz attempts failed")
	}
}

// cleanConsulting 删除超过保留期的咨询请求
func (c *Cleaner) cleanConsulting() error {
	if c.retention <= 0 {
		return nil
	}

	cutoff := c.now().Add(-c.retention)
	deleted, err := c.consulting.DeleteBefore(cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logger.Info().
			Int64("deleted", deleted).
			Time("cutoff", cutoff).
			Msg("cleaned old consulting requests")
	}
	return nil
}

// trimAttempts 测验记录数量兜底
func (c *Cleaner) trimAttempts() error {
	if c.keep <= 0 {
		return nil
	}

	deleted, err := c.attempts.TrimAll(c.keep)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logger.Info().
			Int64("deleted", deleted).
			Int("keep", c.keep).
			Msg("trimmed excess quiz attempts")
	}
	return nil
}

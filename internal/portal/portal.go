package portal

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/adaptbtc/adaptbtc-server/internal/dao"
	"github.com/adaptbtc/adaptbtc-server/pkg/logger"
)

// Portal 学习门户：课时、进度、测验、证书
type Portal struct {
	library         *Library
	courses         *dao.CourseDAO
	progress        *dao.ProgressDAO
	attempts        *dao.QuizAttemptDAO
	certificates    *dao.CertificateDAO
	verificationURL string
	now             func() time.Time
	log             zerolog.Logger
}

type Option func(*Portal)

// WithNow 注入时钟
func WithNow(now func() time.Time) Option {
	return func(p *Portal) { p.now = now }
}

// WithVerificationURL 证书校验地址前缀
func WithVerificationURL(url string) Option {
	return func(p *Portal) { p.verificationURL = strings.TrimRight(url, "/") }
}

func New(db *gorm.DB, library *Library, opts ...Option) *Portal {
	p := &Portal{
		library:      library,
		courses:      dao.NewCourseDAO(db),
		progress:     dao.NewProgressDAO(db),
		attempts:     dao.NewQuizAttemptDAO(db),
		certificates: dao.NewCertificateDAO(db),
		now:          time.Now,
		log:          logger.Component("portal"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Seed 写入课程库：课程 upsert，课时整体替换
func (p *Portal) Seed() error {
	for i := range p.library.Courses {
		c := &p.library.Courses[i]
		course, lessons := c.Records()
		if err := p.courses.SeedCourse(course, lessons); err != nil {
			return err
		}
		p.log.Info().
			Str("course", c.ID).
			Int("lessons", len(lessons)).
			Int("questions", len(c.Quiz)).
			Msg("course seeded")
	}
	return nil
}

// Library 内置课程库
func (p *Portal) Library() *Library {
	return p.library
}

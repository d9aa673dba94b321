package portal

import (
	"github.com/google/uuid"

	"github.com/adaptbtc/adaptbtc-server/internal/models"
)

// IssuedCertificate 证书及其校验地址
type IssuedCertificate struct {
	*models.Certificate
	VerificationURL string `json:"verification_url"`
}

func (p *Portal) view(cert *models.Certificate) *IssuedCertificate {
	return &IssuedCertificate{
		Certificate:     cert,
		VerificationURL: p.verificationURL + "/" + cert.ID,
	}
}

// Issue 签发证书，要求已有通过的测验；重复签发返回已有证书
func (p *Portal) Issue(learnerID, courseID string) (*IssuedCertificate, error) {
	course, err := p.GetCourse(courseID)
	if err != nil {
		return nil, err
	}

	existing, err := p.certificates.GetByLearnerCourse(learnerID, courseID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return p.view(existing), nil
	}

	best, err := p.attempts.BestPassing(learnerID, courseID)
	if err != nil {
		return nil, err
	}
	if best == nil {
		return nil, ErrNotPassed
	}

	cert := &models.Certificate{
		ID:          uuid.NewString(),
		LearnerID:   learnerID,
		CourseID:    courseID,
		CourseTitle: course.Title,
		Score:       best.Score,
		IssuedAt:    p.now().UTC(),
	}
	if err = p.certificates.Create(cert); err != nil {
		// 并发签发时唯一索引冲突，返回先写入的那张
		if existing, _ = p.certificates.GetByLearnerCourse(learnerID, courseID); existing != nil {
			return p.view(existing), nil
		}
		return nil, err
	}

	p.log.Info().
		Str("learner", learnerID).
		Str("course", courseID).
		Str("certificate", cert.ID).
		Msg("certificate issued")
	return p.view(cert), nil
}

// Verify 按 id 校验证书
func (p *Portal) Verify(id string) (*IssuedCertificate, error) {
	cert, err := p.certificates.Get(id)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, ErrCertificateNotFound
	}
	return p.view(cert), nil
}

package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/adaptbtc/adaptbtc-server/internal/portal"
)

const (
	learnerHeader = "X-Learner-ID"
	learnerKey    = "learner"
)

// learnerIdentity 从请求头或 learner 参数取学习者，没有时分配匿名身份并回写响应头
func learnerIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := portal.NormalizeLearner(c.GetHeader(learnerHeader))
		if !ok {
			id, ok = portal.NormalizeLearner(c.Query(learnerKey))
		}
		if !ok {
			id = portal.NewLearnerAlias()
		}
		c.Set(learnerKey, id)
		c.Header(learnerHeader, id)
		c.Next()
	}
}

func learner(c *gin.Context) string {
	return c.GetString(learnerKey)
}

// lessonOrder 解析路径中的课时序号
func lessonOrder(c *gin.Context) (int, bool) {
	order, err := strconv.Atoi(c.Param("order"))
	if err != nil || order < 1 {
		abortJSON(c, http.StatusBadRequest, "Lesson order must be a positive integer.")
		return 0, false
	}
	return order, true
}

func (s *Server) dashboard(c *gin.Context) {
	dash, err := s.deps.Portal.Dashboard(learner(c))
	if err != nil {
		portalFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

func (s *Server) progress(c *gin.Context) {
	report, err := s.deps.Portal.Progress(learner(c))
	if err != nil {
		portalFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) listCourses(c *gin.Context) {
	courses, err := s.deps.Portal.ListCourses()
	if err != nil {
		portalFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

func (s *Server) courseDetail(c *gin.Context) {
	detail, err := s.deps.Portal.CourseView(learner(c), c.Param("course_id"))
	if err != nil {
		portalFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) lesson(c *gin.Context) {
	order, ok := lessonOrder(c)
	if !ok {
		return
	}
	detail, err := s.deps.Portal.LessonView(learner(c), c.Param("course_id"), order)
	if err != nil {
		portalFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) completeLesson(c *gin.Context) {
	order, ok := lessonOrder(c)
	if !ok {
		return
	}
	courseID := c.Param("course_id")
	if _, err := s.deps.Portal.GetLesson(courseID, order); err != nil {
		portalFailure(c, err)
		return
	}

	prog, err := s.deps.Portal.MarkComplete(learner(c), courseID, order)
	if err != nil {
		portalFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"course_id":         courseID,
		"completed_lessons": prog.Completed,
		"last_lesson":       prog.LastLesson,
		"message":           "Lesson marked complete!",
	})
}

func (s *Server) quiz(c *gin.Context) {
	course, err := s.deps.Portal.GetCourse(c.Param("course_id"))
	if err != nil {
		portalFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"course":        course,
		"questions":     s.deps.Portal.Questions(course.ID),
		"passing_score": portal.PassingScore,
	})
}

type quizSubmission struct {
	Answers []int `json:"answers"`
}

func (s *Server) submitQuiz(c *gin.Context) {
	var sub quizSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		abortJSON(c, http.StatusBadRequest, "Answers must be a list of option indexes.")
		return
	}

	course, err := s.deps.Portal.GetCourse(c.Param("course_id"))
	if err != nil {
		portalFailure(c, err)
		return
	}

	result := s.deps.Portal.Grade(course.ID, sub.Answers)
	if _, err = s.deps.Portal.SaveAttempt(learner(c), result); err != nil {
		portalFailure(c, err)
		return
	}

	message := "You did not reach the passing score. Review the lessons and try again."
	if result.Passed {
		message = "Great work! You passed the quiz."
	}
	c.JSON(http.StatusOK, gin.H{
		"course":  course,
		"result":  result,
		"message": message,
	})
}

func (s *Server) issueCertificate(c *gin.Context) {
	cert, err := s.deps.Portal.Issue(learner(c), c.Param("course_id"))
	if err != nil {
		portalFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, cert)
}

func (s *Server) verifyCertificate(c *gin.Context) {
	cert, err := s.deps.Portal.Verify(c.Param("id"))
	if err != nil {
		portalFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "certificate": cert})
}

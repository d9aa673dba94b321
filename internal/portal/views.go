package portal

import (
	"github.com/adaptbtc/adaptbtc-server/internal/dao"
	"github.com/adaptbtc/adaptbtc-server/internal/models"
)

// CourseDetail 课程页：目录、当前课时、已完成课时与前后导航
type CourseDetail struct {
	Course           *models.Course      `json:"course"`
	Lessons          []dao.LessonSummary `json:"lessons"`
	CurrentLesson    *models.Lesson      `json:"current_lesson"`
	CompletedLessons []int               `json:"completed_lessons"`
	PrevNext         Neighbours          `json:"prev_next"`
}

// Dashboard 学习者总览
type Dashboard struct {
	Learner       string                 `json:"learner"`
	Courses       []*models.Course       `json:"courses"`
	CourseSummary map[string]CourseStats `json:"course_summary"`
	LessonTotals  map[string]int         `json:"lesson_totals"`
}

// ProgressReport 各课程进度与测验记录
type ProgressReport struct {
	Learner    string                           `json:"learner"`
	CourseData map[string]CourseStats           `json:"course_data"`
	Attempts   map[string][]*models.QuizAttempt `json:"attempts"`
}

// CourseView 打开课程，停留在最近学习的课时
func (p *Portal) CourseView(learnerID, courseID string) (*CourseDetail, error) {
	last, err := p.GetLast(learnerID, courseID)
	if err != nil {
		return nil, err
	}
	detail, err := p.detail(learnerID, courseID, last)
	if err != nil {
		return nil, err
	}
	// 最近课时可能已不在目录中
	if detail.CurrentLesson, err = p.courses.GetLesson(courseID, last); err != nil {
		return nil, err
	}
	return detail, nil
}

// LessonView 打开指定课时，并记为最近学习
func (p *Portal) LessonView(learnerID, courseID string, order int) (*CourseDetail, error) {
	detail, err := p.detail(learnerID, courseID, order)
	if err != nil {
		return nil, err
	}
	if detail.CurrentLesson, err = p.GetLesson(courseID, order); err != nil {
		return nil, err
	}
	if err = p.RecordLast(learnerID, courseID, order); err != nil {
		return nil, err
	}
	return detail, nil
}

func (p *Portal) detail(learnerID, courseID string, order int) (*CourseDetail, error) {
	course, err := p.GetCourse(courseID)
	if err != nil {
		return nil, err
	}
	lessons, err := p.ListLessons(courseID)
	if err != nil {
		return nil, err
	}
	completed, err := p.Completed(learnerID, courseID)
	if err != nil {
		return nil, err
	}
	return &CourseDetail{
		Course:           course,
		Lessons:          lessons,
		CompletedLessons: completed,
		PrevNext:         neighbours(lessons, order),
	}, nil
}

// Dashboard 学习者总览
func (p *Portal) Dashboard(learnerID string) (*Dashboard, error) {
	courses, err := p.ListCourses()
	if err != nil {
		return nil, err
	}
	stats, err := p.Stats(learnerID)
	if err != nil {
		return nil, err
	}
	counts, err := p.courses.CountLessons()
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int, len(courses))
	for _, c := range courses {
		totals[c.ID] = counts[c.ID]
	}
	return &Dashboard{Learner: learnerID, Courses: courses, CourseSummary: stats, LessonTotals: totals}, nil
}

// Progress 所有课程的进度（无记录的课程给默认值）及测验记录
func (p *Portal) Progress(learnerID string) (*ProgressReport, error) {
	stats, err := p.Stats(learnerID)
	if err != nil {
		return nil, err
	}
	courses, err := p.ListCourses()
	if err != nil {
		return nil, err
	}
	for _, c := range courses {
		if _, ok := stats[c.ID]; !ok {
			stats[c.ID] = CourseStats{LastLesson: 1}
		}
	}

	attempts := make(map[string][]*models.QuizAttempt, len(stats))
	for courseID := range stats {
		list, err := p.Attempts(learnerID, courseID)
		if err != nil {
			return nil, err
		}
		attempts[courseID] = list
	}
	return &ProgressReport{Learner: learnerID, CourseData: stats, Attempts: attempts}, nil
}

package portal

import (
	"github.com/adaptbtc/adaptbtc-server/internal/dao"
	"github.com/adaptbtc/adaptbtc-server/internal/models"
)

// ListCourses 全部课程，按标题排序
func (p *Portal) ListCourses() ([]*models.Course, error) {
	return p.courses.ListCourses()
}

func (p *Portal) GetCourse(courseID string) (*models.Course, error) {
	course, err := p.courses.GetCourse(courseID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}
	return course, nil
}

// ListLessons 课程目录
func (p *Portal) ListLessons(courseID string) ([]dao.LessonSummary, error) {
	return p.courses.ListLessons(courseID)
}

func (p *Portal) GetLesson(courseID string, order int) (*models.Lesson, error) {
	lesson, err := p.courses.GetLesson(courseID, order)
	if err != nil {
		return nil, err
	}
	if lesson == nil {
		return nil, ErrLessonNotFound
	}
	return lesson, nil
}

// Neighbours 相邻课时序号，没有时为 nil
type Neighbours struct {
	Prev *int `json:"prev"`
	Next *int `json:"next"`
}

// NextPrev order 不在目录中时两侧都为 nil
func (p *Portal) NextPrev(courseID string, order int) (Neighbours, error) {
	lessons, err := p.courses.ListLessons(courseID)
	if err != nil {
		return Neighbours{}, err
	}
	return neighbours(lessons, order), nil
}

func neighbours(lessons []dao.LessonSummary, order int) Neighbours {
	var n Neighbours
	for i, l := range lessons {
		if l.LessonOrder != order {
			continue
		}
		if i > 0 {
			prev := lessons[i-1].LessonOrder
			n.Prev = &prev
		}
		if i+1 < len(lessons) {
			next := lessons[i+1].LessonOrder
			n.Next = &next
		}
		break
	}
	return n
}

package portal

import (
	"slices"

	"github.com/adaptbtc/adaptbtc-server/internal/models"
)

// CourseStats 单门课程的进度摘要
type CourseStats struct {
	LessonsCompleted int `json:"lessons_completed"`
	LastLesson       int `json:"last_lesson"`
}

func (p *Portal) loadProgress(learnerID, courseID string) (*models.CourseProgress, error) {
	prog, err := p.progress.Get(learnerID, courseID)
	if err != nil {
		return nil, err
	}
	if prog == nil {
		prog = &models.CourseProgress{LearnerID: learnerID, CourseID: courseID, Completed: []int{}, LastLesson: 1}
	}
	return prog, nil
}

// MarkComplete 标记课时完成（幂等），并记为最近学习的课时
func (p *Portal) MarkComplete(learnerID, courseID string, order int) (*models.CourseProgress, error) {
	prog, err := p.loadProgress(learnerID, courseID)
	if err != nil {
		return nil, err
	}

	if !slices.Contains(prog.Completed, order) {
		prog.Completed = append(prog.Completed, order)
		slices.Sort(prog.Completed)
	}
	prog.LastLesson = order

	if err = p.progress.Upsert(prog); err != nil {
		return nil, err
	}
	return prog, nil
}

// RecordLast 记录最近学习的课时
func (p *Portal) RecordLast(learnerID, courseID string, order int) error {
	prog, err := p.loadProgress(learnerID, courseID)
	if err != nil {
		return err
	}
	prog.LastLesson = order
	return p.progress.Upsert(prog)
}

// GetLast 没有记录时返回 1
func (p *Portal) GetLast(learnerID, courseID string) (int, error) {
	prog, err := p.loadProgress(learnerID, courseID)
	if err != nil {
		return 0, err
	}
	return prog.LastLesson, nil
}

// Completed 已完成课时，升序
func (p *Portal) Completed(learnerID, courseID string) ([]int, error) {
	prog, err := p.loadProgress(learnerID, courseID)
	if err != nil {
		return nil, err
	}
	return prog.Completed, nil
}

// Stats 学习者各课程进度，只包含有记录的课程
func (p *Portal) Stats(learnerID string) (map[string]CourseStats, error) {
	list, err := p.progress.ListByLearner(learnerID)
	if err != nil {
		return nil, err
	}

	stats := make(map[string]CourseStats, len(list))
	for _, prog := range list {
		stats[prog.CourseID] = CourseStats{
			LessonsCompleted: len(prog.Completed),
			LastLesson:       prog.LastLesson,
		}
	}
	return stats, nil
}

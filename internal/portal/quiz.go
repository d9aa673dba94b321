package portal

import (
	"github.com/adaptbtc/adaptbtc-server/internal/models"
)

const (
	PassingScore = 0.8
	MaxAttempts  = 5
)

// GradedItem 单题批改结果
type GradedItem struct {
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	UserAnswer    int      `json:"user_answer"`
	CorrectAnswer int      `json:"correct_answer"`
	IsCorrect     bool     `json:"is_correct"`
	Explanation   string   `json:"explanation"`
}

// GradeResult 测验批改结果
type GradeResult struct {
	CourseID string       `json:"course_id"`
	Correct  int          `json:"correct"`
	Total    int          `json:"total"`
	Score    float64      `json:"score"`
	Passed   bool         `json:"passed"`
	Answers  []int        `json:"answers"`
	Graded   []GradedItem `json:"graded"`
}

// Questions 课程题目
func (p *Portal) Questions(courseID string) []Question {
	return p.library.Questions(courseID)
}

// Grade 批改，缺失的答案按 -1 处理；没有题目时得分为 0
func (p *Portal) Grade(courseID string, submitted []int) GradeResult {
	questions := p.library.Questions(courseID)

	result := GradeResult{
		CourseID: courseID,
		Total:    len(questions),
		Answers:  make([]int, len(questions)),
		Graded:   make([]GradedItem, 0, len(questions)),
	}
	for i, q := range questions {
		answer := -1
		if i < len(submitted) {
			answer = submitted[i]
		}
		result.Answers[i] = answer

		correct := answer == q.Answer
		if correct {
			result.Correct++
		}
		result.Graded = append(result.Graded, GradedItem{
			Prompt:        q.Prompt,
			Options:       q.Options,
			UserAnswer:    answer,
			CorrectAnswer: q.Answer,
			IsCorrect:     correct,
			Explanation:   q.Explanation,
		})
	}

	if result.Total > 0 {
		result.Score = float64(result.Correct) / float64(result.Total)
	}
	result.Passed = result.Score >= PassingScore
	return result
}

// SaveAttempt 保存测验记录，每个学习者每门课只保留最近 MaxAttempts 次
func (p *Portal) SaveAttempt(learnerID string, result GradeResult) (*models.QuizAttempt, error) {
	attempt := &models.QuizAttempt{
		LearnerID: learnerID,
		CourseID:  result.CourseID,
		Correct:   result.Correct,
		Total:     result.Total,
		Score:     result.Score,
		Passed:    result.Passed,
		Answers:   result.Answers,
		TakenAt:   p.now().UTC(),
	}
	if err := p.attempts.CreateAndTrim(attempt, MaxAttempts); err != nil {
		return nil, err
	}

	p.log.Debug().
		Str("learner", learnerID).
		Str("course", result.CourseID).
		Int("correct", result.Correct).
		Int("total", result.Total).
		Bool("passed", result.Passed).
		Msg("quiz attempt saved")
	return attempt, nil
}

// Attempts 最近的测验记录，最新在前
func (p *Portal) Attempts(learnerID, courseID string) ([]*models.QuizAttempt, error) {
	return p.attempts.ListRecent(learnerID, courseID, MaxAttempts)
}

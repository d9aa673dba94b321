package portal

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/adaptbtc/adaptbtc-server/internal/models"
)

//go:embed content/library.toml
var libraryTOML string

// GlossaryTerm 术语表条目
type GlossaryTerm struct {
	Term       string `toml:"term"`
	Definition string `toml:"definition"`
}

// LessonContent 课时原始内容
type LessonContent struct {
	Title      string         `toml:"title"`
	Paragraphs []string       `toml:"paragraphs"`
	Examples   []string       `toml:"examples"`
	Takeaways  []string       `toml:"takeaways"`
	Glossary   []GlossaryTerm `toml:"glossary"`
	Diagram    string         `toml:"diagram"`
}

// Question 单选题，Answer 为正确选项下标
type Question struct {
	Prompt      string   `toml:"prompt" json:"prompt"`
	Options     []string `toml:"options" json:"options"`
	Answer      int      `toml:"answer" json:"-"`
	Explanation string   `toml:"explanation" json:"-"`
}

// CourseContent 一门课程的完整内容
type CourseContent struct {
	ID      string          `toml:"id"`
	Title   string          `toml:"title"`
	Summary string          `toml:"summary"`
	Lessons []LessonContent `toml:"lessons"`
	Quiz    []Question      `toml:"quiz"`
}

// Library 内置课程库
type Library struct {
	Courses []CourseContent `toml:"courses"`

	byID map[string]*CourseContent
}

// LoadLibrary 解析内置课程库
func LoadLibrary() (*Library, error) {
	return ParseLibrary(libraryTOML)
}

// ParseLibrary 解析 TOML 格式的课程库
func ParseLibrary(data string) (*Library, error) {
	var lib Library
	if _, err := toml.Decode(data, &lib); err != nil {
		return nil, fmt.Errorf("decode course library: %w", err)
	}

	lib.byID = make(map[string]*CourseContent, len(lib.Courses))
	for i := range lib.Courses {
		c := &lib.Courses[i]
		if c.ID == "" {
			return nil, fmt.Errorf("course %d has no id", i)
		}
		if _, dup := lib.byID[c.ID]; dup {
			return nil, fmt.Errorf("duplicate course id %q", c.ID)
		}
		for j, q := range c.Quiz {
			if q.Answer < 0 || q.Answer >= len(q.Options) {
				return nil, fmt.Errorf("course %s question %d: answer %d out of range", c.ID, j+1, q.Answer)
			}
		}
		lib.byID[c.ID] = c
	}
	return &lib, nil
}

// Course 按 id 查找课程
func (l *Library) Course(id string) (*CourseContent, bool) {
	c, ok := l.byID[id]
	return c, ok
}

// Questions 课程题目，未知课程返回 nil
func (l *Library) Questions(courseID string) []Question {
	if c, ok := l.byID[courseID]; ok {
		return c.Quiz
	}
	return nil
}

// Records 转成入库记录，课时序号从 1 开始
func (c *CourseContent) Records() (*models.Course, []*models.Lesson) {
	course := &models.Course{ID: c.ID, Title: c.Title, Summary: c.Summary}

	lessons := make([]*models.Lesson, 0, len(c.Lessons))
	for i, l := range c.Lessons {
		lessons = append(lessons, l.record(c.ID, i+1))
	}
	return course, lessons
}

func (l LessonContent) record(courseID string, order int) *models.Lesson {
	title := l.Title
	if title == "" {
		title = fmt.Sprintf("Lesson %d", order)
	}
	diagram := l.Diagram
	if diagram == "" {
		diagram = fmt.Sprintf("<div class='diagram'>Visualization of %s with timelines and arrows.</div>", title)
	}

	glossary := make([]string, 0, len(l.Glossary))
	for _, g := range l.Glossary {
		glossary = append(glossary, g.Term+":"+g.Definition)
	}

	return &models.Lesson{
		CourseID:    courseID,
		LessonOrder: order,
		Title:       title,
		Content:     strings.Join(l.Paragraphs, "\n\n"),
		Examples:    strings.Join(l.Examples, "\n"),
		Glossary:    strings.Join(glossary, "\n"),
		Takeaways:   strings.Join(l.Takeaways, "\n"),
		Diagram:     diagram,
	}
}

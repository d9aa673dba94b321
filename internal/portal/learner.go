package portal

import (
	"strings"

	"github.com/google/uuid"
)

const (
	learnerPrefix = "Open Learner "
	// 与 learner_id 列宽一致，按字符计
	maxLearnerLen = 64
)

// NewLearnerAlias 匿名学习者名称
func NewLearnerAlias() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return learnerPrefix + hex[:6]
}

// NormalizeLearner 去掉非法 UTF-8 与首尾空白，按字符截断到 64，空值返回 false
func NormalizeLearner(id string) (string, bool) {
	id = strings.TrimSpace(strings.ToValidUTF8(id, ""))
	if id == "" {
		return "", false
	}
	if runes := []rune(id); len(runes) > maxLearnerLen {
		id = strings.TrimSpace(string(runes[:maxLearnerLen]))
	}
	return id, true
}

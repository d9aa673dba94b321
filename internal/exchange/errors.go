package exchange

import "strings"

// AggregationError 所有来源都失败
type AggregationError struct {
	Errors []string
}

func (e *AggregationError) Error() string {
	return "No exchange prices available"
}

// Detail 附带各来源错误
func (e *AggregationError) Detail() string {
	if len(e.Errors) == 0 {
		return e.Error()
	}
	return e.Error() + " (" + strings.Join(e.Errors, "; ") + ")"
}

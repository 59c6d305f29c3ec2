package pipeline

// Status 区分"成功"、"没有数据"和"上游失败"三种结果。
type Status string

const (
	StatusOK    Status = "ok"
	StatusEmpty Status = "empty"
	StatusError Status = "error"
)

// Outcome 是一次流水线阶段的显式结果。Text 只在 StatusOK 时有意义。
type Outcome struct {
	Status Status
	Text   string
	Err    error
}

// OK 构造成功结果。
func OK(text string) Outcome {
	return Outcome{Status: StatusOK, Text: text}
}

// Empty 构造"没有数据"的结果，err 可以为 nil。
func Empty(err error) Outcome {
	return Outcome{Status: StatusEmpty, Err: err}
}

// Failed 构造失败结果。
func Failed(err error) Outcome {
	return Outcome{Status: StatusError, Err: err}
}

// TextOr 在非成功时返回占位文本，用户边界永远拿到可展示的字符串。
func (o Outcome) TextOr(placeholder string) string {
	if o.Status == StatusOK && o.Text != "" {
		return o.Text
	}
	return placeholder
}

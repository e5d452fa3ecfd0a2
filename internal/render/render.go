// Package render serializes an assembled document into client text.
package render

import (
	"fmt"

	"github.com/provolone8305/sublink-worker/internal/model"
)

type Target string

const (
	TargetClash Target = "clash"
)

type RenderError struct {
	AppError model.AppError
	Cause    error
}

func (e *RenderError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *RenderError) Unwrap() error { return e.Cause }

func Render(target Target, doc *model.Document) ([]byte, error) {
	if doc == nil {
		return nil, &RenderError{
			AppError: model.AppError{
				Code:    "INVALID_ARGUMENT",
				Message: "render input 不能为空",
				Stage:   "render",
			},
		}
	}
	switch target {
	case TargetClash:
		return renderClash(doc)
	default:
		return nil, &RenderError{
			AppError: model.AppError{
				Code:    "UNSUPPORTED_TARGET",
				Message: fmt.Sprintf("不支持的 target：%s", target),
				Stage:   "render",
			},
		}
	}
}

// ContentTypeClash is the media type of a rendered clash document.
const ContentTypeClash = "text/yaml; charset=utf-8"

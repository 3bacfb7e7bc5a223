// Package transform applies XSLT stylesheets to XML documents
package transform

import (
	"context"
	"errors"
	"fmt"

	"github.com/beevik/etree"
)

// ErrTransform is matched by every error returned from a failed transform
var ErrTransform = errors.New("transform failed")

// Transformer applies a named stylesheet to a document
type Transformer interface {
	Transform(ctx context.Context, doc *etree.Document, stylesheet string) (*etree.Document, error)
}

// Error reports a failure to load or apply a stylesheet
type Error struct {
	Stylesheet string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transform %s: %v", e.Stylesheet, e.Err)
}

// Unwrap exposes both ErrTransform and the underlying cause
func (e *Error) Unwrap() []error {
	return []error{ErrTransform, e.Err}
}

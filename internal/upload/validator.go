package upload

import (
	"fmt"
	"path"
	"strings"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

// TypeFilter decides whether a file type is accepted. A non-nil error
// rejects the file; its message becomes the rejection reason.
type TypeFilter func(name, contentType string) error

// AcceptAll is the default TypeFilter.
func AcceptAll(string, string) error { return nil }

// AllowExtensions accepts only names ending in one of exts (case-insensitive,
// with or without the leading dot). An empty list accepts everything.
func AllowExtensions(exts ...string) TypeFilter {
	if len(exts) == 0 {
		return AcceptAll
	}
	allowed := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		allowed[e] = true
	}
	return func(name, _ string) error {
		ext := strings.ToLower(path.Ext(name))
		if allowed[ext] {
			return nil
		}
		if ext == "" {
			return fmt.Errorf("files without an extension are not accepted")
		}
		return fmt.Errorf("%s files are not accepted", ext)
	}
}

// Validator checks candidates before they enter the queue. It has no side
// effects.
type Validator struct {
	MaxFileSize int64
	Filter      TypeFilter
}

// NewValidator creates a validator. A nil filter accepts every type.
func NewValidator(maxFileSize int64, filter TypeFilter) *Validator {
	if filter == nil {
		filter = AcceptAll
	}
	return &Validator{MaxFileSize: maxFileSize, Filter: filter}
}

// Validate returns nil or a *domain.ValidationError.
func (v *Validator) Validate(p domain.Payload) error {
	if strings.TrimSpace(p.Name) == "" {
		return &domain.ValidationError{Name: p.Name, Reason: "file name is empty", Err: domain.ErrEmptyName}
	}
	if p.Size < 0 {
		return &domain.ValidationError{
			Name:   p.Name,
			Reason: fmt.Sprintf("declared size %d is negative", p.Size),
			Err:    domain.ErrInvalidSize,
		}
	}
	if p.Size > v.MaxFileSize {
		return &domain.ValidationError{
			Name: p.Name,
			Reason: fmt.Sprintf("file is %s, larger than the %s limit",
				domain.HumanSize(p.Size), domain.HumanSize(v.MaxFileSize)),
			Err: domain.ErrFileTooLarge,
		}
	}
	if err := v.Filter(p.Name, p.ContentType); err != nil {
		return &domain.ValidationError{
			Name:   p.Name,
			Reason: err.Error(),
			Err:    fmt.Errorf("%w: %v", domain.ErrTypeRejected, err),
		}
	}
	return nil
}

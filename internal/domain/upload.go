package domain

import (
	"errors"
	"fmt"
	"strings"
)

const DefaultUploadDir = "uploads"

// UploadOptions carries the optional per-upload settings. Zero values mean
// "not set".
type UploadOptions struct {
	Allowed []string `json:"allowed,omitempty"`
	Name    string   `json:"name,omitempty"`
	Width   int      `json:"width,omitempty"`
	Height  int      `json:"height,omitempty"`
}

func (o UploadOptions) Validate() error {
	if o.Width < 0 {
		return fmt.Errorf("width must not be negative: %d", o.Width)
	}
	if o.Height < 0 {
		return fmt.Errorf("height must not be negative: %d", o.Height)
	}
	for i, ext := range o.Allowed {
		if strings.TrimSpace(ext) == "" {
			return fmt.Errorf("allowed[%d] is empty", i)
		}
	}
	return nil
}

// NormalizeDir trims surrounding slashes and falls back to DefaultUploadDir.
// Parent references are rejected.
func NormalizeDir(dir string) (string, error) {
	dir = strings.Trim(strings.TrimSpace(dir), "/")
	if dir == "" {
		return DefaultUploadDir, nil
	}
	for _, part := range strings.Split(dir, "/") {
		if part == ".." {
			return "", errors.New("dir must not contain parent references")
		}
	}
	return dir, nil
}

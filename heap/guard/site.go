package guard

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// Site is a source location, recorded for every allocation and free.
type Site struct {
	File string
	Line int
}

// Caller returns the site skip frames above the caller of Caller.
func Caller(skip int) Site {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return Site{}
	}
	return Site{File: file, Line: line}
}

func (s Site) String() string {
	if s.File == "" {
		return fmt.Sprintf("line %d", s.Line)
	}
	return fmt.Sprintf("%s:%d", filepath.Base(s.File), s.Line)
}

package manager

import "fmt"

// FileTooLargeError indicates a file that does not fit the transfer area.
type FileTooLargeError struct {
	Name  string
	Size  int
	Limit int
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("file too large: %s is %d bytes, limit is %d", e.Name, e.Size, e.Limit)
}

// LabelNotFoundError indicates a label missing from the label file.
type LabelNotFoundError struct {
	Label string
}

func (e *LabelNotFoundError) Error() string {
	return fmt.Sprintf("could not find a definition for label %q", e.Label)
}

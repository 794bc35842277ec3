package updates

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Extension is the suffix every update file name carries.
const Extension = ".lift.update"

const separator = "_"

// ErrMalformedFilename is matched by every *MalformedFilenameError.
var ErrMalformedFilename = errors.New("malformed update filename")

// MalformedFilenameError describes why a name does not decode.
type MalformedFilenameError struct {
	Name   string
	Reason string
}

func (e *MalformedFilenameError) Error() string {
	return fmt.Sprintf("malformed update filename %q: %s", e.Name, e.Reason)
}

// Is makes errors.Is(err, ErrMalformedFilename) match.
func (e *MalformedFilenameError) Is(target error) bool {
	return target == ErrMalformedFilename
}

// UpdateFile is a pending update as seen at scan time.
type UpdateFile struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	ModTime time.Time `json:"mod_time"`
	Size    int64     `json:"size"`
}

// UpdateInfo is the decoded form of a well-formed update file name.
type UpdateInfo struct {
	Project string     `json:"project"`
	Sha     string     `json:"sha"`
	Suffix  string     `json:"suffix"`
	File    UpdateFile `json:"file"`
}

// ParseFilename decodes the base name of an update file.
//
// Project is the text before the first underscore, Sha the text between the
// first and second, and Suffix everything after the second (underscores
// included). The .lift.update extension is stripped when present. Project and
// Sha are NFC-normalized so names produced on decomposing filesystems group
// with their composed twins.
func ParseFilename(name string) (UpdateInfo, error) {
	stem := strings.TrimSuffix(name, Extension)

	project, rest, ok := strings.Cut(stem, separator)
	if !ok {
		return UpdateInfo{}, &MalformedFilenameError{Name: name, Reason: "no underscore"}
	}
	sha, suffix, ok := strings.Cut(rest, separator)
	if !ok {
		return UpdateInfo{}, &MalformedFilenameError{Name: name, Reason: "only one underscore"}
	}

	switch {
	case project == "":
		return UpdateInfo{}, &MalformedFilenameError{Name: name, Reason: "empty project"}
	case sha == "":
		return UpdateInfo{}, &MalformedFilenameError{Name: name, Reason: "empty sha"}
	case suffix == "":
		return UpdateInfo{}, &MalformedFilenameError{Name: name, Reason: "empty suffix"}
	case isDotName(project):
		return UpdateInfo{}, &MalformedFilenameError{Name: name, Reason: "project names a directory"}
	case isDotName(sha):
		return UpdateInfo{}, &MalformedFilenameError{Name: name, Reason: "sha names a directory"}
	}

	return UpdateInfo{
		Project: norm.NFC.String(project),
		Sha:     norm.NFC.String(sha),
		Suffix:  suffix,
	}, nil
}

// FormatFilename builds an update file name. It is the inverse of
// ParseFilename.
func FormatFilename(project, sha, suffix string) (string, error) {
	switch {
	case project == "" || isDotName(project) || strings.Contains(project, separator):
		return "", fmt.Errorf("invalid project %q", project)
	case sha == "" || isDotName(sha) || strings.Contains(sha, separator):
		return "", fmt.Errorf("invalid sha %q", sha)
	case suffix == "":
		return "", errors.New("empty suffix")
	}
	return project + separator + sha + separator + suffix + Extension, nil
}

// isDotName reports whether s would resolve to a parent or current directory
// when joined into a server path.
func isDotName(s string) bool {
	return s == "." || s == ".."
}

package ecsdeploy

import (
	"fmt"
	"os"
)

// AppSpec is something that can produce the serialized AppSpec revision for a
// deployment. Generating an AppSpec is out of scope for this package; callers
// bring their own.
type AppSpec interface {
	Render() (string, error)
}

// StaticAppSpec is an AppSpec whose content is already serialized.
type StaticAppSpec string

func (s StaticAppSpec) Render() (string, error) {
	return string(s), nil
}

// AppSpecFile is an AppSpec read verbatim from a file on disk.
type AppSpecFile string

func (f AppSpecFile) Render() (string, error) {
	raw, err := os.ReadFile(string(f))
	if err != nil {
		return "", fmt.Errorf("error reading appspec: %v", err)
	}
	return string(raw), nil
}

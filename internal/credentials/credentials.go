// Package credentials stages cluster credential material as short-lived files
// for a single provisioning run.
package credentials

import (
	"errors"
	"fmt"
	"os"
)

// Kind identifies one staged credential file.
type Kind string

const (
	KindKubeConfig  Kind = "kubeconfig"
	KindPrivateKey  Kind = "private-key"
	KindCertificate Kind = "certificate"
)

var patterns = map[Kind]string{
	KindKubeConfig:  "kube-*.yaml",
	KindPrivateKey:  "key-*.key",
	KindCertificate: "crt-*.crt",
}

// Blobs carries opaque credential content. A nil field is not staged.
type Blobs struct {
	KubeConfig  []byte
	PrivateKey  []byte
	Certificate []byte
}

// FileWriteError reports that a credential file could not be staged.
type FileWriteError struct {
	Kind Kind
	Err  error
}

func (e *FileWriteError) Error() string {
	return fmt.Sprintf("failed to write %s temp file: %v", e.Kind, e.Err)
}

func (e *FileWriteError) Unwrap() error {
	return e.Err
}

// Set is the group of files staged for one invocation.
type Set struct {
	KubeConfig  string
	PrivateKey  string
	Certificate string
}

// Materialize writes every non-nil blob to its own randomly named 0600 file
// in dir (the system temp dir when empty). On failure, files already written
// are removed and a *FileWriteError is returned.
func Materialize(dir string, blobs Blobs) (*Set, error) {
	set := &Set{}

	steps := []struct {
		kind Kind
		data []byte
		dst  *string
	}{
		{KindKubeConfig, blobs.KubeConfig, &set.KubeConfig},
		{KindPrivateKey, blobs.PrivateKey, &set.PrivateKey},
		{KindCertificate, blobs.Certificate, &set.Certificate},
	}

	for _, step := range steps {
		if step.data == nil {
			continue
		}
		path, err := writeTemp(dir, patterns[step.kind], step.data)
		if err != nil {
			_ = set.Remove()
			return nil, &FileWriteError{Kind: step.kind, Err: err}
		}
		*step.dst = path
	}

	return set, nil
}

func writeTemp(dir, pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	path := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}

	return path, nil
}

// Paths lists the staged file paths.
func (s *Set) Paths() []string {
	var paths []string
	for _, p := range []string{s.KubeConfig, s.PrivateKey, s.Certificate} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// Remove unlinks every staged file. It attempts all of them and returns the
// joined failures; files already gone are not an error.
func (s *Set) Remove() error {
	if s == nil {
		return nil
	}

	var errs []error
	for _, p := range s.Paths() {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

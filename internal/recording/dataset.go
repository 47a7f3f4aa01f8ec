package recording

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"voicecohort/internal/services"
)

const (
	submissionsFile = "submissions.json"
	zipDataDir      = "data"
)

// Dataset gives access to a submissions export stored either as a directory
// (<root>/submissions.json, <root>/<id>/...) or as a zip archive
// (data/submissions.json, data/<id>/...).
type Dataset struct {
	root    string
	archive *zip.ReadCloser
	entries map[string][]*zip.File
}

// OpenDataset opens the dataset at root. Paths ending in .zip are read as archives.
func OpenDataset(root string) (*Dataset, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "dataset", "open", fmt.Sprintf("dataset %q not found", root), err)
		}
		return nil, services.Wrap(services.ErrStructural, "dataset", "open", "stat dataset", err)
	}
	if info.IsDir() {
		return &Dataset{root: root}, nil
	}
	if !strings.EqualFold(filepath.Ext(root), ".zip") {
		return nil, services.Wrap(services.ErrStructural, "dataset", "open", fmt.Sprintf("%q is neither a directory nor a zip archive", root), nil)
	}
	archive, err := zip.OpenReader(root)
	if err != nil {
		return nil, services.Wrap(services.ErrStructural, "dataset", "open", "read zip archive", err)
	}
	ds := &Dataset{root: root, archive: archive, entries: make(map[string][]*zip.File)}
	prefix := zipDataDir + "/"
	for _, f := range archive.File {
		if f.FileInfo().IsDir() || !strings.HasPrefix(f.Name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(f.Name, prefix)
		id, _, ok := strings.Cut(rest, "/")
		if !ok || id == "" {
			continue
		}
		ds.entries[id] = append(ds.entries[id], f)
	}
	for id := range ds.entries {
		sort.Slice(ds.entries[id], func(i, j int) bool { return ds.entries[id][i].Name < ds.entries[id][j].Name })
	}
	return ds, nil
}

// Root returns the path the dataset was opened from.
func (d *Dataset) Root() string {
	return d.root
}

// IsArchive reports whether the dataset is backed by a zip file.
func (d *Dataset) IsArchive() bool {
	return d.archive != nil
}

// Close releases the archive handle, if any.
func (d *Dataset) Close() error {
	if d == nil || d.archive == nil {
		return nil
	}
	return d.archive.Close()
}

// ReadSubmissions returns the raw submissions JSON document.
func (d *Dataset) ReadSubmissions() ([]byte, error) {
	if d.archive == nil {
		data, err := os.ReadFile(filepath.Join(d.root, submissionsFile))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, services.Wrap(services.ErrStructural, "dataset", "read submissions", submissionsFile+" is missing", err)
			}
			return nil, services.Wrap(services.ErrStructural, "dataset", "read submissions", "read file", err)
		}
		return data, nil
	}
	name := path.Join(zipDataDir, submissionsFile)
	for _, f := range d.archive.File {
		if f.Name == name {
			return readZipFile(f)
		}
	}
	return nil, services.Wrap(services.ErrStructural, "dataset", "read submissions", name+" is missing from archive", nil)
}

// PersonFiles lists the names of every file stored for a person, sorted.
func (d *Dataset) PersonFiles(id string) ([]string, error) {
	if d.archive != nil {
		files := d.entries[id]
		names := make([]string, 0, len(files))
		for _, f := range files {
			names = append(names, path.Base(f.Name))
		}
		return names, nil
	}
	entries, err := os.ReadDir(filepath.Join(d.root, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrExternal, "dataset", "list files", id, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Recordings lists the WAV files stored for a person, sorted.
func (d *Dataset) Recordings(id string) ([]string, error) {
	files, err := d.PersonFiles(id)
	if err != nil {
		return nil, err
	}
	wavs := files[:0:0]
	for _, name := range files {
		if strings.EqualFold(filepath.Ext(name), ".wav") {
			wavs = append(wavs, name)
		}
	}
	return wavs, nil
}

// Open returns a seekable reader for one of a person's files.
func (d *Dataset) Open(id, name string) (io.ReadSeekCloser, error) {
	if d.archive == nil {
		f, err := os.Open(filepath.Join(d.root, id, name))
		if err != nil {
			return nil, services.Wrap(services.ErrNotFound, "dataset", "open file", path.Join(id, name), err)
		}
		return f, nil
	}
	want := path.Join(zipDataDir, id, name)
	for _, f := range d.entries[id] {
		if f.Name != want {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			return nil, err
		}
		return nopSeekCloser{bytes.NewReader(data)}, nil
	}
	return nil, services.Wrap(services.ErrNotFound, "dataset", "open file", want, nil)
}

// ValidatePerson validates every WAV recorded for a person. A person without
// recordings is rejected; otherwise the first invalid recording decides.
func (d *Dataset) ValidatePerson(v *Validator, id string) Result {
	names, err := d.Recordings(id)
	if err != nil {
		return Invalid(fmt.Sprintf("%s (%v)", ReasonUnreadable, err))
	}
	if len(names) == 0 {
		return Invalid(ReasonNoRecordings)
	}
	var last Result
	for _, name := range names {
		last = v.ValidateSource(func() (io.ReadSeekCloser, error) {
			return d.Open(id, name)
		})
		if !last.Valid {
			return last
		}
	}
	return last
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, services.Wrap(services.ErrDecode, "dataset", "read archive entry", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, services.Wrap(services.ErrDecode, "dataset", "read archive entry", f.Name, err)
	}
	return data, nil
}

type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }

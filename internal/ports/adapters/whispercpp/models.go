package whispercpp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/forPelevin/transcut/internal/types"
)

const DefaultBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// Model is one ggml model published for whisper.cpp.
type Model struct {
	Name        string
	FileName    string
	Size        string
	Description string
}

var Models = []Model{
	{Name: "tiny", FileName: "ggml-tiny.bin", Size: "75MB", Description: "Fastest, lowest accuracy"},
	{Name: "tiny.en", FileName: "ggml-tiny.en.bin", Size: "75MB", Description: "English only, fastest"},
	{Name: "base", FileName: "ggml-base.bin", Size: "142MB", Description: "Good for quick drafts"},
	{Name: "base.en", FileName: "ggml-base.en.bin", Size: "142MB", Description: "English only, quick drafts"},
	{Name: "small", FileName: "ggml-small.bin", Size: "466MB", Description: "Balanced for most uses"},
	{Name: "medium", FileName: "ggml-medium.bin", Size: "1.5GB", Description: "Higher accuracy"},
	{Name: "large-v3-turbo", FileName: "ggml-large-v3-turbo.bin", Size: "1.6GB", Description: "Best quality, fast"},
}

// LookupModel accepts short names as well as "ggml-<name>.bin".
func LookupModel(name string) (Model, bool) {
	name = strings.TrimSuffix(strings.TrimPrefix(name, "ggml-"), ".bin")
	for _, m := range Models {
		if m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}

// ModelStore keeps downloaded models in one directory.
type ModelStore struct {
	dir     string
	baseURL string
	client  *http.Client
}

func NewModelStore(dir string) *ModelStore {
	return &ModelStore{dir: dir, baseURL: DefaultBaseURL, client: http.DefaultClient}
}

// WithBaseURL points downloads at a mirror.
func (s *ModelStore) WithBaseURL(u string) *ModelStore {
	s.baseURL = strings.TrimRight(u, "/")
	return s
}

// Path resolves a model name or file path. Absolute paths and paths to
// existing files are used as-is.
func (s *ModelStore) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	if strings.HasSuffix(name, ".bin") {
		if _, err := os.Stat(name); err == nil {
			return name
		}
		return filepath.Join(s.dir, filepath.Base(name))
	}
	return filepath.Join(s.dir, "ggml-"+name+".bin")
}

func (s *ModelStore) Downloaded(name string) bool {
	info, err := os.Stat(s.Path(name))
	return err == nil && info.Size() > 0
}

// Ensure returns the local path of name, downloading it first if needed.
// progress receives byte counts while downloading.
func (s *ModelStore) Ensure(ctx context.Context, name string, progress func(types.ModelDownloadProgress)) (string, error) {
	path := s.Path(name)
	if s.Downloaded(name) {
		return path, nil
	}
	m, ok := LookupModel(name)
	if !ok {
		return "", fmt.Errorf("unknown whisper model: %s", name)
	}
	if err := s.download(ctx, m, path, progress); err != nil {
		return "", err
	}
	return path, nil
}

func (s *ModelStore) download(ctx context.Context, m Model, dest string, progress func(types.ModelDownloadProgress)) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/"+m.FileName, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download model: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download model: HTTP %d", resp.StatusCode)
	}

	tmp := dest + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	w := &progressWriter{file: m.FileName, total: resp.ContentLength, report: progress}
	_, err = io.Copy(io.MultiWriter(out, w), resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write model file: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename model file: %w", err)
	}
	w.finish()
	return nil
}

// progressWriter reports download progress whenever the whole percent
// changes.
type progressWriter struct {
	file    string
	total   int64
	loaded  int64
	lastPct int
	report  func(types.ModelDownloadProgress)
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.loaded += int64(len(p))
	if w.report == nil || w.total <= 0 {
		return len(p), nil
	}
	pct := int(w.loaded * 100 / w.total)
	if pct != w.lastPct {
		w.lastPct = pct
		w.report(types.ModelDownloadProgress{File: w.file, Progress: float64(pct), Loaded: w.loaded, Total: w.total})
	}
	return len(p), nil
}

func (w *progressWriter) finish() {
	if w.report == nil {
		return
	}
	total := w.total
	if total <= 0 {
		total = w.loaded
	}
	if w.lastPct != 100 {
		w.report(types.ModelDownloadProgress{File: w.file, Progress: 100, Loaded: w.loaded, Total: total})
	}
}

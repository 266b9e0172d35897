package whispercpp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/forPelevin/transcut/internal/types"
	"github.com/forPelevin/transcut/internal/wavio"
)

// Adapter runs the whisper.cpp CLI on 16 kHz mono samples.
type Adapter struct {
	bin     string
	store   *ModelStore
	threads int
	logf    func(string, ...any)

	mu        sync.Mutex
	modelPath string
}

func New(binPath string, store *ModelStore, logf func(string, ...any)) *Adapter {
	if binPath == "" {
		binPath = "whisper-cli"
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	threads := runtime.NumCPU()
	if threads > 8 {
		threads = 8
	}
	return &Adapter{bin: binPath, store: store, threads: threads, logf: logf}
}

// Load makes modelID available locally, downloading it if necessary.
func (a *Adapter) Load(ctx context.Context, modelID string, progress func(types.ModelDownloadProgress)) error {
	path, err := a.store.Ensure(ctx, modelID, progress)
	if err != nil {
		return err
	}
	a.logf("[whisper] model %s at %s", modelID, path)
	a.mu.Lock()
	a.modelPath = path
	a.mu.Unlock()
	return nil
}

func (a *Adapter) Transcribe(ctx context.Context, samples []float32, language string, progress func(float64)) (types.RecognizerResult, error) {
	a.mu.Lock()
	model := a.modelPath
	a.mu.Unlock()
	if model == "" {
		return types.RecognizerResult{}, fmt.Errorf("whisper: no model loaded")
	}

	dir, err := os.MkdirTemp("", "transcut-whisper-*")
	if err != nil {
		return types.RecognizerResult{}, err
	}
	defer os.RemoveAll(dir)

	wavPath := filepath.Join(dir, "audio.wav")
	if err := wavio.Write(wavPath, samples, wavio.SampleRate); err != nil {
		return types.RecognizerResult{}, fmt.Errorf("write wav: %w", err)
	}

	outPrefix := filepath.Join(dir, "whisper")
	args := []string{
		"-m", model,
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
		"-ml", "1",
		"-sow",
		"-pp",
		"-t", strconv.Itoa(a.threads),
	}
	if language != "" {
		args = append(args, "-l", language)
	}

	cmd := exec.CommandContext(ctx, a.bin, args...)
	var tail bytes.Buffer
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return types.RecognizerResult{}, fmt.Errorf("whisper stderr pipe: %w", err)
	}
	cmd.Stdout = io.Discard
	if err := cmd.Start(); err != nil {
		return types.RecognizerResult{}, fmt.Errorf("failed to start whisper: %w", err)
	}
	scanProgress(stderr, &tail, progress)
	if err := cmd.Wait(); err != nil {
		return types.RecognizerResult{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, tail.String())
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.RecognizerResult{}, err
	}
	return parseOutput(jb)
}

var progressRe = regexp.MustCompile(`progress\s*=\s*(\d+)%`)

// scanProgress forwards "progress = N%" lines and keeps the rest of stderr
// for error reports.
func scanProgress(r io.Reader, rest *bytes.Buffer, progress func(float64)) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if m := progressRe.FindStringSubmatch(line); m != nil {
			if pct, err := strconv.Atoi(m[1]); err == nil && progress != nil {
				progress(float64(pct))
			}
			continue
		}
		if rest.Len() < 16<<10 {
			rest.WriteString(line)
			rest.WriteByte('\n')
		}
	}
}

type whisperJSON struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// parseOutput turns whisper.cpp word-level JSON (-ml 1 -sow) into word
// chunks. Entries without a leading space continue the previous word.
func parseOutput(b []byte) (types.RecognizerResult, error) {
	var out whisperJSON
	if err := json.Unmarshal(b, &out); err != nil {
		return types.RecognizerResult{}, fmt.Errorf("parse whisper json: %w", err)
	}

	var (
		chunks []types.WordChunk
		text   strings.Builder
	)
	for _, e := range out.Transcription {
		raw := e.Text
		word := strings.TrimSpace(raw)
		if word == "" || isNonSpeech(word) {
			continue
		}
		start := float64(e.Offsets.From) / 1000
		end := float64(e.Offsets.To) / 1000
		if len(chunks) > 0 && !strings.HasPrefix(raw, " ") {
			last := &chunks[len(chunks)-1]
			last.Text += word
			last.End = end
			text.WriteString(word)
			continue
		}
		chunks = append(chunks, types.WordChunk{Text: word, Start: start, End: end})
		if text.Len() > 0 {
			text.WriteByte(' ')
		}
		text.WriteString(word)
	}
	return types.RecognizerResult{Text: text.String(), Chunks: chunks}, nil
}

// isNonSpeech matches markers such as "[BLANK_AUDIO]" or "(music)".
func isNonSpeech(w string) bool {
	return (strings.HasPrefix(w, "[") && strings.HasSuffix(w, "]")) ||
		(strings.HasPrefix(w, "(") && strings.HasSuffix(w, ")"))
}

package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/forPelevin/transcut/internal/chat"
	"github.com/forPelevin/transcut/internal/config"
	"github.com/forPelevin/transcut/internal/ports"
	"github.com/forPelevin/transcut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/transcut/internal/ports/adapters/openrouter"
	"github.com/forPelevin/transcut/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/transcut/internal/project"
	"github.com/forPelevin/transcut/internal/transcription"
	"github.com/forPelevin/transcut/internal/types"
	"github.com/forPelevin/transcut/internal/usecase"
)

type Config struct {
	ProjectPath string
	OutDir      string
	Logf        func(format string, args ...any)

	// CacheDir is the base directory for local artifacts (extracted audio).
	// If empty, defaults to ".cache".
	CacheDir string

	FFmpegPath  string
	FFprobePath string

	WhisperBin        string
	ModelsDir         string
	WhisperModel      string
	Language          string
	TranscribeTimeout time.Duration
	ModelWaitTimeout  time.Duration

	OpenRouterAPIKey       string
	OpenRouterModel        string
	OpenRouterBaseURL      string
	OpenRouterAllowedHosts []string
}

// FromConfig builds a pipeline config from the config file and the
// OPENROUTER_* environment.
func FromConfig(c *config.Config, projectPath string) Config {
	return Config{
		ProjectPath:       projectPath,
		OutDir:            c.OutDir,
		FFmpegPath:        c.FFmpeg,
		FFprobePath:       c.FFprobe,
		WhisperBin:        c.Whisper,
		ModelsDir:         c.ModelsDir,
		WhisperModel:      c.Model,
		Language:          c.Language,
		TranscribeTimeout: c.TranscribeTimeout,
		ModelWaitTimeout:  c.ModelWaitTimeout,

		OpenRouterAPIKey:       os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:        getenvDefault("OPENROUTER_MODEL", c.OpenRouter.Model),
		OpenRouterBaseURL:      getenvDefault("OPENROUTER_BASE_URL", c.OpenRouter.BaseURL),
		OpenRouterAllowedHosts: allowedHosts(os.Getenv("OPENROUTER_ALLOWED_HOSTS"), c.OpenRouter.AllowedHosts),
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ProjectPath) == "" {
		return errors.New("project path is empty")
	}
	if c.WhisperModel == "" {
		return fmt.Errorf("whisper model is required")
	}
	if _, ok := whispercpp.LookupModel(c.WhisperModel); !ok {
		return fmt.Errorf("unknown whisper model %q", c.WhisperModel)
	}
	if c.TranscribeTimeout < 0 || c.ModelWaitTimeout < 0 {
		return fmt.Errorf("timeouts must be >= 0")
	}
	return openrouter.ValidateBaseURL(
		c.OpenRouterBaseURL,
		c.OpenRouterAllowedHosts,
	)
}

// App is an open project with its adapters wired.
type App struct {
	cfg  Config
	logf func(string, ...any)

	Project     *project.Project
	Usecase     usecase.Usecase
	Coordinator *transcription.Coordinator
	Chat        *chat.Router
}

// Create starts a new project file at cfg.ProjectPath. An existing file is
// never overwritten.
func Create(cfg Config, name string) (*App, error) {
	if _, err := os.Stat(cfg.ProjectPath); err == nil {
		return nil, fmt.Errorf("project %s already exists", cfg.ProjectPath)
	}
	if name == "" {
		base := filepath.Base(cfg.ProjectPath)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	a := wire(cfg, project.New(name, time.Now()))
	if err := a.Save(); err != nil {
		return nil, err
	}
	return a, nil
}

// Open loads the project at cfg.ProjectPath.
func Open(cfg Config) (*App, error) {
	p, err := project.Load(cfg.ProjectPath)
	if err != nil {
		return nil, err
	}
	return wire(cfg, p), nil
}

func wire(cfg Config, p *project.Project) *App {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	// adapters
	v := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath,
		ffmpeg.WithCanvas(p.Settings.Width, p.Settings.Height, p.Settings.FPS),
		ffmpeg.WithLogf(logf),
	)
	asr := whispercpp.New(cfg.WhisperBin, whispercpp.NewModelStore(cfg.ModelsDir), logf)

	var llm ports.ChatModel
	if cfg.OpenRouterAPIKey != "" {
		llm = openrouter.New(cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.OpenRouterBaseURL)
	}

	coord := transcription.New(transcription.Config{
		Recognizer:       asr,
		Timeout:          cfg.TranscribeTimeout,
		ModelWaitTimeout: cfg.ModelWaitTimeout,
		Logf:             logf,
	})

	uc := usecase.New(usecase.Deps{
		Decoder:     v,
		Audio:       v,
		Transcriber: coord,
		Renderer:    v,
		Logf:        logf,
	})

	return &App{
		cfg:         cfg,
		logf:        logf,
		Project:     p,
		Usecase:     uc,
		Coordinator: coord,
		Chat:        chat.NewRouter(chat.Config{Project: p, Model: llm, Logf: logf}),
	}
}

func (a *App) Save() error {
	return a.Project.Save(a.cfg.ProjectPath, time.Now())
}

// Close stops the transcription worker if it was started.
func (a *App) Close() {
	a.Coordinator.Close()
}

// Transcribe makes sure model is loaded or loading and transcribes one media
// item into the project. Empty model and language fall back to the config.
func (a *App) Transcribe(ctx context.Context, mediaID, model, language string) (types.Transcript, error) {
	if model == "" {
		model = a.cfg.WhisperModel
	}
	if language == "" {
		language = a.cfg.Language
	}

	a.Coordinator.Initialize()
	if st := a.Coordinator.Model(); st.State != transcription.Ready || st.ModelID != model {
		err := a.Coordinator.LoadModel(ctx, model)
		if err != nil && !errors.Is(err, transcription.ErrLoadInFlight) {
			return types.Transcript{}, err
		}
	}

	jobID := hash(a.cfg.ProjectPath)
	baseCache := a.cfg.CacheDir
	if baseCache == "" {
		baseCache = ".cache"
	}
	cacheDir := filepath.Join(baseCache, "runs", jobID)
	a.logf("cache: %s", cacheDir)

	return a.Usecase.Transcribe(ctx, a.Project, usecase.TranscribeInput{
		MediaID:  mediaID,
		Language: language,
		CacheDir: cacheDir,
	})
}

// Export renders the timeline into a fresh run directory under the output
// root.
func (a *App) Export(ctx context.Context, outRoot string, subtitles bool) (usecase.ExportResult, error) {
	if outRoot == "" {
		outRoot = a.cfg.OutDir
	}
	if outRoot == "" {
		outRoot = "out"
	}
	runOutDir := buildRunOutDir(outRoot, a.Project.Name, time.Now().UTC())
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return usecase.ExportResult{}, err
	}
	a.logf("output run dir: %s", runOutDir)

	res, err := a.Usecase.Export(ctx, a.Project, usecase.ExportInput{
		OutDir:    runOutDir,
		Subtitles: subtitles,
	})
	if err != nil {
		return usecase.ExportResult{}, err
	}
	a.logf("manifest written (%d clips): %s", len(res.Manifest.Clips), res.ManifestPath)
	return res, nil
}

func buildRunOutDir(outRoot, projectName string, now time.Time) string {
	name := normalizePathSegment(projectName)
	if name == "" {
		name = "timeline"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", projectName, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// allowedHosts prefers the comma separated env value over the config list.
func allowedHosts(env string, fromConfig []string) []string {
	if strings.TrimSpace(env) == "" {
		return fromConfig
	}
	return strings.Split(env, ",")
}

// ensure adapters implement ports
var _ ports.MediaDecoder = (*ffmpeg.Adapter)(nil)
var _ ports.AudioExtractor = (*ffmpeg.Adapter)(nil)
var _ ports.Renderer = (*ffmpeg.Adapter)(nil)
var _ ports.SpeechRecognizer = (*whispercpp.Adapter)(nil)
var _ ports.ChatModel = (*openrouter.Adapter)(nil)
var _ usecase.Transcriber = (*transcription.Coordinator)(nil)

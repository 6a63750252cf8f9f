package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"

	shellwords "github.com/mattn/go-shellwords"
	"github.com/seinsight/insight-core/internal/audio"
	"github.com/seinsight/insight-core/internal/config"
)

// whisperConfidence is reported when the command returns no estimate; whisper
// itself does not score its output.
const whisperConfidence = 0.9

// whisperEngine shells out to a whisper-style CLI that reads a WAV file and
// prints a JSON result on stdout.
type whisperEngine struct {
	cmd       []string
	modelPath string
	language  string
}

type whisperOutput struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// NewWhisperEngine parses the configured command line and checks the model
// file up front, so a misconfigured engine fails at load time rather than on
// the first window.
func NewWhisperEngine(cfg config.ASRConfig) (Engine, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.WhisperCommand)
	if err != nil {
		return nil, fmt.Errorf("parse whisper command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("whisper command is empty")
	}
	if cfg.WhisperModelPath != "" {
		if _, err := os.Stat(cfg.WhisperModelPath); err != nil {
			return nil, fmt.Errorf("whisper model: %w", err)
		}
	}
	return &whisperEngine{
		cmd:       args,
		modelPath: cfg.WhisperModelPath,
		language:  cfg.Language,
	}, nil
}

func (e *whisperEngine) Name() string { return "whisper" }

func (e *whisperEngine) Transcribe(ctx context.Context, w *audio.Window) (Result, error) {
	file, err := os.CreateTemp(os.TempDir(), "insight_asr_*.wav")
	if err != nil {
		return Result{}, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := audio.WriteWAV(file, w); err != nil {
		return Result{}, err
	}

	args := append([]string{}, e.cmd[1:]...)
	args = append(args, "--audio", file.Name())
	if e.modelPath != "" {
		args = append(args, "--model", e.modelPath)
	}
	if e.language != "" {
		args = append(args, "--language", e.language)
	}

	command := exec.CommandContext(ctx, e.cmd[0], args...)
	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return Result{}, fmt.Errorf("whisper command failed: %w: %s", err, stderr.String())
	}

	var out whisperOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return Result{}, fmt.Errorf("decode whisper response: %w", err)
	}
	if out.Text == "" {
		return Result{}, fmt.Errorf("whisper produced no transcript")
	}
	confidence := out.Confidence
	if confidence <= 0 {
		confidence = whisperConfidence
	}
	return Result{
		Text:       out.Text,
		Confidence: confidence,
		Engine:     e.Name(),
		Timestamp:  time.Now().UTC(),
	}, nil
}

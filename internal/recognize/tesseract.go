package recognize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"os/exec"
	"strings"
	"time"

	"github.com/gen2brain/go-fitz"

	"slipstream/internal/preprocess"
	"slipstream/internal/services"
)

// Engine identifiers recorded against stored receipts.
const (
	TesseractEngineID = "tesseract"
	PDFTextEngineID   = "pdf-text"
)

// minEmbeddedTextLen is the threshold above which a PDF's embedded text
// layer is trusted over rasterising and re-recognising the page.
const minEmbeddedTextLen = 32

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, stdin []byte) ([]byte, error)
}

// Option configures the client.
type Option func(*Tesseract)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(t *Tesseract) {
		if exec != nil {
			t.exec = exec
		}
	}
}

// Tesseract wraps the tesseract CLI, feeding prepared images over stdin.
type Tesseract struct {
	binary    string
	languages string
	timeout   time.Duration
	exec      Executor
}

// NewTesseract constructs a tesseract-backed recognition client.
func NewTesseract(binary, languages string, timeoutSeconds int, opts ...Option) (*Tesseract, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("tesseract binary required")
	}
	languages = strings.TrimSpace(languages)
	if languages == "" {
		languages = "eng"
	}
	client := &Tesseract{
		binary:    binary,
		languages: languages,
		timeout:   time.Duration(timeoutSeconds) * time.Second,
		exec:      commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Recognize extracts text from the prepared input. PDF inputs arrive
// untouched from preprocessing; their embedded text layer is preferred, and
// only text-poor pages are rasterised and pushed through the CLI.
func (t *Tesseract) Recognize(ctx context.Context, input preprocess.Result) (Result, error) {
	start := time.Now()
	if input.PassThrough {
		return t.recognizePDF(ctx, input.Data, start)
	}
	text, err := t.runCLI(ctx, input.Data)
	if err != nil {
		return Result{}, err
	}
	return Result{EngineID: TesseractEngineID, Text: text, Duration: time.Since(start)}, nil
}

func (t *Tesseract) recognizePDF(ctx context.Context, data []byte, start time.Time) (Result, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return Result{}, services.Wrap(services.ErrDecode, "recognize", "open-pdf", "failed to open PDF document", err)
	}
	defer doc.Close()

	if embedded, err := doc.Text(0); err == nil {
		if trimmed := strings.TrimSpace(embedded); len(trimmed) >= minEmbeddedTextLen {
			return Result{EngineID: PDFTextEngineID, Text: trimmed, Duration: time.Since(start)}, nil
		}
	}

	page, err := doc.Image(0)
	if err != nil {
		return Result{}, services.Wrap(services.ErrDecode, "recognize", "render-pdf", "failed to render PDF page", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, page); err != nil {
		return Result{}, services.Wrap(services.ErrDecode, "recognize", "encode-pdf-page", "failed to encode rendered page", err)
	}
	text, err := t.runCLI(ctx, buf.Bytes())
	if err != nil {
		return Result{}, err
	}
	return Result{EngineID: TesseractEngineID, Text: text, Duration: time.Since(start)}, nil
}

func (t *Tesseract) runCLI(ctx context.Context, image []byte) (string, error) {
	runCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	args := []string{"stdin", "stdout", "-l", t.languages}
	output, err := t.exec.Run(runCtx, t.binary, args, image)
	if err != nil {
		return "", services.Wrap(services.ErrRecognition, "recognize", "tesseract", fmt.Sprintf("%s invocation failed", t.binary), err)
	}
	return strings.TrimSpace(string(output)), nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, stdin []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("%w: %s", err, detail)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

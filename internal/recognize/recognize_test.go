package recognize_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"slipstream/internal/preprocess"
	"slipstream/internal/recognize"
	"slipstream/internal/services"
)

type stubExecutor struct {
	binary string
	args   []string
	stdin  []byte
	output []byte
	err    error
}

func (s *stubExecutor) Run(_ context.Context, binary string, args []string, stdin []byte) ([]byte, error) {
	s.binary = binary
	s.args = args
	s.stdin = stdin
	if s.err != nil {
		return nil, s.err
	}
	return s.output, nil
}

func TestMockIsDeterministic(t *testing.T) {
	mock := recognize.NewMock("COFFEE HOUSE\nTOTAL $4.50")
	input := preprocess.Result{Data: []byte("image-bytes"), MIME: "image/png"}

	first, err := mock.Recognize(context.Background(), input)
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	second, err := mock.Recognize(context.Background(), input)
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if first.Text != second.Text {
		t.Fatalf("expected identical text, got %q and %q", first.Text, second.Text)
	}
	if first.EngineID != recognize.MockEngineID {
		t.Fatalf("unexpected engine id %q", first.EngineID)
	}
	if mock.Calls() != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.Calls())
	}
}

func TestMockPerContentText(t *testing.T) {
	mock := recognize.NewMock("default")
	mock.SetTextForContent([]byte("receipt-a"), "GROCERY MART")

	result, err := mock.Recognize(context.Background(), preprocess.Result{Data: []byte("receipt-a")})
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if result.Text != "GROCERY MART" {
		t.Fatalf("expected mapped text, got %q", result.Text)
	}

	result, err = mock.Recognize(context.Background(), preprocess.Result{Data: []byte("receipt-b")})
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if result.Text != "default" {
		t.Fatalf("expected default text, got %q", result.Text)
	}
}

func TestMockFailureInjection(t *testing.T) {
	mock := recognize.NewMock("ignored")
	mock.Fail(errors.New("engine offline"))

	if _, err := mock.Recognize(context.Background(), preprocess.Result{Data: []byte("x")}); err == nil {
		t.Fatal("expected failure")
	}
}

func TestTesseractInvokesCLI(t *testing.T) {
	exec := &stubExecutor{output: []byte("  TOTAL $12.00\n")}
	client, err := recognize.NewTesseract("tesseract", "eng", 30, recognize.WithExecutor(exec))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.Recognize(context.Background(), preprocess.Result{Data: []byte("png-bytes"), MIME: "image/png"})
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if result.Text != "TOTAL $12.00" {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if result.EngineID != recognize.TesseractEngineID {
		t.Fatalf("unexpected engine id %q", result.EngineID)
	}
	if exec.binary != "tesseract" {
		t.Fatalf("unexpected binary %q", exec.binary)
	}
	want := []string{"stdin", "stdout", "-l", "eng"}
	if len(exec.args) != len(want) {
		t.Fatalf("unexpected args %v", exec.args)
	}
	for i, arg := range want {
		if exec.args[i] != arg {
			t.Fatalf("arg %d: got %q want %q", i, exec.args[i], arg)
		}
	}
	if string(exec.stdin) != "png-bytes" {
		t.Fatal("expected prepared image forwarded on stdin")
	}
	if result.Duration < 0 || result.Duration > time.Minute {
		t.Fatalf("implausible duration %v", result.Duration)
	}
}

func TestTesseractWrapsExecutorError(t *testing.T) {
	exec := &stubExecutor{err: errors.New("boom")}
	client, err := recognize.NewTesseract("tesseract", "eng", 5, recognize.WithExecutor(exec))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Recognize(context.Background(), preprocess.Result{Data: []byte("png-bytes")})
	if !errors.Is(err, services.ErrRecognition) {
		t.Fatalf("expected recognition error, got %v", err)
	}
}

func TestTesseractRequiresBinary(t *testing.T) {
	if _, err := recognize.NewTesseract("  ", "eng", 5); err == nil {
		t.Fatal("expected error for blank binary")
	}
}

func TestTesseractDefaultsLanguages(t *testing.T) {
	exec := &stubExecutor{output: []byte("text")}
	client, err := recognize.NewTesseract("tesseract", "", 5, recognize.WithExecutor(exec))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Recognize(context.Background(), preprocess.Result{Data: []byte("x")}); err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if exec.args[3] != "eng" {
		t.Fatalf("expected default language, got %q", exec.args[3])
	}
}

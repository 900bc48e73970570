package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const defaultPdftotext = "pdftotext"

// CommandExtractor shells out to poppler's pdftotext, feeding the document
// on stdin and reading UTF-8 text from stdout.
type CommandExtractor struct {
	path string
}

func NewCommandExtractor(path string) CommandExtractor {
	if path == "" {
		path = defaultPdftotext
	}
	return CommandExtractor{path: path}
}

func (CommandExtractor) Name() string {
	return "pdftotext"
}

func (e CommandExtractor) Available() bool {
	_, err := exec.LookPath(e.path)
	return err == nil
}

func (e CommandExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	bin, err := exec.LookPath(e.path)
	if err != nil {
		return "", fmt.Errorf("pdftotext not available: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-layout", "-enc", "UTF-8", "-", "-")
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("pdftotext: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

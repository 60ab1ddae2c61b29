// Package media stores the recorded chunks of an answer and returns the
// reference sent with the submission.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/intervue/pkg/logger"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
	ext      = ".webm"
)

// ErrInvalidName is returned for identifiers that cannot be used as a path element.
var ErrInvalidName = errors.New("invalid media name")

// Manifest describes one stored recording.
type Manifest struct {
	SessionID  string    `json:"session_id"`
	QuestionID string    `json:"question_id"`
	Path       string    `json:"path"`
	Chunks     int       `json:"chunks"`
	Bytes      int       `json:"bytes"`
	CreatedAt  time.Time `json:"created_at"`
}

// FileSink writes recordings under a root directory as
// <root>/<session>/<question>-<uuid>.webm with a JSON manifest alongside.
type FileSink struct {
	root    string
	newName func() string
	logger  logger.Logger
}

// NewFileSink creates a sink rooted at dir.
func NewFileSink(dir string) *FileSink {
	return &FileSink{root: dir, newName: uuid.NewString, logger: logger.Get().Named("media")}
}

// Save concatenates chunks in order into one file and returns its path.
// An empty recording stores nothing and yields an empty reference.
func (s *FileSink) Save(ctx context.Context, sessionID, questionID string, chunks [][]byte) (string, error) {
	if len(chunks) == 0 {
		return "", nil
	}
	if err := checkName(sessionID); err != nil {
		return "", err
	}
	if err := checkName(questionID); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, sessionID)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	base := questionID + "-" + s.newName()
	path := filepath.Join(dir, base+ext)

	size, err := writeChunks(path, chunks)
	if err != nil {
		return "", err
	}

	m := Manifest{
		SessionID:  sessionID,
		QuestionID: questionID,
		Path:       path,
		Chunks:     len(chunks),
		Bytes:      size,
		CreatedAt:  time.Now().UTC(),
	}
	if err := writeJSON(filepath.Join(dir, base+".json"), m); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	s.logger.Info(ctx, "media saved",
		logger.String("sessionID", sessionID),
		logger.String("questionID", questionID),
		logger.String("path", path),
		logger.Int("bytes", size),
	)
	return path, nil
}

func writeChunks(path string, chunks [][]byte) (int, error) {
	tmp := path + ".part"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return 0, fmt.Errorf("create media file: %w", err)
	}
	size := 0
	for _, c := range chunks {
		n, err := f.Write(c)
		size += n
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
			return 0, fmt.Errorf("write media file: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("close media file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("commit media file: %w", err)
	}
	return size, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("close manifest: %w", err)
	}
	return nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

package pass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path"
	"strings"

	"github.com/bnema/modal-accounts-cli/internal/ports"
)

// DefaultPrefix namespaces every entry written by the daemon.
const DefaultPrefix = "modal-accounts"

var ErrUnavailable = errors.New("pass command unavailable")

type runFunc func(ctx context.Context, stdin string, args ...string) (stdout string, stderr string, err error)

// Store keeps secrets in the user's password-store. Values travel over
// stdin so they never appear in a process listing.
type Store struct {
	prefix string
	run    runFunc
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &Store{prefix: prefix, run: runPass}
}

func (s *Store) entry(key string) (string, error) {
	key = strings.Trim(key, "/")
	if key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid secret key %q", key)
	}

	return path.Join(s.prefix, key), nil
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry, err := s.entry(key)
	if err != nil {
		return err
	}

	if _, stderr, err := s.run(ctx, value+"\n", "insert", "--multiline", "--force", entry); err != nil {
		return wrap("insert", entry, err, stderr)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	entry, err := s.entry(key)
	if err != nil {
		return "", err
	}

	stdout, stderr, err := s.run(ctx, "", "show", entry)
	if err != nil {
		if strings.Contains(stderr, "is not in the password store") {
			return "", fmt.Errorf("%w: %q", ports.ErrSecretNotFound, entry)
		}
		return "", wrap("show", entry, err, stderr)
	}

	// Only the first line holds the value; pass allows trailing metadata.
	first, _, _ := strings.Cut(stdout, "\n")
	return strings.TrimSpace(first), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry, err := s.entry(key)
	if err != nil {
		return err
	}

	if _, stderr, err := s.run(ctx, "", "rm", "--force", entry); err != nil {
		if strings.Contains(stderr, "is not in the password store") {
			return nil
		}
		return wrap("rm", entry, err, stderr)
	}

	return nil
}

func runPass(ctx context.Context, stdin string, args ...string) (string, string, error) {
	bin, err := exec.LookPath("pass")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", "", ErrUnavailable
		}
		return "", "", fmt.Errorf("locate pass: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	return stdout.String(), strings.TrimSpace(stderr.String()), err
}

func wrap(op string, entry string, err error, stderr string) error {
	if stderr == "" {
		return fmt.Errorf("pass %s %q: %w", op, entry, err)
	}

	return fmt.Errorf("pass %s %q: %w: %s", op, entry, err, stderr)
}

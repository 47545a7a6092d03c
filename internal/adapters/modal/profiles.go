package modal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bnema/modal-accounts-cli/internal/domain"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	profileFileMode    = 0o600
	profileDirMode     = 0o700
	profileFileName    = ".modal.toml"
	profileTempPattern = ".modal-*.toml.tmp"

	tokenIDKey     = "token_id"
	tokenSecretKey = "token_secret"
)

// ProfileFile edits the CLI's auth file. Each profile is a top-level table;
// keys other than the token pair are preserved on rewrite.
type ProfileFile struct {
	path string
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

// DefaultProfilePath is ~/.modal.toml.
func DefaultProfilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(homeDir, profileFileName), nil
}

func NewProfileFile(path string) (*ProfileFile, error) {
	if path == "" {
		return nil, errors.New("profile file path is empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve profile file path: %w", err)
	}
	absPath = filepath.Clean(absPath)

	return &ProfileFile{path: absPath, mu: lockForPath(absPath)}, nil
}

func (f *ProfileFile) Path() string {
	return f.path
}

func (f *ProfileFile) Upsert(ctx context.Context, name string, creds domain.Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := domain.ValidateUsername(name); err != nil {
		return fmt.Errorf("profile name: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	profiles, err := f.read()
	if err != nil {
		return err
	}

	section, ok := profiles[name]
	if !ok {
		section = map[string]any{}
	}
	section[tokenIDKey] = creds.TokenID
	section[tokenSecretKey] = creds.TokenSecret
	profiles[name] = section

	return f.write(profiles)
}

func (f *ProfileFile) Has(ctx context.Context, name string) (bool, error) {
	names, err := f.Names(ctx)
	if err != nil {
		return false, err
	}

	for _, existing := range names {
		if existing == name {
			return true, nil
		}
	}

	return false, nil
}

func (f *ProfileFile) Names(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	profiles, err := f.read()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

func (f *ProfileFile) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	profiles, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := profiles[name]; !ok {
		return nil
	}
	delete(profiles, name)

	return f.write(profiles)
}

func (f *ProfileFile) read() (map[string]map[string]any, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]map[string]any{}, nil
		}
		return nil, fmt.Errorf("read profile file: %w", err)
	}

	profiles := map[string]map[string]any{}
	if err := toml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("decode profile file: %w", err)
	}

	return profiles, nil
}

func (f *ProfileFile) write(profiles map[string]map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(f.path), profileDirMode); err != nil {
		return fmt.Errorf("create profile directory: %w", err)
	}

	data, err := toml.Marshal(profiles)
	if err != nil {
		return fmt.Errorf("encode profile file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(f.path), profileTempPattern)
	if err != nil {
		return fmt.Errorf("create temp profile file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp profile file: %w", err)
	}
	if err := tempFile.Chmod(profileFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp profile file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp profile file: %w", err)
	}

	if err := os.Rename(tempName, f.path); err != nil {
		return fmt.Errorf("replace profile file: %w", err)
	}
	cleanup = false

	return nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

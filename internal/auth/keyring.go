package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/giftcard-platform/internal/config"
)

// Keyring holds the signing key plus any retired keys kept for verification.
//
// Rotation policy: new tokens are always signed with ActiveID. A retired key
// that stays in the keyring keeps verifying its tokens until they expire; a
// key that is dropped makes every token it signed fail verification.
type Keyring struct {
	ActiveID string
	keys     map[string][]byte
}

// NewKeyring builds a keyring from the active key and optional verify-only keys.
func NewKeyring(activeID, activeSecret string, verifyOnly map[string]string) (*Keyring, error) {
	activeID = strings.TrimSpace(activeID)
	if activeID == "" {
		return nil, errors.New("active key id required")
	}
	if activeSecret == "" {
		return nil, errors.New("active key secret required")
	}
	keys := map[string][]byte{activeID: []byte(activeSecret)}
	for kid, secret := range verifyOnly {
		kid = strings.TrimSpace(kid)
		if kid == "" || secret == "" {
			return nil, errors.New("verify key entries need an id and a secret")
		}
		if kid == activeID {
			return nil, fmt.Errorf("verify key %q collides with the active key", kid)
		}
		keys[kid] = []byte(secret)
	}
	return &Keyring{ActiveID: activeID, keys: keys}, nil
}

// ActiveSecret returns the signing secret.
func (k *Keyring) ActiveSecret() []byte {
	return k.keys[k.ActiveID]
}

// Secret looks up a key by id.
func (k *Keyring) Secret(kid string) ([]byte, bool) {
	secret, ok := k.keys[kid]
	return secret, ok
}

// IDs returns the ids of every key that can verify tokens.
func (k *Keyring) IDs() []string {
	ids := make([]string, 0, len(k.keys))
	for kid := range k.keys {
		ids = append(ids, kid)
	}
	return ids
}

type keyringFile struct {
	Active string `yaml:"active"`
	Keys   []struct {
		ID     string `yaml:"id"`
		Secret string `yaml:"secret"`
	} `yaml:"keys"`
}

// LoadKeyringFile reads a YAML keyring:
//
//	active: k2
//	keys:
//	  - {id: k2, secret: "..."}
//	  - {id: k1, secret: "..."}  # verify-only
func LoadKeyringFile(path string) (*Keyring, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var kf keyringFile
	if err := yaml.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse keyring %s: %w", path, err)
	}
	var activeSecret string
	verifyOnly := map[string]string{}
	for _, key := range kf.Keys {
		if key.ID == kf.Active {
			activeSecret = key.Secret
			continue
		}
		if _, dup := verifyOnly[key.ID]; dup {
			return nil, fmt.Errorf("duplicate key id %q", key.ID)
		}
		verifyOnly[key.ID] = key.Secret
	}
	if activeSecret == "" {
		return nil, fmt.Errorf("active key %q not found in %s", kf.Active, path)
	}
	return NewKeyring(kf.Active, activeSecret, verifyOnly)
}

// KeyringFromConfig prefers the keyring file and falls back to AUTH_JWT_* values.
func KeyringFromConfig(cfg config.AuthConfig) (*Keyring, error) {
	if cfg.KeyringFile != "" {
		return LoadKeyringFile(cfg.KeyringFile)
	}
	return NewKeyring(cfg.JWTKeyID, cfg.JWTSecret, cfg.VerifyKeys)
}

// KeyringWatcher reloads a keyring file into a TokenManager when it changes.
// A file that fails to load is logged and the previous keyring stays active.
type KeyringWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	tokens  *TokenManager
	logger  *zap.Logger
	done    chan struct{}
	once    sync.Once
}

// WatchKeyring starts watching the keyring file's directory.
func WatchKeyring(path string, tokens *TokenManager, logger *zap.Logger) (*KeyringWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// the directory, so editors that replace the file by rename still trigger
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, err
	}
	kw := &KeyringWatcher{
		watcher: w,
		path:    filepath.Clean(path),
		tokens:  tokens,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go kw.loop()
	return kw, nil
}

func (kw *KeyringWatcher) loop() {
	for {
		select {
		case event, ok := <-kw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != kw.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				kw.reload()
			}
		case err, ok := <-kw.watcher.Errors:
			if !ok {
				return
			}
			kw.logger.Error("keyring watcher error", zap.Error(err))
		case <-kw.done:
			return
		}
	}
}

func (kw *KeyringWatcher) reload() {
	keys, err := LoadKeyringFile(kw.path)
	if err != nil {
		kw.logger.Warn("keyring reload failed; keeping previous keys", zap.Error(err))
		return
	}
	kw.tokens.Rotate(keys)
	kw.logger.Info("keyring reloaded",
		zap.String("active_kid", keys.ActiveID),
		zap.Strings("kids", keys.IDs()))
}

// Close stops the watcher.
func (kw *KeyringWatcher) Close() error {
	var err error
	kw.once.Do(func() {
		close(kw.done)
		err = kw.watcher.Close()
	})
	return err
}

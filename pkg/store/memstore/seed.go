package memstore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/tablesync/tablesync/pkg/store"
	"gopkg.in/yaml.v3"
)

// Seed is the on-disk fixture format used to populate a Store.
type Seed struct {
	Users    []store.User    `yaml:"users"`
	Sessions []store.Session `yaml:"sessions"`
	Scenes   []store.Scene   `yaml:"scenes"`
}

// LoadSeed decodes a YAML fixture and inserts its records.
func (s *Store) LoadSeed(r io.Reader) error {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode seed: %w", err)
	}

	for _, u := range seed.Users {
		if u.ID == "" {
			return fmt.Errorf("seed user %q has no id", u.Username)
		}
		s.PutUser(u)
	}
	for _, sess := range seed.Sessions {
		if sess.ID == "" || sess.UserID == "" {
			return errors.New("seed session requires id and userId")
		}
		s.PutSession(sess)
	}
	for _, sc := range seed.Scenes {
		if sc.ID == "" || sc.CampaignID == "" {
			return errors.New("seed scene requires id and campaignId")
		}
		s.PutScene(sc)
	}

	s.logger.Info("Seed loaded",
		slog.Int("users", len(seed.Users)),
		slog.Int("sessions", len(seed.Sessions)),
		slog.Int("scenes", len(seed.Scenes)),
	)
	return nil
}

// LoadSeedFile is LoadSeed for a path on disk.
func (s *Store) LoadSeedFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.LoadSeed(f)
}

package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// FileStore persists the two collections as JSON files under a data
// directory, written atomically (temp file + rename) the way
// loadconduit's atomicWriteFile does for its reports — the same
// "never leave a half-written file behind" shape, generalized from a
// one-off report writer to the two collections this relay must survive
// restarts with.
type FileStore struct {
	dir string
}

// NewFileStore returns a Store backed by "<dir>/users.json" and
// "<dir>/rooms.json".
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) usersPath() string { return filepath.Join(s.dir, "users.json") }
func (s *FileStore) roomsPath() string { return filepath.Join(s.dir, "rooms.json") }

func (s *FileStore) LoadUsers() ([]UserRecord, error) {
	var out []UserRecord
	if err := loadJSON(s.usersPath(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FileStore) LoadRooms() ([]RoomRecord, error) {
	var out []RoomRecord
	if err := loadJSON(s.roomsPath(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FileStore) SaveUsers(users []UserRecord) error {
	return atomicWriteJSON(s.usersPath(), users)
}

func (s *FileStore) SaveRooms(rooms []RoomRecord) error {
	return atomicWriteJSON(s.roomsPath(), rooms)
}

func loadJSON(path string, out interface{}) error {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, out)
}

func atomicWriteJSON(path string, v interface{}) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".storage-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

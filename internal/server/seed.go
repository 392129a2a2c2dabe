package server

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SeedFile is the on-disk list of users for the development server.
type SeedFile struct {
	Users []User `yaml:"users"`
}

// LoadUsers reads a seed file.
func LoadUsers(path string) ([]User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read seed file %s", path)
	}
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, errors.Wrapf(err, "parse seed file %s", path)
	}
	if len(seed.Users) == 0 {
		return nil, errors.Errorf("seed file %s has no users", path)
	}
	return seed.Users, nil
}

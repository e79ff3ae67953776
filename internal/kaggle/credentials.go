package kaggle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// CredentialsFile is the file name the Kaggle tooling reads credentials from.
const CredentialsFile = "kaggle.json"

// Credentials authenticate dataset downloads.
type Credentials struct {
	Username string `mapstructure:"username"`
	Key      string `mapstructure:"key"`

	// Source is the file the credentials were read from, or "env".
	Source string `mapstructure:"-"`
}

// Valid reports whether both fields are set.
func (c Credentials) Valid() bool {
	return c.Username != "" && c.Key != ""
}

// ErrNoCredentials is returned when neither a credentials file nor the
// environment provides a username and key.
var ErrNoCredentials = errors.New("no kaggle credentials found")

// LoadCredentials reads kaggle.json from dir, falling back to ~/.kaggle when
// dir is empty. KAGGLE_USERNAME and KAGGLE_KEY override file values.
func LoadCredentials(dir string) (Credentials, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			dir = filepath.Join(home, ".kaggle")
		}
	}

	v := viper.New()
	v.SetEnvPrefix("KAGGLE")
	_ = v.BindEnv("username")
	_ = v.BindEnv("key")

	var creds Credentials
	if dir != "" {
		path := filepath.Join(dir, CredentialsFile)
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return Credentials{}, fmt.Errorf("read %s: %w", path, err)
			}
		} else {
			creds.Source = path
		}
	}

	if err := v.Unmarshal(&creds); err != nil {
		return Credentials{}, fmt.Errorf("decode credentials: %w", err)
	}
	if os.Getenv("KAGGLE_USERNAME") != "" || os.Getenv("KAGGLE_KEY") != "" {
		creds.Source = "env"
	}
	if !creds.Valid() {
		return creds, ErrNoCredentials
	}
	return creds, nil
}

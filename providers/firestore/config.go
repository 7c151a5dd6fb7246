package firestore

import (
	"encoding/json"
	"fmt"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"google.golang.org/api/option"
	"strings"
)

const defaultDatabaseID = "(default)"

// Config contains some configuration variables for the Firestore Provider.
//
// Credentials are read from CredentialsFile when given.
// Otherwise ClientEmail and PrivateKey, the two service account fields, are combined into a credential.
// When none of them is set, Application Default Credentials are used.
type Config struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	DatabaseID      string `json:"database_id" yaml:"database_id"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
	ClientEmail     string `json:"client_email" yaml:"client_email"`
	PrivateKey      string `json:"private_key" yaml:"private_key"`
}

// NewConfig returns initialized Config struct with default settings.
// ProjectID is empty at this point.
func NewConfig() *Config {
	return &Config{
		ProjectID:  "",
		DatabaseID: defaultDatabaseID,
	}
}

// Validate checks the given values before any connection is made.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ProjectID, validation.Required),
		validation.Field(&c.DatabaseID, validation.Required),
		validation.Field(&c.ClientEmail, validation.When(c.PrivateKey != "", validation.Required)),
		validation.Field(&c.PrivateKey, validation.When(c.ClientEmail != "", validation.Required)),
	)
}

func (c *Config) clientOptions() ([]option.ClientOption, error) {
	if c.CredentialsFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(c.CredentialsFile)}, nil
	}

	if c.ClientEmail == "" {
		return []option.ClientOption{}, nil
	}

	b, err := serviceAccountJSON(c.ProjectID, c.ClientEmail, c.PrivateKey)
	if err != nil {
		return nil, err
	}
	return []option.ClientOption{option.WithCredentialsJSON(b)}, nil
}

func serviceAccountJSON(projectID string, clientEmail string, privateKey string) ([]byte, error) {
	// Keys passed via environment variables usually carry escaped line breaks.
	privateKey = strings.ReplaceAll(privateKey, `\n`, "\n")

	b, err := json.Marshal(map[string]string{
		"type":         "service_account",
		"project_id":   projectID,
		"client_email": clientEmail,
		"private_key":  privateKey,
		"token_uri":    "https://oauth2.googleapis.com/token",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build service account credential: %w", err)
	}
	return b, nil
}

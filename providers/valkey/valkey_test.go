package valkey

import (
	"context"
	"github.com/alicebob/miniredis/v2"
	"github.com/oklahomer/go-kasumi/retry"
	"github.com/oklahomer/go-sarah-addons/internal/providertest"
	"os"
	"strings"
	"testing"
)

func TestNewConfig(t *testing.T) {
	config := NewConfig()

	if config.Address == "" {
		t.Error("Default address is not set.")
	}

	if config.KeyPrefix != "sarah" {
		t.Errorf("Unexpected key prefix: %s.", config.KeyPrefix)
	}

	if config.ConnectRetry == nil {
		t.Error("Retry policy is not set.")
	}
}

func TestProvider_key(t *testing.T) {
	data := []struct {
		prefix   string
		expected string
	}{
		{
			prefix:   "sarah",
			expected: "sarah:guilds",
		},
		{
			prefix:   "sarah:",
			expected: "sarah:guilds",
		},
		{
			prefix:   "",
			expected: "guilds",
		},
	}

	for i, datum := range data {
		provider := NewWithClient(nil, datum.prefix)
		if key := provider.key("guilds"); key != datum.expected {
			t.Errorf("Unexpected key is returned on test No. %d: %s.", i+1, key)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	data := []struct {
		modify func(*Config)
		valid  bool
	}{
		{
			modify: func(*Config) {},
			valid:  true,
		},
		{
			modify: func(c *Config) { c.Address = "" },
			valid:  false,
		},
		{
			modify: func(c *Config) { c.DB = -1 },
			valid:  false,
		},
		{
			modify: func(c *Config) { c.KeyPrefix = "" },
			valid:  true,
		},
	}

	for i, datum := range data {
		config := NewConfig()
		datum.modify(config)

		err := config.Validate()
		if datum.valid && err != nil {
			t.Errorf("Unexpected error is returned on test No. %d: %s.", i+1, err.Error())
		}
		if !datum.valid && err == nil {
			t.Errorf("Expected error is not returned on test No. %d.", i+1)
		}
	}
}

func TestNew_EmptyAddress(t *testing.T) {
	config := NewConfig()
	config.Address = ""

	_, err := New(context.TODO(), config)
	if err == nil {
		t.Error("Expected error is not returned.")
	}
}

func TestProvider(t *testing.T) {
	server := miniredis.RunT(t)

	config := NewConfig()
	config.Address = server.Addr()
	config.ConnectRetry = &retry.Policy{Trial: 1}

	provider, err := New(context.TODO(), config)
	if err != nil {
		t.Fatalf("Unexpected error is returned: %s.", err.Error())
	}
	t.Cleanup(func() {
		_ = provider.Close()
	})

	providertest.Run(t, provider)

	keys := server.Keys()
	if len(keys) != 1 || !strings.HasPrefix(keys[0], "sarah:providertest_") {
		t.Errorf("Documents are not stored in one prefixed hash: %v.", keys)
	}
}

func TestProvider_Server(t *testing.T) {
	address := os.Getenv("VALKEY_ADDRESS")
	if address == "" {
		t.Skip("VALKEY_ADDRESS is not set.")
	}

	config := NewConfig()
	config.Address = address
	config.KeyPrefix = "sarah-addons-test"
	config.ConnectRetry = &retry.Policy{Trial: 1}

	provider, err := New(context.TODO(), config)
	if err != nil {
		t.Fatalf("Unexpected error is returned: %s.", err.Error())
	}
	t.Cleanup(func() {
		_ = provider.Close()
	})

	providertest.Run(t, provider)
}

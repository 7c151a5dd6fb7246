package memory

import (
	"context"
	"errors"
	"github.com/oklahomer/go-sarah-addons"
	"github.com/oklahomer/go-sarah-addons/internal/providertest"
	"testing"
	"time"
)

func TestNewConfig(t *testing.T) {
	config := NewConfig()

	if config.ExpiresIn != 0 {
		t.Errorf("Documents must not expire by default: %s.", config.ExpiresIn)
	}

	if config.CleanupInterval <= 0 {
		t.Errorf("Unexpected cleanup interval: %s.", config.CleanupInterval)
	}
}

func TestNew(t *testing.T) {
	provider, err := New(NewConfig())
	if err != nil {
		t.Fatalf("Unexpected error is returned: %s.", err.Error())
	}

	if provider.cache == nil {
		t.Error("Cache is not initialized.")
	}

	_, err = New(nil)
	if err == nil {
		t.Error("Expected error is not returned.")
	}
}

func TestProvider(t *testing.T) {
	provider, err := New(NewConfig())
	if err != nil {
		t.Fatalf("Unexpected error is returned: %s.", err.Error())
	}
	defer provider.Close()

	providertest.Run(t, provider)
}

func TestProvider_Get_Isolated(t *testing.T) {
	provider, _ := New(NewConfig())
	ctx := context.TODO()

	_ = provider.Create(ctx, "guilds", "1", addons.Document{"prefix": "."})

	doc, _ := provider.Get(ctx, "guilds", "1")
	doc["prefix"] = "!"

	stored, _ := provider.Get(ctx, "guilds", "1")
	if stored["prefix"] != "." {
		t.Errorf("Stored document must not be modified via returned value: %#v.", stored)
	}
}

func TestProvider_DeleteTable(t *testing.T) {
	provider, _ := New(NewConfig())
	ctx := context.TODO()

	_ = provider.Create(ctx, "guilds", "1", addons.Document{})
	_ = provider.Create(ctx, "guilds", "2", addons.Document{})
	_ = provider.Create(ctx, "guildsettings", "1", addons.Document{})

	if err := provider.DeleteTable(ctx, "guilds"); err != nil {
		t.Fatalf("Unexpected error is returned: %s.", err.Error())
	}

	keys, _ := provider.GetKeys(ctx, "guilds")
	if len(keys) != 0 {
		t.Errorf("Documents are left: %v.", keys)
	}

	exists, _ := provider.HasTable(ctx, "guildsettings")
	if !exists {
		t.Error("Table sharing the same prefix must stay.")
	}
}

func TestProvider_Expiration(t *testing.T) {
	provider, _ := New(&Config{ExpiresIn: 10 * time.Millisecond, CleanupInterval: time.Minute})
	ctx := context.TODO()

	_ = provider.Create(ctx, "guilds", "1", addons.Document{})
	time.Sleep(30 * time.Millisecond)

	has, _ := provider.Has(ctx, "guilds", "1")
	if has {
		t.Error("Expired document must not be returned.")
	}
}

func TestProvider_read_IllegalType(t *testing.T) {
	provider, _ := New(NewConfig())
	provider.cache.Set(cacheKey("guilds", "1"), "string value", 0)

	_, err := provider.Get(context.TODO(), "guilds", "1")
	if err == nil {
		t.Error("Expected error is not returned.")
	}
}

func TestProvider_GetAll_SkipsMissingValue(t *testing.T) {
	provider, _ := New(NewConfig())
	ctx := context.TODO()

	_ = provider.Create(ctx, "guilds", "1", addons.Document{"prefix": "."})
	// Listed by GetKeys, but read as a missing document.
	provider.cache.Set(cacheKey("guilds", "2"), nil, 0)

	_, err := provider.Get(ctx, "guilds", "2")
	if !errors.Is(err, addons.ErrDocumentNotFound) {
		t.Errorf("Expected error is not returned: %#v.", err)
	}

	docs, err := provider.GetAll(ctx, "guilds", nil)
	if err != nil {
		t.Fatalf("Unexpected error is returned: %s.", err.Error())
	}

	if len(docs) != 1 || docs[0].ID() != "1" {
		t.Errorf("Unexpected documents are returned: %#v.", docs)
	}
}

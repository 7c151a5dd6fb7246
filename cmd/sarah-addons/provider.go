package main

import (
	"context"
	"fmt"
	"github.com/oklahomer/go-sarah-addons"
	"github.com/oklahomer/go-sarah-addons/providers/firestore"
	"github.com/oklahomer/go-sarah-addons/providers/memory"
	"github.com/oklahomer/go-sarah-addons/providers/sqlstore"
	"github.com/oklahomer/go-sarah-addons/providers/valkey"
)

func openProvider(ctx context.Context, config *providerConfig) (addons.Provider, error) {
	switch config.Type {
	case providerMemory, "":
		return memory.New(config.Memory)

	case providerSQL:
		return sqlstore.New(ctx, config.SQL)

	case providerValkey:
		return valkey.New(ctx, config.Valkey)

	case providerFirestore:
		return firestore.New(ctx, config.Firestore)

	default:
		return nil, fmt.Errorf("unknown provider type: %s", config.Type)
	}
}

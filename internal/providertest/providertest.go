// Package providertest provides a behavioral test suite that every addons.Provider implementation is run against.
package providertest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/oklahomer/go-sarah-addons"
	"sort"
	"testing"
	"time"
)

// Run exercises the whole addons.Provider contract against the given provider.
// A unique table name is used on each call so the suite can run against a shared store,
// and the documents it writes are removed on cleanup.
func Run(t *testing.T, provider addons.Provider) {
	t.Helper()

	ctx := context.Background()
	table := fmt.Sprintf("providertest_%d", time.Now().UnixNano())
	t.Cleanup(func() {
		keys, err := provider.GetKeys(ctx, table)
		if err != nil {
			return
		}
		for _, key := range keys {
			_ = provider.Delete(ctx, table, key)
		}
		_ = provider.DeleteTable(ctx, table)
	})

	t.Run("empty table", func(t *testing.T) {
		exists, err := provider.HasTable(ctx, table)
		if err != nil {
			t.Fatalf("Unexpected error is returned: %s.", err.Error())
		}
		if exists {
			t.Error("Fresh table must not exist.")
		}

		if err := provider.CreateTable(ctx, table); err != nil {
			t.Fatalf("Unexpected error is returned: %s.", err.Error())
		}

		has, err := provider.Has(ctx, table, "alpha")
		if err != nil {
			t.Fatalf("Unexpected error is returned: %s.", err.Error())
		}
		if has {
			t.Error("Missing document must not exist.")
		}

		_, err = provider.Get(ctx, table, "alpha")
		if !errors.Is(err, addons.ErrDocumentNotFound) {
			t.Errorf("Expected error is not returned on Get: %#v.", err)
		}

		err = provider.Update(ctx, table, "alpha", addons.Document{"name": "alpha"})
		if !errors.Is(err, addons.ErrDocumentNotFound) {
			t.Errorf("Expected error is not returned on Update: %#v.", err)
		}

		all, err := provider.GetAll(ctx, table, nil)
		if err != nil {
			t.Fatalf("Unexpected error is returned: %s.", err.Error())
		}
		if len(all) != 0 {
			t.Errorf("Unexpected documents are returned: %#v.", all)
		}
	})

	t.Run("create and get", func(t *testing.T) {
		for _, id := range []string{"charlie", "alpha", "bravo"} {
			err := provider.Create(ctx, table, id, addons.Document{"name": id, "count": 1, "tags": []interface{}{"a", "b"}})
			if err != nil {
				t.Fatalf("Unexpected error is returned on %s: %s.", id, err.Error())
			}
		}

		exists, err := provider.HasTable(ctx, table)
		if err != nil {
			t.Fatalf("Unexpected error is returned: %s.", err.Error())
		}
		if !exists {
			t.Error("Table with documents must exist.")
		}

		has, err := provider.Has(ctx, table, "alpha")
		if err != nil {
			t.Fatalf("Unexpected error is returned: %s.", err.Error())
		}
		if !has {
			t.Error("Created document must exist.")
		}

		doc, err := provider.Get(ctx, table, "alpha")
		if err != nil {
			t.Fatalf("Unexpected error is returned: %s.", err.Error())
		}
		if doc.ID() != "alpha" {
			t.Errorf("Id is not packed: %#v.", doc)
		}
		if doc["name"] != "alpha" {
			t.Errorf("Unexpected name: %#v.", doc["name"])
		}
		if number(doc["count"]) != 1 {
			t.Errorf("Unexpected count: %#v.", doc["count"])
		}

		keys, err := provider.GetKeys(ctx, table)
		if err != nil {
			t.Fatalf("Unexpected error is returned: %s.", err.Error())
		}
		sort.Strings(keys)
		if fmt.Sprint(keys) != "[alpha bravo charlie]" {
			t.Errorf("Unexpected keys: %v.", keys)
		}
	})

	t.Run("update merges", func(t *testing.T) {
		err := provider.Update(ctx, table, "alpha", addons.Document{"count": 2, "extra": "x"})
		if err != nil {
			t.Fatalf("Unexpected error is returned: %s.", err.Error())
		}

		doc, err := provider.Get(ctx, table, "alpha")
		if err != nil {
			t.Fatalf("Unexpected error is returned: %s.", err.Error())
		}
		if doc["name"] != "alpha" {
			t.Errorf("Untouched field is lost: %#v.", doc)
		}
		if number(doc["count"]) != 2 || doc["extra"] != "x" {
			t.Errorf("Fields are not updated: %#v.", doc)
		}
	})

	t.Run("replace overwrites", func(t *testing.T) {
		err := provider.Replace(ctx, table, "alpha", addons.Document{"name": "replaced"})
		if err != nil {
			t.Fatalf("Unexpected error is returned: %s.", err.Error())
		}

		doc, err := provider.Get(ctx, table, "alpha")
		if err != nil {
			t.Fatalf("Unexpected error is returned: %s.", err.Error())
		}
		if doc["name"] != "replaced" {
			t.Errorf("Unexpected name: %#v.", doc["name"])
		}
		if _, ok := doc["count"]; ok {
			t.Errorf("Old field must be removed: %#v.", doc)
		}
	})

	t.Run("get all", func(t *testing.T) {
		all, err := provider.GetAll(ctx, table, nil)
		if err != nil {
			t.Fatalf("Unexpected error is returned: %s.", err.Error())
		}
		if ids(all) != "[alpha bravo charlie]" {
			t.Errorf("Unexpected documents: %s.", ids(all))
		}

		filtered, err := provider.GetAll(ctx, table, []string{"charlie", "alpha", "unknown"})
		if err != nil {
			t.Fatalf("Unexpected error is returned: %s.", err.Error())
		}
		if ids(filtered) != "[alpha charlie]" {
			t.Errorf("Unexpected filtered documents: %s.", ids(filtered))
		}
	})

	t.Run("schedules", func(t *testing.T) {
		first, err := addons.NewScheduledTask("reminder", time.UnixMilli(1760864400000), addons.WithData(map[string]interface{}{"user": "U123"}))
		if err != nil {
			t.Fatalf("Unexpected error is returned: %s.", err.Error())
		}
		second, err := addons.NewScheduledTask("daily", time.Time{}, addons.WithRepeat("0 9 * * *"))
		if err != nil {
			t.Fatalf("Unexpected error is returned: %s.", err.Error())
		}

		err = provider.Create(ctx, table, "delta", addons.Document{"schedules": []*addons.ScheduledTask{first, second}})
		if err != nil {
			t.Fatalf("Unexpected error is returned: %s.", err.Error())
		}

		tasks, err := addons.LoadSchedules(ctx, provider, table, "delta")
		if err != nil {
			t.Fatalf("Unexpected error is returned: %s.", err.Error())
		}
		if len(tasks) != 1 || tasks[0].ID != first.ID {
			t.Fatalf("Only the first task must be stored: %#v.", tasks)
		}
		if !tasks[0].Time.Equal(first.Time) || tasks[0].Data["user"] != "U123" {
			t.Errorf("Unexpected rehydrated task: %#v.", tasks[0])
		}

		err = provider.Update(ctx, table, "delta", addons.Document{"schedules": []interface{}{second}})
		if err != nil {
			t.Fatalf("Unexpected error is returned: %s.", err.Error())
		}

		tasks, err = addons.LoadSchedules(ctx, provider, table, "delta")
		if err != nil {
			t.Fatalf("Unexpected error is returned: %s.", err.Error())
		}
		if len(tasks) != 1 || tasks[0].ID != second.ID || tasks[0].Repeat != "0 9 * * *" {
			t.Errorf("Schedules are not updated: %#v.", tasks)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := provider.Delete(ctx, table, "bravo"); err != nil {
			t.Fatalf("Unexpected error is returned: %s.", err.Error())
		}

		has, err := provider.Has(ctx, table, "bravo")
		if err != nil {
			t.Fatalf("Unexpected error is returned: %s.", err.Error())
		}
		if has {
			t.Error("Deleted document must not exist.")
		}

		if err := provider.Delete(ctx, table, "bravo"); err != nil {
			t.Errorf("Deleting missing document must not fail: %s.", err.Error())
		}

		has, err = provider.Has(ctx, table, "charlie")
		if err != nil {
			t.Fatalf("Unexpected error is returned: %s.", err.Error())
		}
		if !has {
			t.Error("Other document must stay.")
		}
	})

	t.Run("large integer", func(t *testing.T) {
		var owner int64 = 1234567890123456789
		if err := provider.Create(ctx, table, "echo", addons.Document{"owner": owner}); err != nil {
			t.Fatalf("Unexpected error is returned: %s.", err.Error())
		}

		doc, err := provider.Get(ctx, table, "echo")
		if err != nil {
			t.Fatalf("Unexpected error is returned: %s.", err.Error())
		}

		stored, ok := integer(doc["owner"])
		if !ok || stored != owner {
			t.Errorf("Integer value is not kept: %#v.", doc["owner"])
		}
	})
}

func ids(docs []addons.Document) string {
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID())
	}
	return fmt.Sprint(ids)
}

func number(value interface{}) float64 {
	switch v := value.(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return -1
		}
		return f
	default:
		return -1
	}
}

// integer accepts exact integer representations only, so a value that went through float64 fails.
func integer(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case json.Number:
		i, err := v.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

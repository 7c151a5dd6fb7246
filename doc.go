/*
Package addons provides document storage providers and chat commands that extend go-sarah.

A Provider stores schemaless documents, grouped by table and identified by a string id.
Each backend under providers/ translates the Provider methods into calls against one store:
Firestore, Valkey, SQLite/PostgreSQL or an in-process cache.

	provider, err := memory.New(memory.NewConfig())
	if err != nil {
		panic(err)
	}
	defer provider.Close()

	_ = provider.Create(ctx, "guilds", "1234", addons.Document{"prefix": "."})
	doc, _ := provider.Get(ctx, "guilds", "1234") // {"prefix": ".", "id": "1234"}

Commands live under plugins/ and are registered to go-sarah just like its own bundled plugins.
*/
package addons

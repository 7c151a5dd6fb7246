package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
)

type dialect struct {
	name       string
	dataType   string
	numbered   bool
	lockClause string
}

var dialects = map[string]*dialect{
	SQLite: {
		name:       SQLite,
		dataType:   "TEXT",
		numbered:   false,
		lockClause: "",
	},
	Postgres: {
		name:       Postgres,
		dataType:   "JSONB",
		numbered:   true,
		lockClause: " FOR UPDATE",
	},
}

// bind turns each ? into $1, $2, ... for drivers that only accept numbered placeholders.
func (d *dialect) bind(query string) string {
	if !d.numbered {
		return query
	}

	b := &strings.Builder{}
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type queries struct {
	schema    string
	hasTable  string
	dropTable string
	keys      string
	get       string
	lock      string
	has       string
	upsert    string
	update    string
	delete    string
	all       string
}

func buildQueries(d *dialect, table string) *queries {
	return &queries{
		schema: fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s (tbl TEXT NOT NULL, id TEXT NOT NULL, data %s NOT NULL, PRIMARY KEY (tbl, id))",
			table,
			d.dataType,
		),
		hasTable:  d.bind(fmt.Sprintf("SELECT 1 FROM %s WHERE tbl = ? LIMIT 1", table)),
		dropTable: d.bind(fmt.Sprintf("DELETE FROM %s WHERE tbl = ?", table)),
		keys:      d.bind(fmt.Sprintf("SELECT id FROM %s WHERE tbl = ? ORDER BY id", table)),
		get:       d.bind(fmt.Sprintf("SELECT data FROM %s WHERE tbl = ? AND id = ?", table)),
		lock:      d.bind(fmt.Sprintf("SELECT data FROM %s WHERE tbl = ? AND id = ?%s", table, d.lockClause)),
		has:       d.bind(fmt.Sprintf("SELECT 1 FROM %s WHERE tbl = ? AND id = ?", table)),
		upsert: d.bind(fmt.Sprintf(
			"INSERT INTO %s (tbl, id, data) VALUES (?, ?, ?) ON CONFLICT (tbl, id) DO UPDATE SET data = excluded.data",
			table,
		)),
		update: d.bind(fmt.Sprintf("UPDATE %s SET data = ? WHERE tbl = ? AND id = ?", table)),
		delete: d.bind(fmt.Sprintf("DELETE FROM %s WHERE tbl = ? AND id = ?", table)),
		all:    d.bind(fmt.Sprintf("SELECT id, data FROM %s WHERE tbl = ? ORDER BY id", table)),
	}
}

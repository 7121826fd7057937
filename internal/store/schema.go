package store

// DDL mirrors sql/schema. The loader never migrates; these statements only
// create missing tables for the schema command and --create-schema.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS product (
    id   INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS shipment (
    id          INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    product_id  INTEGER NOT NULL REFERENCES product (id),
    quantity    INTEGER NOT NULL,
    origin      TEXT NOT NULL,
    destination TEXT NOT NULL
);`

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS product (
    id   INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
)`,
	`CREATE TABLE IF NOT EXISTS shipment (
    id          INTEGER PRIMARY KEY,
    product_id  INTEGER NOT NULL REFERENCES product (id),
    quantity    INTEGER NOT NULL,
    origin      TEXT NOT NULL,
    destination TEXT NOT NULL
)`,
}

package store

const schema = `
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS ignored_packages (
    name TEXT PRIMARY KEY,
    added_at TIMESTAMP NOT NULL
);
`

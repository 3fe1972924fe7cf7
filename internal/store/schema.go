package store

const schema = `
CREATE TABLE IF NOT EXISTS installs (
    name TEXT PRIMARY KEY,
    path TEXT NOT NULL,
    preferred_branch TEXT NOT NULL DEFAULT 'stable',
    added_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS classifications (
    install TEXT PRIMARY KEY,
    fingerprint TEXT NOT NULL,
    version TEXT NOT NULL DEFAULT '',
    graphics TEXT NOT NULL DEFAULT '',
    framework_installed BOOLEAN NOT NULL DEFAULT 0,
    framework_build TEXT NOT NULL DEFAULT '',
    classified_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_classifications_fingerprint ON classifications(fingerprint);
`

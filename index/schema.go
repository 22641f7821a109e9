package index

const createFilesTable = `
CREATE TABLE IF NOT EXISTS files (
	id      INTEGER PRIMARY KEY,
	path    TEXT NOT NULL UNIQUE,
	repo    TEXT NOT NULL,
	mtime   INTEGER NOT NULL,
	size    INTEGER NOT NULL,
	content TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_files_repo ON files(repo);
`

// files_fts indexes path and content of files; rowid is files.id.
const createFullTextTable = `
CREATE VIRTUAL TABLE IF NOT EXISTS files_fts USING fts5(
	path,
	content,
	content='files',
	content_rowid='id'
);
`

// External-content FTS5 tables are only consistent if old values are
// removed with the 'delete' command before new ones are inserted.
const createFullTextTriggers = `
CREATE TRIGGER IF NOT EXISTS files_ai AFTER INSERT ON files BEGIN
	INSERT INTO files_fts(rowid, path, content) VALUES (new.id, new.path, new.content);
END;
CREATE TRIGGER IF NOT EXISTS files_ad AFTER DELETE ON files BEGIN
	INSERT INTO files_fts(files_fts, rowid, path, content) VALUES ('delete', old.id, old.path, old.content);
END;
CREATE TRIGGER IF NOT EXISTS files_au AFTER UPDATE ON files BEGIN
	INSERT INTO files_fts(files_fts, rowid, path, content) VALUES ('delete', old.id, old.path, old.content);
	INSERT INTO files_fts(rowid, path, content) VALUES (new.id, new.path, new.content);
END;
`

const dropFullTextTriggers = `
DROP TRIGGER IF EXISTS files_ai;
DROP TRIGGER IF EXISTS files_ad;
DROP TRIGGER IF EXISTS files_au;
`

const rebuildFullText = `INSERT INTO files_fts(files_fts) VALUES ('rebuild')`

package sqlstore

// schema is applied on every Open; every statement is idempotent
const schema = `
CREATE TABLE IF NOT EXISTS member (
	seq           INTEGER PRIMARY KEY AUTOINCREMENT,
	discord_id    TEXT    NOT NULL UNIQUE,
	username      TEXT    NOT NULL,
	join_date     INTEGER NOT NULL,
	is_officer    INTEGER NOT NULL DEFAULT 0,
	absence_count INTEGER NOT NULL DEFAULT 0,
	added_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS pool_cycle (
	list_type   TEXT    PRIMARY KEY,
	cycle_start INTEGER NOT NULL,
	last_reset  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS pool_entry (
	list_type TEXT NOT NULL,
	member_id TEXT NOT NULL REFERENCES member(discord_id) ON DELETE CASCADE,
	status    TEXT NOT NULL CHECK (status IN ('eligible', 'completed', 'inactive', 'retired')),
	PRIMARY KEY (list_type, member_id)
);

CREATE TABLE IF NOT EXISTS compensation_queue (
	seq       INTEGER PRIMARY KEY AUTOINCREMENT,
	list_type TEXT    NOT NULL,
	member_id TEXT    NOT NULL REFERENCES member(discord_id) ON DELETE CASCADE,
	UNIQUE (list_type, member_id)
);

CREATE TABLE IF NOT EXISTS link_history (
	id              TEXT    PRIMARY KEY,
	member_id       TEXT    NOT NULL,
	username        TEXT    NOT NULL,
	list_type       TEXT    NOT NULL,
	is_compensation INTEGER NOT NULL,
	notes           TEXT    NOT NULL DEFAULT '',
	awarded_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS link_history_list_awarded ON link_history (list_type, awarded_at);
`

package storage

const (
	initSchemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    start_time DATETIME NOT NULL,
    log_file   TEXT     NOT NULL,
    policy     TEXT     NOT NULL
);

CREATE TABLE IF NOT EXISTS samples (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  INTEGER NOT NULL REFERENCES sessions (id),
    source_kind TEXT    NOT NULL,
    identity    TEXT    NOT NULL,
    latitude    REAL    NOT NULL,
    longitude   REAL    NOT NULL,
    altitude    REAL    NOT NULL,
    timestamp   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS estimates (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  INTEGER  NOT NULL REFERENCES sessions (id),
    policy      TEXT     NOT NULL,
    computed_at DATETIME NOT NULL,
    latitude    REAL     NOT NULL,
    longitude   REAL     NOT NULL,
    altitude    REAL     NOT NULL,
    timestamp   INTEGER  NOT NULL
);`

	initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_samples_session_timestamp ON samples (session_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_estimates_session_timestamp ON estimates (session_id, timestamp);`

	insertSessionSQL = `
INSERT INTO sessions (
                      start_time,
                      log_file,
                      policy)
VALUES (?, ?, ?)`

	selectSessionSQL = `
SELECT
    id,
    start_time,
    log_file,
    policy
FROM sessions
WHERE
    id = ?`

	selectSessionsSQL = `
SELECT
    id,
    start_time,
    log_file,
    policy
FROM sessions
ORDER BY start_time, id`

	insertSampleSQL = `
INSERT INTO samples (session_id,
                     source_kind,
                     identity,
                     latitude,
                     longitude,
                     altitude,
                     timestamp)
VALUES `

	selectSamplesSQL = `
SELECT
    id,
    session_id,
    source_kind,
    identity,
    latitude,
    longitude,
    altitude,
    timestamp
FROM samples
WHERE
    session_id = ?
ORDER BY timestamp, id`

	insertEstimateSQL = `
INSERT INTO estimates (session_id,
                       policy,
                       computed_at,
                       latitude,
                       longitude,
                       altitude,
                       timestamp)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	selectEstimatesSQL = `
SELECT
    session_id,
    policy,
    computed_at,
    latitude,
    longitude,
    altitude,
    timestamp
FROM estimates
WHERE
    session_id = ?
ORDER BY id`
)

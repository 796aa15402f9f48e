// Package sqljob runs SQL statements as background jobs.
//
// A caller submits a statement together with a connector, gets a job handle
// back immediately, and polls or waits for completion. Statements that
// produce a result set have their rows persisted as a CSV artifact plus a
// lossless gob artifact under a configurable directory, keyed by job id and
// submission time.
//
//	conn, err := connector.Open("sqlite3:///var/data/app.db")
//	// handle err
//	engine := sqljob.New(sqljob.Config{ResultDir: "results"})
//	job, err := engine.Submit(ctx, "SELECT * FROM t", conn)
//	// handle err
//	handle, err := job.Wait(0).Result()
//
// Submission never blocks on execution unless WithPostCommit is given, which
// holds Submit until the statement is durably committed (before result
// persistence). Failures are recorded on the job and surface only through
// its handle; nothing is retried and in-flight jobs cannot be cancelled.
package sqljob

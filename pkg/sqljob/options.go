package sqljob

type submitOptions struct {
	params     []any
	postcommit bool
	maxRows    int
	ownsConn   bool
}

// SubmitOption configures a single submission.
type SubmitOption func(*submitOptions)

// WithParams passes positional parameters along with the statement.
func WithParams(args ...any) SubmitOption {
	return func(o *submitOptions) {
		o.params = args
	}
}

// WithPostCommit makes Submit block until the statement reaches its durable
// commit point, before result persistence begins. Wait, by contrast, blocks
// until the whole job including persistence is finished.
func WithPostCommit() SubmitOption {
	return func(o *submitOptions) {
		o.postcommit = true
	}
}

// WithMaxRows overrides the engine's retained-row bound for this job.
// n <= 0 keeps all rows in memory.
func WithMaxRows(n int) SubmitOption {
	return func(o *submitOptions) {
		o.maxRows = n
	}
}

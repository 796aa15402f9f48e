// Package config provides configuration loading from environment variables.
package config

import (
	"time"
)

// RunnerConfig holds configuration for the sqlrunner CLI.
type RunnerConfig struct {
	DSN          string        // connection descriptor, driver://dsn
	ResultDir    string        // base directory for result artifacts
	MaxTableRows int           // in-memory rows retained per result
	MetricsPort  string        // empty disables the metrics endpoint
	PostCommit   bool          // block submission until the statement commits
	WaitTimeout  time.Duration // 0 waits indefinitely
	LogQuery     bool          // log the SQL text at query start
	LogParams    bool          // log parameters at query start
}

// LoadRunnerConfig loads runner configuration from environment variables.
// The DSN may come from SQLRUNNER_DSN directly or from a secret file named
// by SQLRUNNER_DSN_FILE.
func LoadRunnerConfig() *RunnerConfig {
	dsn := GetEnv("SQLRUNNER_DSN", "")
	if dsn == "" {
		dsn = GetSecretFile(GetEnv("SQLRUNNER_DSN_FILE", ""))
	}
	return &RunnerConfig{
		DSN:          dsn,
		ResultDir:    GetEnv("SQLRUNNER_RESULT_DIR", "sqljob-results"),
		MaxTableRows: GetIntEnv("SQLRUNNER_MAX_TABLE_ROWS", 10000),
		MetricsPort:  GetEnv("METRICS_PORT", ""),
		PostCommit:   GetBoolEnv("SQLRUNNER_POSTCOMMIT", false),
		WaitTimeout:  GetDurationEnv("SQLRUNNER_WAIT_TIMEOUT", 0),
		LogQuery:     GetBoolEnv("SQLRUNNER_LOG_QUERY", true),
		LogParams:    GetBoolEnv("SQLRUNNER_LOG_PARAMS", false),
	}
}

package logconfig

import (
	myLogger "github.com/sirupsen/logrus"
)

// Verbose format with caller info, for tests and local debugging.
func ConfigDebugLogger() {
	myLogger.SetReportCaller(true)
	myLogger.SetLevel(myLogger.DebugLevel)
	myLogger.SetFormatter(&myLogger.TextFormatter{
		ForceColors:            true,
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
		PadLevelText:           true,
	})
}

func ConfigInfoLogger() {
	myLogger.SetReportCaller(false)
	myLogger.SetLevel(myLogger.InfoLevel)
	myLogger.SetFormatter(&myLogger.TextFormatter{
		ForceColors:            true,
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
		PadLevelText:           true,
	})
}

// JSON output at info level, for the deployed wallet server.
func ConfigProductionLogger() {
	myLogger.SetLevel(myLogger.InfoLevel)
	myLogger.SetFormatter(&myLogger.JSONFormatter{})
}

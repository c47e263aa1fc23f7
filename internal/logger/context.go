package logger

// Component-specific logger functions

// Board returns a logger for board engine operations
func Board() Logger {
	return WithField("component", "board")
}

// DB returns a logger for database operations
func DB() Logger {
	return WithField("component", "db")
}

// Events returns a logger for event dispatch
func Events() Logger {
	return WithField("component", "events")
}

// Migration returns a logger for migration operations
func Migration() Logger {
	return WithField("component", "migration")
}

// CLI returns a logger for CLI operations
func CLI() Logger {
	return WithField("component", "cli")
}

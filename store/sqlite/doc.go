// Package sqlite provides a SQLite-backed Execution Store, suitable for
// single-process deployments and local development.
//
//	s, err := sqlite.New(sqlite.Options{Path: "./executions.db"})
//	if err != nil {
//		return err
//	}
//	defer s.Close()
package sqlite

// Package postgres provides a PostgreSQL-backed Execution Store for
// multi-process deployments, seamed behind DBPool so tests can substitute
// pgxmock instead of a live database.
//
//	s, err := postgres.New(ctx, postgres.Options{ConnString: dsn})
//	if err != nil {
//		return err
//	}
//	defer s.Close()
package postgres
